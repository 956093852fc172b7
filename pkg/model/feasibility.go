package model

import (
	"time"

	"github.com/samber/lo"
)

// Candidate is an admissible (room, time) pair for a course
type Candidate struct {
	Room *Room
	Slot TimeSlot
}

// AllowedRooms returns the rooms a course may be placed in. A respected room preference is always
// returned as is; otherwise only viable inventory rooms are kept.
func AllowedRooms(course *Course, inventory []*Room, sink WarningSink) []*Room {
	if course.RespectRoom {
		return []*Room{course.roomPrefs[0]}
	}

	viableRooms := lo.Filter(inventory, func(room *Room, _ int) bool {
		return course.IsViableRoom(room)
	})
	for _, pref := range course.roomPrefs {
		if !lo.ContainsBy(viableRooms, pref.Equal) {
			warnf(sink, "room preference %v not used for course %v because inviable or not in inventory", pref, course)
		}
	}
	return viableRooms
}

// AllowedTimes returns the time slots a course may meet at. A respected time preference is always
// returned as is. Stated preferences are always part of the result, even when they break the rules.
func AllowedTimes(course *Course, opts Options, forbidden *TimeSlot, sink WarningSink) ([]TimeSlot, error) {
	if course.RespectTime {
		return []TimeSlot{course.timePrefs[0]}, nil
	}
	first := course.timePrefs[0]

	//** Day patterns
	var dayPatterns []DaySet
	switch first.MeetingsPerWeek() {
	case 3:
		dayPatterns = []DaySet{Monday | Wednesday | Friday}
	case 2:
		dayPatterns = []DaySet{Monday | Wednesday, Tuesday | Thursday}
	case 1:
		// Recitations asking for the second half of the week keep it
		lateWeek := []DaySet{Wednesday, Thursday, Friday}
		if course.Kind == Recitation && lo.Contains(lateWeek, first.Days) {
			dayPatterns = lateWeek
		} else {
			dayPatterns = Weekdays
		}
	default:
		return nil, schedulingErrorf("course %v meets more than 3 times per week", course)
	}

	//** Start times
	length := first.SessionLength()
	if length < opts.Granularity {
		return nil, schedulingErrorf("course %v meets for less than %v per session", course, opts.Granularity)
	}

	blockStarts := lo.Map(opts.Blocks, func(block Block, _ int) TimeOfDay { return block.Start })
	var starts []TimeOfDay
	switch length {
	case 90 * time.Minute:
		starts = blockStarts
	case 60 * time.Minute:
		starts = append(starts, blockStarts...)
		for _, start := range blockStarts {
			starts = append(starts, start.Add(30*time.Minute))
		}
	default:
		// Sessions asking to start before the seminar floor may start from the first block
		earliest := opts.FirstSeminar
		if first.Start < opts.FirstSeminar {
			earliest = opts.FirstClass
			if len(opts.Blocks) > 0 {
				earliest = opts.Blocks[0].Start
			}
		}
		latest := opts.LastClass.Add(-length)
		for start := earliest; start <= latest; start = start.Add(opts.Granularity) {
			starts = append(starts, start)
		}
	}
	starts = lo.Uniq(starts)

	//** Candidates
	times := make([]TimeSlot, 0, len(starts)*len(dayPatterns))
	for _, start := range starts {
		for _, days := range dayPatterns {
			slot := TimeSlot{Half: first.Half, Days: days, Start: start, End: start.Add(length)}
			if forbidden != nil && slot.Overlaps(*forbidden) {
				continue
			}
			times = append(times, slot)
		}
	}

	// Preferences are never lost, even when they violate the forbidden slot
	for _, pref := range course.timePrefs {
		if !lo.Contains(times, pref) {
			warnf(sink, "time preference %v was added, but not deemed viable for %v", pref, course)
			times = append(times, pref)
		}
	}
	return times, nil
}

// AllowedRoomTimes returns the cross product of allowed rooms and times, rooms first
func AllowedRoomTimes(course *Course, opts Options, inventory []*Room, sink WarningSink) ([]Candidate, error) {
	rooms := AllowedRooms(course, inventory, sink)
	times, err := AllowedTimes(course, opts, opts.ForbiddenSlot(), sink)
	if err != nil {
		return nil, err
	}
	if len(rooms) == 0 || len(times) == 0 {
		return nil, schedulingErrorf("no viable rooms or times for course %v", course)
	}

	candidates := make([]Candidate, 0, len(rooms)*len(times))
	for _, room := range rooms {
		for _, slot := range times {
			candidates = append(candidates, Candidate{Room: room, Slot: slot})
		}
	}
	return candidates, nil
}

// ExcessCapacity is the fraction of the room left empty by the course, in [0, 1)
func ExcessCapacity(course *Course, room *Room) float64 {
	return max(float64(room.Capacity-course.Enrollment)/float64(room.Capacity), 0)
}

// HorizonInstants returns every granularity-long instant of the week, for each half of the term.
// Full-term slots overlap the instants of both halves.
func HorizonInstants(opts Options) []TimeSlot {
	instants := make([]TimeSlot, 0)
	for _, half := range Halves {
		for _, day := range Weekdays {
			for start := opts.FirstClass; start < opts.LastClass; start = start.Add(opts.Granularity) {
				instants = append(instants, TimeSlot{Half: half, Days: day, Start: start, End: start.Add(opts.Granularity)})
			}
		}
	}
	return instants
}

package model

import (
	"fmt"
	"math/bits"
	"strings"
	"time"

	"github.com/samber/lo"
)

//** Half

// Half designates the part of the term a course runs in
type Half uint8

const (
	Full Half = iota
	FirstHalf
	SecondHalf
)

// Halves lists the sub-term designators, in the order the horizon is swept
var Halves = []Half{FirstHalf, SecondHalf}

func ParseHalf(s string) (Half, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "H1":
		return FirstHalf, nil
	case "H2":
		return SecondHalf, nil
	case "F", "":
		return Full, nil
	}
	return Full, schedulingErrorf("unrecognized half-semester type %q: must be one of 'H1', 'H2' or 'F'", s)
}

func (half Half) String() string {
	switch half {
	case FirstHalf:
		return "H1"
	case SecondHalf:
		return "H2"
	}
	return "F"
}

// Overlaps is true when both halves can run at the same time: Full overlaps everything
func (half Half) Overlaps(other Half) bool {
	return half == Full || other == Full || half == other
}

//** Days

// DaySet is a set of weekdays encoded as a bitmask
type DaySet uint8

const (
	Monday DaySet = 1 << iota
	Tuesday
	Wednesday
	Thursday
	Friday
)

// Weekdays in calendar order
var Weekdays = []DaySet{Monday, Tuesday, Wednesday, Thursday, Friday}

var dayNames = map[DaySet]string{
	Monday:    "M",
	Tuesday:   "T",
	Wednesday: "W",
	Thursday:  "Th",
	Friday:    "F",
}

// ParseDays reads a day string such as "M W F" or "T, Th"
func ParseDays(s string) (DaySet, error) {
	fields := strings.Fields(strings.ReplaceAll(s, ",", " "))
	if len(fields) == 0 {
		return 0, schedulingErrorf("no days specified for time slot")
	}

	var days DaySet
	for _, field := range fields {
		day, ok := lo.FindKey(dayNames, field)
		if !ok {
			return 0, schedulingErrorf("unrecognized day type %q: must be one of M, T, W, Th, F", field)
		}
		days |= day
	}
	return days, nil
}

func (days DaySet) Len() int {
	return bits.OnesCount8(uint8(days))
}

func (days DaySet) Intersects(other DaySet) bool {
	return days&other != 0
}

func (days DaySet) SubsetOf(other DaySet) bool {
	return days&other == days
}

func (days DaySet) Contains(day DaySet) bool {
	return day.SubsetOf(days)
}

func (days DaySet) String() string {
	names := make([]string, 0, days.Len())
	for _, day := range Weekdays {
		if days.Contains(day) {
			names = append(names, dayNames[day])
		}
	}
	return strings.Join(names, " ")
}

//** Time of day

// TimeOfDay is a clock time measured in minutes after midnight
type TimeOfDay int

func Clock(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

var timeLayouts = []string{"3:04 PM", "3:04PM", "15:04"}

// ParseTimeOfDay accepts "10:30 AM" style and "10:30" (24-hour) style times
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return Clock(parsed.Hour(), parsed.Minute()), nil
		}
	}
	return 0, schedulingErrorf("cannot parse time %q: expected a time such as '10:30 AM'", s)
}

func (t TimeOfDay) Hour() int {
	return int(t) / 60
}

func (t TimeOfDay) Minute() int {
	return int(t) % 60
}

func (t TimeOfDay) Add(duration time.Duration) TimeOfDay {
	return t + TimeOfDay(duration/time.Minute)
}

func (t TimeOfDay) String() string {
	return time.Date(0, 1, 1, t.Hour(), t.Minute(), 0, 0, time.UTC).Format("03:04 PM")
}

//** TimeSlot

const backToBackGap = 5 * time.Minute

var (
	lunchStart = Clock(11, 30)
	lunchEnd   = Clock(13, 0)
)

// TimeSlot is a weekly meeting pattern. Sessions run over [Start, End).
type TimeSlot struct {
	Half  Half
	Days  DaySet
	Start TimeOfDay
	End   TimeOfDay
}

func NewTimeSlot(half Half, days DaySet, start, end TimeOfDay) (TimeSlot, error) {
	if days == 0 {
		return TimeSlot{}, schedulingErrorf("no days specified for time slot")
	} else if start >= end {
		return TimeSlot{}, schedulingErrorf("start time %v is not before end time %v", start, end)
	}
	return TimeSlot{Half: half, Days: days, Start: start, End: end}, nil
}

// ParseTimeSlot builds a slot from its textual fields, e.g. ("H1", "M W", "10:00 AM", "11:30 AM")
func ParseTimeSlot(half, days, start, end string) (TimeSlot, error) {
	parsedHalf, err := ParseHalf(half)
	if err != nil {
		return TimeSlot{}, err
	}
	parsedDays, err := ParseDays(days)
	if err != nil {
		return TimeSlot{}, err
	}
	parsedStart, err := ParseTimeOfDay(start)
	if err != nil {
		return TimeSlot{}, err
	}
	parsedEnd, err := ParseTimeOfDay(end)
	if err != nil {
		return TimeSlot{}, err
	}
	return NewTimeSlot(parsedHalf, parsedDays, parsedStart, parsedEnd)
}

// Overlaps checks whether both slots share a day, a half and a moment in time
func (slot TimeSlot) Overlaps(other TimeSlot) bool {
	if slot.End <= other.Start || other.End <= slot.Start {
		return false
	}
	return slot.Days.Intersects(other.Days) && slot.Half.Overlaps(other.Half)
}

// IsBackToBack checks whether one slot follows the other closely enough to be taught
// consecutively. Half is ignored.
func (slot TimeSlot) IsBackToBack(other TimeSlot) bool {
	if !slot.Days.SubsetOf(other.Days) && !other.Days.SubsetOf(slot.Days) {
		return false
	}
	return follows(slot, other) || follows(other, slot)
}

// follows checks whether second starts right after first ends, allowing the lunch window to be skipped
func follows(first, second TimeSlot) bool {
	if second.Start >= first.End && time.Duration(second.Start-first.End)*time.Minute <= backToBackGap {
		return true
	}
	return lunchStart <= first.End && first.End <= lunchEnd &&
		first.End <= second.Start && second.Start <= lunchEnd
}

func (slot TimeSlot) MeetingsPerWeek() int {
	return slot.Days.Len()
}

func (slot TimeSlot) SessionLength() time.Duration {
	return time.Duration(slot.End-slot.Start) * time.Minute
}

// WithDays returns a copy of the slot meeting on the given days
func (slot TimeSlot) WithDays(days DaySet) TimeSlot {
	slot.Days = days
	return slot
}

func (slot TimeSlot) String() string {
	return fmt.Sprintf("%v %v %v %v", slot.Half, slot.Days, slot.Start, slot.End)
}

package model

import (
	"strings"

	"github.com/samber/lo"
)

// Recitations may be placed in a room up to this fraction over its capacity
const softCapacity = 0.1

const maxPreferences = 3

// ClassKind is decided once from the free-text class type
type ClassKind uint8

const (
	Lecture ClassKind = iota
	Recitation
	Breakout
)

// ParseClassKind matches the class type by substring. BREAKOUT wins over REC, which wins over LEC.
func ParseClassKind(classType string) (ClassKind, error) {
	classType = strings.ToUpper(classType)
	switch {
	case strings.Contains(classType, "BREAKOUT"):
		return Breakout, nil
	case strings.Contains(classType, "REC"):
		return Recitation, nil
	case strings.Contains(classType, "LEC"):
		return Lecture, nil
	}
	return Lecture, schedulingErrorf("class type %q must be one of 'LEC', 'REC', 'BREAKOUT'", classType)
}

func (kind ClassKind) String() string {
	switch kind {
	case Recitation:
		return "REC"
	case Breakout:
		return "BREAKOUT"
	}
	return "LEC"
}

// CourseKey uniquely identifies a course section
type CourseKey struct {
	Number    string
	Section   string
	ClassType string
}

// NewCourseKey canonicalizes the key fields. A blank class type means LEC.
func NewCourseKey(number, section, classType string) CourseKey {
	classType = strings.ToUpper(strings.TrimSpace(classType))
	if classType == "" {
		classType = "LEC"
	}
	return CourseKey{
		Number:    strings.ToUpper(strings.TrimSpace(number)),
		Section:   strings.ToUpper(strings.TrimSpace(section)),
		ClassType: classType,
	}
}

// Group is the (number, section) pair shared by a lecture and its recitations and breakouts
func (key CourseKey) Group() [2]string {
	return [2]string{key.Number, key.Section}
}

func (key CourseKey) String() string {
	return strings.Join(lo.Compact([]string{key.Number, key.Section, key.ClassType}), " ")
}

// CourseDetails carries the descriptive attributes of a course
type CourseDetails struct {
	Title       string
	Department  string
	Enrollment  int
	Instructor  Instructor
	Equipment   []string
	RespectTime bool
}

// Course is a single section to be placed. It holds its own assignment.
type Course struct {
	Key         CourseKey
	Kind        ClassKind
	Title       string
	Department  string
	Enrollment  int
	Instructor  Instructor
	Equipment   []string
	RespectRoom bool
	RespectTime bool

	extraInstructors []Instructor
	roomPrefs        []*Room
	timePrefs        []TimeSlot
	preferredDays    []DaySet

	assignedRoom *Room
	assignedTime *TimeSlot
}

// NewCourse creates a course whose first time preference fixes the shape (half, meetings per week and
// session length) of every admissible time
func NewCourse(key CourseKey, details CourseDetails, firstTime TimeSlot) (*Course, error) {
	kind, err := ParseClassKind(key.ClassType)
	if err != nil {
		return nil, schedulingErrorf("course %v: %v", key, err)
	}
	if details.Enrollment <= 0 {
		return nil, schedulingErrorf("enrollment for course %v must be positive", key)
	}

	return &Course{
		Key:           key,
		Kind:          kind,
		Title:         strings.TrimSpace(details.Title),
		Department:    strings.ToUpper(strings.TrimSpace(details.Department)),
		Enrollment:    details.Enrollment,
		Instructor:    details.Instructor,
		Equipment:     normalizeTags(details.Equipment),
		RespectTime:   details.RespectTime,
		timePrefs:     []TimeSlot{firstTime},
		preferredDays: []DaySet{firstTime.Days},
	}, nil
}

func (course *Course) String() string {
	return course.Key.String()
}

// IsSame compares against raw key fields
func (course *Course) IsSame(number, section, classType string) bool {
	return course.Key == NewCourseKey(number, section, classType)
}

func (course *Course) IsDept(department string) bool {
	return course.Department == strings.ToUpper(strings.TrimSpace(department))
}

// AddExtraInstructors sets the co-instructors of a team-taught course
func (course *Course) AddExtraInstructors(instructors []Instructor) {
	course.extraInstructors = lo.Without(lo.Uniq(instructors), course.Instructor)
}

// Instructors returns the primary instructor followed by the co-instructors
func (course *Course) Instructors() []Instructor {
	return append([]Instructor{course.Instructor}, course.extraInstructors...)
}

func (course *Course) RoomPrefs() []*Room {
	return append([]*Room(nil), course.roomPrefs...)
}

func (course *Course) TimePrefs() []TimeSlot {
	return append([]TimeSlot(nil), course.timePrefs...)
}

// FirstTimePref is the preference that defines the shape of admissible times
func (course *Course) FirstTimePref() TimeSlot {
	return course.timePrefs[0]
}

// AddTimePrefs replaces every preference after the first one. Inviable preferences are kept with a warning.
func (course *Course) AddTimePrefs(prefs []TimeSlot, sink WarningSink) {
	first := course.timePrefs[0]
	prefs = lo.Without(lo.Uniq(prefs), first)
	course.timePrefs = course.timePrefs[:1]
	course.preferredDays = []DaySet{first.Days}

	if course.RespectTime && len(prefs) > 0 {
		warnf(sink, "attempt to add time preferences to %v after specifying respectTime", course)
	}

	for _, pref := range prefs {
		if !course.IsViableTime(pref) {
			warnf(sink, "time slot %v is not viable for course %v", pref, course)
		}
		course.timePrefs = append(course.timePrefs, pref)
		course.preferredDays = append(course.preferredDays, pref.Days)
	}
	course.preferredDays = lo.Uniq(course.preferredDays)
}

// AddRoomPrefs replaces the room preferences. Inviable rooms are kept with a warning.
func (course *Course) AddRoomPrefs(rooms []*Room, respectRoom bool, sink WarningSink) error {
	if respectRoom && len(rooms) == 0 {
		return schedulingErrorf("course %v specified respectRoom but was not given room preferences", course)
	}

	course.RespectRoom = respectRoom
	course.roomPrefs = lo.UniqBy(rooms, func(room *Room) string { return room.Name() })
	for _, room := range course.roomPrefs {
		// Placeholder rooms were already reported as missing from the inventory
		if !room.IsPlaceholder() && !course.IsViableRoom(room) {
			warnf(sink, "room preference %v is inviable for course %v", room, course)
		}
	}
	return nil
}

// IsViableTime checks the slot against the shape of the first time preference
func (course *Course) IsViableTime(slot TimeSlot) bool {
	first := course.timePrefs[0]
	return slot.Half == first.Half &&
		slot.MeetingsPerWeek() == first.MeetingsPerWeek() &&
		slot.SessionLength() == first.SessionLength()
}

// IsViableRoom checks equipment and capacity. Recitations may overbook slightly.
func (course *Course) IsViableRoom(room *Room) bool {
	if !room.HasEquipment(course.Equipment) {
		return false
	}
	if course.Kind == Recitation {
		return float64(course.Enrollment) <= (1+softCapacity)*float64(room.Capacity)
	}
	return room.Capacity >= course.Enrollment
}

// IsPreferredDays checks whether the slot uses one of the day patterns the course asked for
func (course *Course) IsPreferredDays(slot TimeSlot) bool {
	return lo.Contains(course.preferredDays, slot.Days)
}

//** Assignment

// SetAssignment stores an assignment without validating it
func (course *Course) SetAssignment(room *Room, slot TimeSlot) {
	course.assignedRoom, course.assignedTime = room, &slot
}

// AddAssignment stores an assignment and reports whether it is viable, warning otherwise
func (course *Course) AddAssignment(room *Room, slot TimeSlot, sink WarningSink) bool {
	viableRoom, viableTime := course.IsViableRoom(room), course.IsViableTime(slot)
	if !viableRoom {
		warnf(sink, "room %v is inviable for course %v", room, course)
	}
	if !viableTime {
		warnf(sink, "assigned time %v is inviable for course %v", slot, course)
	}
	course.SetAssignment(room, slot)
	return viableRoom && viableTime
}

func (course *Course) ClearAssignment() {
	course.assignedRoom, course.assignedTime = nil, nil
}

func (course *Course) IsAssigned() bool {
	return course.assignedRoom != nil && course.assignedTime != nil
}

func (course *Course) AssignedRoom() *Room {
	return course.assignedRoom
}

// AssignedTime returns the assigned slot and whether there is one
func (course *Course) AssignedTime() (TimeSlot, bool) {
	if course.assignedTime == nil {
		return TimeSlot{}, false
	}
	return *course.assignedTime, true
}

// GotRoomPref returns the 1-based rank of the assigned room among the preferences, 0 if none matched
func (course *Course) GotRoomPref() int {
	if course.assignedRoom == nil {
		return 0
	}
	return roomRank(course.roomPrefs, course.assignedRoom)
}

// GotTimePref returns the 1-based rank of the assigned time among the preferences, 0 if none matched
func (course *Course) GotTimePref() int {
	if course.assignedTime == nil {
		return 0
	}
	return timeRank(course.timePrefs, *course.assignedTime)
}

func roomRank(prefs []*Room, room *Room) int {
	_, index, ok := lo.FindIndexOf(prefs, room.Equal)
	if !ok {
		return 0
	}
	return index + 1
}

func timeRank(prefs []TimeSlot, slot TimeSlot) int {
	index := lo.IndexOf(prefs, slot)
	return index + 1
}

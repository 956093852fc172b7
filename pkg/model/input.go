package model

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
)

type RoomRecord struct {
	Name      string   `json:"name" validate:"required"`
	Capacity  int      `json:"capacity" validate:"gt=0"`
	Equipment []string `json:"equipment"`
}

type TimeRecord struct {
	Days  string `json:"days" validate:"required"`
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

type CourseRecord struct {
	Number      string       `json:"number" validate:"required"`
	Section     string       `json:"section"`
	ClassType   string       `json:"classType"`
	Title       string       `json:"title"`
	Department  string       `json:"department"`
	Enrollment  int          `json:"enrollment" validate:"gt=0"`
	Instructors []string     `json:"instructors"`
	Half        string       `json:"half"`
	RoomPrefs   []string     `json:"roomPrefs" validate:"max=3"`
	TimePrefs   []TimeRecord `json:"timePrefs" validate:"min=1,max=3,dive"`
	RespectRoom bool         `json:"respectRoom"`
	RespectTime bool         `json:"respectTime"`
	Equipment   []string     `json:"equipment"`
}

type CourseKeyRecord struct {
	Number    string `json:"number" validate:"required"`
	Section   string `json:"section"`
	ClassType string `json:"classType"`
}

func (record CourseKeyRecord) Key() CourseKey {
	return NewCourseKey(record.Number, record.Section, record.ClassType)
}

type NoConflictRecord struct {
	Name    string            `json:"name" validate:"required"`
	Courses []CourseKeyRecord `json:"courses" validate:"dive"`
}

type BackToBackRecord struct {
	First  CourseKeyRecord `json:"first"`
	Second CourseKeyRecord `json:"second"`
}

type AssignmentRecord struct {
	Number    string
	Section   string
	ClassType string
	Half      string
	Days      string
	Start     string
	End       string
	Room      string
}

type RawModelInput struct {
	Rooms            []RoomRecord       `json:"rooms" validate:"dive"`
	Courses          []CourseRecord     `json:"courses" validate:"dive"`
	NoConflictGroups []NoConflictRecord `json:"noConflictGroups" validate:"dive"`
	BackToBackPairs  []BackToBackRecord `json:"backToBackPairs" validate:"dive"`
}

// NoConflictGroup is a set of courses no two of which may meet at the same time
type NoConflictGroup struct {
	Name    string
	Courses []*Course
}

// BackToBackPair is a pair of courses that should be taught consecutively in the same room
type BackToBackPair struct {
	First  *Course
	Second *Course
}

type ModelInput struct {
	Rooms            []*Room // Inventory
	Placeholders     []*Room // Rooms referenced by preferences but absent from the inventory
	Courses          []*Course
	NoConflictGroups []NoConflictGroup
	BackToBackPairs  []BackToBackPair
}

// Course finds a course by key
func (input ModelInput) Course(key CourseKey) (*Course, bool) {
	return lo.Find(input.Courses, func(course *Course) bool { return course.Key == key })
}

// Room finds a room, inventory or placeholder, by name
func (input ModelInput) Room(name string) (*Room, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	return lo.Find(lo.Flatten([][]*Room{input.Rooms, input.Placeholders}), func(room *Room) bool { return room.Name() == name })
}

// Departments returns the departments of the input, sorted
func (input ModelInput) Departments() []string {
	return departments(input.Courses)
}

// InputFromJson decodes a JSON model input, the same document the HTTP API accepts
func InputFromJson(file string) (RawModelInput, error) {
	bytes, err := os.ReadFile(file)
	if err != nil {
		return RawModelInput{}, err
	}
	var inputJson map[string]any
	if err := json.Unmarshal(bytes, &inputJson); err != nil {
		return RawModelInput{}, fmt.Errorf("cannot parse %v: %w", file, err)
	}

	var rawInput RawModelInput
	if err := mapstructure.Decode(inputJson, &rawInput); err != nil {
		return RawModelInput{}, fmt.Errorf("cannot decode model input: %w", err)
	}
	return rawInput, nil
}

func ProcessRawInput(rawInput RawModelInput, opts Options, sink WarningSink) (ModelInput, error) {
	input := ModelInput{}

	//** Manage rooms
	for _, record := range rawInput.Rooms {
		room, err := NewRoom(record.Name, record.Capacity, record.Equipment)
		if err != nil {
			return ModelInput{}, err
		}
		if _, ok := input.Room(room.Name()); ok {
			return ModelInput{}, schedulingErrorf("room %v appears twice in inventory", room)
		}
		input.Rooms = append(input.Rooms, room)
	}

	//** Manage courses
	for _, record := range rawInput.Courses {
		course, err := processCourse(&input, record, opts, sink)
		if err != nil {
			return ModelInput{}, err
		}
		if _, ok := input.Course(course.Key); ok {
			return ModelInput{}, schedulingErrorf("attempted to add course %v twice", course)
		}
		input.Courses = append(input.Courses, course)
	}

	// Every recitation and breakout has exactly one partner lecture
	for _, course := range input.Courses {
		if course.Kind == Lecture {
			continue
		}
		partners := lo.CountBy(input.Courses, func(other *Course) bool {
			return other.Kind == Lecture && other.Key.Group() == course.Key.Group()
		})
		if partners == 0 {
			return ModelInput{}, schedulingErrorf("course %v has no partner lecture", course)
		} else if partners > 1 {
			return ModelInput{}, schedulingErrorf("course %v has %d possible partner lectures", course, partners)
		}
	}

	//** Manage no-conflict groups
	for _, record := range rawInput.NoConflictGroups {
		group := NoConflictGroup{Name: record.Name}
		for _, keyRecord := range record.Courses {
			course, ok := input.Course(keyRecord.Key())
			if !ok {
				warnf(sink, "course %v from no-conflict group %q not found, entry skipped", keyRecord.Key(), record.Name)
				continue
			}
			group.Courses = append(group.Courses, course)
		}
		input.NoConflictGroups = append(input.NoConflictGroups, group)
	}

	//** Manage back-to-back pairs
	for _, record := range rawInput.BackToBackPairs {
		first, ok := input.Course(record.First.Key())
		if !ok {
			warnf(sink, "course %v from back-to-back pair not found, pair skipped", record.First.Key())
			continue
		}
		second, ok := input.Course(record.Second.Key())
		if !ok {
			warnf(sink, "course %v from back-to-back pair not found, pair skipped", record.Second.Key())
			continue
		}
		input.BackToBackPairs = append(input.BackToBackPairs, BackToBackPair{First: first, Second: second})
	}

	return input, nil
}

func processCourse(input *ModelInput, record CourseRecord, opts Options, sink WarningSink) (*Course, error) {
	key := NewCourseKey(record.Number, record.Section, record.ClassType)

	//** Time preferences
	timeRecords := lo.Filter(record.TimePrefs, func(timeRecord TimeRecord, _ int) bool {
		return strings.TrimSpace(timeRecord.Days) != ""
	})
	if len(timeRecords) == 0 {
		return nil, schedulingErrorf("course %v has no time preference", key)
	} else if len(timeRecords) > maxPreferences {
		return nil, schedulingErrorf("course %v has more than %d time preferences", key, maxPreferences)
	}
	timePrefs := make([]TimeSlot, 0, len(timeRecords))
	for _, timeRecord := range timeRecords {
		slot, err := ParseTimeSlot(record.Half, timeRecord.Days, timeRecord.Start, timeRecord.End)
		if err != nil {
			return nil, fmt.Errorf("course %v: %w", key, err)
		}
		timePrefs = append(timePrefs, slot)
	}

	//** Instructors
	instructors := lo.Map(record.Instructors, func(name string, _ int) Instructor { return NewInstructor(name) })
	if len(instructors) == 0 {
		instructors = []Instructor{NewInstructor("")}
	}

	course, err := NewCourse(key, CourseDetails{
		Title:       record.Title,
		Department:  record.Department,
		Enrollment:  record.Enrollment,
		Instructor:  instructors[0],
		Equipment:   record.Equipment,
		RespectTime: record.RespectTime,
	}, timePrefs[0])
	if err != nil {
		return nil, err
	}
	course.AddExtraInstructors(instructors[1:])
	course.AddTimePrefs(timePrefs[1:], sink)

	//** Room preferences
	roomNames := lo.Compact(lo.Map(record.RoomPrefs, func(name string, _ int) string { return strings.TrimSpace(name) }))
	if len(roomNames) > maxPreferences {
		return nil, schedulingErrorf("course %v has more than %d room preferences", key, maxPreferences)
	}
	roomPrefs := make([]*Room, 0, len(roomNames))
	for _, name := range roomNames {
		room, err := input.resolveRoom(name, opts, sink)
		if err != nil {
			return nil, fmt.Errorf("course %v: %w", key, err)
		}
		roomPrefs = append(roomPrefs, room)
	}
	if err := course.AddRoomPrefs(roomPrefs, record.RespectRoom, sink); err != nil {
		return nil, err
	}

	return course, nil
}

// resolveRoom finds a room by name, creating a placeholder (with a warning) when it is not in the inventory
func (input *ModelInput) resolveRoom(name string, opts Options, sink WarningSink) (*Room, error) {
	if room, ok := lo.Find(input.Rooms, func(room *Room) bool { return room.Name() == strings.ToUpper(name) }); ok {
		return room, nil
	}

	warnf(sink, "room %v not in inventory", strings.ToUpper(name))
	if room, ok := lo.Find(input.Placeholders, func(room *Room) bool { return room.Name() == strings.ToUpper(name) }); ok {
		return room, nil
	}
	room, err := NewPlaceholderRoom(name, opts)
	if err != nil {
		return nil, err
	}
	input.Placeholders = append(input.Placeholders, room)
	return room, nil
}

// ApplyAssignments loads previously computed assignments onto the courses of the input
func ApplyAssignments(input *ModelInput, records []AssignmentRecord, opts Options, sink WarningSink) error {
	for _, record := range records {
		key := NewCourseKey(record.Number, record.Section, record.ClassType)
		course, ok := input.Course(key)
		if !ok {
			return schedulingErrorf("course %v not in list", key)
		}

		if strings.TrimSpace(record.Room) == "" || strings.TrimSpace(record.Days) == "" ||
			strings.TrimSpace(record.Start) == "" || strings.TrimSpace(record.End) == "" {
			warnf(sink, "course %v not properly assigned", key)
			continue
		}

		room, err := input.resolveRoom(strings.TrimSpace(record.Room), opts, sink)
		if err != nil {
			return err
		}
		slot, err := ParseTimeSlot(record.Half, record.Days, record.Start, record.End)
		if err != nil {
			return fmt.Errorf("assignment of course %v: %w", key, err)
		}
		course.AddAssignment(room, slot, sink)
	}
	return nil
}

package model

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// Verify checks assigned courses against the hard rules without relying on the engine and returns
// every violation found, sorted
func Verify(courses []*Course, input ModelInput, opts Options) []string {
	violations := make([]string, 0)

	assigned := make([]*Course, 0, len(courses))
	for _, course := range courses {
		if !course.IsAssigned() {
			violations = append(violations, fmt.Sprintf("course %v has no assignment", course))
			continue
		}
		assigned = append(assigned, course)
	}

	for _, instant := range HorizonInstants(opts) {
		live := lo.Filter(assigned, func(course *Course, _ int) bool {
			slot, _ := course.AssignedTime()
			return slot.Overlaps(instant)
		})

		//** Rooms
		for room, group := range lo.GroupBy(live, func(course *Course) string { return course.AssignedRoom().Name() }) {
			if len(group) > 1 {
				violations = append(violations, fmt.Sprintf("room %v is double-booked by %v", room, group))
			}
		}

		//** Instructors
		byInstructor := make(map[Instructor][]*Course)
		for _, course := range live {
			for _, instructor := range course.Instructors() {
				byInstructor[instructor] = append(byInstructor[instructor], course)
			}
		}
		for instructor, group := range byInstructor {
			if len(group) > 1 {
				violations = append(violations, fmt.Sprintf("instructor %v teaches %v at the same time", instructor, group))
			}
		}

		//** Sections
		nonBreakouts := lo.Filter(live, func(course *Course, _ int) bool { return course.Kind != Breakout })
		for section, group := range lo.GroupBy(nonBreakouts, func(course *Course) [2]string { return course.Key.Group() }) {
			if len(group) > 1 {
				violations = append(violations, fmt.Sprintf("meetings of %v %v run concurrently", section[0], section[1]))
			}
		}

		//** No-conflict groups
		for _, group := range input.NoConflictGroups {
			members := lo.Filter(live, func(course *Course, _ int) bool { return lo.Contains(group.Courses, course) })
			if len(members) > 1 {
				violations = append(violations, fmt.Sprintf("no-conflict group %q overlaps: %v", group.Name, members))
			}
		}
	}

	//** Breakouts
	for _, breakout := range assigned {
		if breakout.Kind != Breakout {
			continue
		}
		slot, _ := breakout.AssignedTime()
		partnered := lo.SomeBy(assigned, func(lecture *Course) bool {
			lectureSlot, _ := lecture.AssignedTime()
			return lecture.Kind == Lecture &&
				lecture.Key.Group() == breakout.Key.Group() &&
				lectureSlot == slot &&
				breakout.AssignedRoom().SameFloor(lecture.AssignedRoom())
		})
		if !partnered {
			violations = append(violations, fmt.Sprintf("breakout %v has no lecture at %v on the floor of %v", breakout, slot, breakout.AssignedRoom()))
		}
	}

	// A conflict spanning several instants is reported once
	violations = lo.Uniq(violations)
	slices.Sort(violations)
	return violations
}

package model

import (
	"strings"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func hasViolation(violations []string, fragment string) bool {
	return lo.SomeBy(violations, func(violation string) bool { return strings.Contains(violation, fragment) })
}

func TestVerify(t *testing.T) {
	//** Arrange
	slot := mustSlot(t, "F", "M W", "10:00 AM", "11:30 AM")
	other := mustSlot(t, "F", "T Th", "10:00 AM", "11:30 AM")
	room, second, upstairs := mustRoom(t, "E52-135", 100), mustRoom(t, "E52-140", 100), mustRoom(t, "E52-240", 100)

	lecture := mustCourse(t, "15.051", "A", "", 50, "Arnie", slot)
	recitation := mustCourse(t, "15.051", "A", "REC", 50, "Dimitris", slot)
	breakout := mustCourse(t, "15.051", "A", "BREAKOUT", 50, "Georgia", slot)
	sameRoom := mustCourse(t, "15.052", "", "", 50, "Dimitris", other)
	sharedProf := mustCourse(t, "15.053", "", "", 50, "Dimitris", other)
	unassigned := mustCourse(t, "15.054", "", "", 50, "Rob", slot)

	lecture.SetAssignment(room, slot)
	recitation.SetAssignment(second, slot)
	breakout.SetAssignment(upstairs, slot)
	sameRoom.SetAssignment(room, other)
	sharedProf.SetAssignment(room, other)

	courses := []*Course{lecture, recitation, breakout, sameRoom, sharedProf, unassigned}
	input := ModelInput{
		Rooms:            []*Room{room, second, upstairs},
		Courses:          courses,
		NoConflictGroups: []NoConflictGroup{{Name: "Core", Courses: []*Course{lecture, breakout}}},
	}

	//** Act
	violations := Verify(courses, input, DefaultOptions())

	//** Assert
	assert.True(t, hasViolation(violations, "course 15.054 LEC has no assignment"))
	assert.True(t, hasViolation(violations, "room E52-135 is double-booked"))
	assert.True(t, hasViolation(violations, "instructor DIMITRIS teaches"))
	assert.True(t, hasViolation(violations, "meetings of 15.051 A run concurrently"))
	assert.True(t, hasViolation(violations, `no-conflict group "Core" overlaps`))
	assert.True(t, hasViolation(violations, "breakout 15.051 A BREAKOUT has no lecture"))
	assert.Len(t, violations, 6)
	assert.IsIncreasing(t, violations)
}

func TestVerifyClean(t *testing.T) {
	slot := mustSlot(t, "F", "M W", "10:00 AM", "11:30 AM")
	room, second := mustRoom(t, "E52-135", 100), mustRoom(t, "E52-140", 100)
	lecture := mustCourse(t, "15.051", "A", "", 50, "Arnie", slot)
	breakout := mustCourse(t, "15.051", "A", "BREAKOUT", 50, "Dimitris", slot)
	lecture.SetAssignment(room, slot)
	breakout.SetAssignment(second, slot)

	courses := []*Course{lecture, breakout}
	assert.Empty(t, Verify(courses, ModelInput{Courses: courses}, DefaultOptions()))
}

package model

import (
	"github.com/onsi/gomega/matchers/support/goraph/bipartitegraph"
	"github.com/samber/lo"
)

// PressurePoint is an instant at which the fixed-time courses cannot all get a room
type PressurePoint struct {
	Instant TimeSlot
	Courses []*Course // Fixed-time courses meeting at the instant
	Rooms   []*Room   // Rooms any of them may use
	Matched int       // Courses that can be given a room simultaneously
}

// RoomPressure looks for certain infeasibilities before solving: at each instant of the horizon the
// fixed-time courses meeting then are matched to their allowed rooms, and every instant where the
// largest matching leaves a course without a room is reported
func RoomPressure(input ModelInput, opts Options) ([]PressurePoint, error) {
	fixed := lo.Filter(input.Courses, func(course *Course, _ int) bool { return course.RespectTime })
	allowed := make(map[*Course][]*Room, len(fixed))
	for _, course := range fixed {
		allowed[course] = AllowedRooms(course, input.Rooms, Discard)
	}

	points := make([]PressurePoint, 0)
	for _, instant := range HorizonInstants(opts) {
		courses := lo.Filter(fixed, func(course *Course, _ int) bool {
			return course.FirstTimePref().Overlaps(instant)
		})
		if len(courses) == 0 {
			continue
		}

		rooms := lo.UniqBy(lo.FlatMap(courses, func(course *Course, _ int) []*Room { return allowed[course] }), func(room *Room) string {
			return room.Name()
		})

		matched, err := largestMatching(courses, rooms, allowed)
		if err != nil {
			return nil, err
		}
		if matched < len(courses) {
			points = append(points, PressurePoint{Instant: instant, Courses: courses, Rooms: rooms, Matched: matched})
		}
	}
	return points, nil
}

func largestMatching(courses []*Course, rooms []*Room, allowed map[*Course][]*Room) (int, error) {
	if len(rooms) == 0 {
		return 0, nil
	}

	// Build neighbors predicate based on the allowed rooms
	neighbors := func(courseAny any, roomAny any) (bool, error) {
		course := courseAny.(*Course)
		room := roomAny.(*Room)
		return lo.ContainsBy(allowed[course], room.Equal), nil
	}

	// Transform courses and rooms to slices of any
	coursesAny, roomsAny := lo.Map(courses, func(course *Course, _ int) any { return course }), lo.Map(rooms, func(room *Room, _ int) any { return room })

	graph, err := bipartitegraph.NewBipartiteGraph(coursesAny, roomsAny, neighbors)
	if err != nil {
		return 0, err
	}
	return len(graph.LargestMatching()), nil
}

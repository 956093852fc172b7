package model

import (
	"fmt"
	"slices"

	"github.com/limaJavier/roomscheduler/pkg/lp"
	"github.com/samber/lo"
)

type linearConstraint struct {
	name  string
	terms []lp.Term
	sense lp.Sense
	rhs   float64
}

type constraintState struct {
	decisions     []decision
	index         *instantIndex
	input         ModelInput
	maxCongestion lp.Var
}

// atMostOne builds "sum of the decision variables <= 1"
func atMostOne(name string, decisions []decision, positions []int) linearConstraint {
	return linearConstraint{
		name: name,
		terms: lo.Map(positions, func(position int, _ int) lp.Term {
			return lp.Term{Var: decisions[position].v, Coef: 1}
		}),
		sense: lp.LessEqual,
		rhs:   1,
	}
}

// groupLive groups the live decisions under one or more keys each, preserving first-seen order of the keys
func groupLive[K comparable](state constraintState, instant TimeSlot, keys func(decision decision) []K) ([]K, map[K][]int) {
	order := make([]K, 0)
	groups := make(map[K][]int)
	for _, position := range state.index.Live(instant) {
		for _, key := range keys(state.decisions[position]) {
			if _, ok := groups[key]; !ok {
				order = append(order, key)
			}
			groups[key] = append(groups[key], position)
		}
	}
	return order, groups
}

//** Per-course constraints

// assignmentConstraints: every course gets exactly one room-time
func assignmentConstraints(state constraintState) []linearConstraint {
	byCourse := lo.GroupBy(state.decisions, func(decision decision) CourseKey { return decision.course.Key })
	constraints := make([]linearConstraint, 0, len(state.input.Courses))
	for _, course := range state.input.Courses {
		constraints = append(constraints, linearConstraint{
			name: fmt.Sprintf("One Room-Time %v", course),
			terms: lo.Map(byCourse[course.Key], func(decision decision, _ int) lp.Term {
				return lp.Term{Var: decision.v, Coef: 1}
			}),
			sense: lp.Equal,
			rhs:   1,
		})
	}
	return constraints
}

// breakoutConstraints: a breakout meeting may only be chosen together with a lecture of its
// (number, section) meeting at the same slot on the same floor
func breakoutConstraints(state constraintState) []linearConstraint {
	constraints := make([]linearConstraint, 0)
	for _, breakout := range state.decisions {
		if breakout.course.Kind != Breakout {
			continue
		}

		terms := []lp.Term{{Var: breakout.v, Coef: 1}}
		for _, lecture := range state.decisions {
			if lecture.course.Kind == Lecture &&
				lecture.course.Key.Group() == breakout.course.Key.Group() &&
				lecture.slot == breakout.slot &&
				breakout.room.SameFloor(lecture.room) {
				terms = append(terms, lp.Term{Var: lecture.v, Coef: -1})
			}
		}
		constraints = append(constraints, linearConstraint{
			name:  fmt.Sprintf("Lec-Breakout %v TimeSlot %v Room %v", breakout.course, breakout.slot, breakout.room),
			terms: terms,
			sense: lp.LessEqual,
			rhs:   0,
		})
	}
	return constraints
}

//** Per-instant constraints

// roomConstraints: a room holds at most one course at a time
func roomConstraints(state constraintState, instant TimeSlot) []linearConstraint {
	rooms, groups := groupLive(state, instant, func(decision decision) []string {
		return []string{decision.room.Name()}
	})

	constraints := make([]linearConstraint, 0)
	for _, room := range rooms {
		if len(groups[room]) > 1 {
			constraints = append(constraints, atMostOne(fmt.Sprintf("Time %v: At most 1 course in room %v", instant, room), state.decisions, groups[room]))
		}
	}
	return constraints
}

// instructorConstraints: an instructor teaches at most one course at a time, co-taught courses included
func instructorConstraints(state constraintState, instant TimeSlot) []linearConstraint {
	instructors, groups := groupLive(state, instant, func(decision decision) []Instructor {
		return decision.course.Instructors()
	})

	constraints := make([]linearConstraint, 0)
	for _, instructor := range instructors {
		if len(groups[instructor]) > 1 {
			constraints = append(constraints, atMostOne(fmt.Sprintf("Prof %v %v", instructor, instant), state.decisions, groups[instructor]))
		}
	}
	return constraints
}

// sectionConstraints: meetings sharing a (number, section) never run concurrently. Breakouts are
// left out since they must run alongside their lecture.
func sectionConstraints(state constraintState, instant TimeSlot) []linearConstraint {
	sections, groups := groupLive(state, instant, func(decision decision) [][2]string {
		if decision.course.Kind == Breakout {
			return nil
		}
		return [][2]string{decision.course.Key.Group()}
	})

	constraints := make([]linearConstraint, 0)
	for _, section := range sections {
		courses := lo.UniqBy(groups[section], func(position int) CourseKey { return state.decisions[position].course.Key })
		// The variables of a single course are already exclusive
		if len(courses) > 1 {
			constraints = append(constraints, atMostOne(fmt.Sprintf("Time %v: Lec-Rec %v %v", instant, section[0], section[1]), state.decisions, groups[section]))
		}
	}
	return constraints
}

// congestionConstraint: the number of meetings at any instant is bounded by the congestion variable
func congestionConstraint(state constraintState, instant TimeSlot) []linearConstraint {
	live := state.index.Live(instant)
	if len(live) == 0 {
		return nil
	}

	terms := lo.Map(live, func(position int, _ int) lp.Term {
		return lp.Term{Var: state.decisions[position].v, Coef: 1}
	})
	terms = append(terms, lp.Term{Var: state.maxCongestion, Coef: -1})
	return []linearConstraint{{
		name:  fmt.Sprintf("MaxCong %v", instant),
		terms: terms,
		sense: lp.LessEqual,
		rhs:   0,
	}}
}

// noConflictConstraints: courses of a no-conflict group never run concurrently
func noConflictConstraints(state constraintState, instant TimeSlot) []linearConstraint {
	constraints := make([]linearConstraint, 0)
	live := state.index.Live(instant)
	for _, group := range state.input.NoConflictGroups {
		positions := lo.Filter(live, func(position int, _ int) bool {
			return slices.Contains(group.Courses, state.decisions[position].course)
		})
		if len(positions) > 1 {
			constraints = append(constraints, atMostOne(fmt.Sprintf("Time %v: No conflict %v", instant, group.Name), state.decisions, positions))
		}
	}
	return constraints
}

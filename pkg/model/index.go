package model

import "github.com/limaJavier/roomscheduler/pkg/lp"

// decision is a binary variable placing a course in a room at a time
type decision struct {
	course *Course
	room   *Room
	slot   TimeSlot
	v      lp.Var
}

// instantIndex memoizes the decisions whose slot overlaps the last queried instant. Consecutive
// generators query the same instant during the horizon sweep, so only a change of instant rescans.
// It is not safe for concurrent use.
type instantIndex struct {
	decisions []decision
	instant   TimeSlot
	valid     bool
	live      []int
}

func newInstantIndex(decisions []decision) *instantIndex {
	return &instantIndex{decisions: decisions}
}

// Live returns the positions of the decisions overlapping the instant
func (index *instantIndex) Live(instant TimeSlot) []int {
	if index.valid && index.instant == instant {
		return index.live
	}

	index.instant, index.valid = instant, true
	index.live = make([]int, 0)
	for i, decision := range index.decisions {
		if decision.slot.Overlaps(instant) {
			index.live = append(index.live, i)
		}
	}
	return index.live
}

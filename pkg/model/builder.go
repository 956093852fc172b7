package model

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/limaJavier/roomscheduler/pkg/lp"
	"github.com/samber/lo"
)

// Solved decision variables above this threshold are read as chosen
const selectionThreshold = 1 - 1e-3

// Weights of the objective. Scores holds one weight per preference rank, first choice first.
type Weights struct {
	Scores         []float64
	Preference     float64
	ExcessCapacity float64
	Congestion     float64
	DeptFairness   float64
	BackToBack     float64
}

// ModelBuilder translates a ModelInput into a mixed-integer program on an engine. Build must be called
// once, then UpdateObjectiveAndSolve any number of times. It is not safe for concurrent use.
type ModelBuilder struct {
	engine lp.Engine
	input  ModelInput
	opts   Options
	sink   WarningSink

	built         bool
	decisions     []decision
	backToBack    []lp.Var
	maxCongestion lp.Var
	minDeptScore  lp.Var
	fairness      []string

	variables   int
	constraints int

	solved             bool
	objective          float64
	maxCongestionValue float64
}

func NewModelBuilder(engine lp.Engine, input ModelInput, opts Options, sink WarningSink) *ModelBuilder {
	return &ModelBuilder{
		engine: engine,
		input:  input,
		opts:   opts,
		sink:   sink,
	}
}

// Build creates the decision variables, the auxiliary variables and every hard constraint. Fairness
// constraints depend on the score weights and are added on each solve.
func (builder *ModelBuilder) Build() error {
	if builder.built {
		return errors.New("model has already been built")
	}
	if builder.opts.Granularity <= 0 {
		return schedulingErrorf("granularity must be positive")
	}

	//** Decision variables
	for _, course := range builder.input.Courses {
		candidates, err := AllowedRoomTimes(course, builder.opts, builder.input.Rooms, builder.sink)
		if err != nil {
			return err
		}
		for _, candidate := range candidates {
			builder.decisions = append(builder.decisions, decision{
				course: course,
				room:   candidate.Room,
				slot:   candidate.Slot,
				v:      builder.addBinary(fmt.Sprintf("c%v %v %v", course, candidate.Room, candidate.Slot)),
			})
		}
	}

	state := constraintState{
		decisions: builder.decisions,
		index:     newInstantIndex(builder.decisions),
		input:     builder.input,
	}
	if err := builder.add(assignmentConstraints(state)); err != nil {
		return err
	}

	//** Back-to-back auxiliaries
	if err := builder.addBackToBack(); err != nil {
		return err
	}

	//** Scalar auxiliaries
	builder.maxCongestion = builder.addContinuous("MaxCong", 0, math.Inf(1))
	builder.minDeptScore = builder.addContinuous("MinDept", math.Inf(-1), math.Inf(1))
	state.maxCongestion = builder.maxCongestion

	//** Horizon sweep
	generators := []func(state constraintState, instant TimeSlot) []linearConstraint{
		roomConstraints,
		instructorConstraints,
		sectionConstraints,
		congestionConstraint,
		noConflictConstraints,
	}
	for _, instant := range HorizonInstants(builder.opts) {
		for _, generator := range generators {
			if err := builder.add(generator(state, instant)); err != nil {
				return err
			}
		}
	}

	if err := builder.add(breakoutConstraints(state)); err != nil {
		return err
	}

	builder.built = true
	return nil
}

// addBackToBack links, for every declared pair, each placement of the first course to the placements of
// the second one in the same room right before or after it. The auxiliary is the AND of both.
func (builder *ModelBuilder) addBackToBack() error {
	for _, pair := range builder.input.BackToBackPairs {
		firsts := lo.Filter(builder.decisions, func(decision decision, _ int) bool { return decision.course == pair.First })
		seconds := lo.Filter(builder.decisions, func(decision decision, _ int) bool { return decision.course == pair.Second })

		for _, first := range firsts {
			neighbors := lo.Filter(seconds, func(second decision, _ int) bool {
				return first.room.Equal(second.room) && first.slot.IsBackToBack(second.slot)
			})

			aux := builder.addBinary(fmt.Sprintf("Back2Back_%v_%v_%v_%v", first.course, pair.Second, first.slot, first.room))
			builder.backToBack = append(builder.backToBack, aux)

			typeB := []lp.Term{{Var: aux, Coef: 1}}
			for _, neighbor := range neighbors {
				typeB = append(typeB, lp.Term{Var: neighbor.v, Coef: -1})
			}
			err := builder.add([]linearConstraint{
				{
					name:  fmt.Sprintf("B2B_typeA %v %v %v", first.course, first.slot, first.room),
					terms: []lp.Term{{Var: aux, Coef: 1}, {Var: first.v, Coef: -1}},
					sense: lp.LessEqual,
				},
				{
					name:  fmt.Sprintf("B2B_typeB %v %v %v %v", first.course, first.slot, first.room, pair.Second),
					terms: typeB,
					sense: lp.LessEqual,
				},
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// UpdateObjectiveAndSolve replaces the fairness constraints and the objective, solves, and writes the
// chosen room and time onto every course
func (builder *ModelBuilder) UpdateObjectiveAndSolve(weights Weights) error {
	if !builder.built {
		return errors.New("model must be built before solving")
	}
	builder.solved = false

	preference := math.Max(weights.Preference, builder.opts.PrefEpsilon)
	scores := normalizeScores(weights.Scores)

	//** Fairness
	builder.engine.RemoveConstraints(builder.fairness...)
	builder.constraints -= len(builder.fairness)
	builder.fairness = nil
	if err := builder.addFairness(scores); err != nil {
		return err
	}

	//** Objective
	courses := float64(max(len(builder.input.Courses), 1))
	excessCapacity := -weights.ExcessCapacity / courses
	preference /= courses

	objective := make([]lp.Term, 0, len(builder.decisions)+len(builder.backToBack)+2)
	for _, decision := range builder.decisions {
		coef := ExcessCapacity(decision.course, decision.room)*excessCapacity +
			matchScore(decision, scores)*preference
		if !decision.course.IsPreferredDays(decision.slot) {
			coef -= builder.opts.DayPenalty
		}
		objective = append(objective, lp.Term{Var: decision.v, Coef: coef})
	}
	objective = append(objective,
		lp.Term{Var: builder.maxCongestion, Coef: -weights.Congestion},
		lp.Term{Var: builder.minDeptScore, Coef: weights.DeptFairness},
	)
	for _, aux := range builder.backToBack {
		objective = append(objective, lp.Term{Var: aux, Coef: weights.BackToBack})
	}
	if err := builder.engine.SetObjective(objective, true); err != nil {
		return err
	}

	//** Solve
	status, err := builder.engine.Solve()
	if err != nil {
		return fmt.Errorf("solver engine failed: %w", err)
	}
	if status == lp.Feasible {
		builder.sink.Warn("solver stopped at its time limit: the assignment may not be optimal")
	}
	if status != lp.Optimal && status != lp.Feasible {
		schedulingErr := schedulingErrorf("optimization did not solve: status %v", status)
		if explainer, ok := builder.engine.(lp.InfeasibilityExplainer); ok && status == lp.Infeasible {
			if explanation, err := explainer.ExplainInfeasibility(); err == nil {
				schedulingErr.Explanation = explanation
			}
		}
		return schedulingErr
	}

	builder.retrieveAssignment()
	builder.objective = builder.engine.ObjectiveValue()
	builder.maxCongestionValue = builder.engine.Value(builder.maxCongestion)
	builder.solved = true
	return nil
}

// addFairness forces the minimum department score below the average normalized score of every department
func (builder *ModelBuilder) addFairness(scores []float64) error {
	counts := lo.CountValuesBy(builder.input.Courses, func(course *Course) string { return course.Department })
	byDepartment := lo.GroupBy(builder.decisions, func(decision decision) string { return decision.course.Department })

	for _, department := range departments(builder.input.Courses) {
		terms := make([]lp.Term, 0, len(byDepartment[department])+1)
		for _, decision := range byDepartment[department] {
			terms = append(terms, lp.Term{Var: decision.v, Coef: matchScore(decision, scores) / float64(counts[department])})
		}
		terms = append(terms, lp.Term{Var: builder.minDeptScore, Coef: -1})

		name := fmt.Sprintf("DeptFairness_%v", department)
		if err := builder.add([]linearConstraint{{name: name, terms: terms, sense: lp.GreaterEqual}}); err != nil {
			return err
		}
		builder.fairness = append(builder.fairness, name)
	}
	return nil
}

// retrieveAssignment writes the selected placements back onto the courses
func (builder *ModelBuilder) retrieveAssignment() {
	for _, course := range builder.input.Courses {
		course.ClearAssignment()
	}
	for _, decision := range builder.decisions {
		if builder.engine.Value(decision.v) > selectionThreshold {
			decision.course.SetAssignment(decision.room, decision.slot)
		}
	}
}

func (builder *ModelBuilder) addBinary(name string) lp.Var {
	builder.variables++
	return builder.engine.AddBinaryVariable(name)
}

func (builder *ModelBuilder) addContinuous(name string, lower, upper float64) lp.Var {
	builder.variables++
	return builder.engine.AddContinuousVariable(name, lower, upper)
}

func (builder *ModelBuilder) add(constraints []linearConstraint) error {
	for _, constraint := range constraints {
		if err := builder.engine.AddConstraint(constraint.name, constraint.terms, constraint.sense, constraint.rhs); err != nil {
			return err
		}
		builder.constraints++
	}
	return nil
}

//** Accessors

func (builder *ModelBuilder) Courses() []*Course {
	return builder.input.Courses
}

// Size returns the number of variables and constraints currently in the model
func (builder *ModelBuilder) Size() (variables, constraints int) {
	return builder.variables, builder.constraints
}

// Candidates returns how many (room, time) placements were generated per course
func (builder *ModelBuilder) Candidates() map[CourseKey]int {
	return lo.CountValuesBy(builder.decisions, func(decision decision) CourseKey { return decision.course.Key })
}

func (builder *ModelBuilder) MaxCongestion() (float64, error) {
	if !builder.solved {
		return 0, errors.New("model has not been solved")
	}
	return builder.maxCongestionValue, nil
}

func (builder *ModelBuilder) ObjectiveValue() (float64, error) {
	if !builder.solved {
		return 0, errors.New("model has not been solved")
	}
	return builder.objective, nil
}

//** Helpers

// normalizeScores divides the rank weights by their maximum. A vector without a positive weight counts every rank equally.
func normalizeScores(scores []float64) []float64 {
	maxScore := lo.Max(scores)
	if maxScore <= 0 {
		return lo.Map(scores, func(float64, int) float64 { return 1 })
	}
	return lo.Map(scores, func(score float64, _ int) float64 { return score / maxScore })
}

func scoreAt(scores []float64, rank int) float64 {
	if rank < 1 || rank > len(scores) {
		return 0
	}
	return scores[rank-1]
}

// matchScore sums the rank weights of the room and time preferences a placement satisfies
func matchScore(decision decision, scores []float64) float64 {
	return scoreAt(scores, roomRank(decision.course.roomPrefs, decision.room)) +
		scoreAt(scores, timeRank(decision.course.timePrefs, decision.slot))
}

func departments(courses []*Course) []string {
	departments := lo.Uniq(lo.Map(courses, func(course *Course, _ int) string { return course.Department }))
	slices.Sort(departments)
	return departments
}

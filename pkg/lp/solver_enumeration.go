package lp

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
)

const (
	pruneTolerance = 1e-9
	checkTolerance = 1e-6

	// MaxEnumerationBinaries is the largest number of binary variables the enumeration solver accepts.
	// Larger programs need an external engine (highs or cbc).
	MaxEnumerationBinaries = 2048

	clockInterval = 1024 // Nodes visited between two reads of the clock
)

type enumerationSolver struct {
	params Parameters
}

// NewEnumerationSolver returns an in-process branch-and-bound solver. It enumerates the binary
// variables depth first, pruning on constraints that only involve binaries and on an optimistic
// bound of the objective, and settles each continuous variable at the leaves. Every constraint may
// hold at most one continuous variable. The search stops once the incumbent is within
// params.RelativeGap of the bound or params.TimeLimit has elapsed. Meant for small programs.
func NewEnumerationSolver(params Parameters) Solver {
	return &enumerationSolver{params: params}
}

func (solver *enumerationSolver) Solve(program *Program) (Solution, error) {
	state, err := newEnumeration(program, solver.params)
	if err != nil {
		return Solution{}, err
	}
	state.branch(0)

	switch {
	case state.unbounded:
		return Solution{Status: Unbounded}, nil
	case !state.found && state.stopped:
		return Solution{Status: Error}, nil
	case !state.found:
		return Solution{Status: Infeasible}, nil
	case state.stopped:
		return Solution{Status: Feasible, Objective: state.bestObjective, Values: state.best}, nil
	}
	return Solution{Status: Optimal, Objective: state.bestObjective, Values: state.best}, nil
}

// Explain runs a deletion filter: constraints whose removal keeps the program infeasible are dropped
// until the remaining ones form an irreducible infeasible subsystem
func (solver *enumerationSolver) Explain(program *Program) (string, error) {
	solution, err := solver.Solve(program)
	if err != nil {
		return "", err
	}
	if solution.Status != Infeasible {
		return "", fmt.Errorf("program is %v, not infeasible", solution.Status)
	}

	kept := slices.Clone(program.Constraints)
	for i := 0; i < len(kept); {
		trial := &Program{
			Variables:   program.Variables,
			Constraints: append(slices.Clone(kept[:i]), kept[i+1:]...),
			Maximize:    program.Maximize,
		}
		solution, err := solver.Solve(trial)
		if err != nil {
			return "", err
		}
		if solution.Status == Infeasible {
			kept = trial.Constraints
			continue
		}
		i++
	}

	var builder strings.Builder
	builder.WriteString("irreducible infeasible subsystem:\n")
	for _, constraint := range kept {
		fmt.Fprintf(&builder, "  %v: %v\n", constraint.Name, describe(constraint, program))
	}
	return builder.String(), nil
}

func describe(constraint Constraint, program *Program) string {
	parts := make([]string, 0, len(constraint.Terms))
	for _, term := range compact(constraint.Terms) {
		parts = append(parts, fmt.Sprintf("%v*[%v]", formatFloat(term.Coef), program.Variables[term.Var].Name))
	}
	if len(parts) == 0 {
		parts = append(parts, "0")
	}
	return fmt.Sprintf("%v %v %v", strings.Join(parts, " + "), constraint.Sense, formatFloat(constraint.RHS))
}

type enumeration struct {
	program     *Program
	constraints []Constraint
	objective   []float64 // Objective coefficient per variable
	sign        float64   // 1 when maximizing, -1 when minimizing

	binaries   []Var
	continuous []Var
	watched    [][]int // Binary-only constraints per binary position
	bounding   [][]int // Constraints per continuous position

	// Binary-only constraints with unit coefficients and a right-hand side of one. A binary belongs
	// to at most one of them, exact ones first.
	choices []choice
	grouped []bool

	values   []float64
	assigned []bool

	gap      float64
	deadline time.Time
	nodes    int
	stopped  bool

	found         bool
	unbounded     bool
	best          []float64
	bestObjective float64
}

// choice is a set of binaries of which at most one, or exactly one, is set
type choice struct {
	members []Var
	exact   bool
}

func newEnumeration(program *Program, params Parameters) (*enumeration, error) {
	state := &enumeration{
		program:     program,
		constraints: make([]Constraint, len(program.Constraints)),
		objective:   make([]float64, len(program.Variables)),
		sign:        1,
		grouped:     make([]bool, len(program.Variables)),
		values:      make([]float64, len(program.Variables)),
		assigned:    make([]bool, len(program.Variables)),
		gap:         math.Max(params.RelativeGap, 0),
	}
	if !program.Maximize {
		state.sign = -1
	}
	if params.TimeLimit > 0 {
		state.deadline = time.Now().Add(params.TimeLimit)
	}

	binaryPositions := make(map[Var]int)
	continuousPositions := make(map[Var]int)
	for i, variable := range program.Variables {
		if variable.Kind == Binary {
			binaryPositions[Var(i)] = len(state.binaries)
			state.binaries = append(state.binaries, Var(i))
		} else {
			continuousPositions[Var(i)] = len(state.continuous)
			state.continuous = append(state.continuous, Var(i))
			state.assigned[i] = true
		}
	}
	if len(state.binaries) > MaxEnumerationBinaries {
		return nil, fmt.Errorf("program has %d binary variables: the enumeration solver handles at most %d, use highs or cbc instead", len(state.binaries), MaxEnumerationBinaries)
	}
	state.watched = make([][]int, len(state.binaries))
	state.bounding = make([][]int, len(state.continuous))

	for _, term := range program.Objective {
		state.objective[term.Var] += term.Coef
	}

	for ci, constraint := range program.Constraints {
		constraint.Terms = compact(constraint.Terms)
		state.constraints[ci] = constraint

		continuousTerms := 0
		for _, term := range constraint.Terms {
			if position, ok := continuousPositions[term.Var]; ok {
				continuousTerms++
				state.bounding[position] = append(state.bounding[position], ci)
			}
		}
		if continuousTerms > 1 {
			return nil, fmt.Errorf("constraint %q has %d continuous variables: the enumeration solver supports at most one", constraint.Name, continuousTerms)
		}
		if continuousTerms == 0 {
			for _, term := range constraint.Terms {
				position := binaryPositions[term.Var]
				state.watched[position] = append(state.watched[position], ci)
			}
		}
	}

	state.addChoices(Equal)
	state.addChoices(LessEqual)
	return state, nil
}

func (state *enumeration) addChoices(sense Sense) {
	for _, constraint := range state.constraints {
		if constraint.Sense != sense || constraint.RHS != 1 || len(constraint.Terms) == 0 {
			continue
		}
		unit := true
		for _, term := range constraint.Terms {
			if term.Coef != 1 || state.program.Variables[term.Var].Kind != Binary {
				unit = false
				break
			}
		}
		if !unit {
			continue
		}

		members := make([]Var, 0, len(constraint.Terms))
		for _, term := range constraint.Terms {
			if !state.grouped[term.Var] {
				members = append(members, term.Var)
			}
		}
		if len(members) == 0 {
			continue
		}
		for _, v := range members {
			state.grouped[v] = true
		}
		// A partial group still allows at most one of its members, but no longer exactly one
		exact := sense == Equal && len(members) == len(constraint.Terms)
		state.choices = append(state.choices, choice{members: members, exact: exact})
	}
}

func (state *enumeration) branch(depth int) {
	if state.unbounded || state.expired() {
		return
	}
	if depth == len(state.binaries) {
		state.leaf()
		return
	}
	if state.found && !state.promising() {
		return
	}

	v := state.binaries[depth]
	state.assigned[v] = true
	for _, value := range []float64{1, 0} {
		state.values[v] = value
		if state.consistent(state.watched[depth]) {
			state.branch(depth + 1)
		}
	}
	state.assigned[v] = false
	state.values[v] = 0
}

func (state *enumeration) expired() bool {
	if state.stopped {
		return true
	}
	state.nodes++
	if state.deadline.IsZero() || state.nodes%clockInterval != 0 {
		return false
	}
	state.stopped = time.Now().After(state.deadline)
	return state.stopped
}

// promising tells whether some completion of the current partial assignment may beat the incumbent
// by more than the allowed gap
func (state *enumeration) promising() bool {
	incumbent := state.sign * state.bestObjective
	return state.bound() > incumbent+math.Max(pruneTolerance, state.gap*math.Abs(incumbent))
}

// bound returns an upper bound, in maximization terms, of the objective over every completion of
// the current partial assignment. Each constraint is relaxed on its own.
func (state *enumeration) bound() float64 {
	total := 0.0
	for _, v := range state.binaries {
		gain := state.sign * state.objective[v]
		switch {
		case state.assigned[v]:
			total += gain * state.values[v]
		case !state.grouped[v]:
			total += math.Max(gain, 0)
		}
	}

	for _, choice := range state.choices {
		taken, open := false, false
		best := math.Inf(-1)
		for _, v := range choice.members {
			if !state.assigned[v] {
				open = true
				best = math.Max(best, state.sign*state.objective[v])
			} else if state.values[v] > 0.5 {
				taken = true
				break
			}
		}
		switch {
		case taken || !open:
		case choice.exact:
			total += best
		default:
			total += math.Max(best, 0)
		}
	}

	for position, v := range state.continuous {
		gain := state.sign * state.objective[v]
		if gain == 0 {
			continue
		}
		low, high := state.interval(position, v)
		if low > high+pruneTolerance {
			return math.Inf(-1)
		}
		value := high
		if gain < 0 {
			value = low
		}
		if math.IsInf(value, 0) {
			return math.Inf(1)
		}
		total += gain * value
	}
	return total
}

// interval returns the widest interval a continuous variable can take given the assigned binaries
func (state *enumeration) interval(position int, v Var) (float64, float64) {
	low, high := state.program.Variables[v].Lower, state.program.Variables[v].Upper
	for _, ci := range state.bounding[position] {
		constraint := state.constraints[ci]
		restLow, restHigh, coef := 0.0, 0.0, 0.0
		for _, term := range constraint.Terms {
			switch {
			case term.Var == v:
				coef += term.Coef
			case state.assigned[term.Var]:
				restLow += term.Coef * state.values[term.Var]
				restHigh += term.Coef * state.values[term.Var]
			case term.Coef > 0:
				restHigh += term.Coef
			default:
				restLow += term.Coef
			}
		}
		if coef == 0 {
			continue
		}

		first, second := (constraint.RHS-restLow)/coef, (constraint.RHS-restHigh)/coef
		if constraint.Sense == Equal || (constraint.Sense == LessEqual) == (coef > 0) {
			high = math.Min(high, math.Max(first, second))
		}
		if constraint.Sense == Equal || (constraint.Sense == LessEqual) != (coef > 0) {
			low = math.Max(low, math.Min(first, second))
		}
	}
	return low, high
}

// consistent checks whether the constraints can still hold once the unassigned binaries are set
func (state *enumeration) consistent(constraints []int) bool {
	for _, ci := range constraints {
		constraint := state.constraints[ci]
		low, high := 0.0, 0.0
		for _, term := range constraint.Terms {
			if state.assigned[term.Var] {
				low += term.Coef * state.values[term.Var]
				high += term.Coef * state.values[term.Var]
			} else if term.Coef > 0 {
				high += term.Coef
			} else {
				low += term.Coef
			}
		}

		switch constraint.Sense {
		case LessEqual:
			if low > constraint.RHS+pruneTolerance {
				return false
			}
		case GreaterEqual:
			if high < constraint.RHS-pruneTolerance {
				return false
			}
		default:
			if low > constraint.RHS+pruneTolerance || high < constraint.RHS-pruneTolerance {
				return false
			}
		}
	}
	return true
}

func (state *enumeration) leaf() {
	for position, v := range state.continuous {
		state.values[v] = 0
		low, high := state.program.Variables[v].Lower, state.program.Variables[v].Upper

		for _, ci := range state.bounding[position] {
			constraint := state.constraints[ci]
			rest, coef := 0.0, 0.0
			for _, term := range constraint.Terms {
				if term.Var == v {
					coef += term.Coef
				} else {
					rest += term.Coef * state.values[term.Var]
				}
			}
			if coef == 0 {
				continue
			}

			bound := (constraint.RHS - rest) / coef
			switch {
			case constraint.Sense == Equal:
				low, high = math.Max(low, bound), math.Min(high, bound)
			case (constraint.Sense == LessEqual) == (coef > 0):
				high = math.Min(high, bound)
			default:
				low = math.Max(low, bound)
			}
		}
		if low > high+pruneTolerance {
			return
		}

		direction := state.objective[v]
		if !state.program.Maximize {
			direction = -direction
		}
		var value float64
		switch {
		case direction > 0:
			value = high
		case direction < 0:
			value = low
		case !math.IsInf(low, 0):
			value = low
		case !math.IsInf(high, 0):
			value = high
		}
		if math.IsInf(value, 0) {
			state.unbounded = true
			return
		}
		state.values[v] = value
	}

	for _, constraint := range state.constraints {
		if !constraint.Satisfies(state.values, checkTolerance) {
			return
		}
	}

	objective := state.program.Evaluate(state.values)
	improves := objective > state.bestObjective+pruneTolerance
	if !state.program.Maximize {
		improves = objective < state.bestObjective-pruneTolerance
	}
	if !state.found || improves {
		state.found = true
		state.bestObjective = objective
		state.best = slices.Clone(state.values)
	}
}

package lp

import (
	"errors"
	"fmt"
	"math"
)

type Status uint8

const (
	Optimal Status = iota
	Feasible
	Infeasible
	Unbounded
	Error
)

func (status Status) String() string {
	switch status {
	case Optimal:
		return "optimal"
	case Feasible:
		return "feasible"
	case Infeasible:
		return "infeasible"
	case Unbounded:
		return "unbounded"
	}
	return "error"
}

type Solution struct {
	Status    Status
	Objective float64
	Values    []float64
}

// Solver solves a whole program in one blocking call
type Solver interface {
	Solve(program *Program) (Solution, error)
}

// Explainer is implemented by solvers able to describe why a program is infeasible
type Explainer interface {
	Explain(program *Program) (string, error)
}

// Engine is the incremental interface model builders are written against
type Engine interface {
	AddBinaryVariable(name string) Var
	AddContinuousVariable(name string, lower, upper float64) Var
	AddConstraint(name string, terms []Term, sense Sense, rhs float64) error
	RemoveConstraints(names ...string)
	SetObjective(terms []Term, maximize bool) error
	Solve() (Status, error)
	Value(v Var) float64
	ObjectiveValue() float64
}

// InfeasibilityExplainer is implemented by engines that can report an infeasible subsystem
type InfeasibilityExplainer interface {
	ExplainInfeasibility() (string, error)
}

var ErrNoExplanation = errors.New("solver cannot explain infeasibility")

// ProgramEngine accumulates a Program and hands it to a Solver on every Solve
type ProgramEngine struct {
	program  *Program
	solver   Solver
	solution Solution
}

func NewEngine(solver Solver) *ProgramEngine {
	return &ProgramEngine{
		program: NewProgram(),
		solver:  solver,
	}
}

func (engine *ProgramEngine) AddBinaryVariable(name string) Var {
	return engine.program.AddVariable(Variable{Name: name, Kind: Binary})
}

func (engine *ProgramEngine) AddContinuousVariable(name string, lower, upper float64) Var {
	return engine.program.AddVariable(Variable{Name: name, Kind: Continuous, Lower: lower, Upper: upper})
}

func (engine *ProgramEngine) AddConstraint(name string, terms []Term, sense Sense, rhs float64) error {
	return engine.program.AddConstraint(Constraint{Name: name, Terms: terms, Sense: sense, RHS: rhs})
}

func (engine *ProgramEngine) RemoveConstraints(names ...string) {
	engine.program.RemoveConstraints(names...)
}

func (engine *ProgramEngine) SetObjective(terms []Term, maximize bool) error {
	return engine.program.SetObjective(terms, maximize)
}

func (engine *ProgramEngine) Solve() (Status, error) {
	solution, err := engine.solver.Solve(engine.program)
	if err != nil {
		engine.solution = Solution{Status: Error}
		return Error, err
	}
	if solution.Values != nil && len(solution.Values) != len(engine.program.Variables) {
		engine.solution = Solution{Status: Error}
		return Error, fmt.Errorf("solver returned %d values for %d variables", len(solution.Values), len(engine.program.Variables))
	}
	engine.solution = solution
	return solution.Status, nil
}

// Value returns the solved value of a variable, NaN when there is no solution
func (engine *ProgramEngine) Value(v Var) float64 {
	if int(v) >= len(engine.solution.Values) || v < 0 {
		return math.NaN()
	}
	return engine.solution.Values[v]
}

func (engine *ProgramEngine) ObjectiveValue() float64 {
	return engine.solution.Objective
}

func (engine *ProgramEngine) ExplainInfeasibility() (string, error) {
	explainer, ok := engine.solver.(Explainer)
	if !ok {
		return "", ErrNoExplanation
	}
	return explainer.Explain(engine.program)
}

// Program exposes the accumulated program
func (engine *ProgramEngine) Program() *Program {
	return engine.program
}

func (engine *ProgramEngine) Size() (variables, constraints int) {
	return len(engine.program.Variables), len(engine.program.Constraints)
}

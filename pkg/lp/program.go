package lp

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Var is a handle to a variable of a Program
type Var int

type VarKind uint8

const (
	Binary VarKind = iota
	Continuous
)

type Variable struct {
	Name  string
	Kind  VarKind
	Lower float64
	Upper float64
}

type Term struct {
	Var  Var
	Coef float64
}

type Sense uint8

const (
	LessEqual Sense = iota
	Equal
	GreaterEqual
)

func (sense Sense) String() string {
	switch sense {
	case LessEqual:
		return "<="
	case GreaterEqual:
		return ">="
	}
	return "="
}

type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Program is a mixed-integer linear program
type Program struct {
	Variables   []Variable
	Constraints []Constraint
	Objective   []Term
	Maximize    bool
}

func NewProgram() *Program {
	return &Program{
		Variables:   make([]Variable, 0),
		Constraints: make([]Constraint, 0),
	}
}

func (program *Program) AddVariable(variable Variable) Var {
	if variable.Kind == Binary {
		variable.Lower, variable.Upper = 0, 1
	}
	program.Variables = append(program.Variables, variable)
	return Var(len(program.Variables) - 1)
}

func (program *Program) AddConstraint(constraint Constraint) error {
	if err := program.checkTerms(constraint.Terms); err != nil {
		return fmt.Errorf("constraint %q: %w", constraint.Name, err)
	}
	program.Constraints = append(program.Constraints, constraint)
	return nil
}

// RemoveConstraints drops every constraint with one of the given names and returns how many were removed
func (program *Program) RemoveConstraints(names ...string) int {
	before := len(program.Constraints)
	program.Constraints = lo.Reject(program.Constraints, func(constraint Constraint, _ int) bool {
		return lo.Contains(names, constraint.Name)
	})
	return before - len(program.Constraints)
}

func (program *Program) SetObjective(terms []Term, maximize bool) error {
	if err := program.checkTerms(terms); err != nil {
		return fmt.Errorf("objective: %w", err)
	}
	program.Objective, program.Maximize = terms, maximize
	return nil
}

func (program *Program) checkTerms(terms []Term) error {
	for _, term := range terms {
		if term.Var < 0 || int(term.Var) >= len(program.Variables) {
			return fmt.Errorf("unknown variable handle %d", term.Var)
		}
		if math.IsNaN(term.Coef) || math.IsInf(term.Coef, 0) {
			return fmt.Errorf("coefficient of variable %q is not finite", program.Variables[term.Var].Name)
		}
	}
	return nil
}

// Evaluate computes the objective for the given variable values
func (program *Program) Evaluate(values []float64) float64 {
	return activity(program.Objective, values)
}

// Satisfies checks a constraint against the given values with an absolute tolerance
func (constraint Constraint) Satisfies(values []float64, tolerance float64) bool {
	lhs := activity(constraint.Terms, values)
	switch constraint.Sense {
	case LessEqual:
		return lhs <= constraint.RHS+tolerance
	case GreaterEqual:
		return lhs >= constraint.RHS-tolerance
	}
	return math.Abs(lhs-constraint.RHS) <= tolerance
}

func activity(terms []Term, values []float64) float64 {
	return lo.SumBy(terms, func(term Term) float64 { return term.Coef * values[term.Var] })
}

// compact merges repeated variables of a linear expression, in order of first appearance
func compact(terms []Term) []Term {
	positions := make(map[Var]int)
	merged := make([]Term, 0, len(terms))
	for _, term := range terms {
		if position, ok := positions[term.Var]; ok {
			merged[position].Coef += term.Coef
			continue
		}
		positions[term.Var] = len(merged)
		merged = append(merged, term)
	}
	return merged
}

//** CPLEX LP format

// columnName is the name a variable takes in the LP file. Variable names are free text and are
// therefore kept out of the file.
func columnName(v Var) string {
	return "x" + strconv.Itoa(int(v)+1)
}

func rowName(index int) string {
	return "c" + strconv.Itoa(index+1)
}

// columnIndex inverts columnName
func columnIndex(name string) (Var, bool) {
	if !strings.HasPrefix(name, "x") {
		return 0, false
	}
	index, err := strconv.Atoi(name[1:])
	if err != nil || index < 1 {
		return 0, false
	}
	return Var(index - 1), true
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func writeExpression(builder *strings.Builder, terms []Term) {
	terms = compact(terms)
	if len(terms) == 0 {
		builder.WriteString("0 x1")
		return
	}
	for i, term := range terms {
		coef := term.Coef
		switch {
		case i == 0 && coef < 0:
			builder.WriteString("- ")
		case i > 0 && coef < 0:
			builder.WriteString(" - ")
		case i > 0:
			builder.WriteString(" + ")
		}
		fmt.Fprintf(builder, "%v %v", formatFloat(math.Abs(coef)), columnName(term.Var))
	}
}

// ToLP renders the program in CPLEX LP format
func (program *Program) ToLP() string {
	var builder strings.Builder

	if program.Maximize {
		builder.WriteString("Maximize\n")
	} else {
		builder.WriteString("Minimize\n")
	}
	builder.WriteString(" obj: ")
	writeExpression(&builder, program.Objective)
	builder.WriteString("\n")

	builder.WriteString("Subject To\n")
	for i, constraint := range program.Constraints {
		fmt.Fprintf(&builder, " %v: ", rowName(i))
		writeExpression(&builder, constraint.Terms)
		fmt.Fprintf(&builder, " %v %v\n", constraint.Sense, formatFloat(constraint.RHS))
	}

	builder.WriteString("Bounds\n")
	for i, variable := range program.Variables {
		if variable.Kind == Binary {
			continue
		}
		name := columnName(Var(i))
		switch {
		case math.IsInf(variable.Lower, -1) && math.IsInf(variable.Upper, 1):
			fmt.Fprintf(&builder, " %v free\n", name)
		case math.IsInf(variable.Upper, 1):
			fmt.Fprintf(&builder, " %v >= %v\n", name, formatFloat(variable.Lower))
		case math.IsInf(variable.Lower, -1):
			fmt.Fprintf(&builder, " -inf <= %v <= %v\n", name, formatFloat(variable.Upper))
		default:
			fmt.Fprintf(&builder, " %v <= %v <= %v\n", formatFloat(variable.Lower), name, formatFloat(variable.Upper))
		}
	}

	binaries := lo.FilterMap(program.Variables, func(variable Variable, i int) (string, bool) {
		return columnName(Var(i)), variable.Kind == Binary
	})
	if len(binaries) > 0 {
		builder.WriteString("Binaries\n")
		for _, chunk := range lo.Chunk(binaries, 10) {
			fmt.Fprintf(&builder, " %v\n", strings.Join(chunk, " "))
		}
	}

	builder.WriteString("End\n")
	return builder.String()
}

package lp

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type cbcSolver struct {
	path   string
	params Parameters
}

// NewCbcSolver runs the COIN-OR CBC executable found at path
func NewCbcSolver(path string, params Parameters) Solver {
	return &cbcSolver{path: path, params: params}
}

func (solver *cbcSolver) Solve(program *Program) (Solution, error) {
	modelFile, err := writeTemporaryFile("model-*.lp", program.ToLP())
	if err != nil {
		return Solution{}, err
	}
	defer removeFiles(modelFile)

	solutionFile, err := writeTemporaryFile("solution-*.txt", "")
	if err != nil {
		return Solution{}, err
	}
	defer removeFiles(solutionFile)

	args := []string{modelFile, "ratio", formatFloat(solver.params.RelativeGap)}
	if solver.params.TimeLimit > 0 {
		args = append(args, "sec", formatFloat(solver.params.TimeLimit.Seconds()))
	}
	args = append(args, "solve", "solu", solutionFile)

	if _, err := runExecutable("cbc", solver.path, args...); err != nil {
		return Solution{}, err
	}

	content, err := os.ReadFile(solutionFile)
	if err != nil {
		return Solution{}, fmt.Errorf("cannot read cbc solution: %v", err)
	}
	return parseCbcSolution(string(content), program)
}

// parseCbcSolution reads the "solu" output of CBC. Only non-zero columns are listed.
func parseCbcSolution(content string, program *Program) (Solution, error) {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return Solution{}, fmt.Errorf("empty cbc solution")
	}

	header := strings.ToLower(strings.TrimSpace(lines[0]))
	var status Status
	switch {
	case strings.HasPrefix(header, "optimal"):
		status = Optimal
	case strings.Contains(header, "infeasible"):
		return Solution{Status: Infeasible}, nil
	case strings.Contains(header, "unbounded"):
		return Solution{Status: Unbounded}, nil
	case strings.HasPrefix(header, "stopped") && !strings.Contains(header, "no integer"):
		status = Feasible
	default:
		return Solution{Status: Error}, nil
	}

	values := make([]float64, len(program.Variables))
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		// Infeasible rows are flagged with a leading "**"
		if len(fields) > 0 && fields[0] == "**" {
			fields = fields[1:]
		}
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 3 {
			return Solution{}, fmt.Errorf("malformed cbc solution line %q", line)
		}
		v, ok := columnIndex(fields[1])
		if !ok || int(v) >= len(values) {
			return Solution{}, fmt.Errorf("unknown column %q in cbc solution", fields[1])
		}
		value, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return Solution{}, fmt.Errorf("invalid value in cbc solution: %v", err)
		}
		values[v] = value
	}
	return Solution{Status: status, Objective: program.Evaluate(values), Values: values}, nil
}

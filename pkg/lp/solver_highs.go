package lp

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type highsSolver struct {
	path   string
	params Parameters
}

// NewHighsSolver runs the HiGHS executable found at path
func NewHighsSolver(path string, params Parameters) Solver {
	return &highsSolver{path: path, params: params}
}

func (solver *highsSolver) Solve(program *Program) (Solution, error) {
	modelFile, err := writeTemporaryFile("model-*.lp", program.ToLP())
	if err != nil {
		return Solution{}, err
	}
	defer removeFiles(modelFile)

	options := fmt.Sprintf("mip_rel_gap = %v\nwrite_solution_style = 0\n", formatFloat(solver.params.RelativeGap))
	if solver.params.TimeLimit > 0 {
		options += fmt.Sprintf("time_limit = %v\n", formatFloat(solver.params.TimeLimit.Seconds()))
	}
	optionsFile, err := writeTemporaryFile("highs-*.opt", options)
	if err != nil {
		return Solution{}, err
	}
	defer removeFiles(optionsFile)

	solutionFile, err := writeTemporaryFile("solution-*.sol", "")
	if err != nil {
		return Solution{}, err
	}
	defer removeFiles(solutionFile)

	if _, err := runExecutable("highs", solver.path,
		"--model_file", modelFile,
		"--options_file", optionsFile,
		"--solution_file", solutionFile,
	); err != nil {
		return Solution{}, err
	}

	content, err := os.ReadFile(solutionFile)
	if err != nil {
		return Solution{}, fmt.Errorf("cannot read highs solution: %v", err)
	}
	return parseHighsSolution(string(content), program)
}

// parseHighsSolution reads a solution file written with write_solution_style = 0
func parseHighsSolution(content string, program *Program) (Solution, error) {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")

	modelStatus, ok := lineAfter(lines, func(line string) bool { return line == "Model status" })
	if !ok {
		return Solution{}, fmt.Errorf("highs solution has no model status")
	}
	primalStatus, _ := lineAfter(lines, func(line string) bool { return line == "# Primal solution values" })

	values, found, err := highsColumns(lines, program)
	if err != nil {
		return Solution{}, err
	}

	status := Error
	switch lowered := strings.ToLower(modelStatus); {
	case lowered == "optimal":
		status = Optimal
	case strings.Contains(lowered, "infeasible"):
		return Solution{Status: Infeasible}, nil
	case strings.Contains(lowered, "unbounded"):
		return Solution{Status: Unbounded}, nil
	case found && primalStatus == "Feasible":
		status = Feasible
	default:
		return Solution{Status: Error}, nil
	}

	if !found {
		return Solution{}, fmt.Errorf("highs reported %q but wrote no primal values", modelStatus)
	}
	return Solution{Status: status, Objective: program.Evaluate(values), Values: values}, nil
}

func highsColumns(lines []string, program *Program) ([]float64, bool, error) {
	values := make([]float64, len(program.Variables))
	for i, line := range lines {
		count, ok := strings.CutPrefix(strings.TrimSpace(line), "# Columns ")
		if !ok {
			continue
		}
		columns, err := strconv.Atoi(strings.TrimSpace(count))
		if err != nil || i+columns >= len(lines) {
			return nil, false, fmt.Errorf("malformed highs column section %q", line)
		}
		for _, row := range lines[i+1 : i+1+columns] {
			fields := strings.Fields(row)
			if len(fields) < 2 {
				return nil, false, fmt.Errorf("malformed highs column line %q", row)
			}
			v, ok := columnIndex(fields[0])
			if !ok || int(v) >= len(values) {
				return nil, false, fmt.Errorf("unknown column %q in highs solution", fields[0])
			}
			value, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return nil, false, fmt.Errorf("invalid value in highs solution: %v", err)
			}
			values[v] = value
		}
		return values, true, nil
	}
	return nil, false, nil
}

// lineAfter returns the first non-empty line that follows a line matching the predicate
func lineAfter(lines []string, predicate func(line string) bool) (string, bool) {
	for i, line := range lines {
		if !predicate(strings.TrimSpace(line)) {
			continue
		}
		for _, next := range lines[i+1:] {
			if next = strings.TrimSpace(next); next != "" {
				return next, true
			}
		}
		return "", false
	}
	return "", false
}

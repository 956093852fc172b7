package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/limaJavier/roomscheduler/internal/config"
	"github.com/limaJavier/roomscheduler/internal/csvio"
	"github.com/limaJavier/roomscheduler/internal/service"
	"github.com/limaJavier/roomscheduler/pkg/model"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const MB float64 = 1024 * 1024

type ResultType string

const (
	solved        ResultType = "solved"
	unschedulable ResultType = "unschedulable"
	failed        ResultType = "error"
)

var (
	testDirectory = "testdata"
	outFile       = "benchmark_results.csv"
	solverNames   = []string{config.SolverEnumeration, config.SolverHighs, config.SolverCbc}
)

// TestMetadata describes one input set: a directory holding either model.json or rooms.csv,
// courses.csv and optionally noconflict.csv and b2b.csv
type TestMetadata struct {
	Name             string
	Rooms            int
	Courses          int
	NoConflictGroups int
	BackToBackPairs  int
	Input            model.RawModelInput
}

type BenchmarkResult struct {
	Solver           string     `csv:"Solver"`
	Test             string     `csv:"Test"`
	Rooms            int        `csv:"Rooms"`
	Courses          int        `csv:"Courses"`
	NoConflictGroups int        `csv:"NoConflictGroups"`
	BackToBackPairs  int        `csv:"BackToBackPairs"`
	Variables        int        `csv:"Variables"`
	Constraints      int        `csv:"Constraints"`
	Duration         int64      `csv:"Duration(ms)"`
	Memory           float64    `csv:"Memory(MB)"`
	Objective        float64    `csv:"Objective"`
	Violations       int        `csv:"Violations"`
	Result           ResultType `csv:"Result"`
}

func main() {
	log.SetFlags(log.Ltime)

	cmdBenchmark := &cobra.Command{
		Use:   "benchmark",
		Short: "solve every input set with every engine and record the timings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			tests, err := getTests(testDirectory)
			if err != nil {
				return err
			}
			results, err := benchmark(cmd.Context(), cfg, tests, solverNames)
			if err != nil {
				return err
			}
			file, err := os.Create(outFile)
			if err != nil {
				return fmt.Errorf("cannot create CSV file: %w", err)
			}
			defer file.Close()
			return toCsv(file, results)
		},
	}
	cmdBenchmark.Flags().StringVarP(&testDirectory, "tests", "t", testDirectory, "directory holding one subdirectory per input set")
	cmdBenchmark.Flags().StringVarP(&outFile, "out", "o", outFile, "CSV file the results are written to")
	cmdBenchmark.Flags().StringSliceVar(&solverNames, "solvers", solverNames, "engines to benchmark")

	if err := cmdBenchmark.Execute(); err != nil {
		os.Exit(1)
	}
}

func getTests(directory string) ([]TestMetadata, error) {
	entries, err := os.ReadDir(directory)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory: %w", err)
	}

	tests := make([]TestMetadata, 0, len(entries))
	for _, entry := range lo.Filter(entries, func(entry os.DirEntry, _ int) bool { return entry.IsDir() }) {
		dir := filepath.Join(directory, entry.Name())
		input, err := loadTest(dir)
		if err != nil {
			return nil, fmt.Errorf("cannot parse input set %v: %w", dir, err)
		}

		tests = append(tests, TestMetadata{
			Name:             entry.Name(),
			Rooms:            len(input.Rooms),
			Courses:          len(input.Courses),
			NoConflictGroups: len(input.NoConflictGroups),
			BackToBackPairs:  len(input.BackToBackPairs),
			Input:            input,
		})
	}
	return tests, nil
}

func loadTest(dir string) (model.RawModelInput, error) {
	if path := optional(filepath.Join(dir, "model.json")); path != "" {
		return model.InputFromJson(path)
	}
	files := csvio.Files{
		Rooms:      filepath.Join(dir, "rooms.csv"),
		Courses:    filepath.Join(dir, "courses.csv"),
		NoConflict: optional(filepath.Join(dir, "noconflict.csv")),
		BackToBack: optional(filepath.Join(dir, "b2b.csv")),
	}
	return csvio.LoadInput(files, ',', model.Discard)
}

func optional(path string) string {
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func benchmark(ctx context.Context, cfg *config.Config, tests []TestMetadata, solvers []string) ([]BenchmarkResult, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}

	results := make([]BenchmarkResult, 0, len(tests)*len(solvers))
	for _, test := range tests {
		for _, solver := range solvers {
			solverCfg := *cfg
			solverCfg.Solver.Name = solver
			if _, err := solverCfg.NewSolver(); err != nil {
				return nil, err
			}
			log.Printf("Benchmarking test %q with solver %q", test.Name, solver)

			svc := service.NewWithSolver(opts, cfg.ModelWeights(), solverCfg.NewSolver, zap.NewNop(), nil)
			results = append(results, measure(ctx, svc, solver, test))
		}
	}
	return results, nil
}

func measure(ctx context.Context, svc *service.Service, solver string, test TestMetadata) BenchmarkResult {
	result := BenchmarkResult{
		Solver:           solver,
		Test:             test.Name,
		Rooms:            test.Rooms,
		Courses:          test.Courses,
		NoConflictGroups: test.NoConflictGroups,
		BackToBackPairs:  test.BackToBackPairs,
	}

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	start := time.Now()

	run, err := svc.Solve(ctx, test.Input, svc.Weights())

	result.Duration = time.Since(start).Milliseconds()
	runtime.ReadMemStats(&after)
	result.Memory = float64(after.TotalAlloc-before.TotalAlloc) / MB

	var schedulingErr *model.SchedulingError
	switch {
	case errors.As(err, &schedulingErr):
		result.Result = unschedulable
	case err != nil:
		log.Printf("test %q with solver %q failed: %v", test.Name, solver, err)
		result.Result = failed
	default:
		result.Result = solved
		result.Variables = run.Variables
		result.Constraints = run.Constraints
		result.Objective = run.Objective
		result.Violations = len(run.Violations)
	}
	return result
}

func toCsv(w io.Writer, results []BenchmarkResult) error {
	if err := gocsv.Marshal(&results, w); err != nil {
		return fmt.Errorf("cannot write CSV records: %w", err)
	}
	return nil
}

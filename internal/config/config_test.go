package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/limaJavier/roomscheduler/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, SolverEnumeration, cfg.Solver.Name)
	assert.Equal(t, 10*time.Minute, cfg.Solver.TimeLimit)
	assert.Equal(t, 1e-2, cfg.Solver.RelativeGap)
	assert.Equal(t, []float64{10, 5, 1}, cfg.Weights.Scores)
	assert.Equal(t, 1.0, cfg.Weights.Preference)
	assert.Len(t, cfg.Schedule.Blocks, 6)

	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, model.DefaultOptions(), opts)
}

func TestLoadEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SOLVER", "HiGHS")
	t.Setenv("SOLVER_TIME_LIMIT", "90s")
	t.Setenv("SCORE_WEIGHTS", "4, 2")
	t.Setenv("B2B_WEIGHT", "2.5")
	t.Setenv("ENFORCE_FREE_TIME", "false")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, SolverHighs, cfg.Solver.Name)
	assert.Equal(t, 90*time.Second, cfg.Solver.TimeLimit)
	assert.Equal(t, model.Weights{Scores: []float64{4, 2}, Preference: 1, BackToBack: 2.5}, cfg.ModelWeights())

	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.False(t, opts.EnforceFreeTime)
	assert.Nil(t, opts.ForbiddenSlot())
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	// Empty values restore the variables godotenv exports once the test ends
	t.Setenv("PORT", "")
	t.Setenv("LAST_CLASS", "")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=9090\nLAST_CLASS=\"6:00 PM\"\n"), 0o644))

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, model.Clock(18, 0), opts.LastClass)
}

func TestLoadInvalidWeights(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SCORE_WEIGHTS", "10,five")

	_, err := Load()

	assert.ErrorContains(t, err, "SCORE_WEIGHTS")
}

func TestOptionsErrors(t *testing.T) {
	chdir(t, t.TempDir())
	cases := map[string]func(schedule *ScheduleConfig){
		"first class":   func(schedule *ScheduleConfig) { schedule.FirstClass = "noon" },
		"inverted day":  func(schedule *ScheduleConfig) { schedule.FirstClass, schedule.LastClass = "8:00 PM", "8:30 AM" },
		"block":         func(schedule *ScheduleConfig) { schedule.Blocks = []string{"8:30 AM"} },
		"block time":    func(schedule *ScheduleConfig) { schedule.Blocks = []string{"8:30 AM-ten"} },
		"free time":     func(schedule *ScheduleConfig) { schedule.FreeTime = "F|M W|11:30 AM" },
		"free time day": func(schedule *ScheduleConfig) { schedule.FreeTime = "F|Sa|11:30 AM|1:00 PM" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			mutate(&cfg.Schedule)

			_, err = cfg.Options()

			assert.Error(t, err)
		})
	}
}

func TestNewSolver(t *testing.T) {
	for _, name := range []string{SolverEnumeration, SolverHighs, SolverCbc, ""} {
		cfg := &Config{Solver: SolverConfig{Name: name}}
		solver, err := cfg.NewSolver()
		assert.NoError(t, err, name)
		assert.NotNil(t, solver, name)
	}

	_, err := (&Config{Solver: SolverConfig{Name: "gurobi"}}).NewSolver()
	assert.ErrorContains(t, err, "unknown solver")
}

// chdir changes the working directory for the duration of the test (t.Chdir needs Go 1.24)
func chdir(t *testing.T, dir string) {
	t.Helper()
	previous, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(previous); err != nil {
			t.Fatal(err)
		}
	})
}

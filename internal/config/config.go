package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/limaJavier/roomscheduler/pkg/lp"
	"github.com/limaJavier/roomscheduler/pkg/model"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const (
	SolverEnumeration = "enumeration"
	SolverHighs       = "highs"
	SolverCbc         = "cbc"
)

type Config struct {
	Env  string
	Port int

	Log      LogConfig
	Solver   SolverConfig
	Schedule ScheduleConfig
	Weights  WeightsConfig
}

type LogConfig struct {
	Level  string
	Format string
}

// SolverConfig selects the engine backing the model and bounds its work
type SolverConfig struct {
	Name        string
	HighsPath   string
	CbcPath     string
	TimeLimit   time.Duration
	RelativeGap float64
}

// ScheduleConfig holds the institution's block schedule in its textual form
type ScheduleConfig struct {
	FirstClass      string
	LastClass       string
	FirstSeminar    string
	Blocks          []string // "8:30 AM-10:00 AM"
	FreeTime        string   // "F|M T W Th|11:30 AM|1:00 PM"
	EnforceFreeTime bool
	PrefEpsilon     float64
	DayPenalty      float64
}

type WeightsConfig struct {
	Scores         []float64
	Preference     float64
	ExcessCapacity float64
	Congestion     float64
	DeptFairness   float64
	BackToBack     float64
}

// Load reads the configuration from a .env file in the working directory (if any) and the environment
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Solver = SolverConfig{
		Name:        strings.ToLower(v.GetString("SOLVER")),
		HighsPath:   v.GetString("HIGHS_PATH"),
		CbcPath:     v.GetString("CBC_PATH"),
		TimeLimit:   parseDuration(v.GetString("SOLVER_TIME_LIMIT"), 0),
		RelativeGap: v.GetFloat64("REL_GAP"),
	}

	cfg.Schedule = ScheduleConfig{
		FirstClass:      v.GetString("FIRST_CLASS"),
		LastClass:       v.GetString("LAST_CLASS"),
		FirstSeminar:    v.GetString("FIRST_SEMINAR"),
		Blocks:          splitAndTrim(v.GetString("BLOCKS")),
		FreeTime:        v.GetString("FREE_TIME"),
		EnforceFreeTime: v.GetBool("ENFORCE_FREE_TIME"),
		PrefEpsilon:     v.GetFloat64("EPS_SAFETY_OVERRIDE"),
		DayPenalty:      v.GetFloat64("SOFT_CNST_PENALTY"),
	}

	scores, err := parseFloats(v.GetString("SCORE_WEIGHTS"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCORE_WEIGHTS: %w", err)
	}
	cfg.Weights = WeightsConfig{
		Scores:         scores,
		Preference:     v.GetFloat64("PREF_WEIGHT"),
		ExcessCapacity: v.GetFloat64("ECAP_WEIGHT"),
		Congestion:     v.GetFloat64("CONGESTION_WEIGHT"),
		DeptFairness:   v.GetFloat64("DEPT_FAIRNESS_WEIGHT"),
		BackToBack:     v.GetFloat64("B2B_WEIGHT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("SOLVER", SolverEnumeration)
	v.SetDefault("HIGHS_PATH", "highs")
	v.SetDefault("CBC_PATH", "cbc")
	v.SetDefault("SOLVER_TIME_LIMIT", "10m")
	v.SetDefault("REL_GAP", 1e-2)

	v.SetDefault("FIRST_CLASS", "8:30 AM")
	v.SetDefault("LAST_CLASS", "8:00 PM")
	v.SetDefault("FIRST_SEMINAR", "4:00 PM")
	v.SetDefault("BLOCKS", "8:30 AM-10:00 AM,10:00 AM-11:30 AM,11:30 AM-1:00 PM,1:00 PM-2:30 PM,2:30 PM-4:00 PM,4:00 PM-5:30 PM")
	v.SetDefault("FREE_TIME", "F|M T W Th|11:30 AM|1:00 PM")
	v.SetDefault("ENFORCE_FREE_TIME", true)
	v.SetDefault("EPS_SAFETY_OVERRIDE", 1e-3)
	v.SetDefault("SOFT_CNST_PENALTY", 1e3)

	v.SetDefault("SCORE_WEIGHTS", "10,5,1")
	v.SetDefault("PREF_WEIGHT", 1)
	v.SetDefault("ECAP_WEIGHT", 0)
	v.SetDefault("CONGESTION_WEIGHT", 0)
	v.SetDefault("DEPT_FAIRNESS_WEIGHT", 0)
	v.SetDefault("B2B_WEIGHT", 0)
}

// Options converts the textual schedule into model options
func (cfg *Config) Options() (model.Options, error) {
	opts := model.DefaultOptions()
	schedule := cfg.Schedule

	var err error
	if opts.FirstClass, err = model.ParseTimeOfDay(schedule.FirstClass); err != nil {
		return model.Options{}, fmt.Errorf("invalid FIRST_CLASS: %w", err)
	}
	if opts.LastClass, err = model.ParseTimeOfDay(schedule.LastClass); err != nil {
		return model.Options{}, fmt.Errorf("invalid LAST_CLASS: %w", err)
	}
	if opts.FirstSeminar, err = model.ParseTimeOfDay(schedule.FirstSeminar); err != nil {
		return model.Options{}, fmt.Errorf("invalid FIRST_SEMINAR: %w", err)
	}
	if opts.FirstClass >= opts.LastClass {
		return model.Options{}, fmt.Errorf("FIRST_CLASS %v is not before LAST_CLASS %v", opts.FirstClass, opts.LastClass)
	}

	opts.Blocks = make([]model.Block, 0, len(schedule.Blocks))
	for _, raw := range schedule.Blocks {
		start, end, ok := strings.Cut(raw, "-")
		if !ok {
			return model.Options{}, fmt.Errorf("invalid block %q: expected 'start-end'", raw)
		}
		block := model.Block{}
		if block.Start, err = model.ParseTimeOfDay(start); err != nil {
			return model.Options{}, fmt.Errorf("invalid block %q: %w", raw, err)
		}
		if block.End, err = model.ParseTimeOfDay(end); err != nil {
			return model.Options{}, fmt.Errorf("invalid block %q: %w", raw, err)
		}
		opts.Blocks = append(opts.Blocks, block)
	}

	fields := strings.Split(schedule.FreeTime, "|")
	if len(fields) != 4 {
		return model.Options{}, fmt.Errorf("invalid FREE_TIME %q: expected 'half|days|start|end'", schedule.FreeTime)
	}
	if opts.FreeTime, err = model.ParseTimeSlot(fields[0], fields[1], fields[2], fields[3]); err != nil {
		return model.Options{}, fmt.Errorf("invalid FREE_TIME: %w", err)
	}

	opts.EnforceFreeTime = schedule.EnforceFreeTime
	opts.PrefEpsilon = schedule.PrefEpsilon
	opts.DayPenalty = schedule.DayPenalty
	return opts, nil
}

func (cfg *Config) ModelWeights() model.Weights {
	return model.Weights{
		Scores:         append([]float64(nil), cfg.Weights.Scores...),
		Preference:     cfg.Weights.Preference,
		ExcessCapacity: cfg.Weights.ExcessCapacity,
		Congestion:     cfg.Weights.Congestion,
		DeptFairness:   cfg.Weights.DeptFairness,
		BackToBack:     cfg.Weights.BackToBack,
	}
}

// NewSolver returns the solver named by the configuration
func (cfg *Config) NewSolver() (lp.Solver, error) {
	params := lp.Parameters{RelativeGap: cfg.Solver.RelativeGap, TimeLimit: cfg.Solver.TimeLimit}
	switch cfg.Solver.Name {
	case SolverEnumeration, "":
		return lp.NewEnumerationSolver(params), nil
	case SolverHighs:
		return lp.NewHighsSolver(cfg.Solver.HighsPath, params), nil
	case SolverCbc:
		return lp.NewCbcSolver(cfg.Solver.CbcPath, params), nil
	}
	return nil, fmt.Errorf("unknown solver %q: must be one of %v, %v or %v", cfg.Solver.Name, SolverEnumeration, SolverHighs, SolverCbc)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

func parseFloats(raw string) ([]float64, error) {
	parts := splitAndTrim(raw)
	values := make([]float64, 0, len(parts))
	for _, part := range parts {
		value, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/limaJavier/roomscheduler/internal/config"
	"github.com/limaJavier/roomscheduler/internal/logger"
	"github.com/limaJavier/roomscheduler/internal/metrics"
	"github.com/limaJavier/roomscheduler/pkg/lp"
	"github.com/limaJavier/roomscheduler/pkg/model"
	"github.com/limaJavier/roomscheduler/pkg/report"
	"go.uber.org/zap"
)

// ErrInvalidInput is wrapped by every error caused by a request that fails validation
var ErrInvalidInput = errors.New("invalid input")

// WeightsRequest overrides the configured objective weights. Nil fields keep the configured value.
type WeightsRequest struct {
	Scores         []float64 `json:"scores" validate:"omitempty,max=3,dive,gte=0"`
	Preference     *float64  `json:"preference" validate:"omitempty,gte=0"`
	ExcessCapacity *float64  `json:"excessCapacity" validate:"omitempty,gte=0"`
	Congestion     *float64  `json:"congestion" validate:"omitempty,gte=0"`
	DeptFairness   *float64  `json:"deptFairness" validate:"omitempty,gte=0"`
	BackToBack     *float64  `json:"backToBack" validate:"omitempty,gte=0"`
}

// Apply overrides the given weights with the fields set on the request
func (request *WeightsRequest) Apply(weights model.Weights) model.Weights {
	if request == nil {
		return weights
	}
	if request.Scores != nil {
		weights.Scores = request.Scores
	}
	override := func(target *float64, value *float64) {
		if value != nil {
			*target = *value
		}
	}
	override(&weights.Preference, request.Preference)
	override(&weights.ExcessCapacity, request.ExcessCapacity)
	override(&weights.Congestion, request.Congestion)
	override(&weights.DeptFairness, request.DeptFairness)
	override(&weights.BackToBack, request.BackToBack)
	return weights
}

// Run is the outcome of a scheduling run
type Run struct {
	ID         string
	Input      model.ModelInput
	Summary    report.Summary
	Warnings   []string
	Violations []string

	Objective   float64
	Variables   int
	Constraints int
}

func (run *Run) Courses() []*model.Course {
	return run.Input.Courses
}

// Check is the outcome of a pre-solve inspection
type Check struct {
	ID          string
	Input       model.ModelInput
	Candidates  map[model.CourseKey]int
	Variables   int
	Constraints int
	Pressure    []model.PressurePoint
	Warnings    []string
}

type SolverFactory func() (lp.Solver, error)

// Service runs the ingest, build, solve and stats pipeline. It is safe for concurrent use: every run
// gets its own engine and model.
type Service struct {
	opts      model.Options
	weights   model.Weights
	newSolver SolverFactory
	log       *zap.Logger
	metrics   *metrics.Metrics
	validate  *validator.Validate
}

func New(cfg *config.Config, log *zap.Logger, m *metrics.Metrics) (*Service, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	if _, err := cfg.NewSolver(); err != nil {
		return nil, err
	}
	return NewWithSolver(opts, cfg.ModelWeights(), cfg.NewSolver, log, m), nil
}

func NewWithSolver(opts model.Options, weights model.Weights, newSolver SolverFactory, log *zap.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		opts:      opts,
		weights:   weights,
		newSolver: newSolver,
		log:       log,
		metrics:   m,
		validate:  validator.New(),
	}
}

func (s *Service) Options() model.Options {
	return s.opts
}

func (s *Service) Weights() model.Weights {
	return s.weights
}

// Solve processes the raw input, builds the model, solves it with the given weights and computes the
// statistics of the assignment
func (s *Service) Solve(ctx context.Context, raw model.RawModelInput, weights model.Weights) (*Run, error) {
	run := &Run{ID: uuid.NewString()}
	log := s.log.With(zap.String("run_id", run.ID))
	warnings := &model.WarningLog{}
	sink := model.TeeWarnings(warnings, logger.WarningSink(log), s.metrics.WarningSink())

	input, err := s.ingest(raw, sink)
	if err != nil {
		return nil, s.fail(log, "ingest", err)
	}
	run.Input = input

	builder, err := s.build(ctx, log, input, sink)
	if err != nil {
		return nil, s.fail(log, "build", err)
	}
	run.Variables, run.Constraints = builder.Size()

	if err := ctx.Err(); err != nil {
		return nil, s.fail(log, "solve", err)
	}
	start := time.Now()
	if err := builder.UpdateObjectiveAndSolve(weights); err != nil {
		return nil, s.fail(log, "solve", err)
	}
	s.metrics.ObservePhase(metrics.PhaseSolve, time.Since(start))
	run.Objective, _ = builder.ObjectiveValue()
	log.Info("model solved", zap.Float64("objective", run.Objective), zap.Duration("elapsed", time.Since(start)))

	// The congestion variable only settles on the peak when the objective pushes it down
	var solvedPeak *float64
	if weights.Congestion > 0 {
		peak, _ := builder.MaxCongestion()
		solvedPeak = &peak
	}
	run.Summary, err = report.Summarize(input.Courses, s.opts, weights.Scores, solvedPeak)
	if err != nil {
		return nil, s.fail(log, "stats", err)
	}
	run.Violations = model.Verify(input.Courses, input, s.opts)
	for _, violation := range run.Violations {
		log.Error("assignment violates a hard constraint", zap.String("violation", violation))
	}

	run.Warnings = warnings.Warnings()
	s.metrics.RecordRun(metrics.OutcomeSuccess)
	return run, nil
}

// Check builds the model without solving it and looks for instants where fixed-time courses cannot
// all get a room
func (s *Service) Check(ctx context.Context, raw model.RawModelInput) (*Check, error) {
	check := &Check{ID: uuid.NewString()}
	log := s.log.With(zap.String("run_id", check.ID))
	warnings := &model.WarningLog{}
	sink := model.TeeWarnings(warnings, logger.WarningSink(log), s.metrics.WarningSink())

	input, err := s.ingest(raw, sink)
	if err != nil {
		return nil, s.fail(log, "ingest", err)
	}
	check.Input = input

	check.Pressure, err = model.RoomPressure(input, s.opts)
	if err != nil {
		return nil, s.fail(log, "check", err)
	}
	for _, point := range check.Pressure {
		log.Warn("fixed-time courses cannot all get a room",
			zap.Stringer("instant", point.Instant), zap.Int("courses", len(point.Courses)), zap.Int("matched", point.Matched))
	}

	builder, err := s.build(ctx, log, input, sink)
	if err != nil {
		return nil, s.fail(log, "build", err)
	}
	check.Candidates = builder.Candidates()
	check.Variables, check.Constraints = builder.Size()
	check.Warnings = warnings.Warnings()
	return check, nil
}

// Analyze replays prior assignments onto the input and computes their statistics without solving
func (s *Service) Analyze(raw model.RawModelInput, records []model.AssignmentRecord, scores []float64) (*Run, error) {
	run := &Run{ID: uuid.NewString()}
	log := s.log.With(zap.String("run_id", run.ID))
	warnings := &model.WarningLog{}
	sink := model.TeeWarnings(warnings, logger.WarningSink(log), s.metrics.WarningSink())

	input, err := s.ingest(raw, sink)
	if err != nil {
		return nil, s.fail(log, "ingest", err)
	}
	if err := model.ApplyAssignments(&input, records, s.opts, sink); err != nil {
		return nil, s.fail(log, "ingest", err)
	}
	run.Input = input

	run.Summary, err = report.Summarize(input.Courses, s.opts, scores, nil)
	if err != nil {
		return nil, s.fail(log, "stats", err)
	}
	run.Violations = model.Verify(input.Courses, input, s.opts)
	run.Warnings = warnings.Warnings()
	return run, nil
}

func (s *Service) ingest(raw model.RawModelInput, sink model.WarningSink) (model.ModelInput, error) {
	start := time.Now()
	if err := s.validate.Struct(raw); err != nil {
		return model.ModelInput{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	input, err := model.ProcessRawInput(raw, s.opts, sink)
	if err != nil {
		return model.ModelInput{}, fmt.Errorf("failed to process input: %w", err)
	}
	s.metrics.ObservePhase(metrics.PhaseIngest, time.Since(start))
	return input, nil
}

func (s *Service) build(ctx context.Context, log *zap.Logger, input model.ModelInput, sink model.WarningSink) (*model.ModelBuilder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	solver, err := s.newSolver()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	builder := model.NewModelBuilder(lp.NewEngine(solver), input, s.opts, sink)
	if err := builder.Build(); err != nil {
		return nil, err
	}
	s.metrics.ObservePhase(metrics.PhaseBuild, time.Since(start))

	variables, constraints := builder.Size()
	s.metrics.SetModelSize(variables, constraints)
	log.Info("model built",
		zap.Int("courses", len(input.Courses)), zap.Int("rooms", len(input.Rooms)),
		zap.Int("variables", variables), zap.Int("constraints", constraints), zap.Duration("elapsed", time.Since(start)))
	return builder, nil
}

// ValidateWeights checks a weights override before it is applied
func (s *Service) ValidateWeights(request *WeightsRequest) error {
	if request == nil {
		return nil
	}
	if err := s.validate.Struct(request); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

func (s *Service) fail(log *zap.Logger, phase string, err error) error {
	switch {
	case errors.Is(err, ErrInvalidInput):
		s.metrics.RecordRun(metrics.OutcomeInvalid)
	case model.IsSchedulingError(err):
		s.metrics.RecordRun(metrics.OutcomeInfeasible)
	default:
		s.metrics.RecordRun(metrics.OutcomeError)
	}
	log.Error("scheduling run failed", zap.String("phase", phase), zap.Error(err))
	return err
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/limaJavier/roomscheduler/internal/config"
	"github.com/limaJavier/roomscheduler/internal/csvio"
	"github.com/limaJavier/roomscheduler/internal/logger"
	"github.com/limaJavier/roomscheduler/internal/metrics"
	"github.com/limaJavier/roomscheduler/internal/server"
	"github.com/limaJavier/roomscheduler/internal/service"
	"github.com/limaJavier/roomscheduler/pkg/model"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	exitFailure       = 1
	exitViolations    = 15
	exitUnschedulable = 20
)

var errViolations = errors.New("assignment violates hard constraints")

var (
	files      csvio.Files
	inputFile  string
	delimiter  string
	solverName string

	out        string
	gridOut    string
	pdfOut     string
	metricsOut string

	assignmentsFile string
	departments     []string
	buildings       []string

	scores       []float64
	prefWeight   float64
	ecapWeight   float64
	congestion   float64
	deptFairness float64
	backToBack   float64
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

func newRootCommand() *cobra.Command {
	cmdRoot := &cobra.Command{
		Use:          "roomscheduler",
		Short:        "Classroom and time-slot assignment",
		Long:         "Assigns every course a room and a meeting time, honoring capacities, instructor\nand no-conflict constraints while maximizing the preferences that are met",
		SilenceUsage: true,
	}
	cmdRoot.PersistentFlags().StringVar(&delimiter, "delimiter", ",", "CSV field delimiter")
	cmdRoot.PersistentFlags().StringVar(&solverName, "solver", "", `engine to use: "enumeration", "highs" or "cbc" (defaults to SOLVER)`)

	cmdSolve := &cobra.Command{
		Use:   "solve",
		Short: "assign rooms and times to every course",
		Args:  cobra.NoArgs,
		RunE:  CommandSolve,
	}
	inputFlags(cmdSolve)
	cmdSolve.Flags().StringVarP(&out, "out", "o", "assignments.csv", "assignments CSV to write")
	cmdSolve.Flags().StringVar(&gridOut, "grid", "", "room grid CSV to write")
	cmdSolve.Flags().StringVar(&pdfOut, "pdf", "", "PDF report to write")
	cmdSolve.Flags().StringVar(&metricsOut, "metrics", "", "Prometheus textfile to write the run metrics to")
	subsetFlags(cmdSolve)
	cmdSolve.Flags().Float64SliceVar(&scores, "scores", nil, "weights of the 1st, 2nd and 3rd preference (defaults to SCORE_WEIGHTS)")
	cmdSolve.Flags().Float64Var(&prefWeight, "pref-weight", 0, "weight of the preference score")
	cmdSolve.Flags().Float64Var(&ecapWeight, "ecap-weight", 0, "weight of the excess capacity penalty")
	cmdSolve.Flags().Float64Var(&congestion, "congestion-weight", 0, "weight of the peak congestion penalty")
	cmdSolve.Flags().Float64Var(&deptFairness, "dept-fairness-weight", 0, "weight of the department fairness term")
	cmdSolve.Flags().Float64Var(&backToBack, "b2b-weight", 0, "weight of the back-to-back bonus")
	cmdRoot.AddCommand(cmdSolve)

	cmdCheck := &cobra.Command{
		Use:   "check",
		Short: "build the model without solving and report the instants where rooms run out",
		Args:  cobra.NoArgs,
		RunE:  CommandCheck,
	}
	inputFlags(cmdCheck)
	cmdRoot.AddCommand(cmdCheck)

	cmdStats := &cobra.Command{
		Use:   "stats",
		Short: "compute the statistics of a prior assignment",
		Args:  cobra.NoArgs,
		RunE:  CommandStats,
	}
	inputFlags(cmdStats)
	cmdStats.Flags().StringVarP(&assignmentsFile, "assignments", "a", "assignments.csv", "assignments CSV to analyze")
	cmdStats.Flags().StringVar(&gridOut, "grid", "", "room grid CSV to write")
	cmdStats.Flags().StringVar(&pdfOut, "pdf", "", "PDF report to write")
	subsetFlags(cmdStats)
	cmdRoot.AddCommand(cmdStats)

	cmdServe := &cobra.Command{
		Use:   "serve",
		Short: "serve scheduling runs over HTTP",
		Args:  cobra.NoArgs,
		RunE:  CommandServe,
	}
	cmdRoot.AddCommand(cmdServe)

	return cmdRoot
}

func inputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&files.Rooms, "rooms", "r", "rooms.csv", "room inventory CSV")
	cmd.Flags().StringVarP(&files.Courses, "courses", "c", "courses.csv", "course requests CSV")
	cmd.Flags().StringVar(&files.NoConflict, "noconflict", "", "no-conflict groups CSV")
	cmd.Flags().StringVar(&files.BackToBack, "b2b", "", "back-to-back pairs CSV")
	cmd.Flags().StringVar(&inputFile, "input", "", "JSON model input, used instead of the CSV files")
}

// loadInput reads the JSON model input when one is given and the CSV files otherwise
func loadInput(app *deps) (model.RawModelInput, error) {
	if inputFile != "" {
		return model.InputFromJson(inputFile)
	}
	return csvio.LoadInput(files, app.delim, logger.WarningSink(app.log))
}

func subsetFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&departments, "dept", nil, "departments to report preferences for")
	cmd.Flags().StringSliceVar(&buildings, "building", nil, "buildings to report preferences for")
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errViolations):
		return exitViolations
	case model.IsSchedulingError(err):
		return exitUnschedulable
	}
	return exitFailure
}

// deps bundles what every command needs
type deps struct {
	cfg     *config.Config
	log     *zap.Logger
	metrics *metrics.Metrics
	service *service.Service
	delim   rune
}

func setup() (*deps, error) {
	delim, err := parseDelimiter(delimiter)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if solverName != "" {
		cfg.Solver.Name = solverName
	}
	log, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	m := metrics.New()
	svc, err := service.New(cfg, log, m)
	if err != nil {
		return nil, err
	}
	return &deps{cfg: cfg, log: log, metrics: m, service: svc, delim: delim}, nil
}

func parseDelimiter(raw string) (rune, error) {
	if utf8.RuneCountInString(raw) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character: %q", raw)
	}
	delim, _ := utf8.DecodeRuneInString(raw)
	return delim, nil
}

func CommandSolve(cmd *cobra.Command, args []string) error {
	app, err := setup()
	if err != nil {
		return err
	}
	defer app.log.Sync()

	raw, err := loadInput(app)
	if err != nil {
		return err
	}
	request := weightsRequest(cmd)
	if err := app.service.ValidateWeights(request); err != nil {
		return err
	}

	run, err := app.service.Solve(cmd.Context(), raw, request.Apply(app.service.Weights()))
	if err != nil {
		return err
	}

	if err := writeAssignments(out, run.Courses()); err != nil {
		return err
	}
	if err := writeReports(run, app.service.Options()); err != nil {
		return err
	}
	if metricsOut != "" {
		if err := app.metrics.WriteTextfile(metricsOut); err != nil {
			return err
		}
	}

	printRun(cmd.OutOrStdout(), run)
	if len(run.Violations) > 0 {
		return fmt.Errorf("%w: %d violations", errViolations, len(run.Violations))
	}
	return nil
}

func CommandCheck(cmd *cobra.Command, args []string) error {
	app, err := setup()
	if err != nil {
		return err
	}
	defer app.log.Sync()

	raw, err := loadInput(app)
	if err != nil {
		return err
	}
	check, err := app.service.Check(cmd.Context(), raw)
	if err != nil {
		return err
	}
	printCheck(cmd.OutOrStdout(), check)
	return nil
}

func CommandStats(cmd *cobra.Command, args []string) error {
	app, err := setup()
	if err != nil {
		return err
	}
	defer app.log.Sync()

	raw, err := loadInput(app)
	if err != nil {
		return err
	}
	records, err := csvio.LoadAssignments(assignmentsFile, app.delim)
	if err != nil {
		return err
	}
	run, err := app.service.Analyze(raw, records, app.service.Weights().Scores)
	if err != nil {
		return err
	}
	if err := writeReports(run, app.service.Options()); err != nil {
		return err
	}
	printRun(cmd.OutOrStdout(), run)
	return nil
}

func CommandServe(cmd *cobra.Command, args []string) error {
	app, err := setup()
	if err != nil {
		return err
	}
	defer app.log.Sync()

	if app.cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	router := server.NewRouter(server.NewHandler(app.service, app.metrics), app.log, app.metrics)
	return server.Serve(cmd.Context(), fmt.Sprintf(":%d", app.cfg.Port), router, app.log)
}

// weightsRequest collects the weight flags given on the command line
func weightsRequest(cmd *cobra.Command) *service.WeightsRequest {
	flags := cmd.Flags()
	changed := func(name string, value float64) *float64 {
		if flags.Changed(name) {
			return &value
		}
		return nil
	}
	request := &service.WeightsRequest{
		Preference:     changed("pref-weight", prefWeight),
		ExcessCapacity: changed("ecap-weight", ecapWeight),
		Congestion:     changed("congestion-weight", congestion),
		DeptFairness:   changed("dept-fairness-weight", deptFairness),
		BackToBack:     changed("b2b-weight", backToBack),
	}
	if flags.Changed("scores") {
		request.Scores = scores
	}
	return request
}

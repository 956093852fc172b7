package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/limaJavier/roomscheduler/internal/metrics"
	"github.com/limaJavier/roomscheduler/internal/service"
	"github.com/limaJavier/roomscheduler/pkg/model"
	"github.com/limaJavier/roomscheduler/pkg/report"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type scheduler interface {
	Solve(ctx context.Context, raw model.RawModelInput, weights model.Weights) (*service.Run, error)
	ValidateWeights(request *service.WeightsRequest) error
	Weights() model.Weights
}

type RunRequest struct {
	Input   model.RawModelInput     `json:"input"`
	Weights *service.WeightsRequest `json:"weights"`
}

type RunResponse struct {
	ID          string                 `json:"id"`
	Assignments []report.AssignmentRow `json:"assignments"`
	Summary     report.Summary         `json:"summary"`
	Warnings    []string               `json:"warnings"`
	Violations  []string               `json:"violations"`
	Objective   float64                `json:"objective"`
	Variables   int                    `json:"variables"`
	Constraints int                    `json:"constraints"`
}

func newRunResponse(run *service.Run) RunResponse {
	return RunResponse{
		ID:          run.ID,
		Assignments: lo.Map(run.Courses(), func(course *model.Course, _ int) report.AssignmentRow { return report.NewAssignmentRow(course) }),
		Summary:     run.Summary,
		Warnings:    lo.Ternary(run.Warnings == nil, []string{}, run.Warnings),
		Violations:  lo.Ternary(run.Violations == nil, []string{}, run.Violations),
		Objective:   run.Objective,
		Variables:   run.Variables,
		Constraints: run.Constraints,
	}
}

type Handler struct {
	scheduler scheduler
	metrics   *metrics.Metrics
}

func NewHandler(svc *service.Service, m *metrics.Metrics) *Handler {
	return &Handler{scheduler: svc, metrics: m}
}

// CreateRun solves the submitted input. The assignments are returned as JSON, or as a CSV or PDF
// document with ?format=csv|pdf.
func (h *Handler) CreateRun(c *gin.Context) {
	var request RunRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		respondError(c, Wrap(err, ErrValidation.Code, http.StatusBadRequest, "invalid run payload"))
		return
	}
	if err := h.scheduler.ValidateWeights(request.Weights); err != nil {
		respondError(c, err)
		return
	}

	run, err := h.scheduler.Solve(c.Request.Context(), request.Input, request.Weights.Apply(h.scheduler.Weights()))
	if err != nil {
		respondError(c, err)
		return
	}

	switch c.Query("format") {
	case "csv":
		buffer := &bytes.Buffer{}
		if err := report.WriteAssignments(buffer, run.Courses()); err != nil {
			respondError(c, err)
			return
		}
		c.Header("X-Run-ID", run.ID)
		c.Data(http.StatusCreated, "text/csv", buffer.Bytes())
	case "pdf":
		content, err := report.RenderPDF(run.Courses(), run.Summary, fmt.Sprintf("Run %v", run.ID))
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("X-Run-ID", run.ID)
		c.Data(http.StatusCreated, "application/pdf", content)
	default:
		respond(c, http.StatusCreated, newRunResponse(run))
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Prometheus(c *gin.Context) {
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// NewRouter wires the routes, request logging and request metrics
func NewRouter(h *Handler, log *zap.Logger, m *metrics.Metrics) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware(log, m))

	router.GET("/health", h.Health)
	router.GET("/metrics", h.Prometheus)
	api := router.Group("/api/v1")
	api.POST("/runs", h.CreateRun)
	return router
}

func middleware(log *zap.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		latency := time.Since(start)
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		m.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), latency)
		log.Info("http_request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}

// Serve runs the router on addr until ctx is done, then shuts down gracefully
func Serve(ctx context.Context, addr string, router http.Handler, log *zap.Logger) error {
	server := &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	errs := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", addr))
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("server shutting down")
		return server.Shutdown(shutdownCtx)
	}
}

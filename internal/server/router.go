// Package server exposes the analyzer over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joseph-ayodele/contracts-analyzer/internal/common"
	"github.com/joseph-ayodele/contracts-analyzer/internal/entity"
	"github.com/joseph-ayodele/contracts-analyzer/internal/metrics"
)

// ReportService is the part of reports.Service the API needs.
type ReportService interface {
	Analyze(ctx context.Context, in entity.DocumentInput) (entity.AnalysisReport, error)
	Get(ctx context.Context, id string) (entity.AnalysisReport, error)
	List(ctx context.Context, limit int) ([]entity.ReportSummary, error)
	ExportXLSX(ctx context.Context, id string) ([]byte, string, error)
}

// Detector labels the governing jurisdiction of plain text.
type Detector interface {
	Detect(text string) entity.JurisdictionLabel
}

// HealthChecker is satisfied by repository.DB.
type HealthChecker interface {
	HealthCheck(ctx context.Context, timeout time.Duration) error
}

// Deps collects what the router serves. Health, Metrics and Gatherer may be nil.
type Deps struct {
	Reports  ReportService
	Detector Detector
	Health   HealthChecker
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Config   common.ServerConfig
	Logger   *slog.Logger
}

type Router struct {
	reports   ReportService
	detector  Detector
	health    HealthChecker
	metrics   *metrics.Metrics
	maxUpload int64
	logger    *slog.Logger
}

// NewRouter builds the HTTP handler.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxUpload := d.Config.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 32 << 20
	}
	r := &Router{
		reports:   d.Reports,
		detector:  d.Detector,
		health:    d.Health,
		metrics:   d.Metrics,
		maxUpload: maxUpload,
		logger:    logger,
	}

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(r.requestContext)
	mux.Use(r.observe)
	mux.Use(middleware.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Document-Name", "X-Request-Id"},
		ExposedHeaders: []string{"Content-Disposition", "X-Request-Id"},
		MaxAge:         300,
	}))

	mux.Get("/healthz", r.wrap(r.handleHealth))
	if d.Gatherer != nil {
		mux.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	mux.Route("/v1", func(rt chi.Router) {
		if d.Config.RequestTimeout > 0 {
			rt.Use(middleware.Timeout(d.Config.RequestTimeout))
		}
		rt.Post("/analyze", r.wrap(r.handleAnalyze))
		rt.Post("/jurisdiction", r.wrap(r.handleJurisdiction))
		rt.Get("/reports", r.wrap(r.handleList))
		rt.Get("/reports/{id}", r.wrap(r.handleGet))
		rt.Get("/reports/{id}/export.xlsx", r.wrap(r.handleExport))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Stage     string `json:"stage,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		status := statusFor(err)
		body := errorBody{
			Error:     err.Error(),
			Stage:     string(common.StageOf(err)),
			RequestID: common.RequestIDFromContext(req.Context()),
		}
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			body.Code = appErr.Code
		}
		log := common.LoggerFrom(req.Context(), r.logger)
		if status >= http.StatusInternalServerError {
			log.Error("http.request.failed", "route", routePattern(req), "status", status, "error", err)
		} else {
			log.Info("http.request.rejected", "route", routePattern(req), "status", status, "error", err)
		}
		writeJSON(w, status, body)
	}
}

func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case common.IsFormatError(err):
		return http.StatusUnprocessableEntity
	case common.IsProviderExhausted(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"idsync/internal/reconcile/models"
	dErrors "idsync/pkg/domain-errors"
	"idsync/pkg/platform/httputil"
	"idsync/pkg/platform/middleware/admin"
	"idsync/pkg/platform/middleware/requesttime"
	"idsync/pkg/platform/sentinel"
	"idsync/pkg/requestcontext"
)

// Service is the runner surface exposed to operators.
type Service interface {
	Run(ctx context.Context) (*models.RunReport, error)
	Latest(ctx context.Context) (*models.RunReport, error)
}

// HealthCheck reports whether one backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Handler serves health, metrics and the sync admin endpoints.
type Handler struct {
	service    Service
	logger     *slog.Logger
	gatherer   prometheus.Gatherer
	adminToken string
	checks     map[string]HealthCheck
}

type Option func(*Handler)

func WithGatherer(g prometheus.Gatherer) Option {
	return func(h *Handler) {
		h.gatherer = g
	}
}

// WithHealthCheck adds a named dependency probe to /healthz.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(h *Handler) {
		h.checks[name] = check
	}
}

func New(service Service, adminToken string, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		service:    service,
		logger:     logger,
		gatherer:   prometheus.DefaultGatherer,
		adminToken: adminToken,
		checks:     make(map[string]HealthCheck),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router mounts every endpoint. Admin routes require X-Admin-Token.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(withRequestID)
	r.Use(requesttime.Middleware)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", h.HandleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))

	r.Route("/admin/sync", func(r chi.Router) {
		r.Use(admin.RequireAdminToken(h.adminToken, h.logger))
		r.Get("/reports/latest", h.HandleLatestReport)
		r.Post("/runs", h.HandleRun)
	})
	return r
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithRequestID(r.Context(), chimw.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HandleHealth handles GET /healthz.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok"}
	status := http.StatusOK
	if len(h.checks) > 0 {
		resp.Checks = make(map[string]string, len(h.checks))
	}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	httputil.WriteJSON(w, status, resp)
}

// HandleLatestReport handles GET /admin/sync/reports/latest. Pass
// ?format=text for the aligned operator summary.
func (h *Handler) HandleLatestReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	report, err := h.service.Latest(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no reconciliation cycle has run yet"))
		return
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load latest report",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_ = report.WriteText(w)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandleRun handles POST /admin/sync/runs. The cycle runs synchronously; a
// cycle that fails fatally still returns its report with 503.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	report, err := h.service.Run(ctx)
	switch {
	case errors.Is(err, models.ErrCycleInProgress):
		httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, "a reconciliation cycle is already running"))
		return
	case err != nil && report != nil:
		h.logger.WarnContext(ctx, "admin-triggered cycle failed",
			"request_id", requestID,
			"run_id", report.RunID.String(),
			"error", err,
		)
		httputil.WriteJSON(w, http.StatusServiceUnavailable, report)
		return
	case err != nil:
		h.logger.ErrorContext(ctx, "admin-triggered cycle did not start",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "reconciliation cycle could not start"))
		return
	}

	h.logger.InfoContext(ctx, "admin-triggered cycle finished",
		"request_id", requestID,
		"run_id", report.RunID.String(),
		"cut_short", report.CutShort,
	)
	httputil.WriteJSON(w, http.StatusOK, report)
}

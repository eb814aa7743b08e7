package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cargotrack/internal/audit"
	"cargotrack/internal/cargo/models"
	"cargotrack/internal/session"
	dErrors "cargotrack/pkg/domain-errors"
	"cargotrack/pkg/platform/httputil"
	"cargotrack/pkg/platform/middleware/metadata"
	"cargotrack/pkg/requestcontext"
)

//go:generate mockgen -source=router.go -destination=mocks/mocks.go -package=mocks Model,Sessions

// Model is the read side of the cargo model plus an explicit save.
type Model interface {
	ListItems(ctx context.Context) []models.ItemView
	Item(ctx context.Context, id string) (models.ItemView, error)
	ListContainers(ctx context.Context) []models.ContainerView
	Container(ctx context.Context, cid string) (models.ContainerView, error)
	Stats(ctx context.Context) (items, containers int)
	Save(ctx context.Context) error
}

// Sessions lists live command sessions.
type Sessions interface {
	List() []session.Info
	Kick(id string) bool
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

// Handler serves the admin surface. It only reads the model, except for
// POST /snapshot.
type Handler struct {
	model    Model
	sessions Sessions
	audit    audit.Reader
	gatherer prometheus.Gatherer
	checks   map[string]HealthCheck
	logger   *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithAuditReader enables GET /audit.
func WithAuditReader(r audit.Reader) Option {
	return func(h *Handler) {
		h.audit = r
	}
}

// WithGatherer replaces the default Prometheus registry for GET /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(h *Handler) {
		if g != nil {
			h.gatherer = g
		}
	}
}

// WithHealthCheck adds a named dependency check to GET /healthz.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(h *Handler) {
		if check != nil {
			h.checks[name] = check
		}
	}
}

// New constructs the admin handler.
func New(model Model, sessions Sessions, opts ...Option) *Handler {
	h := &Handler{
		model:    model,
		sessions: sessions,
		gatherer: prometheus.DefaultGatherer,
		checks:   make(map[string]HealthCheck),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewRouter mounts the admin endpoints.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(metadata.Middleware)

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))

	r.Get("/items", h.handleListItems)
	r.Get("/items/{id}", h.handleGetItem)
	r.Get("/containers", h.handleListContainers)
	r.Get("/containers/{cid}", h.handleGetContainer)
	r.Get("/sessions", h.handleListSessions)
	r.Delete("/sessions/{id}", h.handleKickSession)
	r.Get("/audit", h.handleListAudit)
	r.Post("/snapshot", h.handleSnapshot)
	return r
}

type healthResponse struct {
	Status     string            `json:"status"`
	Items      int               `json:"items"`
	Containers int               `json:"containers"`
	Sessions   int               `json:"sessions"`
	Checks     map[string]string `json:"checks,omitempty"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	items, containers := h.model.Stats(ctx)
	resp := healthResponse{
		Status:     "ok",
		Items:      items,
		Containers: containers,
		Sessions:   len(h.sessions.List()),
	}
	status := http.StatusOK
	if len(h.checks) > 0 {
		resp.Checks = make(map[string]string, len(h.checks))
		for name, check := range h.checks {
			if err := check(ctx); err != nil {
				h.logger.WarnContext(ctx, "health check failed", "check", name, "error", err)
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
	}
	httputil.WriteJSON(w, status, resp)
}

func (h *Handler) handleListItems(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.model.ListItems(r.Context()))
}

func (h *Handler) handleGetItem(w http.ResponseWriter, r *http.Request) {
	view, err := h.model.Item(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleListContainers(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.model.ListContainers(r.Context()))
}

func (h *Handler) handleGetContainer(w http.ResponseWriter, r *http.Request) {
	view, err := h.model.Container(r.Context(), chi.URLParam(r, "cid"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.sessions.List())
}

func (h *Handler) handleKickSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.sessions.Kick(id) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "Unknown session"))
		return
	}
	h.logger.InfoContext(r.Context(), "session kicked", "session_id", id,
		"request_id", requestcontext.RequestID(r.Context()),
		"client_ip", requestcontext.RemoteAddr(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "audit log not enabled"))
		return
	}
	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be a positive integer"))
			return
		}
		limit = min(n, maxAuditLimit)
	}
	events, err := h.audit.ListRecent(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "list audit events"))
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, events)
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	if err := h.model.Save(ctx); err != nil {
		h.logger.ErrorContext(ctx, "snapshot failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "snapshot saved",
		"request_id", requestcontext.RequestID(ctx),
		"client_ip", requestcontext.RemoteAddr(ctx),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

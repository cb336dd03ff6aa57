// Package chi serves the admin HTTP API of the streaming server: health,
// Prometheus metrics and a read-only view of the live templates.
package chi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	domtpl "github.com/kailas-cloud/logtmpl/internal/domain/template"
	"github.com/kailas-cloud/logtmpl/internal/metrics"
	healthuc "github.com/kailas-cloud/logtmpl/internal/usecase/health"
)

const (
	defaultMessageLimit = 100
	maxMessageLimit     = 1000
)

// TemplateLister returns the live templates.
type TemplateLister interface {
	Snapshot() []domtpl.Template
}

// MessageReader returns the raw messages stored for a template.
type MessageReader interface {
	Messages(ctx context.Context, id int64, limit int) ([]string, int64, error)
}

// Server holds the admin handlers.
type Server struct {
	health    *healthuc.Service
	templates TemplateLister
	messages  MessageReader
	logger    *zap.Logger
}

// NewServer creates an admin API server.
func NewServer(
	health *healthuc.Service, templates TemplateLister, messages MessageReader, logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{health: health, templates: templates, messages: messages, logger: logger}
}

// Router builds the chi router with the middleware chain.
func (s *Server) Router(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware("/metrics"))

	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/templates", s.ListTemplates)
	r.Get("/templates/{id}/messages", s.ListMessages)
	return r
}

type healthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Templates int               `json:"templates"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, healthResponse{
		Status:    string(report.Status),
		Checks:    checks,
		Templates: report.Templates,
	})
}

type templateResponse struct {
	ID       int64   `json:"id"`
	Template string  `json:"template"`
	Goodness float64 `json:"goodness"`
	AvgLen   float64 `json:"avg_len"`
}

type templateListResponse struct {
	Count int                `json:"count"`
	Items []templateResponse `json:"items"`
}

// ListTemplates handles GET /templates.
func (s *Server) ListTemplates(w http.ResponseWriter, _ *http.Request) {
	snap := s.templates.Snapshot()
	items := make([]templateResponse, len(snap))
	for i := range snap {
		t := &snap[i]
		items[i] = templateResponse{ID: t.ID(), Template: t.Text(), Goodness: t.Goodness(), AvgLen: t.AvgLen()}
	}
	writeJSON(w, http.StatusOK, templateListResponse{Count: len(items), Items: items})
}

type messagesResponse struct {
	TemplateID int64    `json:"template_id"`
	Total      int64    `json:"total"`
	Items      []string `json:"items"`
}

// ListMessages handles GET /templates/{id}/messages?limit=N.
func (s *Server) ListMessages(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, codeBadRequest, "template id must be a positive integer")
		return
	}

	limit := defaultMessageLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 || limit > maxMessageLimit {
			writeError(w, http.StatusBadRequest, codeBadRequest,
				"limit must be an integer between 1 and "+strconv.Itoa(maxMessageLimit))
			return
		}
	}

	msgs, total, err := s.messages.Messages(r.Context(), id, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if msgs == nil {
		msgs = []string{}
	}
	writeJSON(w, http.StatusOK, messagesResponse{TemplateID: id, Total: total, Items: msgs})
}

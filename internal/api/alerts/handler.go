// Package alerts serves alert query and resolution endpoints.
package alerts

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/good-yellow-bee/alertd/internal/alerting"
	"github.com/good-yellow-bee/alertd/internal/api/response"
	"github.com/good-yellow-bee/alertd/internal/models"
	"github.com/good-yellow-bee/alertd/internal/monitor"
)

const (
	// DefaultLimit applies when no limit is given.
	DefaultLimit = 100
	// MaxLimit caps the limit query parameter.
	MaxLimit = 1000
	// queryTimeout bounds journal queries.
	queryTimeout = 10 * time.Second
)

// Service is the part of the monitor service used by this package.
type Service interface {
	ActiveAlerts() []*alerting.Alert
	AlertHistory(limit int) []*alerting.Alert
	Alert(id string) (*alerting.Alert, error)
	ResolveAlert(id string) error
	Events(ctx context.Context, filter models.AlertEventFilter) ([]*models.AlertEvent, int64, error)
}

// Handler handles alert endpoints.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates an alert handler.
func NewHandler(svc Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: svc, logger: logger}
}

// parseIntParam reads a non-negative integer query parameter.
func parseIntParam(r *http.Request, name string, def int) (int, *response.Error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, response.NewBadRequest(name + " must be a non-negative integer")
	}
	return v, nil
}

func parseLimit(r *http.Request) (int, *response.Error) {
	limit, apiErr := parseIntParam(r, "limit", DefaultLimit)
	if apiErr != nil {
		return 0, apiErr
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	return min(limit, MaxLimit), nil
}

// Active handles GET /api/v1/alerts.
func (h *Handler) Active(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.service.ActiveAlerts())
}

// History handles GET /api/v1/alerts/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit, apiErr := parseLimit(r)
	if apiErr != nil {
		response.JSONError(w, apiErr)
		return
	}
	response.OK(w, h.service.AlertHistory(limit))
}

// Get handles GET /api/v1/alerts/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	alert, err := h.service.Alert(chi.URLParam(r, "id"))
	if err != nil {
		response.JSONError(w, response.NewNotFound("alert not found"))
		return
	}
	response.OK(w, alert)
}

// Resolve handles POST /api/v1/alerts/{id}/resolve.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	switch err := h.service.ResolveAlert(id); {
	case errors.Is(err, monitor.ErrAlertNotFound):
		response.JSONError(w, response.NewNotFound("alert not found"))
		return
	case errors.Is(err, monitor.ErrAlertResolved):
		response.JSONError(w, response.NewConflict("alert already resolved"))
		return
	case err != nil:
		h.logger.Error("resolve alert failed", zap.String("alert_id", id), zap.Error(err))
		response.JSONError(w, response.ErrInternalServer)
		return
	}

	alert, err := h.service.Alert(id)
	if err != nil {
		// swept between resolve and lookup
		response.NoContent(w)
		return
	}
	response.OK(w, alert)
}

// Events handles GET /api/v1/alerts/events.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	limit, apiErr := parseLimit(r)
	if apiErr != nil {
		response.JSONError(w, apiErr)
		return
	}
	offset, apiErr := parseIntParam(r, "offset", 0)
	if apiErr != nil {
		response.JSONError(w, apiErr)
		return
	}
	filter := models.AlertEventFilter{
		RuleID:  r.URL.Query().Get("rule_id"),
		AlertID: r.URL.Query().Get("alert_id"),
		Limit:   limit,
		Offset:  offset,
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	events, total, err := h.service.Events(ctx, filter)
	if err != nil {
		if errors.Is(err, monitor.ErrJournalDisabled) {
			response.JSONError(w, response.NewUnavailable("alert journal is disabled"))
			return
		}
		h.logger.Error("list alert events failed", zap.Error(err))
		response.JSONError(w, response.ErrInternalServer)
		return
	}
	if events == nil {
		events = []*models.AlertEvent{}
	}
	response.OK(w, response.PaginatedResponse{
		Items:  events,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

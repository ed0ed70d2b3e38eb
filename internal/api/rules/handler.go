// Package rules serves alert rule management endpoints.
package rules

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/alertd/internal/alerting"
	"github.com/good-yellow-bee/alertd/internal/api/response"
)

// Service is the part of the monitor service used by this package.
type Service interface {
	AddRule(rule *alerting.Rule)
	RemoveRule(id string) bool
	Rule(id string) (*alerting.Rule, bool)
	Rules() []*alerting.Rule
}

// Handler handles rule endpoints.
type Handler struct {
	service Service
}

// NewHandler creates a rule handler.
func NewHandler(svc Service) *Handler {
	return &Handler{service: svc}
}

// decodeRule reads and validates a rule body. Rules are enabled unless the
// body says otherwise. A non-empty pathID must match the body id, which
// defaults to it.
func decodeRule(r *http.Request, pathID string) (*alerting.Rule, *response.Error) {
	rule := &alerting.Rule{Enabled: true}
	if apiErr := response.DecodeJSON(r, rule); apiErr != nil {
		return nil, apiErr
	}
	if pathID != "" {
		if rule.ID == "" {
			rule.ID = pathID
		}
		if rule.ID != pathID {
			return nil, response.NewValidationError("rule id does not match path")
		}
	}
	if err := rule.Validate(); err != nil {
		return nil, response.NewValidationError(err.Error())
	}
	return rule, nil
}

// List handles GET /api/v1/rules.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.service.Rules())
}

// Create handles POST /api/v1/rules.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	rule, apiErr := decodeRule(r, "")
	if apiErr != nil {
		response.JSONError(w, apiErr)
		return
	}
	if _, exists := h.service.Rule(rule.ID); exists {
		response.JSONError(w, response.NewConflict(fmt.Sprintf("rule %q already exists", rule.ID)))
		return
	}

	h.service.AddRule(rule)
	created, _ := h.service.Rule(rule.ID)
	response.Created(w, created)
}

// Replace handles PUT /api/v1/rules/{id}, creating or overwriting the rule.
func (h *Handler) Replace(w http.ResponseWriter, r *http.Request) {
	rule, apiErr := decodeRule(r, chi.URLParam(r, "id"))
	if apiErr != nil {
		response.JSONError(w, apiErr)
		return
	}

	h.service.AddRule(rule)
	updated, _ := h.service.Rule(rule.ID)
	response.OK(w, updated)
}

// Get handles GET /api/v1/rules/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	rule, ok := h.service.Rule(chi.URLParam(r, "id"))
	if !ok {
		response.JSONError(w, response.NewNotFound("rule not found"))
		return
	}
	response.OK(w, rule)
}

// Delete handles DELETE /api/v1/rules/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.service.RemoveRule(chi.URLParam(r, "id")) {
		response.JSONError(w, response.NewNotFound("rule not found"))
		return
	}
	response.NoContent(w)
}

// Package channels serves notification channel endpoints. Responses carry
// only the public channel view; credentials are never echoed.
package channels

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/alertd/internal/api/response"
	"github.com/good-yellow-bee/alertd/internal/notifier"
)

// Service is the part of the monitor service used by this package.
type Service interface {
	AddChannel(ch notifier.Channel)
	RemoveChannel(id string) bool
	Channel(id string) (notifier.ChannelInfo, bool)
	Channels() []notifier.ChannelInfo
}

// Handler handles channel endpoints.
type Handler struct {
	service Service
}

// NewHandler creates a channel handler.
func NewHandler(svc Service) *Handler {
	return &Handler{service: svc}
}

func decodeChannel(r *http.Request, pathID string) (notifier.Channel, *response.Error) {
	var spec notifier.ChannelSpec
	if apiErr := response.DecodeJSON(r, &spec); apiErr != nil {
		return notifier.Channel{}, apiErr
	}
	if pathID != "" {
		if spec.ID == "" {
			spec.ID = pathID
		}
		if spec.ID != pathID {
			return notifier.Channel{}, response.NewValidationError("channel id does not match path")
		}
	}
	ch, err := spec.Build()
	if err != nil {
		return notifier.Channel{}, response.NewValidationError(err.Error())
	}
	return ch, nil
}

// List handles GET /api/v1/channels.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.service.Channels())
}

// Create handles POST /api/v1/channels.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ch, apiErr := decodeChannel(r, "")
	if apiErr != nil {
		response.JSONError(w, apiErr)
		return
	}
	if _, exists := h.service.Channel(ch.ID); exists {
		response.JSONError(w, response.NewConflict(fmt.Sprintf("channel %q already exists", ch.ID)))
		return
	}

	h.service.AddChannel(ch)
	response.Created(w, ch.Info())
}

// Replace handles PUT /api/v1/channels/{id}.
func (h *Handler) Replace(w http.ResponseWriter, r *http.Request) {
	ch, apiErr := decodeChannel(r, chi.URLParam(r, "id"))
	if apiErr != nil {
		response.JSONError(w, apiErr)
		return
	}

	h.service.AddChannel(ch)
	response.OK(w, ch.Info())
}

// Get handles GET /api/v1/channels/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	info, ok := h.service.Channel(chi.URLParam(r, "id"))
	if !ok {
		response.JSONError(w, response.NewNotFound("channel not found"))
		return
	}
	response.OK(w, info)
}

// Delete handles DELETE /api/v1/channels/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.service.RemoveChannel(chi.URLParam(r, "id")) {
		response.JSONError(w, response.NewNotFound("channel not found"))
		return
	}
	response.NoContent(w)
}

// Package ingest serves metric submission endpoints.
package ingest

import (
	"fmt"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/alertd/internal/alerting"
	"github.com/good-yellow-bee/alertd/internal/api/response"
)

// MaxBatchSize bounds the number of samples in one batch submission.
const MaxBatchSize = 1000

// Service is the part of the monitor service used by this package.
type Service interface {
	SubmitMetric(metric string, value float64, tags map[string]string) []*alerting.Alert
	History(metric string) []alerting.Sample
}

// Handler handles metric endpoints.
type Handler struct {
	service Service
}

// NewHandler creates a metric handler.
func NewHandler(svc Service) *Handler {
	return &Handler{service: svc}
}

// SubmitRequest is a single metric submission.
type SubmitRequest struct {
	Metric string            `json:"metric"`
	Value  *float64          `json:"value"`
	Tags   map[string]string `json:"tags,omitempty"`
}

// SubmitResponse lists the alerts created by a submission.
type SubmitResponse struct {
	Alerts []*alerting.Alert `json:"alerts"`
}

// HistoryResponse holds the retained samples of a metric.
type HistoryResponse struct {
	Metric  string            `json:"metric"`
	Samples []alerting.Sample `json:"samples"`
}

func (req SubmitRequest) validate() error {
	if req.Metric == "" {
		return fmt.Errorf("metric is required")
	}
	if req.Value == nil {
		return fmt.Errorf("value is required")
	}
	if math.IsNaN(*req.Value) || math.IsInf(*req.Value, 0) {
		return fmt.Errorf("value must be finite")
	}
	return nil
}

// Submit handles POST /api/v1/metrics.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if apiErr := response.DecodeJSON(r, &req); apiErr != nil {
		response.JSONError(w, apiErr)
		return
	}
	if err := req.validate(); err != nil {
		response.JSONError(w, response.NewValidationError(err.Error()))
		return
	}

	created := h.service.SubmitMetric(req.Metric, *req.Value, req.Tags)
	if created == nil {
		created = []*alerting.Alert{}
	}
	response.Accepted(w, SubmitResponse{Alerts: created})
}

// SubmitBatch handles POST /api/v1/metrics/batch. The body is a JSON array of
// submissions, evaluated in order. The batch is validated as a whole before
// any sample is evaluated.
func (h *Handler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	var batch []SubmitRequest
	if apiErr := response.DecodeJSON(r, &batch); apiErr != nil {
		response.JSONError(w, apiErr)
		return
	}
	if len(batch) == 0 {
		response.JSONError(w, response.NewValidationError("batch must not be empty"))
		return
	}
	if len(batch) > MaxBatchSize {
		response.JSONError(w, response.NewValidationError(fmt.Sprintf("at most %d metrics per batch", MaxBatchSize)))
		return
	}
	for i, m := range batch {
		if err := m.validate(); err != nil {
			response.JSONError(w, response.NewValidationError(fmt.Sprintf("entry %d: %v", i, err)))
			return
		}
	}

	created := []*alerting.Alert{}
	for _, m := range batch {
		created = append(created, h.service.SubmitMetric(m.Metric, *m.Value, m.Tags)...)
	}
	response.Accepted(w, SubmitResponse{Alerts: created})
}

// History handles GET /api/v1/metrics/{metric}/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	metric := chi.URLParam(r, "metric")
	samples := h.service.History(metric)
	if samples == nil {
		samples = []alerting.Sample{}
	}
	response.OK(w, HistoryResponse{Metric: metric, Samples: samples})
}

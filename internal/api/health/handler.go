// Package health serves the liveness, readiness and status endpoints.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/alertd/internal/monitor"
)

// CheckTimeout bounds each readiness check.
const CheckTimeout = 2 * time.Second

// Checker is a readiness dependency.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// StatusSource reports the state of the alert service.
type StatusSource interface {
	Stats() monitor.Stats
	JournalEnabled() bool
}

// Handler serves health endpoints.
type Handler struct {
	source  StatusSource
	version string
	started time.Time

	mu       sync.RWMutex
	checkers []Checker
}

// NewHandler creates a handler reporting on source. source may be nil.
func NewHandler(source StatusSource, version string) *Handler {
	return &Handler{
		source:  source,
		version: version,
		started: time.Now(),
	}
}

// RegisterChecker adds a readiness dependency.
func (h *Handler) RegisterChecker(c Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers = append(h.checkers, c)
}

// StatusResponse is the /health payload.
type StatusResponse struct {
	// Status is "ok", or "degraded" once the journal has dropped events.
	Status         string  `json:"status"`
	Version        string  `json:"version,omitempty"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
	Rules          int     `json:"rules"`
	Channels       int     `json:"channels"`
	FiringAlerts   int     `json:"firing_alerts"`
	Journal        string  `json:"journal"`
	JournalDropped int64   `json:"journal_dropped,omitempty"`
}

// CheckResult is the outcome of one readiness check.
type CheckResult struct {
	Status    string  `json:"status"`
	Error     string  `json:"error,omitempty"`
	LatencyMS float64 `json:"latency_ms"`
}

// ReadyResponse is the /ready payload.
type ReadyResponse struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

// Health reports the service status. It always answers 200 while the
// process can serve requests.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:        "ok",
		Version:       h.version,
		UptimeSeconds: time.Since(h.started).Seconds(),
		Journal:       "disabled",
	}
	if h.source != nil {
		st := h.source.Stats()
		resp.Rules = st.Rules
		resp.Channels = st.Channels
		resp.FiringAlerts = st.ActiveAlerts
		if h.source.JournalEnabled() {
			resp.Journal = "enabled"
			resp.JournalDropped = st.JournalDropped
			if st.JournalDropped > 0 {
				resp.Status = "degraded"
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Live answers 200 while the process runs.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "live"})
}

// Ready runs every checker concurrently and answers 503 if any fails.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checkers := append([]Checker(nil), h.checkers...)
	h.mu.RUnlock()

	var mu sync.Mutex
	results := make(map[string]CheckResult, len(checkers))
	g, ctx := errgroup.WithContext(r.Context())
	for _, c := range checkers {
		g.Go(func() error {
			res := runCheck(ctx, c)
			mu.Lock()
			results[c.Name()] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	resp := ReadyResponse{Status: "ready", Checks: results}
	status := http.StatusOK
	for _, res := range results {
		if res.Status != "ok" {
			resp.Status = "not_ready"
			status = http.StatusServiceUnavailable
			break
		}
	}
	writeJSON(w, status, resp)
}

func runCheck(ctx context.Context, c Checker) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, CheckTimeout)
	defer cancel()

	start := time.Now()
	err := c.Check(ctx)
	res := CheckResult{Status: "ok", LatencyMS: float64(time.Since(start).Microseconds()) / 1000}
	if err != nil {
		res.Status = "fail"
		res.Error = err.Error()
	}
	return res
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

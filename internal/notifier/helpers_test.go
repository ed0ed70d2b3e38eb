package notifier

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/good-yellow-bee/alertd/internal/alerting"
)

var testTime = time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

func testAlert() *alerting.Alert {
	return &alerting.Alert{
		ID:        "high-cpu-usage-1772368200000",
		RuleID:    "high-cpu-usage",
		RuleName:  "High CPU Usage",
		Severity:  alerting.SeverityCritical,
		Message:   "High CPU Usage: cpu_usage is 95 (threshold > 90)",
		Timestamp: testTime,
		Status:    alerting.StatusFiring,
		Value:     95,
		Threshold: 90,
		Tags:      map[string]string{"team": "infra", "host": "web-1"},
		Metadata: alerting.Metadata{
			Metric:            "cpu_usage",
			Operator:          alerting.OpGreaterThan,
			TimeWindowSeconds: 120,
		},
	}
}

func triggered(a *alerting.Alert) alerting.Event {
	return alerting.Event{Action: alerting.ActionTriggered, Alert: a, Time: a.Timestamp}
}

// capture is an httptest server that records request bodies.
type capture struct {
	*httptest.Server

	mu       sync.Mutex
	bodies   [][]byte
	requests []*http.Request
	status   int
}

func newCapture(t *testing.T, status int) *capture {
	t.Helper()
	c := &capture{status: status}
	c.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.bodies = append(c.bodies, body)
		c.requests = append(c.requests, r.Clone(r.Context()))
		c.mu.Unlock()
		w.WriteHeader(c.status)
	}))
	t.Cleanup(c.Close)
	return c
}

func (c *capture) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.bodies)
}

func (c *capture) decode(t *testing.T, i int, v any) {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := json.Unmarshal(c.bodies[i], v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func (c *capture) request(i int) *http.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests[i]
}

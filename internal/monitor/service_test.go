package monitor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/good-yellow-bee/alertd/internal/alerting"
	"github.com/good-yellow-bee/alertd/internal/models"
	"github.com/good-yellow-bee/alertd/internal/notifier"
)

// hookServer records JSON bodies posted to it.
type hookServer struct {
	*httptest.Server
	mu     sync.Mutex
	bodies []map[string]any
}

func newHookServer(t *testing.T, status int) *hookServer {
	t.Helper()
	h := &hookServer{}
	h.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(data, &body)
		h.mu.Lock()
		h.bodies = append(h.bodies, body)
		h.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(h.Close)
	return h
}

func (h *hookServer) Bodies() []map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]map[string]any(nil), h.bodies...)
}

func newTestService(t *testing.T, opts Options) *Service {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = zaptest.NewLogger(t)
	}
	return New(opts)
}

// closeService waits for in-flight deliveries.
func closeService(t *testing.T, s *Service) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Close(ctx))
}

func TestScenarioSingleBreach(t *testing.T) {
	s := newTestService(t, Options{})
	s.AddRule(&alerting.Rule{
		ID:        "high-error-rate",
		Name:      "High Error Rate",
		Severity:  alerting.SeverityCritical,
		Condition: alerting.Condition{Metric: "error_count", Operator: alerting.OpGreaterThan, Threshold: 10, TimeWindowSeconds: 600},
		Enabled:   true,
	})

	s.SubmitMetric("error_count", 11, nil)

	active := s.ActiveAlerts()
	require.Len(t, active, 1)
	assert.Equal(t, 11.0, active[0].Value)
	assert.Equal(t, 10.0, active[0].Threshold)
	assert.Equal(t, alerting.StatusFiring, active[0].Status)
	closeService(t, s)
}

func TestScenarioConsecutiveBreach(t *testing.T) {
	s := newTestService(t, Options{})
	s.AddRule(&alerting.Rule{
		ID:       "cpu",
		Name:     "CPU",
		Severity: alerting.SeverityWarning,
		Condition: alerting.Condition{
			Metric:            "cpu",
			Operator:          alerting.OpGreaterThan,
			Threshold:         90,
			TimeWindowSeconds: 120,
			ConsecutiveCount:  2,
		},
		Enabled: true,
	})

	assert.Empty(t, s.SubmitMetric("cpu", 95, nil))
	assert.Empty(t, s.ActiveAlerts())
	assert.Len(t, s.SubmitMetric("cpu", 92, nil), 1)
	assert.Len(t, s.ActiveAlerts(), 1)
	closeService(t, s)
}

func TestScenarioDisabledChannel(t *testing.T) {
	hook := newHookServer(t, http.StatusOK)
	s := newTestService(t, Options{})

	// slack-1 has no webhook URL and is therefore disabled
	s.AddChannel(notifier.Channel{ID: "slack-1", Name: "Slack", Config: notifier.SlackConfig{}})
	s.AddChannel(notifier.Channel{ID: "unused", Name: "Unused", Config: notifier.WebhookConfig{URL: hook.URL}})
	s.AddRule(&alerting.Rule{
		ID:        "r",
		Name:      "R",
		Severity:  alerting.SeverityWarning,
		Condition: alerting.Condition{Metric: "m", Operator: alerting.OpGreaterThan, Threshold: 1, TimeWindowSeconds: 60},
		Channels:  []string{"slack-1"},
		Enabled:   true,
	})

	s.SubmitMetric("m", 5, nil)
	closeService(t, s)

	assert.Len(t, s.ActiveAlerts(), 1)
	assert.Empty(t, hook.Bodies())

	info, ok := s.Channel("slack-1")
	require.True(t, ok)
	assert.False(t, info.Enabled)
}

func TestScenarioResolveEmergency(t *testing.T) {
	hook := newHookServer(t, http.StatusOK)
	s := newTestService(t, Options{})
	s.AddChannel(notifier.Channel{ID: "webhook-alerts", Config: notifier.WebhookConfig{URL: hook.URL}})
	s.AddRule(&alerting.Rule{
		ID:       "system-health-critical",
		Name:     "System Health Critical",
		Severity: alerting.SeverityEmergency,
		Condition: alerting.Condition{
			Metric:            "system_health",
			Operator:          alerting.OpEqual,
			Threshold:         0,
			TimeWindowSeconds: 120,
			ConsecutiveCount:  2,
		},
		Channels: []string{"webhook-alerts"},
		Enabled:  true,
	})

	s.SubmitMetric("system_health", 0, nil)
	created := s.SubmitMetric("system_health", 0, nil)
	require.Len(t, created, 1)
	assert.Equal(t, alerting.SeverityEmergency, created[0].Severity)

	id := created[0].ID
	require.NoError(t, s.ResolveAlert(id))
	assert.Empty(t, s.ActiveAlerts())

	history := s.AlertHistory(0)
	require.Len(t, history, 1)
	assert.Equal(t, alerting.StatusResolved, history[0].Status)

	assert.ErrorIs(t, s.ResolveAlert(id), ErrAlertResolved)
	assert.ErrorIs(t, s.ResolveAlert("missing"), ErrAlertNotFound)

	closeService(t, s)

	bodies := hook.Bodies()
	require.Len(t, bodies, 2, "one triggered and one resolved delivery")
	actions := []any{bodies[0]["action"], bodies[1]["action"]}
	assert.ElementsMatch(t, []any{"triggered", "resolved"}, actions)
}

func TestChannelIsolationEndToEnd(t *testing.T) {
	broken := newHookServer(t, http.StatusBadGateway)
	healthy := newHookServer(t, http.StatusOK)

	s := newTestService(t, Options{})
	s.AddChannel(notifier.Channel{ID: "a", Config: notifier.SlackConfig{WebhookURL: broken.URL}})
	s.AddChannel(notifier.Channel{ID: "b", Config: notifier.DiscordConfig{WebhookURL: healthy.URL}})
	s.AddRule(&alerting.Rule{
		ID:        "r",
		Name:      "R",
		Severity:  alerting.SeverityCritical,
		Condition: alerting.Condition{Metric: "m", Operator: alerting.OpGreaterOrEqual, Threshold: 10, TimeWindowSeconds: 60},
		Channels:  []string{"a", "b"},
		Enabled:   true,
	})

	require.Len(t, s.SubmitMetric("m", 10, nil), 1)
	closeService(t, s)

	assert.Len(t, broken.Bodies(), 1)
	require.Len(t, healthy.Bodies(), 1)
	assert.Contains(t, healthy.Bodies()[0], "embeds")
}

func TestServiceRulesAndChannels(t *testing.T) {
	s := newTestService(t, Options{})
	for _, r := range alerting.DefaultRules() {
		s.AddRule(r)
	}
	cfg, err := notifier.ParseEnvConfig(map[string]string{"DISCORD_WEBHOOK_URL": "https://discord.example/hook"})
	require.NoError(t, err)
	for _, ch := range notifier.DefaultChannels(cfg) {
		s.AddChannel(ch)
	}

	assert.Len(t, s.Rules(), 8)
	channels := s.Channels()
	require.Len(t, channels, 5)
	assert.Equal(t, "discord-alerts", channels[4].ID)
	assert.True(t, channels[4].Enabled)
	assert.False(t, channels[0].Enabled)

	assert.True(t, s.RemoveChannel("discord-alerts"))
	assert.True(t, s.RemoveRule("high-cpu-usage"))
	_, ok := s.Rule("high-cpu-usage")
	assert.False(t, ok)

	st := s.Stats()
	assert.Equal(t, 7, st.Rules)
	assert.Equal(t, 4, st.Channels)

	_, _, err = s.Events(context.Background(), models.AlertEventFilter{})
	assert.ErrorIs(t, err, ErrJournalDisabled)
	assert.False(t, s.JournalEnabled())
	closeService(t, s)
}

func TestServiceAlertLookup(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	opts := alerting.DefaultOptions()
	opts.Clock = func() time.Time { return now }

	s := newTestService(t, Options{Engine: opts})
	s.AddRule(&alerting.Rule{
		ID:        "r",
		Name:      "R",
		Severity:  alerting.SeverityInfo,
		Condition: alerting.Condition{Metric: "m", Operator: alerting.OpLessThan, Threshold: 1, TimeWindowSeconds: 60},
		Enabled:   true,
	})
	created := s.SubmitMetric("m", 0.5, map[string]string{"pool": "alpha"})
	require.Len(t, created, 1)
	assert.Equal(t, "r-1772366400000", created[0].ID)

	a, err := s.Alert(created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "alpha", a.Tags["pool"])

	_, err = s.Alert("nope")
	assert.ErrorIs(t, err, ErrAlertNotFound)

	require.Len(t, s.History("m"), 1)

	res := s.Sweep(now.Add(2 * time.Hour))
	assert.Equal(t, 1, res.SamplesRemoved)
	assert.Equal(t, 0, res.AlertsRemoved, "firing alerts are kept")
	closeService(t, s)
}

func TestServiceRunStops(t *testing.T) {
	s := newTestService(t, Options{SweepInterval: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
	closeService(t, s)
}

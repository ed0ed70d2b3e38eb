package notifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/good-yellow-bee/alertd/internal/alerting"
)

func TestFormatMessage(t *testing.T) {
	msg := FormatMessage(triggered(testAlert()))
	want := "\U0001F6A8 **ALERT TRIGGERED**\n" +
		"**Rule:** High CPU Usage\n" +
		"**Severity:** CRITICAL\n" +
		"**Message:** High CPU Usage: cpu_usage is 95 (threshold > 90)\n" +
		"**Time:** 2026-03-01T12:30:00.000Z\n" +
		"**Tags:** host:web-1, team:infra"
	assert.Equal(t, want, msg)
}

func TestFormatMessageResolved(t *testing.T) {
	a := testAlert()
	a.Tags = nil
	msg := FormatMessage(alerting.Event{Action: alerting.ActionResolved, Alert: a, Time: testTime})
	assert.Contains(t, msg, "✅ **ALERT RESOLVED**")
	assert.NotContains(t, msg, "**Tags:**")
}

func TestSeverityMappings(t *testing.T) {
	tests := []struct {
		severity  alerting.Severity
		slack     string
		discord   int
		pagerDuty string
	}{
		{alerting.SeverityEmergency, "danger", 0xff0000, "critical"},
		{alerting.SeverityCritical, "danger", 0xff4444, "critical"},
		{alerting.SeverityWarning, "warning", 0xffaa00, "warning"},
		{alerting.SeverityInfo, "good", 0x00ff00, "info"},
	}

	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			assert.Equal(t, tt.slack, slackColor(tt.severity))
			assert.Equal(t, tt.discord, discordColor(tt.severity))
			assert.Equal(t, tt.pagerDuty, pagerDutySeverity(tt.severity))
		})
	}
}

package alerting

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rulesYAML = `
rules:
  - id: high-cpu-usage
    name: High CPU Usage
    severity: warning
    condition:
      metric: cpu_usage
      operator: gt
      threshold: 90
      time_window_seconds: 120
      consecutive_count: 2
    channels: [slack-alerts]
    enabled: true
    tags:
      team: infrastructure
  - id: prod-latency
    name: Prod Latency
    severity: critical
    condition:
      metric: response_time_ms
      operator: gte
      threshold: 2000
      time_window_seconds: 300
      filter: 'tags.env == "production"'
    enabled: false
`

func TestLoadRulesFromBytes(t *testing.T) {
	rules, err := LoadRulesFromBytes([]byte(rulesYAML))
	require.NoError(t, err)
	require.Len(t, rules, 2)

	cpu := rules[0]
	assert.Equal(t, "high-cpu-usage", cpu.ID)
	assert.Equal(t, SeverityWarning, cpu.Severity)
	assert.Equal(t, OpGreaterThan, cpu.Condition.Operator)
	assert.Equal(t, 2, cpu.Condition.ConsecutiveCount)
	assert.Equal(t, []string{"slack-alerts"}, cpu.Channels)
	assert.True(t, cpu.Enabled)
	assert.Equal(t, "infrastructure", cpu.Tags["team"])

	assert.Equal(t, `tags.env == "production"`, rules[1].Condition.Filter)
	assert.False(t, rules[1].Enabled)
}

func TestLoadRulesErrors(t *testing.T) {
	tests := []struct {
		name   string
		yaml   string
		errMsg string
	}{
		{name: "malformed", yaml: "rules: [", errMsg: "failed to parse rules YAML"},
		{name: "invalid rule", yaml: "rules:\n  - id: x\n    name: X\n    severity: loud\n", errMsg: "invalid rule at index 0"},
		{
			name: "duplicate id",
			yaml: `
rules:
  - {id: a, name: A, severity: info, condition: {metric: m, operator: gt, threshold: 1, time_window_seconds: 60}}
  - {id: a, name: A2, severity: info, condition: {metric: m, operator: lt, threshold: 1, time_window_seconds: 60}}
`,
			errMsg: "duplicate rule id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRules(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadRulesEmpty(t *testing.T) {
	rules, err := LoadRules(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestLoadRulesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(rulesYAML), 0o600))

	rules, err := LoadRulesFromFile(path)
	require.NoError(t, err)
	assert.Len(t, rules, 2)

	_, err = LoadRulesFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultRulesValid(t *testing.T) {
	for _, r := range DefaultRules() {
		assert.NoError(t, r.Validate(), r.ID)
	}
}

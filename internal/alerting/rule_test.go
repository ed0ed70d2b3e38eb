package alerting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRule() Rule {
	return Rule{
		ID:       "cpu-high",
		Name:     "CPU High",
		Severity: SeverityWarning,
		Condition: Condition{
			Metric:            "cpu_usage",
			Operator:          OpGreaterThan,
			Threshold:         90,
			TimeWindowSeconds: 60,
		},
		Enabled: true,
	}
}

func TestRuleValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *Rule)
		errMsg string
	}{
		{name: "valid", mutate: func(r *Rule) {}},
		{name: "missing id", mutate: func(r *Rule) { r.ID = "" }, errMsg: "rule id is required"},
		{name: "missing name", mutate: func(r *Rule) { r.Name = "" }, errMsg: "rule name is required"},
		{name: "line break in name", mutate: func(r *Rule) { r.Name = "x\r\nBcc: ops@example.com" }, errMsg: "control characters"},
		{name: "bad severity", mutate: func(r *Rule) { r.Severity = "fatal" }, errMsg: "invalid severity"},
		{name: "missing metric", mutate: func(r *Rule) { r.Condition.Metric = "" }, errMsg: "metric is required"},
		{name: "bad operator", mutate: func(r *Rule) { r.Condition.Operator = "between" }, errMsg: "invalid operator"},
		{name: "zero window", mutate: func(r *Rule) { r.Condition.TimeWindowSeconds = 0 }, errMsg: "time_window_seconds must be positive"},
		{name: "negative consecutive", mutate: func(r *Rule) { r.Condition.ConsecutiveCount = -1 }, errMsg: "consecutive_count"},
		{name: "bad filter", mutate: func(r *Rule) { r.Condition.Filter = "tags.env ==" }, errMsg: "invalid filter"},
		{name: "good filter", mutate: func(r *Rule) { r.Condition.Filter = `tags.env == "prod"` }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRule()
			tt.mutate(&r)
			err := r.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestOperatorCompare(t *testing.T) {
	tests := []struct {
		op    Operator
		value float64
		want  bool
	}{
		{OpGreaterThan, 90, false},
		{OpGreaterThan, 90.0001, true},
		{OpLessThan, 90, false},
		{OpLessThan, 89.9, true},
		{OpGreaterOrEqual, 90, true},
		{OpGreaterOrEqual, 89.9, false},
		{OpLessOrEqual, 90, true},
		{OpLessOrEqual, 90.1, false},
		{OpEqual, 90, true},
		{OpEqual, 90.0000001, false},
		{OpNotEqual, 90, false},
		{OpNotEqual, 91, true},
		{Operator("between"), 90, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.op.Compare(tt.value, 90))
		})
	}
}

func TestParseSeverity(t *testing.T) {
	assert.Equal(t, SeverityInfo, ParseSeverity("info"))
	assert.Equal(t, SeverityCritical, ParseSeverity("CRITICAL"))
	assert.Equal(t, SeverityEmergency, ParseSeverity("emergency"))
	assert.Equal(t, SeverityWarning, ParseSeverity("unknown"))
}

func TestFormatAlertMessage(t *testing.T) {
	r := validRule()
	assert.Equal(t, "CPU High: cpu_usage is 95.5 (threshold > 90)", formatAlertMessage(&r, 95.5))
}

func TestMergeTags(t *testing.T) {
	merged := mergeTags(
		map[string]string{"team": "infra", "env": "staging"},
		map[string]string{"env": "prod", "host": "web-1"},
	)
	assert.Equal(t, map[string]string{"team": "infra", "env": "prod", "host": "web-1"}, merged)
	assert.Nil(t, mergeTags(nil, nil))
}

func TestTagFilter(t *testing.T) {
	f, err := NewTagFilter(`tags.env == "prod" && value > 10`)
	require.NoError(t, err)
	assert.Equal(t, `tags.env == "prod" && value > 10`, f.Expression())

	ok, err := f.Match("cpu_usage", 20, map[string]string{"env": "prod"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.Match("cpu_usage", 20, map[string]string{"env": "dev"})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.Match("cpu_usage", 5, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = NewTagFilter(`value + 1`)
	assert.Error(t, err, "non-bool expression must not compile")
}

func TestRuleClone(t *testing.T) {
	r := validRule()
	r.Channels = []string{"slack"}
	r.Tags = map[string]string{"team": "infra"}

	c := r.Clone()
	c.Channels[0] = "email"
	c.Tags["team"] = "db"

	assert.Equal(t, "slack", r.Channels[0])
	assert.Equal(t, "infra", r.Tags["team"])
}

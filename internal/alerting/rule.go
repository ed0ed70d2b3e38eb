// Package alerting provides the metric alert rules engine for alertd.
// It evaluates threshold rules against submitted metric values, supports
// consecutive-breach detection over a bounded per-metric history and
// owns the alert lifecycle (create, deduplicate, resolve, retain).
package alerting

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Severity represents the severity level of an alert.
type Severity string

const (
	SeverityInfo      Severity = "info"
	SeverityWarning   Severity = "warning"
	SeverityCritical  Severity = "critical"
	SeverityEmergency Severity = "emergency"
)

// ParseSeverity converts a string to Severity.
func ParseSeverity(s string) Severity {
	switch s {
	case "info", "INFO":
		return SeverityInfo
	case "warning", "WARNING":
		return SeverityWarning
	case "critical", "CRITICAL":
		return SeverityCritical
	case "emergency", "EMERGENCY":
		return SeverityEmergency
	default:
		return SeverityWarning
	}
}

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical, SeverityEmergency:
		return true
	}
	return false
}

// Operator is a comparison operator applied as (value OP threshold).
type Operator string

const (
	OpGreaterThan    Operator = "gt"
	OpLessThan       Operator = "lt"
	OpGreaterOrEqual Operator = "gte"
	OpLessOrEqual    Operator = "lte"
	OpEqual          Operator = "eq"
	OpNotEqual       Operator = "ne"
)

// Valid reports whether o is one of the known operators.
func (o Operator) Valid() bool {
	return o.Symbol() != ""
}

// Symbol returns the mathematical symbol for the operator, or "" if unknown.
func (o Operator) Symbol() string {
	switch o {
	case OpGreaterThan:
		return ">"
	case OpLessThan:
		return "<"
	case OpGreaterOrEqual:
		return ">="
	case OpLessOrEqual:
		return "<="
	case OpEqual:
		return "=="
	case OpNotEqual:
		return "!="
	default:
		return ""
	}
}

// Compare applies the operator to (value, threshold).
// Unknown operators never match.
func (o Operator) Compare(value, threshold float64) bool {
	switch o {
	case OpGreaterThan:
		return value > threshold
	case OpLessThan:
		return value < threshold
	case OpGreaterOrEqual:
		return value >= threshold
	case OpLessOrEqual:
		return value <= threshold
	case OpEqual:
		return value == threshold
	case OpNotEqual:
		return value != threshold
	default:
		return false
	}
}

// Condition defines when a rule is breached.
type Condition struct {
	// Metric is the metric name the rule applies to.
	Metric string `yaml:"metric" json:"metric"`
	// Operator is one of gt, lt, gte, lte, eq, ne.
	Operator Operator `yaml:"operator" json:"operator"`
	// Threshold is the value compared against.
	Threshold float64 `yaml:"threshold" json:"threshold"`
	// TimeWindowSeconds bounds the look-back for consecutive breaches.
	TimeWindowSeconds int `yaml:"time_window_seconds" json:"time_window_seconds"`
	// ConsecutiveCount is the number of most recent in-window samples that must
	// all breach. Zero or one means the submitted value alone decides.
	ConsecutiveCount int `yaml:"consecutive_count,omitempty" json:"consecutive_count,omitempty"`
	// Filter is an optional expression over metric, value and tags.
	Filter string `yaml:"filter,omitempty" json:"filter,omitempty"`
}

// Window returns the look-back window as a duration.
func (c Condition) Window() time.Duration {
	return time.Duration(c.TimeWindowSeconds) * time.Second
}

// Rule is a monitoring policy evaluated on every submission of its metric.
type Rule struct {
	ID          string            `yaml:"id" json:"id"`
	Name        string            `yaml:"name" json:"name"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Severity    Severity          `yaml:"severity" json:"severity"`
	Condition   Condition         `yaml:"condition" json:"condition"`
	Channels    []string          `yaml:"channels,omitempty" json:"channels"`
	Enabled     bool              `yaml:"enabled" json:"enabled"`
	Tags        map[string]string `yaml:"tags,omitempty" json:"tags,omitempty"`

	// filter is the compiled Condition.Filter (internal use).
	filter *TagFilter
	// filterErr is set when Condition.Filter failed to compile.
	filterErr error
}

// Validate checks the rule structure. The registry itself accepts any rule;
// loaders and the HTTP API call Validate before registering.
func (r *Rule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("rule id is required")
	}
	if r.Name == "" {
		return fmt.Errorf("rule name is required for rule %q", r.ID)
	}
	if strings.ContainsFunc(r.ID, unicode.IsControl) || strings.ContainsFunc(r.Name, unicode.IsControl) {
		return fmt.Errorf("rule id and name must not contain control characters")
	}
	if !r.Severity.Valid() {
		return fmt.Errorf("invalid severity %q for rule %q", r.Severity, r.ID)
	}
	if r.Condition.Metric == "" {
		return fmt.Errorf("metric is required for rule %q", r.ID)
	}
	if !r.Condition.Operator.Valid() {
		return fmt.Errorf("invalid operator %q for rule %q", r.Condition.Operator, r.ID)
	}
	if r.Condition.TimeWindowSeconds <= 0 {
		return fmt.Errorf("time_window_seconds must be positive for rule %q", r.ID)
	}
	if r.Condition.ConsecutiveCount < 0 {
		return fmt.Errorf("consecutive_count must not be negative for rule %q", r.ID)
	}
	if r.Condition.Filter != "" {
		if _, err := NewTagFilter(r.Condition.Filter); err != nil {
			return fmt.Errorf("invalid filter for rule %q: %w", r.ID, err)
		}
	}
	return nil
}

// Breaches reports whether value breaches the rule's condition.
func (r *Rule) Breaches(value float64) bool {
	return r.Condition.Operator.Compare(value, r.Condition.Threshold)
}

// FilterError returns the compile error of the rule filter, if any.
func (r *Rule) FilterError() error {
	return r.filterErr
}

// matchesFilter evaluates the optional filter. A filter that failed to
// compile or errors at runtime never matches.
func (r *Rule) matchesFilter(metric string, value float64, tags map[string]string) bool {
	if r.Condition.Filter == "" {
		return true
	}
	if r.filter == nil {
		return false
	}
	ok, err := r.filter.Match(metric, value, tags)
	return err == nil && ok
}

// compile prepares internal state. Errors are kept on the rule, not returned.
func (r *Rule) compile() {
	r.filter, r.filterErr = nil, nil
	if r.Condition.Filter == "" {
		return
	}
	r.filter, r.filterErr = NewTagFilter(r.Condition.Filter)
}

// Clone returns a deep copy of the rule.
func (r *Rule) Clone() *Rule {
	c := *r
	c.Channels = slices.Clone(r.Channels)
	c.Tags = maps.Clone(r.Tags)
	return &c
}

// Status is the lifecycle state of an alert.
type Status string

const (
	StatusFiring   Status = "firing"
	StatusResolved Status = "resolved"
)

// Metadata describes the condition that produced an alert.
type Metadata struct {
	Metric            string   `json:"metric"`
	Operator          Operator `json:"operator"`
	TimeWindowSeconds int      `json:"time_window_seconds"`
}

// Alert is a single breach of a rule.
type Alert struct {
	ID         string            `json:"id"`
	RuleID     string            `json:"rule_id"`
	RuleName   string            `json:"rule_name"`
	Severity   Severity          `json:"severity"`
	Message    string            `json:"message"`
	Timestamp  time.Time         `json:"timestamp"`
	Status     Status            `json:"status"`
	Value      float64           `json:"value"`
	Threshold  float64           `json:"threshold"`
	Tags       map[string]string `json:"tags,omitempty"`
	Metadata   Metadata          `json:"metadata"`
	Channels   []string          `json:"channels,omitempty"`
	ResolvedAt *time.Time        `json:"resolved_at,omitempty"`
}

// Clone returns a deep copy of the alert.
func (a *Alert) Clone() *Alert {
	c := *a
	c.Tags = maps.Clone(a.Tags)
	c.Channels = slices.Clone(a.Channels)
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}

// formatAlertMessage renders the human-readable breach message.
func formatAlertMessage(rule *Rule, value float64) string {
	return fmt.Sprintf("%s: %s is %s (threshold %s %s)",
		rule.Name,
		rule.Condition.Metric,
		formatFloat(value),
		rule.Condition.Operator.Symbol(),
		formatFloat(rule.Condition.Threshold))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// mergeTags merges rule tags with submission tags; submission tags win.
func mergeTags(ruleTags, submitted map[string]string) map[string]string {
	if len(ruleTags) == 0 && len(submitted) == 0 {
		return nil
	}
	merged := make(map[string]string, len(ruleTags)+len(submitted))
	maps.Copy(merged, ruleTags)
	maps.Copy(merged, submitted)
	return merged
}

// Action is the lifecycle transition carried by an Event.
type Action string

const (
	ActionTriggered Action = "triggered"
	ActionResolved  Action = "resolved"
)

// Event is a lifecycle transition handed to the Notifier.
type Event struct {
	Action Action
	Alert  *Alert
	// Time is when the transition happened.
	Time time.Time
}

// RulesConfig represents the top-level YAML rules document.
type RulesConfig struct {
	Rules []*Rule `yaml:"rules"`
}

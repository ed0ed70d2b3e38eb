// Package models defines persisted records for alertd.
package models

import "time"

// AlertAction is the lifecycle transition recorded by an AlertEvent.
type AlertAction string

const (
	AlertActionTriggered AlertAction = "triggered"
	AlertActionResolved  AlertAction = "resolved"
)

// AlertEvent records one alert lifecycle transition in the journal.
type AlertEvent struct {
	ID        string            `json:"id"`
	AlertID   string            `json:"alert_id"`
	RuleID    string            `json:"rule_id"`
	RuleName  string            `json:"rule_name"`
	Severity  string            `json:"severity"`
	Action    AlertAction       `json:"action"`
	Message   string            `json:"message"`
	Value     float64           `json:"value"`
	Threshold float64           `json:"threshold"`
	Tags      map[string]string `json:"tags,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// AlertEventFilter narrows journal queries. Empty fields match everything.
type AlertEventFilter struct {
	RuleID  string
	AlertID string
	Limit   int
	Offset  int
}

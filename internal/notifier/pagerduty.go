package notifier

import (
	"github.com/good-yellow-bee/alertd/internal/alerting"
)

// DefaultPagerDutyURL is the PagerDuty Events API v2 endpoint.
const DefaultPagerDutyURL = "https://events.pagerduty.com/v2/enqueue"

const defaultPagerDutySource = "propertylend-alertd"

type pagerDutyEvent struct {
	RoutingKey  string           `json:"routing_key"`
	EventAction string           `json:"event_action"`
	DedupKey    string           `json:"dedup_key"`
	Payload     pagerDutyPayload `json:"payload"`
}

type pagerDutyPayload struct {
	Summary       string         `json:"summary"`
	Severity      string         `json:"severity"`
	Source        string         `json:"source"`
	Component     string         `json:"component,omitempty"`
	Group         string         `json:"group,omitempty"`
	Class         string         `json:"class,omitempty"`
	CustomDetails map[string]any `json:"custom_details,omitempty"`
}

func buildPagerDutyPayload(cfg PagerDutyConfig, ev alerting.Event) pagerDutyEvent {
	a := ev.Alert

	action := "trigger"
	if ev.Action == alerting.ActionResolved {
		action = "resolve"
	}
	source := cfg.Source
	if source == "" {
		source = defaultPagerDutySource
	}

	return pagerDutyEvent{
		RoutingKey:  cfg.RoutingKey,
		EventAction: action,
		DedupKey:    a.RuleID,
		Payload: pagerDutyPayload{
			Summary:   a.Message,
			Severity:  pagerDutySeverity(a.Severity),
			Source:    source,
			Component: a.Metadata.Metric,
			Group:     a.Tags["team"],
			Class:     a.RuleID,
			CustomDetails: map[string]any{
				"alert_id":  a.ID,
				"rule_name": a.RuleName,
				"value":     a.Value,
				"threshold": a.Threshold,
				"operator":  a.Metadata.Operator,
				"tags":      a.Tags,
			},
		},
	}
}

// pagerDutySeverity maps alert severity to the Events API severity set.
func pagerDutySeverity(severity alerting.Severity) string {
	switch severity {
	case alerting.SeverityEmergency, alerting.SeverityCritical:
		return "critical"
	case alerting.SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

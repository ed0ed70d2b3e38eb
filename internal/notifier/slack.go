package notifier

import (
	"fmt"

	"github.com/good-yellow-bee/alertd/internal/alerting"
)

const defaultUsername = "PropertyLend Alerts"

// slackMessage represents the Slack incoming webhook payload.
type slackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color string `json:"color"`
	Title string `json:"title"`
	Text  string `json:"text"`
	Ts    int64  `json:"ts"`
}

func buildSlackPayload(cfg SlackConfig, ev alerting.Event) slackMessage {
	username := cfg.Username
	if username == "" {
		username = defaultUsername
	}
	return slackMessage{
		Channel:  cfg.Channel,
		Username: username,
		Attachments: []slackAttachment{{
			Color: slackColor(ev.Alert.Severity),
			Title: fmt.Sprintf("%s - %s", ev.Alert.RuleName, upperSeverity(ev.Alert.Severity)),
			Text:  FormatMessage(ev),
			Ts:    eventTime(ev).Unix(),
		}},
	}
}

// slackColor maps severity to a Slack attachment color.
func slackColor(severity alerting.Severity) string {
	switch severity {
	case alerting.SeverityEmergency, alerting.SeverityCritical:
		return "danger"
	case alerting.SeverityWarning:
		return "warning"
	default:
		return "good"
	}
}

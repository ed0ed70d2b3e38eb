package notifier

import (
	"fmt"

	"github.com/good-yellow-bee/alertd/internal/alerting"
)

type discordMessage struct {
	Username string         `json:"username,omitempty"`
	Embeds   []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
	Timestamp   string `json:"timestamp"`
}

func buildDiscordPayload(cfg DiscordConfig, ev alerting.Event) discordMessage {
	return discordMessage{
		Username: cfg.Username,
		Embeds: []discordEmbed{{
			Title:       fmt.Sprintf("%s - %s", ev.Alert.RuleName, upperSeverity(ev.Alert.Severity)),
			Description: FormatMessage(ev),
			Color:       discordColor(ev.Alert.Severity),
			Timestamp:   formatTime(eventTime(ev)),
		}},
	}
}

func discordColor(severity alerting.Severity) int {
	switch severity {
	case alerting.SeverityEmergency:
		return 0xff0000
	case alerting.SeverityCritical:
		return 0xff4444
	case alerting.SeverityWarning:
		return 0xffaa00
	default:
		return 0x00ff00
	}
}

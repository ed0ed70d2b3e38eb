package notifier

import (
	"net/http"
	"strings"

	"github.com/good-yellow-bee/alertd/internal/alerting"
)

type webhookMessage struct {
	Alert     *alerting.Alert `json:"alert"`
	Action    alerting.Action `json:"action"`
	Message   string          `json:"message"`
	Timestamp string          `json:"timestamp"`
}

func buildWebhookPayload(ev alerting.Event) webhookMessage {
	return webhookMessage{
		Alert:     ev.Alert,
		Action:    ev.Action,
		Message:   FormatMessage(ev),
		Timestamp: formatTime(eventTime(ev)),
	}
}

func webhookMethod(cfg WebhookConfig) string {
	if cfg.Method == "" {
		return http.MethodPost
	}
	return strings.ToUpper(cfg.Method)
}

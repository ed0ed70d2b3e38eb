package notifier

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/good-yellow-bee/alertd/internal/alerting"
)

// EnvConfig holds channel credentials read from the environment. A channel
// whose credentials are absent is registered but disabled.
type EnvConfig struct {
	SlackWebhookURL   string `env:"SLACK_WEBHOOK_URL"`
	SlackChannel      string `env:"SLACK_CHANNEL" envDefault:"#alerts"`
	DiscordWebhookURL string `env:"DISCORD_WEBHOOK_URL"`

	PagerDutyIntegrationKey string `env:"PAGERDUTY_INTEGRATION_KEY"`
	PagerDutyURL            string `env:"PAGERDUTY_EVENTS_URL" envDefault:"https://events.pagerduty.com/v2/enqueue"`

	WebhookURL     string            `env:"ALERT_WEBHOOK_URL"`
	WebhookHeaders map[string]string `env:"ALERT_WEBHOOK_HEADERS"`

	SMTPHost     string   `env:"SMTP_HOST"`
	SMTPPort     int      `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string   `env:"SMTP_USERNAME"`
	SMTPPassword string   `env:"SMTP_PASSWORD"`
	EmailFrom    string   `env:"ALERT_EMAIL_FROM" envDefault:"alerts@propertylend.io"`
	EmailTo      []string `env:"ALERT_EMAIL_TO" envSeparator:","`
}

// LoadEnvConfig reads channel credentials from the process environment.
func LoadEnvConfig() (EnvConfig, error) {
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return EnvConfig{}, fmt.Errorf("parse channel env: %w", err)
	}
	return cfg, nil
}

// ParseEnvConfig reads channel credentials from the given variables.
func ParseEnvConfig(environ map[string]string) (EnvConfig, error) {
	var cfg EnvConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return EnvConfig{}, fmt.Errorf("parse channel env: %w", err)
	}
	return cfg, nil
}

// DefaultChannels returns the built-in PropertyLend channels configured from env.
func DefaultChannels(cfg EnvConfig) []Channel {
	return []Channel{
		{
			ID:   alerting.ChannelSlack,
			Name: "Slack Alerts",
			Config: SlackConfig{
				WebhookURL: cfg.SlackWebhookURL,
				Channel:    cfg.SlackChannel,
			},
		},
		{
			ID:   alerting.ChannelEmail,
			Name: "Email Alerts",
			Config: EmailConfig{
				Host:       cfg.SMTPHost,
				Port:       cfg.SMTPPort,
				Username:   cfg.SMTPUsername,
				Password:   cfg.SMTPPassword,
				From:       cfg.EmailFrom,
				Recipients: cfg.EmailTo,
			},
		},
		{
			ID:   alerting.ChannelWebhook,
			Name: "Webhook Alerts",
			Config: WebhookConfig{
				URL:     cfg.WebhookURL,
				Headers: cfg.WebhookHeaders,
			},
		},
		{
			ID:     alerting.ChannelPagerDuty,
			Name:   "PagerDuty On-Call",
			Config: PagerDutyConfig{RoutingKey: cfg.PagerDutyIntegrationKey},
		},
		{
			ID:     alerting.ChannelDiscord,
			Name:   "Discord Alerts",
			Config: DiscordConfig{WebhookURL: cfg.DiscordWebhookURL},
		},
	}
}

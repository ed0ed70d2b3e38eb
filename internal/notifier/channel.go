// Package notifier delivers alert lifecycle events to notification channels.
package notifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ChannelType identifies a channel variant.
type ChannelType string

const (
	TypeSlack     ChannelType = "slack"
	TypeEmail     ChannelType = "email"
	TypeWebhook   ChannelType = "webhook"
	TypePagerDuty ChannelType = "pagerduty"
	TypeDiscord   ChannelType = "discord"
)

// ErrUnknownChannelType is returned for a channel type with no formatter.
var ErrUnknownChannelType = errors.New("unknown channel type")

// ChannelConfig is the type-specific configuration of a channel. It is
// implemented only by the config types in this package.
type ChannelConfig interface {
	// Type returns the channel variant.
	Type() ChannelType
	// Validate reports missing required configuration.
	Validate() error
	isChannelConfig()
}

// Channel is a configured notification destination.
type Channel struct {
	ID     string
	Name   string
	Config ChannelConfig
}

// Type returns the channel type, or "" when the channel has no config.
func (c Channel) Type() ChannelType {
	if c.Config == nil {
		return ""
	}
	return c.Config.Type()
}

// Enabled reports whether the channel's required configuration is present.
func (c Channel) Enabled() bool {
	return c.Config != nil && c.Config.Validate() == nil
}

// Info returns the channel description without secrets.
func (c Channel) Info() ChannelInfo {
	return ChannelInfo{
		ID:      c.ID,
		Name:    c.Name,
		Type:    c.Type(),
		Enabled: c.Enabled(),
	}
}

// ChannelInfo is the public view of a channel.
type ChannelInfo struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Type    ChannelType `json:"type"`
	Enabled bool        `json:"enabled"`
}

// SlackConfig holds Slack incoming webhook configuration.
type SlackConfig struct {
	WebhookURL string `json:"webhook_url" yaml:"webhook_url"`
	Channel    string `json:"channel,omitempty" yaml:"channel,omitempty"`
	Username   string `json:"username,omitempty" yaml:"username,omitempty"`
}

func (SlackConfig) Type() ChannelType { return TypeSlack }
func (SlackConfig) isChannelConfig()  {}

// Validate validates the Slack configuration.
func (c SlackConfig) Validate() error {
	if c.WebhookURL == "" {
		return fmt.Errorf("webhook URL is required")
	}
	return nil
}

// EmailConfig holds SMTP configuration.
type EmailConfig struct {
	Host       string   `json:"host" yaml:"host"`
	Port       int      `json:"port" yaml:"port"` // 465 for implicit TLS, otherwise STARTTLS
	Username   string   `json:"username,omitempty" yaml:"username,omitempty"`
	Password   string   `json:"password,omitempty" yaml:"password,omitempty"`
	From       string   `json:"from" yaml:"from"`
	Recipients []string `json:"recipients" yaml:"recipients"`
}

func (EmailConfig) Type() ChannelType { return TypeEmail }
func (EmailConfig) isChannelConfig()  {}

// Validate validates the email configuration.
func (c EmailConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("SMTP host is required")
	}
	if c.From == "" {
		return fmt.Errorf("from address is required")
	}
	if len(c.Recipients) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}
	return nil
}

// WebhookConfig holds generic webhook configuration.
type WebhookConfig struct {
	URL     string            `json:"url" yaml:"url"`
	Method  string            `json:"method,omitempty" yaml:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

func (WebhookConfig) Type() ChannelType { return TypeWebhook }
func (WebhookConfig) isChannelConfig()  {}

// Validate validates the webhook configuration.
func (c WebhookConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("webhook URL is required")
	}
	return nil
}

// PagerDutyConfig holds PagerDuty Events API v2 configuration.
type PagerDutyConfig struct {
	RoutingKey string `json:"routing_key" yaml:"routing_key"`
	// Source overrides the payload source field.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

func (PagerDutyConfig) Type() ChannelType { return TypePagerDuty }
func (PagerDutyConfig) isChannelConfig()  {}

// Validate validates the PagerDuty configuration.
func (c PagerDutyConfig) Validate() error {
	if c.RoutingKey == "" {
		return fmt.Errorf("routing key is required")
	}
	return nil
}

// DiscordConfig holds Discord webhook configuration.
type DiscordConfig struct {
	WebhookURL string `json:"webhook_url" yaml:"webhook_url"`
	Username   string `json:"username,omitempty" yaml:"username,omitempty"`
}

func (DiscordConfig) Type() ChannelType { return TypeDiscord }
func (DiscordConfig) isChannelConfig()  {}

// Validate validates the Discord configuration.
func (c DiscordConfig) Validate() error {
	if c.WebhookURL == "" {
		return fmt.Errorf("webhook URL is required")
	}
	return nil
}

// ChannelSpec is the untyped channel description accepted by the HTTP API
// and the channels file.
type ChannelSpec struct {
	ID     string         `json:"id" yaml:"id"`
	Name   string         `json:"name" yaml:"name"`
	Type   string         `json:"type" yaml:"type"`
	Config map[string]any `json:"config" yaml:"config"`
}

// Build converts the spec into a typed Channel. Missing required config is
// not an error; the channel is simply disabled.
func (s ChannelSpec) Build() (Channel, error) {
	if s.ID == "" {
		return Channel{}, fmt.Errorf("channel id is required")
	}

	var cfg ChannelConfig
	var err error
	switch ChannelType(strings.ToLower(s.Type)) {
	case TypeSlack:
		cfg, err = decodeConfig[SlackConfig](s.Config)
	case TypeEmail:
		cfg, err = decodeConfig[EmailConfig](s.Config)
	case TypeWebhook:
		cfg, err = decodeConfig[WebhookConfig](s.Config)
	case TypePagerDuty:
		cfg, err = decodeConfig[PagerDutyConfig](s.Config)
	case TypeDiscord:
		cfg, err = decodeConfig[DiscordConfig](s.Config)
	default:
		return Channel{}, fmt.Errorf("%w: %q", ErrUnknownChannelType, s.Type)
	}
	if err != nil {
		return Channel{}, fmt.Errorf("invalid %s config for channel %q: %w", s.Type, s.ID, err)
	}

	name := s.Name
	if name == "" {
		name = s.ID
	}
	return Channel{ID: s.ID, Name: name, Config: cfg}, nil
}

// decodeConfig re-marshals a generic map into a concrete config struct.
func decodeConfig[T ChannelConfig](raw map[string]any) (ChannelConfig, error) {
	var cfg T
	if len(raw) == 0 {
		return cfg, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

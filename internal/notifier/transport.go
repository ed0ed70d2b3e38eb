package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/good-yellow-bee/alertd/internal/alerting"
)

// Transport formats and delivers events for every channel type.
type Transport struct {
	httpClient   *http.Client
	pagerDutyURL string
	sendMail     mailer
	now          func() time.Time
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithHTTPClient sets the HTTP client used for webhook-style channels.
func WithHTTPClient(c *http.Client) TransportOption {
	return func(t *Transport) { t.httpClient = c }
}

// WithPagerDutyURL overrides the PagerDuty Events API endpoint.
func WithPagerDutyURL(url string) TransportOption {
	return func(t *Transport) { t.pagerDutyURL = url }
}

// NewTransport creates a transport with a 30s HTTP client timeout.
func NewTransport(opts ...TransportOption) *Transport {
	t := &Transport{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		pagerDutyURL: DefaultPagerDutyURL,
		sendMail:     sendSMTP,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// BuildPayload returns the channel-specific payload for an event.
func BuildPayload(ch Channel, ev alerting.Event) (any, error) {
	switch cfg := ch.Config.(type) {
	case SlackConfig:
		return buildSlackPayload(cfg, ev), nil
	case DiscordConfig:
		return buildDiscordPayload(cfg, ev), nil
	case PagerDutyConfig:
		return buildPagerDutyPayload(cfg, ev), nil
	case WebhookConfig:
		return buildWebhookPayload(ev), nil
	case EmailConfig:
		return buildEmailPayload(ev), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownChannelType, ch.Config)
	}
}

// Deliver formats the event for the channel and sends it.
func (t *Transport) Deliver(ctx context.Context, ch Channel, ev alerting.Event) error {
	payload, err := BuildPayload(ch, ev)
	if err != nil {
		return err
	}

	switch cfg := ch.Config.(type) {
	case SlackConfig:
		return t.postJSON(ctx, http.MethodPost, cfg.WebhookURL, nil, payload)
	case DiscordConfig:
		return t.postJSON(ctx, http.MethodPost, cfg.WebhookURL, nil, payload)
	case PagerDutyConfig:
		return t.postJSON(ctx, http.MethodPost, t.pagerDutyURL, nil, payload)
	case WebhookConfig:
		return t.postJSON(ctx, webhookMethod(cfg), cfg.URL, cfg.Headers, payload)
	case EmailConfig:
		msg := buildMIMEMessage(cfg, payload.(emailMessage), t.now())
		if err := t.sendMail(ctx, cfg, msg); err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrUnknownChannelType, ch.Config)
	}
}

// postJSON sends payload as JSON and treats any non-2xx response as an error.
func (t *Transport) postJSON(ctx context.Context, method, url string, headers map[string]string, payload any) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "alertd")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected response: status %d, body: %s", resp.StatusCode, string(body))
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return nil
}

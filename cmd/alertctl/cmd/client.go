package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/good-yellow-bee/alertd/internal/alerting"
	"github.com/good-yellow-bee/alertd/internal/notifier"
)

// APIError is an error envelope returned by alertd.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// Client is a minimal alertd HTTP API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *APIError       `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&env); err != nil {
		return fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 400 {
		if env.Error == nil {
			env.Error = &APIError{Code: http.StatusText(resp.StatusCode)}
		}
		env.Error.Status = resp.StatusCode
		return env.Error
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

// SubmitMetric posts a metric sample and returns the alerts it created.
func (c *Client) SubmitMetric(ctx context.Context, metric string, value float64, tags map[string]string) ([]*alerting.Alert, error) {
	var resp struct {
		Alerts []*alerting.Alert `json:"alerts"`
	}
	body := map[string]any{"metric": metric, "value": value}
	if len(tags) > 0 {
		body["tags"] = tags
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/metrics", body, &resp); err != nil {
		return nil, err
	}
	return resp.Alerts, nil
}

// ActiveAlerts lists firing alerts.
func (c *Client) ActiveAlerts(ctx context.Context) ([]*alerting.Alert, error) {
	var alerts []*alerting.Alert
	err := c.do(ctx, http.MethodGet, "/api/v1/alerts", nil, &alerts)
	return alerts, err
}

// AlertHistory lists alerts of any status.
func (c *Client) AlertHistory(ctx context.Context, limit int) ([]*alerting.Alert, error) {
	var alerts []*alerting.Alert
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/alerts/history?limit=%d", limit), nil, &alerts)
	return alerts, err
}

// ResolveAlert resolves a firing alert.
func (c *Client) ResolveAlert(ctx context.Context, id string) (*alerting.Alert, error) {
	var alert alerting.Alert
	if err := c.do(ctx, http.MethodPost, "/api/v1/alerts/"+url.PathEscape(id)+"/resolve", nil, &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}

// Rules lists alert rules.
func (c *Client) Rules(ctx context.Context) ([]*alerting.Rule, error) {
	var rules []*alerting.Rule
	err := c.do(ctx, http.MethodGet, "/api/v1/rules", nil, &rules)
	return rules, err
}

// Channels lists notification channels.
func (c *Client) Channels(ctx context.Context) ([]notifier.ChannelInfo, error) {
	var channels []notifier.ChannelInfo
	err := c.do(ctx, http.MethodGet, "/api/v1/channels", nil, &channels)
	return channels, err
}

package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// SecretHeader carries the shared webhook secret on outbound calls when
// one is configured.
const SecretHeader = "X-Webhook-Secret"

// WebhookConfig configures the remote Home-Assistant-style webhook target.
type WebhookConfig struct {
	// BaseURL is the controller root, e.g. "http://homeassistant.local:8123".
	BaseURL string `yaml:"base_url"`

	// Secret is sent in the X-Webhook-Secret header when non-empty.
	Secret string `yaml:"secret"`

	// Timeout bounds each webhook call (default 15s).
	Timeout time.Duration `yaml:"timeout"`
}

// WebhookResponse is the parsed controller reply.
type WebhookResponse struct {
	// Message is the human-readable summary from the controller, if any.
	Message string

	// Raw is the response body, kept for the audit log.
	Raw string
}

// WebhookClient posts validated action parameters to the remote controller.
type WebhookClient struct {
	cfg        WebhookConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewWebhookClient creates the outbound webhook client.
func NewWebhookClient(cfg WebhookConfig, logger *slog.Logger) *WebhookClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With("component", "webhook-client"),
	}
}

// Trigger POSTs params as JSON to {baseURL}/webhook/{alias}. Any 2xx reply
// is a success; a JSON body with a "message" field becomes the user-facing
// summary. Non-2xx, timeout and connection errors are returned as errors.
func (c *WebhookClient) Trigger(ctx context.Context, alias string, params map[string]string) (*WebhookResponse, error) {
	if c.cfg.BaseURL == "" {
		return nil, fmt.Errorf("webhook base URL not configured")
	}
	if params == nil {
		params = map[string]string{}
	}

	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshaling parameters: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/webhook/" + alias
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Secret != "" {
		req.Header.Set(SecretHeader, c.cfg.Secret)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	c.logger.Debug("webhook triggered",
		"alias", alias,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("webhook returned %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	out := &WebhookResponse{Raw: string(respBody)}
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(respBody, &parsed); err == nil {
		out.Message = parsed.Message
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// local.go implements the freeform-text backend for local inference
// servers (Ollama, LM Studio, vLLM) exposing an OpenAI-compatible endpoint
// without reliable native tool calling. Function calls are requested via
// textual markers in the system prompt and parsed out of the raw response.
package llm

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

// LocalBackend talks to a local inference server. It never sends tool
// definitions over the wire; instead, when functions are supplied it
// appends marker instructions to the system prompt and scans the response
// text for a marker, stripping it from the user-visible reply.
type LocalBackend struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewLocalBackend creates the freeform-text backend.
func NewLocalBackend(baseURL, model string, logger *slog.Logger) *LocalBackend {
	if baseURL == "" {
		baseURL = "http://localhost:11434/v1"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        5,
				IdleConnTimeout:     120 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		logger: logger.With("component", "llm", "backend", "local"),
	}
}

// Name implements Backend.
func (b *LocalBackend) Name() string { return "local" }

// Model implements Backend.
func (b *LocalBackend) Model() string { return b.model }

// markerInstructions teaches the model the textual function-call grammar.
// Only appended when the caller supplied function definitions.
func markerInstructions(functions []FunctionDefinition) string {
	var sb strings.Builder
	sb.WriteString("\n\nWhen the user asks for an action, embed exactly one call marker in your reply:\n")
	sb.WriteString(`- run_command("<command>", "<arguments>") to run a chat command` + "\n")
	sb.WriteString(`- call_service("<action_id>", {"param": "value"}) to control the home` + "\n")
	sb.WriteString("Available actions:\n")
	for _, fn := range functions {
		if fn.Name == FunctionRunCommand {
			continue
		}
		sb.WriteString("- " + fn.Name + ": " + fn.Description + "\n")
		if len(fn.Parameters) > 0 {
			sb.WriteString("  parameters: " + string(fn.Parameters) + "\n")
		}
	}
	sb.WriteString("Use the marker only when an action is clearly requested. Otherwise reply normally.\n")
	return sb.String()
}

// Generate implements Backend.
func (b *LocalBackend) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	system := req.SystemPrompt
	if len(req.Functions) > 0 {
		system += markerInstructions(req.Functions)
	}

	reqBody := chatRequest{
		Model: b.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: req.UserText},
		},
	}
	if req.Temperature > 0 {
		t := req.Temperature
		reqBody.Temperature = &t
	}
	if req.MaxTokens > 0 {
		m := req.MaxTokens
		reqBody.MaxTokens = &m
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrModelUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		b.logger.Error("local backend error",
			"model", b.model,
			"status", resp.StatusCode,
			"body", truncate(string(respBody), 300),
		)
		return nil, &apiError{statusCode: resp.StatusCode, body: string(respBody)}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	raw := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	result := &GenerateResult{Text: raw, Model: b.model}

	// Only scan for markers when the caller exposed functions; a plain chat
	// reply that happens to mention the marker syntax stays untouched.
	if len(req.Functions) > 0 {
		call, cleaned := ParseMarker(raw)
		result.FunctionCall = call
		result.Text = cleaned
	}

	b.logger.Info("local completion done",
		"model", b.model,
		"purpose", req.Purpose,
		"duration_ms", time.Since(start).Milliseconds(),
		"has_call", result.FunctionCall != nil,
	)
	return result, nil
}

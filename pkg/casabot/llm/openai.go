// openai.go implements the structured-tool backend using the
// OpenAI-compatible chat completions API, which also covers OpenRouter,
// Groq, Mistral and any compatible proxy.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// FunctionRunCommand is the reserved function name for invoking a local
// chat command. Every other function name is a webhook action id.
const FunctionRunCommand = "run_command"

// OpenAIBackend talks to an OpenAI-compatible endpoint with native tool
// calling. Tool invocations in the response translate directly into
// FunctionCalls with no text parsing.
type OpenAIBackend struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOpenAIBackend creates the structured-tool backend.
func NewOpenAIBackend(baseURL, apiKey, model string, logger *slog.Logger) *OpenAIBackend {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAIBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			// No global timeout. Each call carries context.WithTimeout
			// from the gateway for per-purpose control.
			Transport: &http.Transport{
				MaxIdleConns:          10,
				MaxIdleConnsPerHost:   5,
				IdleConnTimeout:       120 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 180 * time.Second,
			},
		},
		logger: logger.With("component", "llm", "backend", "openai"),
	}
}

// Name implements Backend.
func (b *OpenAIBackend) Name() string { return "openai" }

// Model implements Backend.
func (b *OpenAIBackend) Model() string { return b.model }

// chatEndpoint returns the chat completions URL.
func (b *OpenAIBackend) chatEndpoint() string {
	return b.baseURL + "/chat/completions"
}

// ---------- Wire types (OpenAI-compatible) ----------

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type toolDefinition struct {
	Type     string      `json:"type"`
	Function functionDef `json:"function"`
}

type functionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type toolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type chatRequest struct {
	Model       string           `json:"model"`
	Messages    []chatMessage    `json:"messages"`
	Tools       []toolDefinition `json:"tools,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
	MaxTokens   *int             `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string     `json:"content"`
			ToolCalls []toolCall `json:"tool_calls,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// apiError captures an HTTP-level failure from the provider, including
// the Retry-After hint on 429 responses.
type apiError struct {
	statusCode    int
	body          string
	retryAfterSec int
}

func (e *apiError) Error() string {
	if e.retryAfterSec > 0 {
		return fmt.Sprintf("API returned %d (retry after %ds): %s", e.statusCode, e.retryAfterSec, truncate(e.body, 200))
	}
	return fmt.Sprintf("API returned %d: %s", e.statusCode, truncate(e.body, 200))
}

// Unwrap lets callers match errors.Is(err, ErrModelUnavailable) for the
// status classes the router treats as backend downtime.
func (e *apiError) Unwrap() error {
	if e.statusCode == 429 || e.statusCode >= 500 {
		return ErrModelUnavailable
	}
	return nil
}

// Generate implements Backend.
func (b *OpenAIBackend) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	reqBody := chatRequest{
		Model: b.model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
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
	for _, fn := range req.Functions {
		reqBody.Tools = append(reqBody.Tools, toolDefinition{
			Type: "function",
			Function: functionDef{
				Name:        fn.Name,
				Description: fn.Description,
				Parameters:  fn.Parameters,
			},
		})
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.chatEndpoint(), bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)

	b.logger.Debug("sending chat completion",
		"model", b.model,
		"purpose", req.Purpose,
		"tools", len(reqBody.Tools),
	)

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
		b.logger.Error("API error",
			"model", b.model,
			"status", resp.StatusCode,
			"body", truncate(string(respBody), 500),
		)
		retryAfter := 0
		if v := resp.Header.Get("Retry-After"); v != "" {
			retryAfter, _ = strconv.Atoi(v)
		}
		return nil, &apiError{statusCode: resp.StatusCode, body: string(respBody), retryAfterSec: retryAfter}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if chatResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	choice := chatResp.Choices[0]
	result := &GenerateResult{
		Text:  strings.TrimSpace(choice.Message.Content),
		Model: b.model,
	}
	if len(choice.Message.ToolCalls) > 0 {
		result.FunctionCall = translateToolCall(choice.Message.ToolCalls[0])
	}

	b.logger.Info("chat completion done",
		"model", b.model,
		"purpose", req.Purpose,
		"duration_ms", time.Since(start).Milliseconds(),
		"finish_reason", choice.FinishReason,
		"has_call", result.FunctionCall != nil,
	)
	return result, nil
}

// translateToolCall converts a native tool invocation into the normalized
// FunctionCall shape shared with the textual-marker path. Malformed
// argument JSON yields a nil call (treated as "no call found" upstream).
func translateToolCall(tc toolCall) *FunctionCall {
	var raw map[string]any
	if tc.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &raw); err != nil {
			return nil
		}
	}

	if tc.Function.Name == FunctionRunCommand {
		command, _ := raw["command"].(string)
		if command == "" {
			return nil
		}
		args, _ := raw["args"].(string)
		return &FunctionCall{
			Target:   TargetLocalCommand,
			ActionID: command,
			ArgsText: strings.TrimSpace(args),
		}
	}

	return &FunctionCall{
		Target:     TargetRemoteWebhook,
		ActionID:   tc.Function.Name,
		Parameters: FlattenParams(raw),
	}
}

// truncate shortens s for log output.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

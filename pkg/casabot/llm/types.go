// Package llm provides a uniform gateway over pluggable language-model
// backends. A structured-tool backend (OpenAI-compatible function calling)
// and a freeform-text backend (local inference server with textual markers)
// both normalize to one FunctionCall shape, so the routing layer never
// cares which backend produced a response.
package llm

import (
	"encoding/json"
	"errors"
	"time"
)

// Purpose selects which backend+model pair handles a call. Each purpose is
// independently configurable, falling back to the default pair.
type Purpose string

const (
	PurposeIntent   Purpose = "intent"
	PurposeChat     Purpose = "chat"
	PurposeFunction Purpose = "function"
)

// CallTarget identifies what a function call invokes.
type CallTarget string

const (
	TargetLocalCommand  CallTarget = "local_command"
	TargetRemoteWebhook CallTarget = "remote_webhook"
)

// FunctionCall is the normalized "the model wants to invoke X"
// representation. Exactly one of ArgsText (local commands) or Parameters
// (webhook actions) carries the arguments.
type FunctionCall struct {
	Target   CallTarget
	ActionID string

	// ArgsText is the raw argument string for a local command.
	ArgsText string

	// Parameters are the structured arguments for a webhook action.
	// Values are kept as strings; nested objects are flattened by the
	// backend adapters before reaching here.
	Parameters map[string]string
}

// FunctionDefinition describes one callable capability exposed to a
// structured-tool backend, in OpenAI tool format.
type FunctionDefinition struct {
	Name        string
	Description string
	Parameters  json.RawMessage // JSON Schema object
}

// GenerateRequest is a single generation call through the gateway.
type GenerateRequest struct {
	Purpose      Purpose
	SystemPrompt string
	UserText     string
	Temperature  float64 // 0 = backend default
	MaxTokens    int     // 0 = backend default
	Functions    []FunctionDefinition
	Timeout      time.Duration // 0 = purpose default
}

// GenerateResult is the normalized response: user-visible text with any
// function-call marker already stripped, plus the parsed call if present.
type GenerateResult struct {
	Text         string
	FunctionCall *FunctionCall
	Model        string
}

// ErrModelUnavailable wraps transport, timeout and backend errors so the
// router can fall back without inspecting backend-specific failures.
var ErrModelUnavailable = errors.New("model backend unavailable")

// ErrEmptyResponse is returned when the backend answered but produced no
// usable content.
var ErrEmptyResponse = errors.New("model returned empty response")

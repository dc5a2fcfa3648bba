package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Backend is one language-model adapter. Implementations must be safe for
// concurrent use.
type Backend interface {
	Name() string
	Model() string
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
}

// Default per-purpose timeouts. Classification is a light call and must
// fail fast; generation can legitimately take a while on local hardware.
const (
	DefaultIntentTimeout   = 10 * time.Second
	DefaultChatTimeout     = 120 * time.Second
	DefaultFunctionTimeout = 120 * time.Second
)

// BackendConfig selects and configures one backend instance.
type BackendConfig struct {
	// Provider is "openai" (structured tools) or "local" (freeform text).
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
}

// IsZero reports whether the config selects nothing.
func (c BackendConfig) IsZero() bool {
	return c.Provider == "" && c.Model == ""
}

// NewBackend builds a backend from config.
func NewBackend(cfg BackendConfig, logger *slog.Logger) (Backend, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAIBackend(cfg.BaseURL, cfg.APIKey, cfg.Model, logger), nil
	case "local", "ollama", "lmstudio", "vllm":
		return NewLocalBackend(cfg.BaseURL, cfg.Model, logger), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// binding pairs a backend with its per-purpose timeout.
type binding struct {
	backend Backend
	timeout time.Duration
}

// Gateway routes generation calls to the backend configured for each
// purpose. Selection happens once at construction, not per call.
type Gateway struct {
	bindings map[Purpose]binding
	logger   *slog.Logger
}

// GatewayConfig holds one backend config per purpose. Empty purpose
// configs fall back to Default.
type GatewayConfig struct {
	Default  BackendConfig `yaml:"default"`
	Intent   BackendConfig `yaml:"intent"`
	Chat     BackendConfig `yaml:"chat"`
	Function BackendConfig `yaml:"function"`
}

// Effective returns the backend config for a purpose, falling back to the
// default pair when the purpose has no override.
func (c GatewayConfig) Effective(p Purpose) BackendConfig {
	pick := func(cfg BackendConfig) BackendConfig {
		if cfg.IsZero() {
			return c.Default
		}
		// Purpose overrides inherit connection details from the default.
		if cfg.BaseURL == "" {
			cfg.BaseURL = c.Default.BaseURL
		}
		if cfg.APIKey == "" {
			cfg.APIKey = c.Default.APIKey
		}
		if cfg.Provider == "" {
			cfg.Provider = c.Default.Provider
		}
		return cfg
	}
	switch p {
	case PurposeIntent:
		return pick(c.Intent)
	case PurposeChat:
		return pick(c.Chat)
	case PurposeFunction:
		return pick(c.Function)
	default:
		return c.Default
	}
}

// NewGateway constructs the gateway, building one backend per purpose.
// Purposes sharing identical effective configs still get their own backend
// instance; they are cheap and independently replaceable in tests.
func NewGateway(cfg GatewayConfig, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gateway{
		bindings: make(map[Purpose]binding, 3),
		logger:   logger.With("component", "llm-gateway"),
	}

	timeouts := map[Purpose]time.Duration{
		PurposeIntent:   DefaultIntentTimeout,
		PurposeChat:     DefaultChatTimeout,
		PurposeFunction: DefaultFunctionTimeout,
	}
	for purpose, timeout := range timeouts {
		backend, err := NewBackend(cfg.Effective(purpose), logger)
		if err != nil {
			return nil, fmt.Errorf("building %s backend: %w", purpose, err)
		}
		g.bindings[purpose] = binding{backend: backend, timeout: timeout}
	}
	return g, nil
}

// SetBackend replaces the backend for one purpose. Used by tests and by
// hot-reload; not safe to call concurrently with Generate.
func (g *Gateway) SetBackend(p Purpose, b Backend) {
	timeout := g.bindings[p].timeout
	if timeout == 0 {
		timeout = DefaultChatTimeout
	}
	g.bindings[p] = binding{backend: b, timeout: timeout}
}

// Backend returns the backend bound to a purpose.
func (g *Gateway) Backend(p Purpose) Backend {
	return g.bindings[p].backend
}

// Generate runs one generation call on the backend bound to req.Purpose.
// The configured timeout (or req.Timeout when set) bounds the call; on
// timeout the in-flight request is aborted and the error wraps
// ErrModelUnavailable so the router can fall back.
func (g *Gateway) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	bind, ok := g.bindings[req.Purpose]
	if !ok || bind.backend == nil {
		return nil, fmt.Errorf("no backend bound for purpose %q", req.Purpose)
	}

	timeout := bind.timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := bind.backend.Generate(callCtx, req)
	if err != nil {
		// Only a deadline on the derived context is a timeout; a canceled
		// parent context propagates as-is.
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: %s call timed out after %s", ErrModelUnavailable, req.Purpose, timeout)
		}
		return nil, err
	}
	return result, nil
}

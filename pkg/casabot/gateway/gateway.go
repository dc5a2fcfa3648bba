// Package gateway exposes a small inbound HTTP API: triggering registered
// actions via POST /webhook/{id}, plus a health endpoint. External
// automations (Home Assistant, scripts) use it to drive the same dispatch
// pipeline the chat goes through.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"casabot/pkg/casabot/actions"
	"casabot/pkg/casabot/dispatch"
	"casabot/pkg/casabot/llm"
)

// Config configures the inbound listener.
type Config struct {
	Addr        string        `yaml:"addr"`
	APIKey      string        `yaml:"api_key"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// Executor is the dispatch surface the gateway needs. Satisfied by
// dispatch.Executor.
type Executor interface {
	Execute(ctx context.Context, call *llm.FunctionCall, params map[string]string, sourceText string) dispatch.Result
}

// Server is the inbound HTTP gateway.
type Server struct {
	cfg      Config
	registry *actions.Registry
	executor Executor
	server   *http.Server
	logger   *slog.Logger
}

// New creates the gateway server.
func New(cfg Config, registry *actions.Registry, executor Executor, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8765"
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	return &Server{
		cfg:      cfg,
		registry: registry,
		executor: executor,
		logger:   logger.With("component", "gateway"),
	}
}

// Handler builds the routed, middleware-wrapped handler. Exposed for
// tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/webhook/", s.handleWebhook)
	return s.securityHeaders(s.auth(mux))
}

// Start runs the listener in the background.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:        s.cfg.Addr,
		Handler:     s.Handler(),
		ReadTimeout: s.cfg.ReadTimeout,
	}

	if s.cfg.APIKey == "" {
		s.logger.Warn("gateway running without an API key, anyone who can reach it can trigger actions",
			"addr", s.cfg.Addr)
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("gateway server error", "error", err)
		}
	}()
	s.logger.Info("gateway started", "addr", s.cfg.Addr)
	return nil
}

// Stop shuts the listener down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"actions": len(s.registry.List()),
	})
}

// handleWebhook triggers the action named in the path with the JSON body
// as its parameters. The body goes through the same validation as chat
// dispatches.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/webhook/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "unknown webhook path")
		return
	}

	def, ok := s.registry.Find(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown action %q", id))
		return
	}

	params, err := decodeParams(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report := actions.Validate(s.registry, def.ID, params)
	if !report.Valid {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"success": false,
			"error":   report.UserMessage(),
		})
		return
	}

	result := s.executor.Execute(r.Context(), &llm.FunctionCall{
		Target:     llm.TargetRemoteWebhook,
		ActionID:   def.ID,
		Parameters: params,
	}, params, "inbound webhook "+id)

	status := http.StatusOK
	if result.Outcome != dispatch.OutcomeSuccess {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]any{
		"success": result.Outcome == dispatch.OutcomeSuccess,
		"message": result.UserMessage,
	})
}

// decodeParams reads a flat JSON object into string parameters. Numbers
// and booleans are stringified so callers can send them naturally.
func decodeParams(body io.Reader) (map[string]string, error) {
	data, err := io.ReadAll(io.LimitReader(body, 64*1024))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if len(data) == 0 {
		return map[string]string{}, nil
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("body must be a JSON object: %w", err)
	}
	return llm.FlattenParams(raw), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"casabot/pkg/casabot/actions"
	"casabot/pkg/casabot/llm"
)

type stubInvoker struct {
	reply string
	err   error
	panic bool

	gotName string
	gotArgs string
}

func (s *stubInvoker) Invoke(ctx context.Context, name, args string) (string, error) {
	s.gotName = name
	s.gotArgs = args
	if s.panic {
		panic("handler exploded")
	}
	return s.reply, s.err
}

func testRegistry(t *testing.T) *actions.Registry {
	t.Helper()
	reg := actions.NewRegistry(slog.Default())
	reg.Register(&actions.Definition{
		ID:            "area_control",
		ExternalAlias: "area-ctl-9f2",
		Kind:          actions.KindRemoteWebhook,
		Description:   "Switch lights in an area on or off",
		Params: map[string]actions.ParamSpec{
			"area": {Required: true, AllowedValues: []string{"office", "room"}},
			"turn": {Required: true, AllowedValues: []string{"on", "off"}},
		},
	})
	return reg
}

func TestExecuteWebhookSuccess(t *testing.T) {
	var gotPath, gotSecret string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotSecret = r.Header.Get(SecretHeader)
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"office lights are on"}`))
	}))
	defer srv.Close()

	wc := NewWebhookClient(WebhookConfig{BaseURL: srv.URL, Secret: "s3cret"}, slog.Default())
	exec := NewExecutor(testRegistry(t), nil, wc, nil, slog.Default())

	call := &llm.FunctionCall{Target: llm.TargetRemoteWebhook, ActionID: "area_control"}
	params := map[string]string{"area": "office", "turn": "on"}
	res := exec.Execute(context.Background(), call, params, "turn on the office lights")

	if res.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %s, want success (msg: %s)", res.Outcome, res.UserMessage)
	}
	if res.UserMessage != "office lights are on" {
		t.Errorf("user message = %q, want controller message", res.UserMessage)
	}
	if gotPath != "/webhook/area-ctl-9f2" {
		t.Errorf("posted to %q, want the external alias path", gotPath)
	}
	if gotSecret != "s3cret" {
		t.Errorf("secret header = %q", gotSecret)
	}
	if gotBody["area"] != "office" || gotBody["turn"] != "on" {
		t.Errorf("posted body = %v", gotBody)
	}
}

func TestExecuteWebhookNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown webhook", http.StatusNotFound)
	}))
	defer srv.Close()

	wc := NewWebhookClient(WebhookConfig{BaseURL: srv.URL}, slog.Default())
	exec := NewExecutor(testRegistry(t), nil, wc, nil, slog.Default())

	call := &llm.FunctionCall{Target: llm.TargetRemoteWebhook, ActionID: "area_control"}
	res := exec.Execute(context.Background(), call, map[string]string{"area": "office", "turn": "on"}, "")

	if res.Outcome != OutcomeFailure {
		t.Fatalf("outcome = %s, want failure", res.Outcome)
	}
	if !strings.Contains(res.UserMessage, "home controller") {
		t.Errorf("user message = %q, want a readable controller error", res.UserMessage)
	}
}

func TestExecuteWebhookConnectionRefused(t *testing.T) {
	// A server that is already closed refuses connections.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	wc := NewWebhookClient(WebhookConfig{BaseURL: srv.URL}, slog.Default())
	exec := NewExecutor(testRegistry(t), nil, wc, nil, slog.Default())

	call := &llm.FunctionCall{Target: llm.TargetRemoteWebhook, ActionID: "area_control"}
	res := exec.Execute(context.Background(), call, nil, "")

	if res.Outcome != OutcomeFailure {
		t.Fatalf("outcome = %s, want failure", res.Outcome)
	}
}

func TestExecuteWebhookUnknownAction(t *testing.T) {
	exec := NewExecutor(testRegistry(t), nil, NewWebhookClient(WebhookConfig{BaseURL: "http://localhost:1"}, nil), nil, slog.Default())

	call := &llm.FunctionCall{Target: llm.TargetRemoteWebhook, ActionID: "nope"}
	res := exec.Execute(context.Background(), call, nil, "")
	if res.Outcome != OutcomeFailure {
		t.Fatalf("outcome = %s, want failure for unknown action", res.Outcome)
	}
	if !strings.Contains(res.UserMessage, "nope") {
		t.Errorf("user message = %q, want action name in it", res.UserMessage)
	}
}

func TestExecuteCommand(t *testing.T) {
	inv := &stubInvoker{reply: "pong"}
	exec := NewExecutor(testRegistry(t), inv, nil, nil, slog.Default())

	call := &llm.FunctionCall{Target: llm.TargetLocalCommand, ActionID: "ping", ArgsText: "now"}
	res := exec.Execute(context.Background(), call, nil, "!ping now")

	if res.Outcome != OutcomeSuccess || res.UserMessage != "pong" {
		t.Fatalf("got %+v", res)
	}
	if inv.gotName != "ping" || inv.gotArgs != "now" {
		t.Errorf("invoked %q(%q)", inv.gotName, inv.gotArgs)
	}
}

func TestExecuteCommandError(t *testing.T) {
	inv := &stubInvoker{err: errors.New("city not found")}
	exec := NewExecutor(testRegistry(t), inv, nil, nil, slog.Default())

	call := &llm.FunctionCall{Target: llm.TargetLocalCommand, ActionID: "weather"}
	res := exec.Execute(context.Background(), call, nil, "")
	if res.Outcome != OutcomeFailure {
		t.Fatalf("outcome = %s, want failure", res.Outcome)
	}
	if !strings.Contains(res.UserMessage, "city not found") {
		t.Errorf("user message = %q, want underlying error text", res.UserMessage)
	}
}

func TestExecuteCommandPanicContained(t *testing.T) {
	inv := &stubInvoker{panic: true}
	exec := NewExecutor(testRegistry(t), inv, nil, nil, slog.Default())

	call := &llm.FunctionCall{Target: llm.TargetLocalCommand, ActionID: "boom"}
	res := exec.Execute(context.Background(), call, nil, "")

	if res.Outcome != OutcomeFailure {
		t.Fatalf("outcome = %s, want failure after panic", res.Outcome)
	}
	if !strings.Contains(res.Raw, "panic") {
		t.Errorf("raw = %q, want panic detail", res.Raw)
	}
}

func TestAuditRecordsBothOutcomes(t *testing.T) {
	audit, err := OpenAuditLog(filepath.Join(t.TempDir(), "audit.db"), slog.Default())
	if err != nil {
		t.Fatalf("opening audit log: %v", err)
	}
	defer audit.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"ok"}`))
	}))
	defer srv.Close()

	wc := NewWebhookClient(WebhookConfig{BaseURL: srv.URL}, slog.Default())
	inv := &stubInvoker{err: errors.New("no such command")}
	exec := NewExecutor(testRegistry(t), inv, wc, audit, slog.Default())

	exec.Execute(context.Background(), &llm.FunctionCall{Target: llm.TargetRemoteWebhook, ActionID: "area_control"},
		map[string]string{"area": "room", "turn": "off"}, "lights off in the room")
	exec.Execute(context.Background(), &llm.FunctionCall{Target: llm.TargetLocalCommand, ActionID: "frobnicate"}, nil, "!frobnicate")

	entries, err := audit.Recent(10)
	if err != nil {
		t.Fatalf("reading audit log: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d audit entries, want 2", len(entries))
	}

	byAction := map[string]AuditEntry{}
	for _, e := range entries {
		byAction[e.ActionID] = e
	}
	if e := byAction["area_control"]; e.Outcome != string(OutcomeSuccess) {
		t.Errorf("area_control outcome = %q, want success", e.Outcome)
	}
	if !strings.Contains(byAction["area_control"].ParamsJSON, `"area":"room"`) {
		t.Errorf("params not persisted: %s", byAction["area_control"].ParamsJSON)
	}
	if e := byAction["frobnicate"]; e.Outcome != string(OutcomeFailure) {
		t.Errorf("frobnicate outcome = %q, want failure", e.Outcome)
	}
}

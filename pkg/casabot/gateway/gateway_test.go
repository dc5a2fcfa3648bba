package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"casabot/pkg/casabot/actions"
	"casabot/pkg/casabot/dispatch"
	"casabot/pkg/casabot/llm"
)

type fakeExecutor struct {
	calls  int
	last   *llm.FunctionCall
	result dispatch.Result
}

func (f *fakeExecutor) Execute(ctx context.Context, call *llm.FunctionCall, params map[string]string, sourceText string) dispatch.Result {
	f.calls++
	f.last = call
	return f.result
}

func testServer(t *testing.T, apiKey string) (*Server, *fakeExecutor) {
	t.Helper()
	reg := actions.NewRegistry(slog.Default())
	reg.Register(&actions.Definition{
		ID:            "area_control",
		ExternalAlias: "area-ctl",
		Kind:          actions.KindRemoteWebhook,
		Params: map[string]actions.ParamSpec{
			"area": {Required: true, AllowedValues: []string{"office", "room"}},
			"turn": {Required: true, AllowedValues: []string{"on", "off"}},
		},
	})

	exec := &fakeExecutor{result: dispatch.Result{Outcome: dispatch.OutcomeSuccess, UserMessage: "done"}}
	return New(Config{APIKey: apiKey}, reg, exec, slog.Default()), exec
}

func doRequest(t *testing.T, h http.Handler, method, path, key, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set(APIKeyHeader, key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWebhookDispatch(t *testing.T) {
	s, exec := testServer(t, "")
	rec := doRequest(t, s.Handler(), http.MethodPost, "/webhook/area_control", "",
		`{"area":"office","turn":"off"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Message != "done" {
		t.Errorf("resp = %+v", resp)
	}
	if exec.calls != 1 || exec.last.ActionID != "area_control" {
		t.Errorf("executor calls = %d, last = %+v", exec.calls, exec.last)
	}
}

func TestWebhookByAlias(t *testing.T) {
	s, exec := testServer(t, "")
	rec := doRequest(t, s.Handler(), http.MethodPost, "/webhook/area-ctl", "",
		`{"area":"room","turn":"on"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if exec.last.ActionID != "area_control" {
		t.Errorf("alias did not resolve: %+v", exec.last)
	}
}

func TestAuthRequired(t *testing.T) {
	s, exec := testServer(t, "sekrit")
	h := s.Handler()

	if rec := doRequest(t, h, http.MethodPost, "/webhook/area_control", "", `{}`); rec.Code != http.StatusUnauthorized {
		t.Errorf("no key: status = %d, want 401", rec.Code)
	}
	if rec := doRequest(t, h, http.MethodPost, "/webhook/area_control", "wrong", `{}`); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: status = %d, want 401", rec.Code)
	}
	if exec.calls != 0 {
		t.Fatalf("executor called despite auth failure")
	}

	rec := doRequest(t, h, http.MethodPost, "/webhook/area_control", "sekrit",
		`{"area":"office","turn":"on"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("valid key: status = %d", rec.Code)
	}

	// Health stays public.
	if rec := doRequest(t, h, http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Errorf("health: status = %d", rec.Code)
	}
}

func TestUnknownAction(t *testing.T) {
	s, exec := testServer(t, "")
	rec := doRequest(t, s.Handler(), http.MethodPost, "/webhook/nope", "", `{}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if exec.calls != 0 {
		t.Error("executor called for unknown action")
	}
}

func TestValidationError(t *testing.T) {
	s, exec := testServer(t, "")
	rec := doRequest(t, s.Handler(), http.MethodPost, "/webhook/area_control", "",
		`{"turn":"off"}`)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if exec.calls != 0 {
		t.Fatal("executor called despite validation failure")
	}
	if body := rec.Body.String(); !strings.Contains(body, "area") {
		t.Errorf("body %q should name the missing parameter", body)
	}
}

func TestBadBody(t *testing.T) {
	s, _ := testServer(t, "")
	rec := doRequest(t, s.Handler(), http.MethodPost, "/webhook/area_control", "", `[1,2,3]`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDispatchFailureMapsTo502(t *testing.T) {
	s, exec := testServer(t, "")
	exec.result = dispatch.Result{Outcome: dispatch.OutcomeFailure, UserMessage: "controller down"}

	rec := doRequest(t, s.Handler(), http.MethodPost, "/webhook/area_control", "",
		`{"area":"office","turn":"on"}`)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := testServer(t, "")
	rec := doRequest(t, s.Handler(), http.MethodGet, "/webhook/area_control", "", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

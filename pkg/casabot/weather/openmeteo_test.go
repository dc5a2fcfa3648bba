package weather

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("name") == "Nowhere" {
			w.Write([]byte(`{"results":[]}`))
			return
		}
		w.Write([]byte(`{"results":[{"name":"Lisbon","country":"Portugal","latitude":38.72,"longitude":-9.14}]}`))
	})
	mux.HandleFunc("/v1/forecast", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"current":{"temperature_2m":21.4,"wind_speed_10m":13.0,"weather_code":2}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return NewClientWithEndpoints(srv.URL+"/v1/search", srv.URL+"/v1/forecast", slog.Default())
}

func TestSummary(t *testing.T) {
	c := testClient(t)
	got, err := c.Summary(context.Background(), "Lisbon")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	for _, want := range []string{"Lisbon", "Portugal", "partly cloudy", "21.4"} {
		if !strings.Contains(got, want) {
			t.Errorf("summary %q missing %q", got, want)
		}
	}
}

func TestGeocodeNoResults(t *testing.T) {
	c := testClient(t)
	if _, err := c.Geocode(context.Background(), "Nowhere"); err == nil {
		t.Fatal("expected error for unknown city")
	}
}

func TestDescribeCode(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{0, "clear sky"},
		{3, "overcast"},
		{63, "rain"},
		{95, "thunderstorm"},
		{42, "unknown conditions"},
	}
	for _, tt := range tests {
		if got := describeCode(tt.code); got != tt.want {
			t.Errorf("describeCode(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

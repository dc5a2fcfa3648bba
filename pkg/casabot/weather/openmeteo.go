// Package weather fetches current conditions from the Open-Meteo public
// API. Used by the !weather command and the daily forecast digests.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultGeocodeURL  = "https://geocoding-api.open-meteo.com/v1/search"
	defaultForecastURL = "https://api.open-meteo.com/v1/forecast"
)

// Location is a geocoded place.
type Location struct {
	Name      string
	Country   string
	Latitude  float64
	Longitude float64
}

// Report holds current conditions for a location.
type Report struct {
	Location    Location
	Temperature float64 // °C
	WindSpeed   float64 // km/h
	Code        int
	Description string
}

// Client talks to the Open-Meteo geocoding and forecast endpoints.
// Both are keyless public APIs.
type Client struct {
	geocodeURL  string
	forecastURL string
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient creates a weather client with sane timeouts.
func NewClient(logger *slog.Logger) *Client {
	return NewClientWithEndpoints(defaultGeocodeURL, defaultForecastURL, logger)
}

// NewClientWithEndpoints creates a client against custom API endpoints.
// Used with local mirrors and in tests.
func NewClientWithEndpoints(geocodeURL, forecastURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		geocodeURL:  geocodeURL,
		forecastURL: forecastURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		logger:      logger.With("component", "weather"),
	}
}

// Geocode resolves a city name to coordinates using the first match.
func (c *Client) Geocode(ctx context.Context, city string) (Location, error) {
	q := url.Values{}
	q.Set("name", city)
	q.Set("count", "1")

	var out struct {
		Results []struct {
			Name      string  `json:"name"`
			Country   string  `json:"country"`
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"results"`
	}
	if err := c.getJSON(ctx, c.geocodeURL+"?"+q.Encode(), &out); err != nil {
		return Location{}, fmt.Errorf("geocoding %q: %w", city, err)
	}
	if len(out.Results) == 0 {
		return Location{}, fmt.Errorf("no location found for %q", city)
	}
	r := out.Results[0]
	return Location{Name: r.Name, Country: r.Country, Latitude: r.Latitude, Longitude: r.Longitude}, nil
}

// Current fetches current conditions for a geocoded location.
func (c *Client) Current(ctx context.Context, loc Location) (Report, error) {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", loc.Latitude))
	q.Set("longitude", fmt.Sprintf("%.4f", loc.Longitude))
	q.Set("current", "temperature_2m,wind_speed_10m,weather_code")

	var out struct {
		Current struct {
			Temperature float64 `json:"temperature_2m"`
			WindSpeed   float64 `json:"wind_speed_10m"`
			Code        int     `json:"weather_code"`
		} `json:"current"`
	}
	if err := c.getJSON(ctx, c.forecastURL+"?"+q.Encode(), &out); err != nil {
		return Report{}, fmt.Errorf("fetching forecast for %s: %w", loc.Name, err)
	}

	return Report{
		Location:    loc,
		Temperature: out.Current.Temperature,
		WindSpeed:   out.Current.WindSpeed,
		Code:        out.Current.Code,
		Description: describeCode(out.Current.Code),
	}, nil
}

// Summary geocodes a city and formats current conditions as a chat line.
func (c *Client) Summary(ctx context.Context, city string) (string, error) {
	loc, err := c.Geocode(ctx, city)
	if err != nil {
		return "", err
	}
	rep, err := c.Current(ctx, loc)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s, %s: %s, %.1f°C, wind %.0f km/h",
		rep.Location.Name, rep.Location.Country, rep.Description, rep.Temperature, rep.WindSpeed), nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// describeCode maps WMO weather interpretation codes to short phrases.
func describeCode(code int) string {
	switch {
	case code == 0:
		return "clear sky"
	case code <= 2:
		return "partly cloudy"
	case code == 3:
		return "overcast"
	case code == 45 || code == 48:
		return "foggy"
	case code >= 51 && code <= 57:
		return "drizzle"
	case code >= 61 && code <= 67:
		return "rain"
	case code >= 71 && code <= 77:
		return "snow"
	case code >= 80 && code <= 82:
		return "rain showers"
	case code == 85 || code == 86:
		return "snow showers"
	case code >= 95:
		return "thunderstorm"
	default:
		return "unknown conditions"
	}
}

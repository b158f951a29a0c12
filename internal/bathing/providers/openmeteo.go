package providers

import (
	"context"
	"fmt"
	"net/url"

	"github.com/i474232898/havet-arena/internal/transport"
)

const (
	// DefaultForecastURL is the Open-Meteo forecast endpoint.
	DefaultForecastURL = "https://api.open-meteo.com/v1/forecast"
	defaultTimezone    = "Europe/Oslo"
)

// OpenMeteo implements bathing.AirTemperatureSource.
type OpenMeteo struct {
	baseURL  string
	site     Site
	timezone string
	client   *transport.Client
}

func NewOpenMeteo(baseURL string, site Site, timezone string, client *transport.Client) *OpenMeteo {
	if baseURL == "" {
		baseURL = DefaultForecastURL
	}
	if timezone == "" {
		timezone = defaultTimezone
	}
	return &OpenMeteo{baseURL: baseURL, site: site, timezone: timezone, client: client}
}

func (p *OpenMeteo) Name() string {
	return p.client.Name()
}

// AirTemperature returns current.temperature_2m at the site.
func (p *OpenMeteo) AirTemperature(ctx context.Context) (float64, error) {
	values := url.Values{}
	values.Set("latitude", formatCoord(p.site.Lat))
	values.Set("longitude", formatCoord(p.site.Lon))
	values.Set("current", "temperature_2m")
	values.Set("timezone", p.timezone)

	var payload struct {
		Current struct {
			Temperature2m *float64 `json:"temperature_2m"`
			Time          string   `json:"time"`
		} `json:"current"`
	}

	u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
	if err := p.client.GetJSON(ctx, u, &payload); err != nil {
		return 0, err
	}
	if payload.Current.Temperature2m == nil {
		return 0, fmt.Errorf("openmeteo: %w", ErrNoReading)
	}
	return *payload.Current.Temperature2m, nil
}

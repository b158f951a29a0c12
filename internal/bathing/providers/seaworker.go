package providers

import (
	"context"
	"fmt"
	"net/url"

	"github.com/i474232898/havet-arena/internal/bathing"
	"github.com/i474232898/havet-arena/internal/transport"
)

// DefaultSeaWorkerURL is the aggregator worker for sea temperature.
const DefaultSeaWorkerURL = "https://bading.nytroe.workers.dev/"

// SeaWorker reads now.sea_water_temperature from the aggregator worker.
type SeaWorker struct {
	url    string
	site   Site
	client *transport.Client
}

func NewSeaWorker(baseURL string, site Site, client *transport.Client) *SeaWorker {
	if baseURL == "" {
		baseURL = DefaultSeaWorkerURL
	}
	return &SeaWorker{url: baseURL, site: site, client: client}
}

func (s *SeaWorker) Name() string {
	return s.client.Name()
}

func (s *SeaWorker) target() (string, error) {
	u, err := url.Parse(s.url)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("lat", formatCoord(s.site.Lat))
	q.Set("lon", formatCoord(s.site.Lon))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *SeaWorker) Reading(ctx context.Context) bathing.Outcome {
	target, err := s.target()
	if err != nil {
		return bathing.Failure(fmt.Errorf("build %s url: %w", s.Name(), err))
	}

	var payload struct {
		Now struct {
			SeaWaterTemperature any `json:"sea_water_temperature"`
		} `json:"now"`
	}
	if err := s.client.GetJSON(ctx, target, &payload); err != nil {
		return bathing.Failure(err)
	}

	return classify(payload.Now.SeaWaterTemperature)
}

// classify turns an extracted JSON value into an outcome: null is a data-shape
// failure, a number is a value and anything else is skipped.
func classify(v any) bathing.Outcome {
	switch t := v.(type) {
	case nil:
		return bathing.Failure(ErrNoReading)
	case float64:
		return bathing.Value(t)
	default:
		return bathing.Skip(fmt.Sprintf("temperature is %T, not a number", v))
	}
}

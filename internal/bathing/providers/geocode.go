package providers

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/kelvins/geocoder"
)

// SiteAddress describes the site when no coordinates are configured.
type SiteAddress struct {
	Street  string
	City    string
	Country string
}

// geocode is swapped in tests.
var geocode = func(addr geocoder.Address) (geocoder.Location, error) {
	return geocoder.Geocoding(addr)
}

var geocoderMu sync.Mutex

var errNoGeocoderKey = errors.New("geocoder api key not configured")

// LocateSite returns fallback when it already holds coordinates. Otherwise the address
// is geocoded, which requires apiKey.
func LocateSite(ctx context.Context, fallback *Site, addr SiteAddress, apiKey string, logger *slog.Logger) (Site, error) {
	if fallback != nil {
		return *fallback, nil
	}
	if apiKey == "" {
		return Site{}, errNoGeocoderKey
	}
	if err := ctx.Err(); err != nil {
		return Site{}, err
	}

	// The geocoder keeps its key in a package variable.
	geocoderMu.Lock()
	geocoder.ApiKey = apiKey
	loc, err := geocode(geocoder.Address{
		Street:  addr.Street,
		City:    addr.City,
		Country: addr.Country,
	})
	geocoderMu.Unlock()
	if err != nil {
		return Site{}, err
	}

	logger.Info("site located from address", "city", addr.City, "lat", loc.Latitude, "lon", loc.Longitude)
	return Site{Lat: loc.Latitude, Lon: loc.Longitude}, nil
}

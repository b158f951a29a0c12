package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/kelvins/geocoder"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/havet-arena/internal/bathing"
	"github.com/i474232898/havet-arena/internal/logger"
	"github.com/i474232898/havet-arena/internal/transport"
)

var testSite = Site{Lat: 63.44181, Lon: 10.42506}

func testClient(name string, srv *httptest.Server) *transport.Client {
	return transport.NewClient(transport.Config{
		Name:       name,
		HTTPClient: srv.Client(),
		Retry:      transport.RetryPolicy{Attempts: 1, InitialDelay: time.Millisecond},
		Timeout:    time.Second,
	})
}

func jsonServer(t *testing.T, body string, seen *url.URL) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			*seen = *r.URL
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBacteriaWorkerDecodesWeeks(t *testing.T) {
	srv := jsonServer(t, `{"weeks":{
		"40":{"value":{"number":200,"isEstimate":false},"raw":"200"},
		"41":{"week":41,"value":{"number":1500},"raw":"1500"},
		"42":{"value":{"number":null}},
		"notes":{"raw":"ignored"}
	}}`, nil)

	ds, err := NewBacteriaWorker(srv.URL, testClient("bacteria", srv), logger.Discard()).FetchWeeks(context.Background())

	require.NoError(t, err)
	require.Len(t, ds, 3)
	require.Equal(t, 40, ds[40].Week)
	require.Equal(t, 1500.0, *ds[41].Value.Number)
	require.False(t, ds[42].Available())

	res := bathing.Reconcile(ds, bathing.WeekYear{Week: 42, Year: 2025})
	require.Equal(t, 41, res.ActualWeek)
}

func TestBacteriaWorkerSkipsMalformedWeeks(t *testing.T) {
	srv := jsonServer(t, `{"weeks":{
		"39":{"value":{"number":"n/a"},"raw":350},
		"40":17,
		"41":{"value":{"number":1500},"raw":"1500"}
	}}`, nil)

	ds, err := NewBacteriaWorker(srv.URL, testClient("bacteria", srv), logger.Discard()).FetchWeeks(context.Background())

	require.NoError(t, err)
	require.Len(t, ds, 1)
	require.Equal(t, 1500.0, *ds[41].Value.Number)

	res := bathing.Reconcile(ds, bathing.WeekYear{Week: 41, Year: 2025})
	require.Equal(t, bathing.MatchExact, res.Match)
}

func TestBacteriaWorkerRejectsEmptyWeeks(t *testing.T) {
	for name, body := range map[string]string{
		"missing": `{}`,
		"empty":   `{"weeks":{}}`,
		"broken":  `{"weeks":{"41":{"value":{"number":"n/a"}},"42":"x"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := jsonServer(t, body, nil)
			_, err := NewBacteriaWorker(srv.URL, testClient("bacteria", srv), logger.Discard()).FetchWeeks(context.Background())
			require.ErrorIs(t, err, ErrNoWeeks)
		})
	}
}

func TestBacteriaWorkerStatusFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewBacteriaWorker(srv.URL, testClient("bacteria", srv), logger.Discard()).FetchWeeks(context.Background())

	var statusErr *transport.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusBadGateway, statusErr.Code)
}

func TestSeaWorkerReading(t *testing.T) {
	cases := []struct {
		name string
		body string
		kind bathing.OutcomeKind
	}{
		{"number", `{"now":{"sea_water_temperature":12.6}}`, bathing.OutcomeValue},
		{"null", `{"now":{"sea_water_temperature":null}}`, bathing.OutcomeFailure},
		{"missing", `{"later":{}}`, bathing.OutcomeFailure},
		{"string", `{"now":{"sea_water_temperature":"warm"}}`, bathing.OutcomeSkip},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var seen url.URL
			srv := jsonServer(t, tc.body, &seen)

			out := NewSeaWorker(srv.URL, testSite, testClient("worker", srv)).Reading(context.Background())

			require.Equal(t, tc.kind, out.Kind)
			require.Equal(t, "63.44181", seen.Query().Get("lat"))
			require.Equal(t, "10.42506", seen.Query().Get("lon"))
			if tc.kind == bathing.OutcomeValue {
				require.Equal(t, 12.6, out.Value)
			}
		})
	}
}

func TestExtractTemperatureRules(t *testing.T) {
	cases := []struct {
		name string
		body string
		want any
		rule string
	}{
		{"variables data", `{"variables":[{"data":[{"value":11.5}],"value":3}]}`, 11.5, "variables[0].data[0].value"},
		{"variables value", `{"variables":[{"data":[],"value":9.25}]}`, 9.25, "variables[0].value"},
		{"query point", `{"queryPoint":{"temperature":8}}`, 8.0, "queryPoint.temperature"},
		{"grid point values", `{"closestGridPointWithData":{"values":[7.5,7.9]}}`, 7.5, "closestGridPointWithData.values[0]"},
		{"flat", `{"temp":6.1}`, 6.1, "temp"},
		{"nested data", `{"data":{"value":5.5}}`, 5.5, "data.value"},
		{"zero is a value", `{"current":{"temperature":0}}`, 0.0, "current.temperature"},
		{"array", `[{"temperature":4.4}]`, 4.4, "[0].temperature"},
		{"null falls through", `{"temperature":null,"value":3.3}`, 3.3, "value"},
		{"nothing", `{"other":1}`, nil, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var doc any
			require.NoError(t, json.Unmarshal([]byte(tc.body), &doc))

			got, rule := extractTemperature(doc)
			require.Equal(t, tc.want, got)
			require.Equal(t, tc.rule, rule)
		})
	}
}

func TestHavvarselDirectAndProxy(t *testing.T) {
	var seen url.URL
	srv := jsonServer(t, `{"variables":[{"data":[{"value":14.2}]}]}`, &seen)

	direct := NewHavvarselDirect(srv.URL+"/projection", testSite, testClient("havvarsel", srv))
	out := direct.Reading(context.Background())
	require.Equal(t, bathing.OutcomeValue, out.Kind)
	require.Equal(t, 14.2, out.Value)
	require.Equal(t, "/projection/10.42506/63.44181", seen.Path)

	proxy := NewHavvarselProxy(srv.URL+"/raw", "https://api.example.test/projection", testSite, testClient("proxy", srv))
	out = proxy.Reading(context.Background())
	require.Equal(t, bathing.OutcomeValue, out.Kind)
	require.Equal(t, "/raw", seen.Path)
	require.Equal(t, "https://api.example.test/projection/10.42506/63.44181", seen.Query().Get("url"))
}

func TestHavvarselNonNumericIsSkipped(t *testing.T) {
	srv := jsonServer(t, `{"temperature":"n/a"}`, nil)

	out := NewHavvarselDirect(srv.URL, testSite, testClient("havvarsel", srv)).Reading(context.Background())

	require.Equal(t, bathing.OutcomeSkip, out.Kind)
}

func TestSeaSourcesFallBackInOrder(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()
	srv := jsonServer(t, `{"closestGridPoint":{"temperature":13.1}}`, nil)

	resolver := bathing.NewResolver(logger.Discard(),
		NewSeaWorker(failing.URL, testSite, testClient("worker", failing)),
		NewHavvarselDirect(failing.URL, testSite, testClient("havvarsel", failing)),
		NewHavvarselProxy(srv.URL, "", testSite, testClient("proxy", srv)),
	)

	v, ok := resolver.Resolve(context.Background())
	require.True(t, ok)
	require.Equal(t, 13.1, v)
}

func TestOpenMeteoAirTemperature(t *testing.T) {
	var seen url.URL
	srv := jsonServer(t, `{"current":{"time":"2025-10-09T12:00","temperature_2m":7.4}}`, &seen)

	temp, err := NewOpenMeteo(srv.URL, testSite, "", testClient("openmeteo", srv)).AirTemperature(context.Background())

	require.NoError(t, err)
	require.Equal(t, 7.4, temp)
	require.Equal(t, "temperature_2m", seen.Query().Get("current"))
	require.Equal(t, "Europe/Oslo", seen.Query().Get("timezone"))
	require.Equal(t, "63.44181", seen.Query().Get("latitude"))
}

func TestOpenMeteoMissingTemperature(t *testing.T) {
	srv := jsonServer(t, `{"current":{}}`, nil)

	_, err := NewOpenMeteo(srv.URL, testSite, "", testClient("openmeteo", srv)).AirTemperature(context.Background())

	require.ErrorIs(t, err, ErrNoReading)
}

func TestLocateSite(t *testing.T) {
	orig := geocode
	t.Cleanup(func() { geocode = orig })

	var asked geocoder.Address
	geocode = func(addr geocoder.Address) (geocoder.Location, error) {
		asked = addr
		return geocoder.Location{Latitude: 63.4, Longitude: 10.4}, nil
	}

	fixed := testSite
	site, err := LocateSite(context.Background(), &fixed, SiteAddress{}, "", logger.Discard())
	require.NoError(t, err)
	require.Equal(t, testSite, site)

	_, err = LocateSite(context.Background(), nil, SiteAddress{City: "Trondheim"}, "", logger.Discard())
	require.ErrorIs(t, err, errNoGeocoderKey)

	site, err = LocateSite(context.Background(), nil, SiteAddress{Street: "Nyhavna", City: "Trondheim", Country: "Norway"}, "key", logger.Discard())
	require.NoError(t, err)
	require.Equal(t, Site{Lat: 63.4, Lon: 10.4}, site)
	require.Equal(t, "Trondheim", asked.City)

	geocode = func(addr geocoder.Address) (geocoder.Location, error) {
		return geocoder.Location{}, errors.New("zero results")
	}
	_, err = LocateSite(context.Background(), nil, SiteAddress{City: "Nowhere"}, "key", logger.Discard())
	require.EqualError(t, err, "zero results")
}

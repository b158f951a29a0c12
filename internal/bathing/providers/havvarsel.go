package providers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/i474232898/havet-arena/internal/bathing"
	"github.com/i474232898/havet-arena/internal/transport"
)

const (
	// DefaultHavvarselURL is the temperature projection endpoint; lon and lat are appended.
	DefaultHavvarselURL = "https://api.havvarsel.no/apis/duapi/havvarsel/v2/temperatureprojection"
	// DefaultCORSProxyURL relays a target URL passed in its url query parameter.
	DefaultCORSProxyURL = "https://api.allorigins.win/raw"
)

// extractionRule names one place a temperature may live in a havvarsel payload.
// Path elements are object keys (string) or array indexes (int).
type extractionRule struct {
	name string
	path []any
}

var havvarselRules = buildHavvarselRules()

func buildHavvarselRules() []extractionRule {
	rules := []extractionRule{
		{"variables[0].data[0].value", []any{"variables", 0, "data", 0, "value"}},
		{"variables[0].value", []any{"variables", 0, "value"}},
	}
	for _, point := range []string{"queryPoint", "closestGridPoint", "closestGridPointWithData"} {
		rules = append(rules,
			extractionRule{point + ".temperature", []any{point, "temperature"}},
			extractionRule{point + ".values[0]", []any{point, "values", 0}},
		)
	}
	return append(rules,
		extractionRule{"temperature", []any{"temperature"}},
		extractionRule{"temp", []any{"temp"}},
		extractionRule{"value", []any{"value"}},
		extractionRule{"current.temperature", []any{"current", "temperature"}},
		extractionRule{"current.temp", []any{"current", "temp"}},
		extractionRule{"data.temperature", []any{"data", "temperature"}},
		extractionRule{"data.temp", []any{"data", "temp"}},
		extractionRule{"data.value", []any{"data", "value"}},
		extractionRule{"[0].temperature", []any{0, "temperature"}},
	)
}

// lookup walks path through a decoded JSON document. Missing keys, out of range
// indexes and type mismatches yield nil.
func lookup(doc any, path []any) any {
	cur := doc
	for _, step := range path {
		switch key := step.(type) {
		case string:
			obj, ok := cur.(map[string]any)
			if !ok {
				return nil
			}
			cur = obj[key]
		case int:
			arr, ok := cur.([]any)
			if !ok || key < 0 || key >= len(arr) {
				return nil
			}
			cur = arr[key]
		default:
			return nil
		}
		if cur == nil {
			return nil
		}
	}
	return cur
}

// extractTemperature applies the rules in order and returns the first non-null
// value with the rule that found it.
func extractTemperature(doc any) (any, string) {
	for _, r := range havvarselRules {
		if v := lookup(doc, r.path); v != nil {
			return v, r.name
		}
	}
	return nil, ""
}

// Havvarsel reads the sea temperature projection, either directly or through a CORS proxy.
type Havvarsel struct {
	target string
	client *transport.Client
}

func havvarselURL(base string, site Site) string {
	if base == "" {
		base = DefaultHavvarselURL
	}
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(base, "/"), formatCoord(site.Lon), formatCoord(site.Lat))
}

// NewHavvarselDirect queries the projection API itself.
func NewHavvarselDirect(baseURL string, site Site, client *transport.Client) *Havvarsel {
	return &Havvarsel{target: havvarselURL(baseURL, site), client: client}
}

// NewHavvarselProxy queries the projection API through proxyURL.
func NewHavvarselProxy(proxyURL, baseURL string, site Site, client *transport.Client) *Havvarsel {
	if proxyURL == "" {
		proxyURL = DefaultCORSProxyURL
	}
	return &Havvarsel{
		target: proxyURL + "?url=" + url.QueryEscape(havvarselURL(baseURL, site)),
		client: client,
	}
}

func (h *Havvarsel) Name() string {
	return h.client.Name()
}

// Target is the URL the source requests.
func (h *Havvarsel) Target() string {
	return h.target
}

func (h *Havvarsel) Reading(ctx context.Context) bathing.Outcome {
	var doc any
	if err := h.client.GetJSON(ctx, h.target, &doc); err != nil {
		return bathing.Failure(err)
	}

	v, _ := extractTemperature(doc)
	return classify(v)
}

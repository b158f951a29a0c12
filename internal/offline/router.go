package offline

import (
	"net/url"

	"github.com/i474232898/havet-arena/internal/common"
)

// Policy is a caching strategy for a class of requests.
type Policy int

const (
	// CacheFirstRevalidate answers from the cache and refreshes it in the background.
	CacheFirstRevalidate Policy = iota
	// NetworkFirst answers from the network and falls back to the last cached copy.
	NetworkFirst
)

func (p Policy) String() string {
	switch p {
	case NetworkFirst:
		return "network-first"
	default:
		return "cache-first-revalidate"
	}
}

// Route binds a URL predicate to a policy.
type Route struct {
	Name   string
	Match  func(u *url.URL) bool
	Policy Policy
}

// DefaultAPIFragments mark upstream API URLs.
var DefaultAPIFragments = []string{"workers.dev", "api.", "open-meteo", "havvarsel"}

// URLContains matches URLs containing any of the fragments.
func URLContains(fragments ...string) func(u *url.URL) bool {
	return func(u *url.URL) bool {
		return common.HasAny(u.String(), fragments...)
	}
}

// DefaultRoutes sends API calls network-first; everything else falls to the default route.
func DefaultRoutes(apiFragments []string) []Route {
	if len(apiFragments) == 0 {
		apiFragments = DefaultAPIFragments
	}
	return []Route{
		{Name: "api", Match: URLContains(apiFragments...), Policy: NetworkFirst},
	}
}

var defaultRoute = Route{Name: "default", Policy: CacheFirstRevalidate}

// Router picks the first route matching a URL.
type Router struct {
	routes []Route
}

func NewRouter(routes []Route) Router {
	return Router{routes: routes}
}

// Select returns the first matching route, or the cache-first default.
func (r Router) Select(u *url.URL) Route {
	for _, rt := range r.routes {
		if rt.Match != nil && rt.Match(u) {
			return rt
		}
	}
	return defaultRoute
}

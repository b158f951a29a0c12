package offline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/atomic"
)

const (
	// DefaultCacheName names the cache of the current asset generation.
	DefaultCacheName = "havet-arena-v1"

	revalidateTimeout = 30 * time.Second
)

// DefaultManifest lists the assets pre-cached on install.
var DefaultManifest = []string{"/", "/index.html", "/styles.css", "/app.js", "/manifest.json"}

// State is the agent lifecycle stage.
type State string

const (
	StateInstalling State = "installing"
	StateActivating State = "activating"
	StateActive     State = "active"
)

var errNotCached = errors.New("offline: no cached response")

// Config configures an Agent.
type Config struct {
	CacheName string
	Origin    string
	Manifest  []string
	Routes    []Route
}

// Agent intercepts GET requests and serves them through the cache policies.
// Until it is active every request goes straight to the network.
type Agent struct {
	cacheName string
	origin    string
	manifest  []string
	router    Router
	storage   *CacheStorage
	network   Network
	state     *atomic.String
	pending   sync.WaitGroup
	logger    *slog.Logger
}

func NewAgent(cfg Config, storage *CacheStorage, network Network, logger *slog.Logger) *Agent {
	if cfg.CacheName == "" {
		cfg.CacheName = DefaultCacheName
	}
	if cfg.Manifest == nil {
		cfg.Manifest = DefaultManifest
	}
	if cfg.Routes == nil {
		cfg.Routes = DefaultRoutes(nil)
	}
	return &Agent{
		cacheName: cfg.CacheName,
		origin:    strings.TrimRight(cfg.Origin, "/"),
		manifest:  cfg.Manifest,
		router:    NewRouter(cfg.Routes),
		storage:   storage,
		network:   network,
		state:     atomic.NewString(string(StateInstalling)),
		logger:    logger.With("component", "offline.agent", "cache", cfg.CacheName),
	}
}

// State returns the lifecycle stage.
func (a *Agent) State() State {
	return State(a.state.Load())
}

// AssetURL resolves a root-relative path against the origin.
func (a *Agent) AssetURL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return a.origin + path
}

// Install pre-caches the manifest. Either every asset is stored or none is.
// On success the agent activates without waiting.
func (a *Agent) Install(ctx context.Context) error {
	staged := make(map[string]Response, len(a.manifest))
	for _, path := range a.manifest {
		target := a.AssetURL(path)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return fmt.Errorf("install %s: %w", path, err)
		}

		resp, err := a.network.Fetch(ctx, req)
		if err != nil {
			return fmt.Errorf("install %s: %w", path, err)
		}
		if !resp.OK() {
			return fmt.Errorf("install %s: status %d", path, resp.Status)
		}
		if resp.Header == nil {
			resp.Header = http.Header{}
		}
		if resp.Header.Get("Content-Type") == "" {
			resp.Header.Set("Content-Type", mimetype.Detect(resp.Body).String())
		}
		staged[target] = resp
	}

	cache := a.storage.Open(a.cacheName)
	for key, resp := range staged {
		cache.Put(key, resp)
	}
	a.logger.Info("assets pre-cached", "count", len(staged))

	return a.Activate(ctx)
}

// Activate deletes every cache of an older generation and takes over request handling.
func (a *Agent) Activate(ctx context.Context) error {
	a.state.Store(string(StateActivating))

	for _, name := range a.storage.Names() {
		if name == a.cacheName {
			continue
		}
		a.storage.Delete(name)
		a.logger.Info("deleted old cache", "name", name)
	}

	a.state.Store(string(StateActive))
	a.logger.Info("offline agent active")
	return nil
}

// Handle answers req through the matching policy.
func (a *Agent) Handle(ctx context.Context, req *http.Request) (Response, error) {
	if a.State() != StateActive || req.Method != http.MethodGet {
		return a.network.Fetch(ctx, req)
	}

	route := a.router.Select(req.URL)
	switch route.Policy {
	case NetworkFirst:
		return a.networkFirst(ctx, req)
	default:
		return a.cacheFirst(ctx, req)
	}
}

func cacheKey(req *http.Request) string {
	return req.URL.String()
}

func (a *Agent) networkFirst(ctx context.Context, req *http.Request) (Response, error) {
	resp, err := a.network.Fetch(ctx, req)
	if err == nil {
		if resp.OK() {
			a.storage.Open(a.cacheName).Put(cacheKey(req), resp)
		}
		return resp, nil
	}

	cached, ok := a.storage.Match(cacheKey(req))
	if !ok {
		return Response{}, err
	}
	a.logger.Debug("network failed, serving cached copy", "url", req.URL.String(), "error", err)
	return cached, nil
}

func (a *Agent) cacheFirst(ctx context.Context, req *http.Request) (Response, error) {
	key := cacheKey(req)
	if cached, ok := a.storage.Match(key); ok {
		a.revalidate(ctx, req)
		return cached, nil
	}

	resp, err := a.network.Fetch(ctx, req)
	if err != nil {
		return Response{}, err
	}
	if resp.OK() {
		a.storage.Open(a.cacheName).Put(key, resp)
	}
	return resp, nil
}

// revalidate refreshes the cached copy of req without blocking the caller.
func (a *Agent) revalidate(ctx context.Context, req *http.Request) {
	bg := req.Clone(context.WithoutCancel(ctx))
	key := cacheKey(req)

	a.pending.Add(1)
	go func() {
		defer a.pending.Done()

		fetchCtx, cancel := context.WithTimeout(bg.Context(), revalidateTimeout)
		defer cancel()

		resp, err := a.network.Fetch(fetchCtx, bg.WithContext(fetchCtx))
		if err != nil {
			a.logger.Debug("background refresh failed", "url", key, "error", err)
			return
		}
		if !resp.OK() {
			return
		}
		a.storage.Open(a.cacheName).Put(key, resp)
	}()
}

// Wait blocks until background refreshes started so far have finished.
func (a *Agent) Wait() {
	a.pending.Wait()
}

// Match returns a cached copy of target, if any.
func (a *Agent) Match(target string) (Response, error) {
	resp, ok := a.storage.Match(target)
	if !ok {
		return Response{}, errNotCached
	}
	return resp, nil
}

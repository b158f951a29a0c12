package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/havet-arena/internal/api/http"
	"github.com/i474232898/havet-arena/internal/bathing"
	"github.com/i474232898/havet-arena/internal/bathing/providers"
	"github.com/i474232898/havet-arena/internal/config"
	"github.com/i474232898/havet-arena/internal/logger"
	"github.com/i474232898/havet-arena/internal/offline"
	"github.com/i474232898/havet-arena/internal/scheduler"
	"github.com/i474232898/havet-arena/internal/store"
	"github.com/i474232898/havet-arena/internal/transport"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logs := logger.New(cfg.LogLevel, cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Offline agent: every outbound call and every static asset goes through it.
	agent := offline.NewAgent(offline.Config{
		CacheName: cfg.Offline.CacheName,
		Origin:    cfg.Offline.Origin,
		Manifest:  cfg.Offline.Assets,
		Routes:    offline.DefaultRoutes(cfg.Offline.APIHosts),
	}, offline.NewCacheStorage(), offline.NewFastHTTPNetwork(cfg.HTTPTimeout), logs)

	if cfg.Offline.Origin != "" {
		if err := agent.Install(ctx); err != nil {
			logs.Warn("offline install failed; requests pass straight to the network", "error", err)
		}
	} else if err := agent.Activate(ctx); err != nil {
		logs.Warn("offline agent not activated", "error", err)
	}

	// Shared HTTP client for outbound source calls.
	httpClient := &http.Client{Transport: agent.RoundTripper()}
	newClient := func(name string) *transport.Client {
		return transport.NewClient(transport.Config{
			Name:       name,
			HTTPClient: httpClient,
			Retry:      transport.RetryPolicy{Attempts: cfg.RetryAttempts, InitialDelay: cfg.RetryDelay},
			Timeout:    cfg.HTTPTimeout,
		})
	}

	var fixed *providers.Site
	if cfg.Site.Lat != nil && cfg.Site.Lon != nil {
		fixed = &providers.Site{Lat: *cfg.Site.Lat, Lon: *cfg.Site.Lon}
	}
	site, err := providers.LocateSite(ctx, fixed, providers.SiteAddress{
		Street:  cfg.Site.Address,
		City:    cfg.Site.City,
		Country: cfg.Site.Country,
	}, cfg.Site.GeocoderAPIKey, logs)
	if err != nil {
		logs.Error("failed to locate site", "error", err)
		os.Exit(1)
	}

	// Sea temperature sources, in fallback order.
	sea := bathing.NewResolver(logs,
		providers.NewSeaWorker(cfg.Sources.SeaWorkerURL, site, newClient("sea-worker")),
		providers.NewHavvarselDirect(cfg.Sources.HavvarselURL, site, newClient("havvarsel")),
		providers.NewHavvarselProxy(cfg.Sources.CORSProxyURL, cfg.Sources.HavvarselURL, site, newClient("havvarsel-proxy")),
	)
	air := providers.NewOpenMeteo(cfg.Sources.ForecastURL, site, cfg.Site.Timezone, newClient("openmeteo"))
	bacteria := providers.NewBacteriaWorker(cfg.Sources.BacteriaURL, newClient("bacteria"), logs)

	kv, closeKV := store.Open(ctx, cfg.Cache.Backend, cfg.Cache.File, cfg.Cache.ValkeyAddr, logs)
	defer closeKV()
	cache := store.NewResultCache(kv, cfg.Cache.Key, cfg.Cache.Duration, cfg.Debug, logs)
	board := store.NewBoard(cfg.Site.Name)

	service := bathing.NewService(bacteria, sea, air, cache, board, cfg.ThresholdHigh, logs)
	tz, err := time.LoadLocation(cfg.Site.Timezone)
	if err != nil {
		logs.Warn("unknown site timezone, using UTC", "timezone", cfg.Site.Timezone, "error", err)
		tz = time.UTC
	}
	service.UseLocation(tz)

	// First refresh, as on page load.
	go service.Refresh(ctx)

	// Scheduler that periodically refreshes the widget.
	sched := scheduler.New(scheduler.Config{
		Interval: cfg.Refresh.Interval,
		Cron:     cfg.Refresh.Cron,
		Timeout:  2 * time.Minute,
		Location: tz,
	}, service, logs)
	if err := sched.Start(); err != nil {
		logs.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	app := fiber.New(fiber.Config{
		AppName:               "havet-arena",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          time.Minute,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "havet-arena",
			"offline": agent.State(),
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service, board, nil)

	// Everything else is a widget asset.
	if cfg.Offline.Origin != "" {
		app.Get("/*", offline.Handler(agent))
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logs.Error("fiber server stopped", "error", err)
		}
	}()
	logs.Info("havet-arena started", "port", cfg.Port, "site", cfg.Site.Name, "lat", site.Lat, "lon", site.Lon)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logs.Error("error during shutdown", "error", err)
	}
	// No refresh may start revalidations once the agent is drained.
	sched.Stop()
	agent.Wait()
}

package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/havet-arena/internal/common"
)

// Havet Arena, Nyhavna, Trondheim.
const (
	DefaultSiteLat = 63.44181
	DefaultSiteLon = 10.42506
)

type AppConfig struct {
	Port     string `validate:"required,numeric"`
	Debug    bool
	LogLevel string `validate:"oneof=debug info warn error"`

	Site    SiteConfig
	Sources SourcesConfig
	Cache   CacheConfig
	Refresh RefreshConfig
	Offline OfflineConfig

	HTTPTimeout   time.Duration `validate:"gt=0"`
	RetryAttempts int           `validate:"min=1,max=10"`
	RetryDelay    time.Duration `validate:"gt=0"`
	ThresholdHigh float64       `validate:"gt=0"`
}

// SiteConfig locates the bathing site. Lat and Lon are nil when the site
// should be geocoded from its address.
type SiteConfig struct {
	Name           string   `validate:"required"`
	Lat            *float64 `validate:"omitnil,gte=-90,lte=90"`
	Lon            *float64 `validate:"omitnil,gte=-180,lte=180"`
	Address        string
	City           string
	Country        string
	Timezone       string `validate:"required"`
	GeocoderAPIKey string
}

type SourcesConfig struct {
	BacteriaURL  string `validate:"required,url"`
	SeaWorkerURL string `validate:"required,url"`
	HavvarselURL string `validate:"required,url"`
	CORSProxyURL string `validate:"required,url"`
	ForecastURL  string `validate:"required,url"`
}

type CacheConfig struct {
	Backend    string        `validate:"oneof=memory file valkey"`
	Key        string        `validate:"required"`
	Duration   time.Duration `validate:"gt=0"`
	File       string        `validate:"required_if=Backend file"`
	ValkeyAddr string        `validate:"required_if=Backend valkey"`
}

// RefreshConfig drives the periodic refresh. A cron spec wins over the interval;
// a zero interval without a cron spec disables periodic refresh.
type RefreshConfig struct {
	Interval time.Duration `validate:"gte=0"`
	Cron     string
}

type OfflineConfig struct {
	CacheName string `validate:"required"`
	Origin    string `validate:"omitempty,url"`
	Assets    []string
	APIHosts  []string
}

// Load reads configuration from the environment, layered over the optional
// YAML or TOML file named by CONFIG_PATH.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	file, err := loadFile(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return nil, err
	}
	src := source{file: file}

	cfg := &AppConfig{
		Port:     src.get("PORT", "8080"),
		LogLevel: strings.ToLower(src.get("LOG_LEVEL", "info")),
	}
	if cfg.Debug, err = src.getBool("DEBUG", false); err != nil {
		return nil, err
	}

	if cfg.Site, err = loadSite(src); err != nil {
		return nil, err
	}

	cfg.Sources = SourcesConfig{
		BacteriaURL:  src.get("BACTERIA_URL", "https://bakterier.nytroe.workers.dev/"),
		SeaWorkerURL: src.get("SEA_WORKER_URL", "https://bading.nytroe.workers.dev/"),
		HavvarselURL: src.get("HAVVARSEL_URL", "https://api.havvarsel.no/apis/duapi/havvarsel/v2/temperatureprojection"),
		CORSProxyURL: src.get("CORS_PROXY_URL", "https://api.allorigins.win/raw"),
		ForecastURL:  src.get("FORECAST_URL", "https://api.open-meteo.com/v1/forecast"),
	}

	if cfg.HTTPTimeout, err = src.getDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.RetryAttempts, err = src.getInt("RETRY_ATTEMPTS", 3); err != nil {
		return nil, err
	}
	if cfg.RetryDelay, err = src.getDuration("RETRY_DELAY", "1s"); err != nil {
		return nil, err
	}
	if cfg.ThresholdHigh, err = src.getFloat("THRESHOLD_HIGH", 1000); err != nil {
		return nil, err
	}

	cfg.Cache = CacheConfig{
		Backend:    strings.ToLower(src.get("CACHE_BACKEND", "memory")),
		Key:        src.get("CACHE_KEY", "havet_arena_data"),
		File:       src.get("CACHE_FILE", filepath.Join("data", "cache.json")),
		ValkeyAddr: src.get("VALKEY_ADDR", ""),
	}
	if cfg.Cache.Duration, err = src.getDuration("CACHE_DURATION", "1h"); err != nil {
		return nil, err
	}

	if cfg.Refresh.Interval, err = src.getDuration("REFRESH_INTERVAL", "30m"); err != nil {
		return nil, err
	}
	cfg.Refresh.Cron = src.get("REFRESH_CRON", "")
	if cfg.Refresh.Cron != "" {
		if _, err := cron.ParseStandard(cfg.Refresh.Cron); err != nil {
			return nil, fmt.Errorf("invalid REFRESH_CRON: %w", err)
		}
	}

	cfg.Offline = OfflineConfig{
		CacheName: src.get("OFFLINE_CACHE_NAME", "havet-arena-v1"),
		Origin:    src.get("OFFLINE_ORIGIN", ""),
		Assets:    common.SplitList(src.get("OFFLINE_ASSETS", "/,/index.html,/styles.css,/app.js,/manifest.json")),
		APIHosts:  common.SplitList(src.get("OFFLINE_API_HOSTS", "workers.dev,api.,open-meteo,havvarsel")),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadSite(src source) (SiteConfig, error) {
	site := SiteConfig{
		Name:           src.get("SITE_NAME", "Havet Arena"),
		Address:        src.get("SITE_ADDRESS", ""),
		City:           src.get("SITE_CITY", "Trondheim"),
		Country:        src.get("SITE_COUNTRY", "Norway"),
		Timezone:       src.get("SITE_TIMEZONE", "Europe/Oslo"),
		GeocoderAPIKey: src.get("GEOCODER_API_KEY", ""),
	}

	// Without explicit coordinates an address means "geocode me".
	defLat, defLon := strconv.FormatFloat(DefaultSiteLat, 'f', -1, 64), strconv.FormatFloat(DefaultSiteLon, 'f', -1, 64)
	if site.Address != "" {
		defLat, defLon = "", ""
	}

	lat, err := src.getOptionalFloat("SITE_LAT", defLat)
	if err != nil {
		return SiteConfig{}, err
	}
	lon, err := src.getOptionalFloat("SITE_LON", defLon)
	if err != nil {
		return SiteConfig{}, err
	}
	if (lat == nil) != (lon == nil) {
		return SiteConfig{}, fmt.Errorf("SITE_LAT and SITE_LON must be set together")
	}
	if lat == nil && site.Address == "" {
		return SiteConfig{}, fmt.Errorf("either SITE_LAT/SITE_LON or SITE_ADDRESS is required")
	}
	site.Lat, site.Lon = lat, lon
	return site, nil
}

// source resolves a key from the environment first, then the config file.
type source struct {
	file map[string]string
}

func (s source) get(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if v, ok := s.file[key]; ok && v != "" {
		return v
	}
	return def
}

func (s source) getInt(key string, def int) (int, error) {
	v := s.get(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func (s source) getFloat(key string, def float64) (float64, error) {
	v := s.get(key, "")
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func (s source) getOptionalFloat(key, def string) (*float64, error) {
	v := s.get(key, def)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return &f, nil
}

func (s source) getBool(key string, def bool) (bool, error) {
	v := s.get(key, "")
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func (s source) getDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(s.get(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// loadFile reads a YAML or TOML file and flattens it into environment style keys:
// nested sections join with "_" and lists join with ",", so
//
//	cache:
//	  backend: file
//
// yields CACHE_BACKEND=file.
func loadFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	raw := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	case ".toml":
		err = toml.Unmarshal(data, &raw)
	default:
		return nil, fmt.Errorf("unsupported config file type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	out := map[string]string{}
	flatten("", raw, out)
	return out, nil
}

func flatten(prefix string, in map[string]any, out map[string]string) {
	for k, v := range in {
		key := strings.ToUpper(k)
		if prefix != "" {
			key = prefix + "_" + key
		}
		switch t := v.(type) {
		case map[string]any:
			flatten(key, t, out)
		case []any:
			items := make([]string, 0, len(t))
			for _, item := range t {
				items = append(items, fmt.Sprint(item))
			}
			out[key] = strings.Join(items, ",")
		case nil:
		default:
			out[key] = fmt.Sprint(t)
		}
	}
}

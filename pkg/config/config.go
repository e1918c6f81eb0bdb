// Package config loads the rail router configuration from TOML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"

	"rail_router/pkg/overpass"
	"rail_router/pkg/routing"
)

// Duration is a time.Duration read from strings such as "1.5s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config holds the application configuration.
type Config struct {
	Overpass OverpassConfig `toml:"overpass"`
	Routing  RoutingConfig  `toml:"routing"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
	Source   SourceConfig   `toml:"source"`
}

type OverpassConfig struct {
	Endpoints           []string `toml:"endpoints"`
	MaxAttempts         int      `toml:"max_attempts"`
	RetryDelay          Duration `toml:"retry_delay"`
	QueryTimeoutSeconds int      `toml:"query_timeout_seconds"`
	HTTPTimeout         Duration `toml:"http_timeout"`
	UserAgent           string   `toml:"user_agent"`
	// CacheSize is the number of bounding boxes kept; 0 disables the cache.
	CacheSize int      `toml:"cache_size"`
	CacheTTL  Duration `toml:"cache_ttl"`
}

type RoutingConfig struct {
	PaddingKm          float64 `toml:"padding_km"`
	DefaultMaxSpeedKmh float64 `toml:"default_max_speed_kmh"`
	ParallelSegments   bool    `toml:"parallel_segments"`
	Locator            string  `toml:"locator"`
}

type ServerConfig struct {
	Addr           string   `toml:"addr"`
	CORSOrigin     string   `toml:"cors_origin"`
	MaxConcurrent  int      `toml:"max_concurrent"`
	RequestTimeout Duration `toml:"request_timeout"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // text or json
}

// SourceConfig selects an offline network source. An empty PBFPath means
// the Overpass mirrors are queried.
type SourceConfig struct {
	PBFPath string `toml:"pbf_path"`
}

// Default returns the built-in configuration.
func Default() Config {
	oc := overpass.DefaultConfig()
	return Config{
		Overpass: OverpassConfig{
			Endpoints:           oc.Endpoints,
			MaxAttempts:         oc.MaxAttempts,
			RetryDelay:          Duration{oc.RetryDelay},
			QueryTimeoutSeconds: int(oc.QueryTimeout / time.Second),
			HTTPTimeout:         Duration{90 * time.Second},
			UserAgent:           oc.UserAgent,
		},
		Routing: RoutingConfig{
			PaddingKm:          25,
			DefaultMaxSpeedKmh: 120,
			Locator:            string(routing.LocatorLinear),
		},
		Server: ServerConfig{
			Addr:           ":8080",
			CORSOrigin:     "*",
			MaxConcurrent:  16,
			RequestTimeout: Duration{3 * time.Minute},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.Source.PBFPath == "" && len(c.Overpass.Endpoints) == 0 {
		errs = append(errs, errors.New("overpass.endpoints must not be empty"))
	}
	if c.Overpass.MaxAttempts < 1 {
		errs = append(errs, errors.New("overpass.max_attempts must be at least 1"))
	}
	if c.Overpass.RetryDelay.Duration < 0 {
		errs = append(errs, errors.New("overpass.retry_delay must not be negative"))
	}
	if c.Overpass.QueryTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("overpass.query_timeout_seconds must be positive"))
	}
	if c.Overpass.CacheSize < 0 {
		errs = append(errs, errors.New("overpass.cache_size must not be negative"))
	}
	if c.Routing.PaddingKm < 0 {
		errs = append(errs, errors.New("routing.padding_km must not be negative"))
	}
	if c.Routing.DefaultMaxSpeedKmh <= 0 {
		errs = append(errs, errors.New("routing.default_max_speed_kmh must be positive"))
	}
	switch routing.LocatorKind(c.Routing.Locator) {
	case routing.LocatorLinear, routing.LocatorRTree:
	default:
		errs = append(errs, fmt.Errorf("routing.locator: unknown kind %q", c.Routing.Locator))
	}
	if c.Server.MaxConcurrent < 1 {
		errs = append(errs, errors.New("server.max_concurrent must be at least 1"))
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// OverpassClient returns the client settings.
func (c Config) OverpassClient() overpass.Config {
	return overpass.Config{
		Endpoints:    c.Overpass.Endpoints,
		MaxAttempts:  c.Overpass.MaxAttempts,
		RetryDelay:   c.Overpass.RetryDelay.Duration,
		QueryTimeout: time.Duration(c.Overpass.QueryTimeoutSeconds) * time.Second,
		UserAgent:    c.Overpass.UserAgent,
	}
}

// EngineOptions returns the routing engine options.
func (c Config) EngineOptions() routing.Options {
	return routing.Options{
		PaddingKm:        c.Routing.PaddingKm,
		ParallelSegments: c.Routing.ParallelSegments,
		Locator:          routing.LocatorKind(c.Routing.Locator),
	}
}

// NewLogger builds a logger for the log section.
func (c LogConfig) NewLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetLevel(level)
	if c.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}

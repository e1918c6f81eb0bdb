package config

import (
	"net/http"

	"github.com/sirupsen/logrus"

	railosm "rail_router/pkg/osm"
	"rail_router/pkg/overpass"
	"rail_router/pkg/routing"
)

// Source is the configured rail network source.
type Source struct {
	Fetcher overpass.Fetcher
	// Client is nil when reading from a local extract.
	Client *overpass.Client
	// Cache is nil when caching is disabled.
	Cache *overpass.Cache
}

// NewSource builds the network source: a local extract when pbf_path is
// set, the Overpass mirrors otherwise, optionally behind a bbox cache.
func (c Config) NewSource(logger logrus.FieldLogger) Source {
	var src Source
	if c.Source.PBFPath != "" {
		src.Fetcher = railosm.NewFileSource(c.Source.PBFPath, logger)
	} else {
		httpClient := &http.Client{Timeout: c.Overpass.HTTPTimeout.Duration}
		src.Client = overpass.NewClient(c.OverpassClient(), httpClient, logger)
		src.Fetcher = src.Client
	}
	if c.Overpass.CacheSize > 0 {
		src.Cache = overpass.NewCache(src.Fetcher, c.Overpass.CacheSize, c.Overpass.CacheTTL.Duration)
		src.Fetcher = src.Cache
	}
	return src
}

// NewEngine builds a routing engine over src. The connectivity probe is
// only wired for the Overpass source.
func (c Config) NewEngine(src Source, logger logrus.FieldLogger) *routing.Engine {
	opts := c.EngineOptions()
	if src.Client != nil {
		opts.Online = src.Client.Online
	}
	return routing.NewEngine(src.Fetcher, opts, logger)
}

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"rail_router/pkg/api"
	"rail_router/pkg/config"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML config file (empty = built-in defaults)")
	addr := flag.String("addr", "", "Listen address, overrides server.addr")
	pbf := flag.String("pbf", "", "Serve networks from a local .osm.pbf extract, overrides source.pbf_path")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			logrus.Fatalf("failed to load config: %v", err)
		}
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *pbf != "" {
		cfg.Source.PBFPath = *pbf
	}

	logger, err := cfg.Log.NewLogger()
	if err != nil {
		logrus.Fatalf("invalid log config: %v", err)
	}

	src := cfg.NewSource(logger)
	engine := cfg.NewEngine(src, logger)
	if src.Client != nil {
		logger.WithField("endpoints", cfg.Overpass.Endpoints).Info("using overpass mirrors")
	} else {
		logger.WithField("path", cfg.Source.PBFPath).Info("using local extract")
	}

	stats := func() api.StatsResponse {
		resp := api.StatsResponse{Engine: engine.Stats()}
		if src.Client != nil {
			s := src.Client.Stats()
			resp.Fetcher = &s
		}
		if src.Cache != nil {
			s := src.Cache.Stats()
			resp.Cache = &s
		}
		return resp
	}

	srvCfg := api.DefaultConfig(cfg.Server.Addr)
	srvCfg.CORSOrigin = cfg.Server.CORSOrigin
	srvCfg.MaxConcurrent = cfg.Server.MaxConcurrent
	srvCfg.RequestTimeout = cfg.Server.RequestTimeout.Duration
	if srvCfg.RequestTimeout > 0 {
		srvCfg.WriteTimeout = srvCfg.RequestTimeout + 30*time.Second
	}

	handlers := api.NewHandlers(engine, cfg.Routing.DefaultMaxSpeedKmh, stats, logger)
	srv := api.NewServer(srvCfg, handlers, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	if err := api.Serve(ctx, srv, logger); err != nil {
		logger.WithError(err).Error("server stopped")
		os.Exit(1)
	}
}

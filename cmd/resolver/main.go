package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mohammed-shakir/street-resolver/internal/cache"
	"github.com/mohammed-shakir/street-resolver/internal/cache/memstore"
	"github.com/mohammed-shakir/street-resolver/internal/cache/redisstore"
	"github.com/mohammed-shakir/street-resolver/internal/canon"
	"github.com/mohammed-shakir/street-resolver/internal/cellmap"
	"github.com/mohammed-shakir/street-resolver/internal/core/config"
	"github.com/mohammed-shakir/street-resolver/internal/core/executor"
	"github.com/mohammed-shakir/street-resolver/internal/core/health"
	"github.com/mohammed-shakir/street-resolver/internal/core/httpclient"
	"github.com/mohammed-shakir/street-resolver/internal/core/observability"
	"github.com/mohammed-shakir/street-resolver/internal/core/overpass"
	"github.com/mohammed-shakir/street-resolver/internal/core/server"
	"github.com/mohammed-shakir/street-resolver/internal/invalidation/kafkaconsumer"
	"github.com/mohammed-shakir/street-resolver/internal/logger"
	"github.com/mohammed-shakir/street-resolver/internal/resolver"
	"github.com/mohammed-shakir/street-resolver/internal/resultcache"
	"github.com/mohammed-shakir/street-resolver/internal/retriever"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Service:   "street-resolver",
		Component: "resolver",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	observability.ExposeBuildInfo(Version)

	endpoints := cfg.OverpassEndpoints
	if len(endpoints) == 0 {
		endpoints = overpass.DefaultEndpoints
	}
	appLog.Info("starting resolver",
		"addr", cfg.Addr,
		"version", Version,
		"overpass", endpoints,
		"cache", cfg.CacheBackend)

	exec, err := executor.New(appLog, httpclient.NewOutbound(cfg.OverpassTimeout+5*time.Second), endpoints, cfg.OverpassTimeout)
	if err != nil {
		appLog.Error("failed to initialize executor", "err", err)
		return 1
	}

	retr := retriever.New(appLog, exec, retriever.Config{
		Radius:     cfg.SearchRadiusM,
		NearRadius: cfg.NearRadiusM,
		WideRadius: cfg.WideRadiusM,
		MaxTokens:  3,
		TimeoutSec: int(cfg.OverpassTimeout.Seconds()),
	})
	var res resolver.Interface = resolver.New(appLog, retr, resolver.Config{
		Threshold:       cfg.MatchThreshold,
		ProximityWeight: cfg.ProximityWeight,
		Aliases:         canon.DefaultAliases,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ready := map[string]health.Check{}
	var store cache.Store
	switch cfg.CacheBackend {
	case "redis":
		rc, err := redisstore.New(ctx, cfg.RedisAddr)
		if err != nil {
			appLog.Error("redis cache unavailable", "addr", cfg.RedisAddr, "err", err)
			return 1
		}
		ready["redis"] = rc.Ping
		store = rc
	case "memory":
		store = memstore.New(cfg.CacheMemorySize, cfg.CacheTTL)
	}

	if store != nil {
		defer func() { _ = store.Close() }()
		cells, err := cellmap.New(cfg.CacheH3Res)
		if err != nil {
			appLog.Error("invalid cache resolution", "err", err)
			return 1
		}
		res = resultcache.New(appLog, res, store, cells, resultcache.Config{
			TTL:       cfg.CacheTTL,
			OpTimeout: cfg.CacheOpTimeout,
		})

		if cfg.Invalidation.Enabled {
			kcfg := kafkaconsumer.ConfigFrom(cfg.Invalidation, cfg.LogLevel)
			consumer := kafkaconsumer.New(kcfg, appLog, store, cells)
			go func() {
				if err := consumer.Start(ctx); err != nil {
					appLog.Error("invalidation consumer stopped", "err", err)
				}
			}()
		}
	} else if cfg.Invalidation.Enabled {
		appLog.Warn("invalidation enabled without a cache backend; ignoring")
	}

	if err := server.Run(ctx, cfg.Addr, appLog, res, server.Options{
		Metrics:      cfg.MetricsEnabled,
		Ready:        ready,
		WriteTimeout: server.WriteTimeoutFor(retr.Tiers(), len(endpoints), cfg.OverpassTimeout+5*time.Second),
	}); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}

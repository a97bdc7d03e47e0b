// Command dashboard runs the read-only HTTP monitoring surface: health,
// Prometheus exposition, job/DLQ listings, stats, and host introspection
// over the same sqlite store the worker pool writes to. It never mutates
// engine state.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	configs "github.com/taskforge/taskforge/configs"
	"github.com/taskforge/taskforge/pkg/auth"
	"github.com/taskforge/taskforge/pkg/httpapi"
	"github.com/taskforge/taskforge/pkg/logger"
	"github.com/taskforge/taskforge/pkg/storage/sqlite"
	tracing "github.com/taskforge/taskforge/pkg/observability"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := configs.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		return 1
	}

	log, err := logger.Init(logger.Config{
		Level:      cfg.LogLevel,
		Encoding:   cfg.LogEncoding,
		OutputPath: "stdout",
		Service:    "dashboard",
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		return 1
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		log.Sugar().Fatalw("open store", "error", err)
	}
	defer store.Close()

	httpCfg := httpapi.Config{
		Addr:        cfg.MetricsAddr,
		Store:       store,
		ExecStore:   store,
		Log:         log,
		AuthEnabled: cfg.AuthEnabled,
		ServiceName: "dashboard",
	}

	if cfg.AuthEnabled {
		jwtCfg := auth.DefaultJWTConfig()
		jwtCfg.SecretKey = cfg.JWTSecret
		jwtSvc, err := auth.NewJWTService(jwtCfg)
		if err != nil {
			log.Sugar().Fatalw("init jwt service", "error", err)
		}
		httpCfg.JWTService = jwtSvc

		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		httpCfg.APIKeyStore = auth.NewRedisAPIKeyStore(redisClient)
	}

	if cfg.TracingEnabled {
		ctx := context.Background()
		tCfg := tracing.DefaultConfig("dashboard")
		tCfg.Enabled = true
		tCfg.Endpoint = cfg.TracingEndpoint
		provider, err := tracing.Init(ctx, tCfg)
		if err != nil {
			log.Sugar().Warnw("tracing disabled: init failed", "error", err)
		} else {
			defer func() { _ = provider.Shutdown(context.Background()) }()
			httpCfg.Tracing = true
		}
	}

	server := httpapi.New(httpCfg)

	errCh := make(chan error, 1)
	go func() {
		log.Sugar().Infow("dashboard listening", "addr", cfg.MetricsAddr)
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Sugar().Errorw("server exited", "error", err)
			return 1
		}
	case sig := <-sigCh:
		log.Sugar().Infow("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Sugar().Errorw("graceful shutdown failed", "error", err)
			return 1
		}
	}
	return 0
}

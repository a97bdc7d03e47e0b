// Package httpapi exposes a read-only gin HTTP surface over the job store
// and worker pool: health, Prometheus exposition, job/DLQ listings, stats,
// and host introspection. It never mutates engine state — every write goes
// through the taskforgectl CLI instead, grounded on the reference
// backend's pkg/api server but narrowed to a monitoring collaborator.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/taskforge/taskforge/pkg/auth"
	"github.com/taskforge/taskforge/pkg/httpapi/middleware"
	"github.com/taskforge/taskforge/pkg/storage"
	"github.com/taskforge/taskforge/pkg/workerpool"
)

// Config holds the monitoring surface's dependencies.
type Config struct {
	Addr        string
	Store       storage.JobStore
	ExecStore   storage.ExecutionStore
	Pool        *workerpool.Pool
	Log         *zap.Logger
	AuthEnabled bool
	JWTService  *auth.JWTService
	APIKeyStore auth.APIKeyStore
	Tracing     bool
	ServiceName string
}

// Server wraps the HTTP listener and its route handlers.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	store      storage.JobStore
	execStore  storage.ExecutionStore
	pool       *workerpool.Pool
	log        *zap.Logger
}

// New builds a Server with the full middleware chain wired per cfg.
func New(cfg Config) *Server {
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.BodySizeLimitMiddleware(1 << 20))
	router.Use(middleware.RateLimitMiddleware())
	if cfg.Tracing {
		serviceName := cfg.ServiceName
		if serviceName == "" {
			serviceName = "taskforge"
		}
		router.Use(middleware.TracingMiddleware(serviceName))
	}

	s := &Server{
		router:    router,
		store:     cfg.Store,
		execStore: cfg.ExecStore,
		pool:      cfg.Pool,
		log:       cfg.Log,
	}

	router.GET("/health", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	if cfg.AuthEnabled {
		v1.Use(middleware.AuthMiddleware(middleware.AuthConfig{
			JWTService:  cfg.JWTService,
			APIKeyStore: cfg.APIKeyStore,
		}))
	}
	v1.GET("/jobs", s.listJobs)
	v1.GET("/jobs/:id", s.getJob)
	v1.GET("/dlq", s.listDLQ)
	v1.GET("/stats", s.stats)
	v1.GET("/host", s.host)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start blocks serving HTTP until the listener closes.
func (s *Server) Start() error {
	s.log.Info("monitoring surface starting", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("monitoring surface: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("monitoring surface shutting down")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the underlying gin engine, used by tests to drive
// requests without binding a real listener.
func (s *Server) Handler() http.Handler {
	return s.router
}

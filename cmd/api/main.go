package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/vet-agenda/internal/audit"
	"github.com/BruksfildServices01/vet-agenda/internal/backend"
	"github.com/BruksfildServices01/vet-agenda/internal/config"
	dbpkg "github.com/BruksfildServices01/vet-agenda/internal/db"
	"github.com/BruksfildServices01/vet-agenda/internal/logging"
	"github.com/BruksfildServices01/vet-agenda/internal/metrics"
	"github.com/BruksfildServices01/vet-agenda/internal/routes"
	"github.com/BruksfildServices01/vet-agenda/internal/screen"
	"github.com/BruksfildServices01/vet-agenda/internal/session"
	"github.com/BruksfildServices01/vet-agenda/internal/timezone"
	"github.com/BruksfildServices01/vet-agenda/internal/workspace"
)

func main() {

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	if !timezone.IsValid(cfg.ClinicTimezone) {
		logger.Warn("invalid clinic timezone, using default", "timezone", cfg.ClinicTimezone)
		cfg.ClinicTimezone = timezone.DefaultTimezone
	}
	loc := timezone.Location(cfg.ClinicTimezone)

	// metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	backendMetrics := metrics.NewBackendMetrics(reg)

	client := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout, logger, backendMetrics)

	// sessions
	var sessions session.Store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Error("redis unreachable", "addr", cfg.RedisAddr, "error", err)
			cancel()
			os.Exit(1)
		}
		cancel()
		sessions = session.NewRedisStore(rdb, cfg.SessionTTL)
		logger.Info("sessions stored in redis", "addr", cfg.RedisAddr)
	} else {
		sessions = session.NewMemoryStore(cfg.SessionTTL)
		logger.Info("sessions stored in memory")
	}

	// audit trail
	var (
		db         *gorm.DB
		dispatcher *audit.Dispatcher
	)
	if cfg.AuditEnabled() {
		var err error
		db, err = dbpkg.NewDB(cfg)
		if err != nil {
			logger.Error("audit database unavailable", "error", err)
			os.Exit(1)
		}
		dispatcher = audit.NewDispatcher(audit.New(db), logger)
		defer dispatcher.Close()
	} else {
		logger.Info("audit trail disabled")
	}

	registry := workspace.NewRegistry(client, screen.Config{
		Location:  loc,
		Now:       timezone.Clock(cfg.ClinicTimezone),
		Logger:    logger,
		Metrics:   backendMetrics,
		CacheSize: cfg.TimelineCacheSize,
	}, workspace.Options{IdleTTL: cfg.SessionTTL})

	r := gin.New()
	r.Use(gin.Recovery())

	routes.RegisterRoutes(r, cfg, routes.Deps{
		Logger:   logger,
		Registry: registry,
		Sessions: sessions,
		Audit:    dispatcher,
		Gatherer: reg,
		DB:       db,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server running", "addr", cfg.Addr(), "backend", cfg.BackendURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

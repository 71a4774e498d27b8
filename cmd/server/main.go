package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"doctrack/internal/audit"
	"doctrack/internal/platform/config"
	"doctrack/internal/platform/httpserver"
	"doctrack/internal/platform/logger"
	pmetrics "doctrack/internal/platform/metrics"
	"doctrack/internal/platform/postgres"
	platformredis "doctrack/internal/platform/redis"
	"doctrack/internal/tracking/allocator"
	"doctrack/internal/tracking/handler"
	tmetrics "doctrack/internal/tracking/metrics"
	"doctrack/internal/tracking/resetter"
	"doctrack/internal/tracking/service"
	counterstore "doctrack/internal/tracking/store/counter"
	recordstore "doctrack/internal/tracking/store/record"
	"doctrack/internal/tracking/validator"
	"doctrack/pkg/platform/keylock"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var db *sql.DB
	if cfg.StorageBackend == config.BackendPostgres || cfg.CounterBackend == config.BackendPostgres {
		var err error
		db, err = postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("postgres setup failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			log.Error("schema setup failed", "error", err)
			os.Exit(1)
		}
	}

	var records recordstore.Store
	var auditStore audit.Store
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		records = recordstore.NewPostgres(db)
		auditStore = audit.NewPostgresStore(db)
	default:
		records = recordstore.NewInMemory()
		auditStore = audit.NewInMemoryStore()
	}

	var counters counterstore.Store
	switch cfg.CounterBackend {
	case config.BackendPostgres:
		counters = counterstore.NewPostgres(db)
	case config.BackendRedis:
		redisClient, err := platformredis.New(cfg.Redis)
		if err != nil {
			log.Error("redis setup failed", "error", err)
			os.Exit(1)
		}
		if redisClient == nil {
			log.Error("REDIS_URL is required for the redis counter backend")
			os.Exit(1)
		}
		defer redisClient.Close()
		counters = counterstore.NewRedis(redisClient.Client)
	default:
		counters = counterstore.NewInMemory()
	}

	recorder := audit.NewRecorder(auditStore, log)
	go func() {
		if err := recorder.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("audit recorder stopped", "error", err)
		}
	}()

	locks := keylock.New()
	trackingMetrics := tmetrics.New()
	httpMetrics := pmetrics.New()

	alloc := allocator.New(counters, records, locks, log, trackingMetrics)
	valid := validator.New(records, cfg.ControlNumberPrefix, trackingMetrics)
	reset := resetter.New(counters, records, locks, trackingMetrics)

	svc, err := service.New(service.Config{
		Records:   records,
		Allocator: alloc,
		Validator: valid,
		Resetter:  reset,
		Audit:     recorder,
		Prefix:    cfg.ControlNumberPrefix,
		Sections:  cfg.Sections,
		Logger:    log,
		Metrics:   trackingMetrics,
	})
	if err != nil {
		log.Error("service setup failed", "error", err)
		os.Exit(1)
	}

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	handler.New(svc, log, httpMetrics).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting doctrack",
		"addr", cfg.Addr,
		"storage", string(cfg.StorageBackend),
		"counters", string(cfg.CounterBackend),
		"prefix", cfg.ControlNumberPrefix,
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

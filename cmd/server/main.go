package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blendpredict/internal/adapters/primary/http/handlers"
	"blendpredict/internal/adapters/primary/http/middleware"
	"blendpredict/internal/adapters/secondary/ensemble"
	"blendpredict/internal/adapters/secondary/objectstore"
	"blendpredict/internal/adapters/secondary/postgres"
	"blendpredict/internal/adapters/secondary/sqlite"
	"blendpredict/internal/config"
	"blendpredict/internal/core/ports/output"
	"blendpredict/internal/core/services"
	"blendpredict/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// migratingCatalog is a catalog that can create its own schema.
type migratingCatalog interface {
	ports.PredictionCatalog
	Migrate(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	initLogger(cfg)

	m := metrics.New(prometheus.DefaultRegisterer)

	// Model bundle (optional: the process serves history without it)
	artifacts, err := ensemble.LoadBundle(cfg.Model.BundlePath)
	if err != nil {
		log.WithError(err).WithField("path", cfg.Model.BundlePath).
			Warn("model bundle not loaded (continuing without inference)")
		artifacts = nil
	} else {
		log.WithFields(log.Fields{
			"path":     cfg.Model.BundlePath,
			"features": artifacts.Contract.Width(),
			"targets":  artifacts.Targets,
		}).Info("model bundle loaded")
	}
	engine := services.NewInferenceEngine(artifacts)
	m.SetModelReady(engine.Ready() == nil)

	// ============================================================================
	// Hexagonal Architecture Wiring
	// ============================================================================

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	// Secondary Adapters (Output Ports)
	catalog, err := newCatalog(cfg)
	if err != nil {
		log.Fatalf("create catalog: %v", err)
	}
	if err := catalog.Migrate(startCtx); err != nil {
		log.Fatalf("migrate catalog: %v", err)
	}
	log.WithField("driver", cfg.Catalog.Driver).Info("prediction catalog ready")

	store, err := objectstore.New(startCtx, &cfg.Store)
	if err != nil {
		log.Fatalf("create artifact store: %v", err)
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}
	log.WithField("backend", cfg.Store.Backend).Info("artifact store ready")

	// Core Services (Application Layer)
	runSvc := services.NewRunService(engine, store, catalog, cfg.Model.IDColumn, m)

	// Primary Adapter (HTTP Handlers)
	h := handlers.New(runSvc, engine, cfg.Upload.MaxBytes)

	// Setup router
	router := gin.New()
	router.MaxMultipartMemory = cfg.Upload.MaxBytes
	router.Use(middleware.RequestID(), middleware.Logging(), gin.Recovery())

	api := router.Group("/api/v1/predictions")
	h.RegisterRoutes(api)
	h.RegisterHealthRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("server forced shutdown: %v", err)
		return
	}

	log.Info("server stopped")
}

func newCatalog(cfg *config.Config) (migratingCatalog, error) {
	switch cfg.Catalog.Driver {
	case "sqlite":
		return sqlite.NewPredictionCatalog(cfg.Catalog.SQLitePath)
	default:
		return postgres.NewPredictionCatalog(cfg.Catalog.Postgres.DSN(), cfg.Catalog.Postgres.ConnectTimeout)
	}
}

func initLogger(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

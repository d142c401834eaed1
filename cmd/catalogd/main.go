// Package main runs the catalog service HTTP server.
package main

import (
	"context"
	"database/sql"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	app "github.com/nine-apps/catalog_service/internal/app"
	"github.com/nine-apps/catalog_service/internal/app/httpapi"
	"github.com/nine-apps/catalog_service/internal/app/metrics"
	"github.com/nine-apps/catalog_service/internal/app/storage/postgres"
	"github.com/nine-apps/catalog_service/internal/config"
	"github.com/nine-apps/catalog_service/internal/middleware"
	"github.com/nine-apps/catalog_service/internal/platform/migrations"
	"github.com/nine-apps/catalog_service/pkg/logger"
)

func main() {
	addrFlag := flag.String("addr", "", "listen address (overrides HTTP_ADDR)")
	flag.Parse()

	cfg := config.Load()
	if *addrFlag != "" {
		cfg.HTTPAddr = *addrFlag
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log := logger.New("catalogd", level)

	stores := app.Stores{}
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Error("Failed to open database")
			os.Exit(1)
		}
		defer db.Close()
		db.SetMaxOpenConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := migrations.Apply(migrateCtx, db); err != nil {
			cancel()
			log.WithError(err).Error("Failed to apply migrations")
			os.Exit(1)
		}
		cancel()

		store := postgres.New(db)
		stores = app.Stores{
			Users:    store,
			Codes:    store,
			Apps:     store,
			Versions: store,
			Likes:    store,
			Feedback: store,
			Timeline: store,
		}
		log.Info("Using postgres storage")
	} else {
		log.Warn("DATABASE_URL not set; using in-memory storage")
	}

	application, err := app.New(stores, cfg, log)
	if err != nil {
		log.WithError(err).Error("Failed to build application")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := application.Start(ctx); err != nil {
		log.WithError(err).Error("Failed to start application")
		os.Exit(1)
	}

	apiHandler, err := httpapi.NewHandler(application, httpapi.Options{
		AuditLogPath: cfg.AuditLogPath,
	})
	if err != nil {
		log.WithError(err).Error("Failed to build handler")
		os.Exit(1)
	}

	authmw := middleware.NewAuthMiddleware(application.Auth, log, nil)
	cors := middleware.NewCORSMiddleware(cfg.AllowedOrigins)
	handler := metrics.InstrumentHandler(cors.Handler(authmw.OptionalHandler(apiHandler)))

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.WithError(err).Error("Server error")
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Server shutdown error")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("Application shutdown error")
	}
}

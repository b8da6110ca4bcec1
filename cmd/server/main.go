// Package main runs the InvestEstate API server.
package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	app "github.com/investestate/platform/internal/app"
	"github.com/investestate/platform/internal/app/httpapi"
	"github.com/investestate/platform/internal/app/metrics"
	"github.com/investestate/platform/internal/app/storage/postgres"
	"github.com/investestate/platform/internal/config"
	"github.com/investestate/platform/internal/middleware"
	"github.com/investestate/platform/pkg/logger"
)

func main() {
	log := logger.NewDefault("server")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores := app.Stores{}
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("open database")
		}
		defer db.Close()
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			log.WithError(err).Fatal("ping database")
		}
		if err := postgres.Migrate(db); err != nil {
			log.WithError(err).Fatal("run migrations")
		}

		store := postgres.New(db)
		stores = app.Stores{
			Users:       store,
			OTPs:        store,
			Projects:    store,
			Investments: store,
			Drafts:      store,
		}
		log.Info("using postgres storage")
	} else {
		log.Warn("DATABASE_URL not set; using in-memory storage")
	}

	application, err := app.New(stores, app.Config{
		OTPTTL:            cfg.OTPTTL,
		DraftTTL:          cfg.DraftTTL,
		MaturityInterval:  cfg.MaturityInterval,
		PaymentIntentsURL: cfg.PaymentIntentsURL,
		PaymentSecretKey:  cfg.PaymentSecretKey,
		SeedDemoData:      cfg.SeedDemoData,
	}, log)
	if err != nil {
		log.WithError(err).Fatal("build application")
	}

	if err := application.Start(ctx); err != nil {
		log.WithError(err).Fatal("start application")
	}

	handler, err := httpapi.NewHandler(application, httpapi.Options{
		SessionSecret: cfg.SessionSecret,
		SecureCookies: cfg.SecureCookies,
		AuditLogPath:  cfg.AuditLogPath,
	})
	if err != nil {
		log.WithError(err).Fatal("build http handler")
	}

	limiter := middleware.NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst, log)
	limiter.StartCleanup(10 * time.Minute)
	cors := middleware.NewCORSMiddleware(cfg.CORSOrigins)

	chain := cors.Handler(limiter.Handler(metrics.InstrumentHandler(handler)))

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      chain,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.Addr).Info("http server listening")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.WithError(err).Fatal("http server")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http server shutdown")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Error("application stop")
	}

	log.Info("stopped")
}

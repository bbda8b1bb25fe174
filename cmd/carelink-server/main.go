package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carelinkhq/carelink/internal/config"
	v1 "github.com/carelinkhq/carelink/internal/handler/v1"
	"github.com/carelinkhq/carelink/internal/repository/postgres"
	"github.com/carelinkhq/carelink/internal/service"
	"github.com/carelinkhq/carelink/pkg/auth"
	"github.com/carelinkhq/carelink/pkg/database"
	"github.com/carelinkhq/carelink/pkg/logger"
	"github.com/carelinkhq/carelink/pkg/metrics"
	"github.com/carelinkhq/carelink/pkg/tracer"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	tp, err := tracer.Init(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if err := database.Migrate(db, log); err != nil {
		return err
	}

	col := metrics.NewCollector("carelink")
	jwtManager := auth.NewJWTManager(cfg.JWT)

	statsStop := make(chan struct{})
	defer close(statsStop)
	if sqlDB, dbErr := db.DB(); dbErr == nil {
		go database.ReportPoolStats(sqlDB.Stats, col.DBConnections, 15*time.Second, statsStop)
	}

	accountRepo := postgres.NewAccountRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	auditRepo := postgres.NewAuditRepository(db)

	auditSvc := service.NewAuditService(auditRepo, col, log)
	defer auditSvc.Shutdown()

	directorySvc := service.NewDirectoryService(accountRepo, jwtManager, auditSvc, log)
	registrySvc := service.NewRegistryService(patientRepo, directorySvc, auditSvc, log)
	ingestSvc := service.NewIngestService(patientRepo, accountRepo, cfg.Ingest, auditSvc, col, log)

	router := v1.NewRouter(cfg, log, col, jwtManager, v1.Handlers{
		Auth:     v1.NewAuthHandler(directorySvc, col),
		Patients: v1.NewPatientHandler(registrySvc, col),
		Scans:    v1.NewScanHandler(ingestSvc, col),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}

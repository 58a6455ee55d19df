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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/tagwarden/server/internal/config"
	"github.com/tagwarden/server/internal/db"
	"github.com/tagwarden/server/internal/httpapi"
	"github.com/tagwarden/server/internal/logger"
	"github.com/tagwarden/server/internal/metrics"
	"github.com/tagwarden/server/internal/tagwarden/service"
	"github.com/tagwarden/server/internal/tagwarden/store/sqlstore"
)

const serviceName = "tagwarden-server"

// shutdownGrace outlasts the HTTP server's WriteTimeout so in-flight access
// checks finish before the writer pool is closed.
const shutdownGrace = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet(serviceName, pflag.ContinueOnError)
	envFile := flags.String("env-file", ".env", "dotenv file loaded before reading TAGWARDEN_* variables")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logg := logger.New(logger.Options{ServiceName: serviceName})
	if err := godotenv.Load(*envFile); err != nil {
		logg.Warn(logg.WithField(ctx, "env_file", *envFile), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
	})

	// DB
	dialect := db.DialectFor(cfg.DBDriver)
	conn, err := db.Open(ctx, db.Config{
		Driver: cfg.DBDriver,
		Path:   cfg.DBPath,
		DSN:    cfg.DBDSN,
		Env:    cfg.Env,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer conn.Close()

	writers := cfg.DBWriters
	if dialect == db.SQLite {
		writers = 1
	}
	writer := db.NewWorkerPool(conn, writers)
	defer writer.Close()

	if cfg.IsDev() && cfg.SeedDev {
		if err := db.SeedDev(ctx, conn, dialect); err != nil {
			return fmt.Errorf("seed dev data: %w", err)
		}
		logg.Info(logg.WithField(ctx, "scanner_id", db.DevScannerID), "db.dev_seeded")
	}

	st := sqlstore.New(conn, writer, dialect)

	// Metrics
	var (
		accessMetrics *metrics.AccessMetrics
		gatherer      prometheus.Gatherer
	)
	if cfg.MetricsEnabled {
		accessMetrics = metrics.New(prometheus.DefaultRegisterer)
		gatherer = prometheus.DefaultGatherer
	}

	opts := []service.Option{
		service.WithLogger(logg),
		service.WithMetrics(accessMetrics),
	}

	// Services
	decider := service.NewDecisionService(st, opts...)
	heartbeats := service.NewHeartbeatService(st, opts...)

	pruner := service.NewHeartbeatPruner(st, service.PrunerConfig{
		RetentionDays: cfg.HeartbeatRetentionDays,
		IntervalHours: cfg.PruneIntervalHours,
	}, opts...)
	pruner.Start(ctx)
	defer pruner.Stop()

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:     logg,
		Addr:       cfg.HTTPAddr,
		Decider:    decider,
		Heartbeats: heartbeats,
		Health:     st,
		Metrics:    gatherer,
	})

	errCh := make(chan error, 1)
	go func() {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"addr":      cfg.HTTPAddr,
			"env":       cfg.Env,
			"db_driver": dialect.Name,
		}), "server.listening")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	logg.Info(context.Background(), "server.shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error(shutdownCtx, "server.shutdown_failed", err)
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"committee/internal/amqp"
	"committee/internal/cli"
	"committee/internal/core"
	apphttp "committee/internal/http"
	"committee/internal/log"
	"committee/internal/metrics"
	"committee/internal/services"
	"committee/internal/worker"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup runs before exit.
func run() int {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	ctx, stop := cli.SignalContext()
	defer stop()

	m := metrics.New()
	opts := []services.Option{
		services.WithLocation(cfg.Location()),
		services.WithMetrics(m),
	}

	repo, err := cli.OpenBackups(ctx, logger, cfg.BackupDBPath)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to open backup archive", "error", err)
		return 1
	}
	if repo != nil {
		opts = append(opts, services.WithBackupStore(repo))
	}

	// The mirror is optional; the books work without a broker.
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.ErrorContext(ctx, "AMQP unavailable, ledger mirror disabled", "error", err)
		} else {
			opts = append(opts, services.WithPublisher(client))
			logger.InfoContext(ctx, "AMQP publisher ready", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.InfoContext(ctx, "Ledger mirror disabled - no AMQP_URL provided")
	}

	books := services.NewFinanceService(opts...)
	defer func() {
		if err := books.Close(); err != nil {
			logger.Error("Close failed", "error", err)
		}
	}()

	if cfg.BackupDBPath != "" && cfg.RestoreOnStart {
		info, err := books.RestoreBackup(ctx, "")
		var notFound *core.NotFoundError
		switch {
		case err == nil:
			logger.InfoContext(ctx, "Restored latest backup", log.FieldBackupID, info.ID, "created_at", info.CreatedAt)
		case errors.As(err, &notFound):
			logger.InfoContext(ctx, "No backup to restore, starting with empty books")
		default:
			logger.ErrorContext(ctx, "Restore on start failed", "error", err)
			return 1
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, books,
		apphttp.WithMetrics(m),
		apphttp.WithLogger(logger.WithComponent(log.ComponentHTTP)))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoContext(gctx, "Starting committee server", "port", cfg.Port, log.FieldOperation, log.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := cli.ShutdownContext(30 * time.Second)
		defer cancel()
		logger.InfoContext(shutdownCtx, "Shutting down server", log.FieldOperation, log.OpShutdown)
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.BackupDBPath != "" {
		bw := worker.NewBackupWorker(books, cfg.BackupInterval)
		g.Go(func() error { return bw.Run(gctx) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server error", "error", err)
		return 1
	}
	logger.Info("Server stopped gracefully")
	return 0
}

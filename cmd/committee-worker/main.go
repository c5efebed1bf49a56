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
	"committee/internal/log"
	"committee/internal/metrics"
	"committee/internal/sheets"
	"committee/internal/sheets/google"
	"committee/internal/sheets/memory"
	"committee/internal/worker"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup runs before exit.
func run() int {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the ledger mirror worker")
		return 1
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	var sheet sheets.LedgerAppender
	if cfg.GoogleSpreadsheetID != "" {
		gs, err := google.New(ctx, google.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
			CredentialsFile: cfg.GoogleCredentialsFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			return 1
		}
		sheet = gs
		logger.Info("Using Google Sheets ledger", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		sheet = memory.New()
		logger.Warn("No GOOGLE_SPREADSHEET_ID set, mirroring into memory")
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to connect to AMQP", "error", err)
		return 1
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("Error closing AMQP client", "error", err)
		}
	}()

	m := metrics.New()
	mirror := worker.NewMirrorWorker(sheet, m)

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoContext(gctx, "Starting ledger mirror worker", "queue", cfg.AMQPQueue, log.FieldOperation, log.OpStartup)
		err := client.ConsumeTransactionRecorded(gctx, mirror.HandleTransactionRecorded)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := cli.ShutdownContext(10 * time.Second)
		defer cancel()
		logger.Info("Shutting down worker", log.FieldOperation, log.OpShutdown)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker error", "error", err)
		return 1
	}
	logger.Info("Worker stopped gracefully")
	return 0
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/giygas/iyakuhin-supply/config"
	"github.com/giygas/iyakuhin-supply/data"
	"github.com/giygas/iyakuhin-supply/handlers"
	"github.com/giygas/iyakuhin-supply/health"
	"github.com/giygas/iyakuhin-supply/logging"
	"github.com/giygas/iyakuhin-supply/scheduler"
	"github.com/giygas/iyakuhin-supply/server"
	"github.com/giygas/iyakuhin-supply/supplyparser"
	"github.com/giygas/iyakuhin-supply/validation"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Refresh the output on a daily schedule and serve it over HTTP",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	defer func() {
		_ = logging.Close()
	}()

	dataContainer := data.NewDataContainer()
	dataContainer.SetServerStartTime(time.Now())
	restoreOutput(dataContainer, cfg)

	pipeline := supplyparser.NewPipeline(cfg.Source, cfg.OutputFile).
		WithProgressWriter(cmd.OutOrStdout())
	sched := scheduler.NewScheduler(dataContainer, pipeline, cfg.Schedule)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	schedule, err := config.ParseSchedule(cfg.Schedule)
	if err != nil {
		return err
	}
	healthChecker := health.NewHealthChecker(dataContainer, schedule)
	httpHandler := handlers.NewHTTPHandler(dataContainer, healthChecker)
	srv := server.NewServer(cfg, httpHandler)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// restoreOutput publishes the previous run's output file, if any, so the
// server has data before the first scheduled run completes.
func restoreOutput(dataContainer *data.DataContainer, cfg *config.Config) {
	envelope, encoded, err := supplyparser.ReadEnvelope(cfg.OutputFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logging.Warn("Ignoring unreadable output file", "path", cfg.OutputFile, "error", err)
		}
		return
	}

	validator := validation.NewDataValidator()
	if err := validator.ValidateEnvelope(envelope, cfg.Source.Columns); err != nil {
		logging.Warn("Ignoring invalid output file", "path", cfg.OutputFile, "error", err)
		return
	}

	updatedAt := time.Now()
	if info, err := os.Stat(cfg.OutputFile); err == nil {
		updatedAt = info.ModTime()
	}

	report := validator.ReportDataQuality(envelope.Rows, cfg.Source.Columns, cfg.Source.Markers)
	dataContainer.RestoreData(envelope, encoded, report, updatedAt)
	logging.Info("Restored previous output", "path", cfg.OutputFile, "rows", len(envelope.Rows), "updated_at", updatedAt)
}

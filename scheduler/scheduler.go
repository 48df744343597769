// Package scheduler runs the supply pipeline on a daily schedule for the
// serve mode and keeps an eye on data freshness. Dependencies are injected
// so the scheduling logic can be tested with mocks.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/giygas/iyakuhin-supply/interfaces"
	"github.com/giygas/iyakuhin-supply/logging"
	"github.com/giygas/iyakuhin-supply/metrics"
	"github.com/giygas/iyakuhin-supply/supplyparser"
	"github.com/go-co-op/gocron"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// ErrUpdateInProgress is returned by RunOnce when another run holds the update lock
var ErrUpdateInProgress = errors.New("update already in progress")

const (
	defaultStaleAfter      = 25 * time.Hour
	defaultMonitorInterval = time.Hour
)

// Scheduler handles pipeline runs and staleness monitoring using dependency injection
type Scheduler struct {
	dataStore interfaces.DataStore
	pipeline  interfaces.Pipeline
	schedule  string
	scheduler *gocron.Scheduler

	staleAfter      time.Duration
	monitorInterval time.Duration
	stop            chan struct{}
	stopOnce        sync.Once
}

// NewScheduler creates a scheduler running pipeline at the given daily
// times ("06:00" or "06:00;18:00", local time).
func NewScheduler(dataStore interfaces.DataStore, pipeline interfaces.Pipeline, schedule string) *Scheduler {
	return &Scheduler{
		dataStore:       dataStore,
		pipeline:        pipeline,
		schedule:        schedule,
		scheduler:       gocron.NewScheduler(time.Local),
		staleAfter:      defaultStaleAfter,
		monitorInterval: defaultMonitorInterval,
		stop:            make(chan struct{}),
	}
}

// Start runs the pipeline once, then schedules the daily runs and the
// staleness monitor. A failed first run is only fatal when there is no
// previously published envelope to serve.
func (s *Scheduler) Start() error {
	if err := s.RunOnce(context.Background()); err != nil {
		if s.dataStore.GetEnvelope() == nil {
			logging.Error("Failed to perform initial data load", "error", err)
			return fmt.Errorf("initial data load failed: %w", err)
		}
		logging.Warn("Initial update failed, serving previous data", "error", err)
	}

	_, err := s.scheduler.Every(1).Days().At(s.schedule).Do(func() {
		if err := s.RunOnce(context.Background()); err != nil {
			logging.Error("Failed to update data", "error", err)
		}
	})
	if err != nil {
		logging.Error("Failed to schedule updates", "error", err)
		return fmt.Errorf("failed to schedule updates: %w", err)
	}

	s.scheduler.StartAsync()

	s.startHealthMonitoring()

	return nil
}

// Stop stops the scheduled runs and the monitor. It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

// RunOnce performs one pipeline run and publishes its result. On failure
// the data store keeps the previous envelope.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if !s.dataStore.BeginUpdate() {
		logging.Info("Update already in progress, skipping...")
		return ErrUpdateInProgress
	}
	defer s.dataStore.EndUpdate()

	logging.Info("Starting supply data update", "at", time.Now().Format(time.RFC3339))
	start := time.Now()

	result, err := s.pipeline.Run(ctx)
	if err != nil {
		metrics.ObserveRun(resultLabel(err), time.Since(start), 0)
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	rows := len(result.Envelope.Rows)
	s.dataStore.UpdateData(result.Envelope, result.Encoded, result.Report)
	metrics.ObserveRun(metrics.ResultSuccess, time.Since(start), rows)

	if report := result.Report; report != nil {
		if report.MissingGeneric > 0 {
			logging.Debug("Rows without generic name", "count", report.MissingGeneric)
		}
		if report.MissingBrand > 0 {
			logging.Debug("Rows without brand name", "count", report.MissingBrand)
		}
	}

	logging.Info("Supply data update completed",
		"duration", time.Since(start).String(),
		"row_count", rows,
		"source", result.Envelope.Source,
	)

	return nil
}

// resultLabel maps a pipeline error to its metrics label
func resultLabel(err error) string {
	var resErr *supplyparser.ResolutionError
	var transErr *supplyparser.TransportError
	var parseErr *supplyparser.ParseError

	switch {
	case errors.As(err, &resErr):
		return metrics.ResultResolutionError
	case errors.As(err, &transErr):
		return metrics.ResultTransportError
	case errors.As(err, &parseErr):
		return metrics.ResultParseError
	default:
		return metrics.ResultError
	}
}

// isStale reports whether the published data is older than the staleness limit
func (s *Scheduler) isStale(now time.Time) bool {
	lastUpdate := s.dataStore.GetLastUpdated()
	return now.Sub(lastUpdate) > s.staleAfter
}

// startHealthMonitoring monitors the freshness of the data updates
func (s *Scheduler) startHealthMonitoring() {
	go func() {
		ticker := time.NewTicker(s.monitorInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case now := <-ticker.C:
				if s.isStale(now) {
					logging.Warn("Data hasn't been updated recently",
						"threshold", s.staleAfter.String(),
						"last_update", s.dataStore.GetLastUpdated().Format(time.RFC3339))
				}
			}
		}
	}()
}

// Package scheduler probes the recognition backend on a fixed interval and
// publishes the outcome to the status store and the backend gauge.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/pharmaqc/rx-ocr/interfaces"
	"github.com/pharmaqc/rx-ocr/logging"
	"github.com/pharmaqc/rx-ocr/metrics"
)

var _ interfaces.Scheduler = (*Scheduler)(nil)

// Prober is the part of a text source the scheduler needs.
type Prober interface {
	Name() string
	Probe(ctx context.Context) error
}

// Scheduler runs backend probes with gocron.
type Scheduler struct {
	store     interfaces.StatusStore
	prober    Prober
	interval  time.Duration
	scheduler *gocron.Scheduler
}

// NewScheduler creates a scheduler probing every interval.
func NewScheduler(store interfaces.StatusStore, prober Prober, interval time.Duration) *Scheduler {
	return &Scheduler{
		store:     store,
		prober:    prober,
		interval:  interval,
		scheduler: gocron.NewScheduler(time.Local),
	}
}

// Start runs a first probe synchronously, so /health is meaningful as soon as
// the server listens, then schedules the next ones. A failing first probe is
// not fatal: text extraction works without a backend.
func (s *Scheduler) Start() error {
	s.probe()

	_, err := s.scheduler.Every(s.interval).WaitForSchedule().Do(s.probe)
	if err != nil {
		logging.Error("Failed to schedule backend probes", "error", err)
		return fmt.Errorf("failed to schedule backend probes: %w", err)
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// probe checks the backend once; overlapping runs are skipped.
func (s *Scheduler) probe() {
	if !s.store.BeginProbe() {
		logging.Debug("Backend probe already in progress, skipping")
		return
	}
	defer s.store.EndProbe()

	name := s.prober.Name()
	previous := s.store.GetBackendStatus()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	start := time.Now()
	err := s.prober.Probe(ctx)

	s.store.RecordProbe(name, err, time.Now())
	metrics.SetBackendUp(name, err == nil)

	switch {
	case err != nil && (previous.Available || !previous.Probed):
		logging.Warn("Recognition backend unavailable", "backend", name, "error", err)
	case err != nil:
		logging.Debug("Recognition backend still unavailable", "backend", name, "error", err)
	case !previous.Available:
		logging.Info("Recognition backend available", "backend", name, "duration_ms", time.Since(start).Milliseconds())
	}
}

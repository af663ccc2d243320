package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pharmaqc/rx-ocr/data"
)

type fakeProber struct {
	calls atomic.Int32
	err   atomic.Value // error wrapper
	delay time.Duration
}

type probeErr struct{ err error }

func (f *fakeProber) Name() string { return "fake" }

func (f *fakeProber) Probe(ctx context.Context) error {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if v, ok := f.err.Load().(probeErr); ok {
		return v.err
	}
	return nil
}

func (f *fakeProber) setErr(err error) { f.err.Store(probeErr{err}) }

func TestStartProbesImmediately(t *testing.T) {
	store := data.NewStatusContainer("fake")
	prober := &fakeProber{}

	s := NewScheduler(store, prober, time.Hour)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	if prober.calls.Load() != 1 {
		t.Errorf("Expected one initial probe, got %d", prober.calls.Load())
	}
	st := store.GetBackendStatus()
	if !st.Probed || !st.Available {
		t.Errorf("Expected an available backend after the first probe, got %+v", st)
	}
}

func TestStartWithUnavailableBackend(t *testing.T) {
	store := data.NewStatusContainer("fake")
	prober := &fakeProber{}
	prober.setErr(errors.New("connection refused"))

	s := NewScheduler(store, prober, time.Hour)
	if err := s.Start(); err != nil {
		t.Fatalf("A down backend must not prevent startup: %v", err)
	}
	defer s.Stop()

	st := store.GetBackendStatus()
	if st.Available || st.LastError != "connection refused" {
		t.Errorf("Expected unavailable backend, got %+v", st)
	}
}

func TestProbeRecoversAndCountsFailures(t *testing.T) {
	store := data.NewStatusContainer("fake")
	prober := &fakeProber{}
	s := NewScheduler(store, prober, time.Hour)

	prober.setErr(errors.New("down"))
	s.probe()
	s.probe()
	if got := store.GetBackendStatus().ConsecutiveFailures; got != 2 {
		t.Errorf("Expected 2 consecutive failures, got %d", got)
	}

	prober.setErr(nil)
	s.probe()
	if st := store.GetBackendStatus(); !st.Available || st.ConsecutiveFailures != 0 {
		t.Errorf("Expected recovery, got %+v", st)
	}
}

func TestProbeSkipsWhenAlreadyRunning(t *testing.T) {
	store := data.NewStatusContainer("fake")
	prober := &fakeProber{}
	s := NewScheduler(store, prober, time.Hour)

	if !store.BeginProbe() {
		t.Fatal("BeginProbe failed")
	}
	s.probe()
	store.EndProbe()

	if prober.calls.Load() != 0 {
		t.Errorf("Expected the probe to be skipped, got %d calls", prober.calls.Load())
	}
}

func TestScheduledProbesRun(t *testing.T) {
	store := data.NewStatusContainer("fake")
	prober := &fakeProber{}

	s := NewScheduler(store, prober, time.Second)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for prober.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if prober.calls.Load() < 2 {
		t.Errorf("Expected a scheduled probe after the initial one, got %d calls", prober.calls.Load())
	}
}

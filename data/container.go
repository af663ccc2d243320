// Package data keeps the service's shared runtime state: recognition backend
// health from the scheduled probes and request counters. All access goes
// through atomics so a probe in progress never blocks a request.
package data

import (
	"sync/atomic"
	"time"

	"github.com/pharmaqc/rx-ocr/extractor"
	"github.com/pharmaqc/rx-ocr/interfaces"
)

var _ interfaces.StatusStore = (*StatusContainer)(nil)

// StatusContainer implements interfaces.StatusStore.
type StatusContainer struct {
	backend         atomic.Pointer[interfaces.BackendStatus]
	probing         atomic.Bool
	serverStartTime atomic.Value // time.Time

	scans        atomic.Int64
	scanFailures atomic.Int64
	extractions  atomic.Int64
	exports      atomic.Int64
	fieldsFound  atomic.Int64
}

// NewStatusContainer returns a container for the named backend, not yet probed.
func NewStatusContainer(backend string) *StatusContainer {
	sc := &StatusContainer{}
	sc.backend.Store(&interfaces.BackendStatus{Name: backend})
	sc.serverStartTime.Store(time.Time{})
	return sc
}

// GetBackendStatus returns a copy of the current backend status.
func (sc *StatusContainer) GetBackendStatus() interfaces.BackendStatus {
	if s := sc.backend.Load(); s != nil {
		return *s
	}
	return interfaces.BackendStatus{}
}

// RecordProbe publishes the outcome of a probe. The status is swapped as a
// whole so readers never see a half-updated value.
func (sc *StatusContainer) RecordProbe(backend string, err error, at time.Time) {
	for {
		old := sc.backend.Load()
		next := &interfaces.BackendStatus{
			Name:      backend,
			Available: err == nil,
			Probed:    true,
			LastProbe: at,
		}
		if err != nil {
			next.LastError = err.Error()
			if old != nil {
				next.ConsecutiveFailures = old.ConsecutiveFailures + 1
			} else {
				next.ConsecutiveFailures = 1
			}
		}
		if sc.backend.CompareAndSwap(old, next) {
			return
		}
	}
}

// BeginProbe returns false when another probe is already running.
func (sc *StatusContainer) BeginProbe() bool {
	return sc.probing.CompareAndSwap(false, true)
}

// EndProbe marks the running probe as finished.
func (sc *StatusContainer) EndProbe() {
	sc.probing.Store(false)
}

func (sc *StatusContainer) IsProbing() bool {
	return sc.probing.Load()
}

// RecordScan counts an image scan; failed scans are also counted apart.
func (sc *StatusContainer) RecordScan(ok bool) {
	sc.scans.Add(1)
	if !ok {
		sc.scanFailures.Add(1)
	}
}

// RecordExtraction counts one extraction that found the given number of fields.
func (sc *StatusContainer) RecordExtraction(found int) {
	sc.extractions.Add(1)
	sc.fieldsFound.Add(int64(found))
}

func (sc *StatusContainer) RecordExport() {
	sc.exports.Add(1)
}

// GetCounters returns a snapshot of the counters.
func (sc *StatusContainer) GetCounters() interfaces.Counters {
	extractions := sc.extractions.Load()
	return interfaces.Counters{
		Scans:           sc.scans.Load(),
		ScanFailures:    sc.scanFailures.Load(),
		Extractions:     extractions,
		Exports:         sc.exports.Load(),
		FieldsFound:     sc.fieldsFound.Load(),
		FieldsAttempted: extractions * int64(len(extractor.Fields())),
	}
}

func (sc *StatusContainer) SetServerStartTime(t time.Time) {
	sc.serverStartTime.Store(t)
}

func (sc *StatusContainer) GetServerStartTime() time.Time {
	if t, ok := sc.serverStartTime.Load().(time.Time); ok {
		return t
	}
	return time.Time{}
}

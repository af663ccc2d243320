// Package health derives the service health from the recognition backend
// probes kept in the status store.
package health

import (
	"math"
	"net/http"
	"time"

	"github.com/pharmaqc/rx-ocr/interfaces"
)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	store         interfaces.StatusStore
	probeInterval time.Duration
	now           func() time.Time
}

// NewHealthChecker returns a checker. A probe older than three intervals is
// considered stale.
func NewHealthChecker(store interfaces.StatusStore, probeInterval time.Duration) interfaces.HealthChecker {
	return &HealthCheckerImpl{
		store:         store,
		probeInterval: probeInterval,
		now:           time.Now,
	}
}

// HealthCheck returns the status, its details and the HTTP code to serve.
// Text extraction needs no backend, so a down backend degrades the service
// rather than making it unhealthy.
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	backend := h.store.GetBackendStatus()
	counters := h.store.GetCounters()
	now := h.now()

	probeAge := now.Sub(backend.LastProbe)
	stale := backend.Probed && h.probeInterval > 0 && probeAge > 3*h.probeInterval

	switch {
	case !backend.Probed:
		status = "starting"
		httpStatus = http.StatusOK
	case !backend.Available:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	case stale:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	backendData := map[string]any{
		"name":                 backend.Name,
		"available":            backend.Available,
		"probing":              h.store.IsProbing(),
		"consecutive_failures": backend.ConsecutiveFailures,
	}
	if backend.Probed {
		backendData["last_probe"] = backend.LastProbe.Format(time.RFC3339)
		backendData["probe_age_seconds"] = math.Round(probeAge.Seconds())
	}
	if backend.LastError != "" {
		backendData["last_error"] = backend.LastError
	}

	data = map[string]any{
		"backend": backendData,
		"requests": map[string]any{
			"scans":         counters.Scans,
			"scan_failures": counters.ScanFailures,
			"extractions":   counters.Extractions,
			"exports":       counters.Exports,
		},
		"fill_rate": fillRate(counters),
	}
	if start := h.store.GetServerStartTime(); !start.IsZero() {
		data["uptime_seconds"] = math.Round(now.Sub(start).Seconds())
	}

	return status, data, httpStatus
}

// fillRate is the share of fields found over all extractions, rounded to
// three decimals.
func fillRate(c interfaces.Counters) float64 {
	if c.FieldsAttempted == 0 {
		return 0
	}
	return math.Round(float64(c.FieldsFound)/float64(c.FieldsAttempted)*1000) / 1000
}

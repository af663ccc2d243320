// Package interfaces defines the contracts between the prescription OCR
// service components so each one can be replaced by a mock in tests.
package interfaces

import (
	"net/http"
	"time"

	"github.com/pharmaqc/rx-ocr/extractor"
)

// BackendStatus is the last known state of the recognition backend.
type BackendStatus struct {
	Name                string
	Available           bool
	Probed              bool // false until the first probe completes
	LastProbe           time.Time
	LastError           string
	ConsecutiveFailures int
}

// Counters are process-lifetime request totals.
type Counters struct {
	Scans           int64
	ScanFailures    int64
	Extractions     int64
	Exports         int64
	FieldsFound     int64
	FieldsAttempted int64 // eight per extraction
}

// StatusStore holds backend health and counters with atomic operations so
// probes and requests never block each other.
type StatusStore interface {
	GetBackendStatus() BackendStatus
	RecordProbe(backend string, err error, at time.Time)
	BeginProbe() bool
	EndProbe()
	IsProbing() bool

	RecordScan(ok bool)
	RecordExtraction(found int)
	RecordExport()
	GetCounters() Counters

	SetServerStartTime(t time.Time)
	GetServerStartTime() time.Time
}

// Scheduler runs the periodic backend probe.
type Scheduler interface {
	Start() error
	Stop()
}

// HTTPHandler is the set of API endpoints.
type HTTPHandler interface {
	Extract(w http.ResponseWriter, r *http.Request)
	Scan(w http.ResponseWriter, r *http.Request)
	Export(w http.ResponseWriter, r *http.Request)
	Fields(w http.ResponseWriter, r *http.Request)
	HealthCheck(w http.ResponseWriter, r *http.Request)
}

// HealthChecker reports service health for the /health endpoint.
type HealthChecker interface {
	HealthCheck() (status string, details map[string]any, httpStatus int)
}

// InputValidator checks request payloads before any work is done.
type InputValidator interface {
	// ValidateText checks text submitted for extraction.
	ValidateText(text string) error

	// ValidateImage sniffs and bounds an uploaded image and returns its MIME type.
	ValidateImage(image []byte) (mime string, err error)

	// ValidateRecord checks a record submitted for export.
	ValidateRecord(rec extractor.Record) error
}

// Package handlers implements the HTTP endpoints of the prescription OCR
// service: text extraction, image scanning, export, the field table and
// health.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pharmaqc/rx-ocr/extractor"
	"github.com/pharmaqc/rx-ocr/interfaces"
	"github.com/pharmaqc/rx-ocr/logging"
	"github.com/pharmaqc/rx-ocr/textsource"
)

var _ interfaces.HTTPHandler = (*HTTPHandlerImpl)(nil)

// Notice is the bilingual reminder returned with every scan: the image must
// show the prescription only, never the patient.
type Notice struct {
	FR string `json:"fr"`
	EN string `json:"en"`
}

// PrivacyNotice is attached to every scan response.
var PrivacyNotice = Notice{
	FR: "NE PAS CAPTURER : nom du patient, date de naissance, téléphone, RAMQ ou tout identifiant personnel.",
	EN: "DO NOT CAPTURE: patient name, date of birth, phone number, RAMQ number or any personal identifier.",
}

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	store     interfaces.StatusStore
	validator interfaces.InputValidator
	health    interfaces.HealthChecker
	source    textsource.Source
	extractor *extractor.Extractor
	maxImage  int64
	now       func() time.Time
}

// Options carries the handler dependencies.
type Options struct {
	Store         interfaces.StatusStore
	Validator     interfaces.InputValidator
	Health        interfaces.HealthChecker
	Source        textsource.Source
	MaxImageBytes int64
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(opts Options) *HTTPHandlerImpl {
	maxImage := opts.MaxImageBytes
	if maxImage <= 0 {
		maxImage = 10 << 20
	}
	return &HTTPHandlerImpl{
		store:     opts.Store,
		validator: opts.Validator,
		health:    opts.Health,
		source:    opts.Source,
		extractor: extractor.New(),
		maxImage:  maxImage,
		now:       time.Now,
	}
}

// RespondWithJSON writes payload as JSON with accents left unescaped.
func (h *HTTPHandlerImpl) RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(b.String()))
}

// RespondWithError writes a JSON error response
func (h *HTTPHandlerImpl) RespondWithError(w http.ResponseWriter, code int, message string) {
	text := http.StatusText(code)
	if code == statusClientClosedRequest {
		text = "Client Closed Request"
	}
	h.RespondWithJSON(w, code, map[string]any{
		"error":   text,
		"message": message,
		"code":    code,
	})
}

// fieldValues flattens a record for metrics labels.
func fieldValues(rec extractor.Record) map[string]string {
	out := make(map[string]string, len(extractor.Fields()))
	for f, v := range rec.Map() {
		out[string(f)] = v
	}
	return out
}

// formatUptimeHuman formats duration into a human-readable string
func formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}

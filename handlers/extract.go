package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/pharmaqc/rx-ocr/extractor"
	"github.com/pharmaqc/rx-ocr/logging"
	"github.com/pharmaqc/rx-ocr/metrics"
)

type extractRequest struct {
	Text string `json:"text"`
}

// ExtractResponse always carries all eight fields.
type ExtractResponse struct {
	Fields extractor.Record `json:"fields"`
	Found  int              `json:"found"`
}

// Extract runs field extraction on already recognized text.
//
// POST /v1/extract {"text": "..."}
func (h *HTTPHandlerImpl) Extract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondDecodeError(w, err)
		return
	}
	if err := h.validator.ValidateText(req.Text); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec := h.extract(req.Text)
	h.RespondWithJSON(w, http.StatusOK, ExtractResponse{Fields: rec, Found: rec.Found()})
}

// extract runs the extractor and records counters. Only sizes are logged:
// the text and values are prescription content.
func (h *HTTPHandlerImpl) extract(text string) extractor.Record {
	rec := h.extractor.Extract(text)
	found := rec.Found()

	h.store.RecordExtraction(found)
	metrics.ObserveExtraction(fieldValues(rec))
	logging.Debug("Fields extracted", "text_length", len(text), "found", found)
	return rec
}

// decodeJSON reads a single JSON document and rejects unknown keys.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("body must contain a single JSON document")
	}
	return nil
}

func (h *HTTPHandlerImpl) respondDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		h.RespondWithError(w, http.StatusRequestEntityTooLarge, "request body too large")
	case errors.Is(err, io.EOF):
		h.RespondWithError(w, http.StatusBadRequest, "request body is empty")
	default:
		h.RespondWithError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
	}
}

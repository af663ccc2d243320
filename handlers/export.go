package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/pharmaqc/rx-ocr/export"
	"github.com/pharmaqc/rx-ocr/extractor"
	"github.com/pharmaqc/rx-ocr/logging"
)

const maxExportRecords = 500

// Export returns the posted record (or array of records) as a downloadable
// JSON or XLSX file named rx_YYYYMMDD_HHMMSS.<ext>.
//
// POST /v1/export?format=json|xlsx
func (h *HTTPHandlerImpl) Export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = export.FormatJSON
	}
	contentType, err := export.ContentType(format)
	if err != nil {
		h.RespondWithError(w, http.StatusBadRequest, "format must be json or xlsx")
		return
	}

	recs, err := decodeRecords(r)
	if err != nil {
		h.respondDecodeError(w, err)
		return
	}
	if len(recs) == 0 || len(recs) > maxExportRecords {
		h.RespondWithError(w, http.StatusBadRequest, "between 1 and "+strconv.Itoa(maxExportRecords)+" records are required")
		return
	}
	for _, rec := range recs {
		if err := h.validator.ValidateRecord(rec); err != nil {
			h.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	body, err := export.Render(format, recs)
	if err != nil {
		logging.Error("Export rendering failed", "format", format, "error", err)
		h.RespondWithError(w, http.StatusInternalServerError, "export failed")
		return
	}
	h.store.RecordExport()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(h.now(), format)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// decodeRecords accepts a single record object or an array of them.
func decodeRecords(r *http.Request) ([]extractor.Record, error) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, io.EOF
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var recs []extractor.Record
	if raw[0] == '[' {
		err = dec.Decode(&recs)
	} else {
		var rec extractor.Record
		err = dec.Decode(&rec)
		recs = []extractor.Record{rec}
	}
	if err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("body must contain a single JSON document")
	}
	return recs, nil
}

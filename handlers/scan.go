package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/pharmaqc/rx-ocr/extractor"
	"github.com/pharmaqc/rx-ocr/logging"
	"github.com/pharmaqc/rx-ocr/metrics"
	"github.com/pharmaqc/rx-ocr/textsource"
	"github.com/pharmaqc/rx-ocr/validation"
)

// ScanResponse is the result of recognizing and extracting one image.
type ScanResponse struct {
	Fields     extractor.Record  `json:"fields"`
	Found      int               `json:"found"`
	RawText    string            `json:"raw_text"`
	Backend    string            `json:"backend"`
	Extras     map[string]string `json:"extras"`
	DurationMS int64             `json:"duration_ms"`
	Notice     Notice            `json:"notice"`
}

var errNoImage = errors.New("no image in request")

// statusClientClosedRequest is the nginx convention for a client that went
// away before the response.
const statusClientClosedRequest = 499

// Scan recognizes an uploaded image then extracts the fields from its text.
// The image arrives as a multipart "image" part or as a raw image/* body. No
// field is extracted unless recognition fully succeeded.
//
// POST /v1/scan
func (h *HTTPHandlerImpl) Scan(w http.ResponseWriter, r *http.Request) {
	img, err := h.readImage(r)
	if err != nil {
		h.store.RecordScan(false)
		h.respondImageError(w, err)
		return
	}

	mimeType, err := h.validator.ValidateImage(img)
	if err != nil {
		h.store.RecordScan(false)
		h.respondImageError(w, err)
		return
	}

	backend := h.source.Name()
	start := time.Now()
	recog, err := h.source.Recognize(r.Context(), img, mimeType)
	metrics.OCRDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
	if err != nil {
		h.store.RecordScan(false)
		code, reason := classifyRecognitionError(r.Context(), err)
		metrics.OCRErrorsTotal.WithLabelValues(backend, reason).Inc()
		logging.Warn("Recognition failed", "backend", backend, "reason", reason, "error", err)
		h.RespondWithError(w, code, recognitionMessage(code))
		return
	}
	h.store.RecordScan(true)

	rec := h.extract(recog.Text)
	extras := recog.Extras
	if extras == nil {
		extras = map[string]string{}
	}

	h.RespondWithJSON(w, http.StatusOK, ScanResponse{
		Fields:     rec,
		Found:      rec.Found(),
		RawText:    recog.Text,
		Backend:    recog.Backend,
		Extras:     extras,
		DurationMS: recog.Duration.Milliseconds(),
		Notice:     PrivacyNotice,
	})
}

// readImage returns the uploaded bytes, bounded by the image limit.
func (h *HTTPHandlerImpl) readImage(r *http.Request) ([]byte, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("%w: missing or invalid Content-Type", errNoImage)
	}

	var body io.Reader
	switch {
	case mediaType == "multipart/form-data":
		file, _, err := r.FormFile("image")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: expected a multipart part named \"image\"", errNoImage)
		}
		defer file.Close()
		body = file
	case strings.HasPrefix(mediaType, "image/"):
		body = r.Body
	default:
		return nil, fmt.Errorf("%w: unsupported Content-Type %s", errNoImage, mediaType)
	}

	img, err := io.ReadAll(io.LimitReader(body, h.maxImage+1))
	if err != nil {
		return nil, err
	}
	if int64(len(img)) > h.maxImage {
		return nil, fmt.Errorf("%w: more than %d bytes", validation.ErrImageTooLarge, h.maxImage)
	}
	return img, nil
}

func (h *HTTPHandlerImpl) respondImageError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge), errors.Is(err, validation.ErrImageTooLarge):
		h.RespondWithError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, validation.ErrUnsupportedImage):
		h.RespondWithError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, errNoImage), errors.Is(err, validation.ErrEmptyImage):
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		h.RespondWithError(w, http.StatusBadRequest, "could not read image")
	}
}

// classifyRecognitionError maps a backend error to an HTTP status and a
// metrics reason.
func classifyRecognitionError(ctx context.Context, err error) (int, string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		return statusClientClosedRequest, "canceled"
	case errors.Is(err, textsource.ErrUnsupportedImage):
		return http.StatusUnsupportedMediaType, "image"
	case errors.Is(err, textsource.ErrBackendUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, textsource.ErrInvalidResponse):
		return http.StatusBadGateway, "invalid_response"
	case errors.Is(err, textsource.ErrRecognitionFailed):
		return http.StatusBadGateway, "failed"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// recognitionMessage never echoes backend output, which may contain text
// read from the image.
func recognitionMessage(code int) string {
	switch code {
	case http.StatusGatewayTimeout:
		return "recognition timed out"
	case http.StatusServiceUnavailable:
		return "recognition backend unavailable"
	case http.StatusBadGateway:
		return "recognition backend returned an error"
	case http.StatusUnsupportedMediaType:
		return "image could not be decoded"
	case statusClientClosedRequest:
		return "request canceled"
	default:
		return "recognition failed"
	}
}

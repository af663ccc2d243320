// Package textsource turns a prescription image into recognized text. Two
// backends exist: the local tesseract binary and a remote HTTP recognition
// service. The backend is chosen from an explicit Config at construction.
package textsource

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrBackendUnavailable means the recognition engine could not be reached
	// (binary missing, connection refused, timeout).
	ErrBackendUnavailable = errors.New("recognition backend unavailable")

	// ErrRecognitionFailed means the engine ran but reported a failure.
	ErrRecognitionFailed = errors.New("recognition failed")

	// ErrInvalidResponse means the remote backend answered with a payload that
	// does not match the expected contract.
	ErrInvalidResponse = errors.New("invalid recognition response")

	// ErrUnsupportedImage means the image could not be decoded.
	ErrUnsupportedImage = errors.New("unsupported image")
)

const (
	BackendTesseract = "tesseract"
	BackendRemote    = "remote"
)

// Recognition is the outcome of one recognition call.
type Recognition struct {
	Text     string
	Backend  string
	Extras   map[string]string // backend-specific values, never used for extraction
	Duration time.Duration
}

// Source produces recognized text from image bytes.
type Source interface {
	Name() string
	Recognize(ctx context.Context, image []byte, mime string) (Recognition, error)
	// Probe checks that the backend is reachable without recognizing anything.
	Probe(ctx context.Context) error
}

// Config selects and tunes the recognition backend.
type Config struct {
	RemoteURL     string        // when set, the remote backend is used
	TesseractPath string        // default "tesseract"
	Language      string        // tesseract languages, default "eng+fra"
	Timeout       time.Duration // per recognition call, default 120s
}

const (
	defaultTesseract = "tesseract"
	defaultLanguage  = "eng+fra"
	defaultTimeout   = 120 * time.Second
)

func (c Config) withDefaults() Config {
	if c.TesseractPath == "" {
		c.TesseractPath = defaultTesseract
	}
	if c.Language == "" {
		c.Language = defaultLanguage
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c
}

// New returns the backend described by cfg.
func New(cfg Config) (Source, error) {
	cfg = cfg.withDefaults()
	if cfg.RemoteURL != "" {
		return NewRemoteSource(cfg)
	}
	return NewTesseractSource(cfg, nil), nil
}

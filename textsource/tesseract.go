package textsource

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// TesseractSource runs the local tesseract binary. The image is streamed on
// stdin and text read from stdout; nothing is written to disk.
type TesseractSource struct {
	path    string
	lang    string
	timeout time.Duration
	runner  Runner
}

// NewTesseractSource builds the local backend. A nil runner executes the
// real binary.
func NewTesseractSource(cfg Config, runner Runner) *TesseractSource {
	cfg = cfg.withDefaults()
	if runner == nil {
		runner = execRunner{}
	}
	return &TesseractSource{
		path:    cfg.TesseractPath,
		lang:    cfg.Language,
		timeout: cfg.Timeout,
		runner:  runner,
	}
}

func (t *TesseractSource) Name() string { return BackendTesseract }

func (t *TesseractSource) Recognize(ctx context.Context, image []byte, mime string) (Recognition, error) {
	if len(image) == 0 {
		return Recognition{}, fmt.Errorf("%w: empty image", ErrUnsupportedImage)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	start := time.Now()
	stdout, stderr, err := t.runner.Run(ctx, image, t.path, "stdin", "stdout", "-l", t.lang)
	if err != nil {
		return Recognition{}, t.classify(ctx, err, stderr)
	}

	return Recognition{
		Text:     Normalize(stdout),
		Backend:  BackendTesseract,
		Duration: time.Since(start),
	}, nil
}

// classify maps a failed run to a sentinel: a missing binary or an expired
// deadline is an unavailable backend, anything else a recognition failure.
func (t *TesseractSource) classify(ctx context.Context, err error, stderr []byte) error {
	var notFound *exec.Error
	switch {
	case errors.As(err, &notFound):
		return fmt.Errorf("%w: %s: %v", ErrBackendUnavailable, t.path, err)
	case ctx.Err() != nil:
		return fmt.Errorf("%w: tesseract: %w", ErrBackendUnavailable, ctx.Err())
	}

	msg := strings.TrimSpace(string(stderr))
	if msg == "" {
		msg = err.Error()
	}
	return fmt.Errorf("%w: tesseract: %s", ErrRecognitionFailed, truncate(msg, 512))
}

// Probe runs `tesseract --version`.
func (t *TesseractSource) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, stderr, err := t.runner.Run(ctx, nil, t.path, "--version"); err != nil {
		var notFound *exec.Error
		if errors.As(err, &notFound) || ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		return fmt.Errorf("%w: %s", ErrBackendUnavailable, truncate(strings.TrimSpace(string(stderr)), 256))
	}
	return nil
}

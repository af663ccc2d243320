// Package validation checks request payloads: uploaded images, submitted
// text and records sent for export.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pharmaqc/rx-ocr/extractor"
	"github.com/pharmaqc/rx-ocr/interfaces"
)

var (
	ErrEmptyImage       = errors.New("image is empty")
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrImageTooLarge    = errors.New("image too large")
	ErrInvalidText      = errors.New("invalid text")
	ErrInvalidRecord    = errors.New("invalid record")
)

// Limits bounds the accepted payloads.
type Limits struct {
	MaxImageBytes  int64
	MaxImagePixels int // width*height
	MaxTextLength  int // runes
	MaxValueLength int // runes per exported field value
}

// DefaultLimits fit phone photos of a paper prescription.
var DefaultLimits = Limits{
	MaxImageBytes:  10 << 20,
	MaxImagePixels: 50_000_000,
	MaxTextLength:  20000,
	MaxValueLength: 1000,
}

var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
}

// InputValidatorImpl implements interfaces.InputValidator.
type InputValidatorImpl struct {
	limits Limits
}

// NewInputValidator returns a validator; zero limits take their default.
func NewInputValidator(limits Limits) interfaces.InputValidator {
	if limits.MaxImageBytes <= 0 {
		limits.MaxImageBytes = DefaultLimits.MaxImageBytes
	}
	if limits.MaxImagePixels <= 0 {
		limits.MaxImagePixels = DefaultLimits.MaxImagePixels
	}
	if limits.MaxTextLength <= 0 {
		limits.MaxTextLength = DefaultLimits.MaxTextLength
	}
	if limits.MaxValueLength <= 0 {
		limits.MaxValueLength = DefaultLimits.MaxValueLength
	}
	return &InputValidatorImpl{limits: limits}
}

// ValidateImage sniffs the bytes (the declared content type is ignored),
// then reads only the image header to bound its dimensions.
func (v *InputValidatorImpl) ValidateImage(img []byte) (string, error) {
	if len(img) == 0 {
		return "", ErrEmptyImage
	}
	if int64(len(img)) > v.limits.MaxImageBytes {
		return "", fmt.Errorf("%w: %d bytes, max %d", ErrImageTooLarge, len(img), v.limits.MaxImageBytes)
	}

	mime := http.DetectContentType(img)
	if !allowedImageTypes[mime] {
		return "", fmt.Errorf("%w: %s, expected PNG or JPEG", ErrUnsupportedImage, mime)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return "", fmt.Errorf("%w: empty dimensions", ErrUnsupportedImage)
	}
	if cfg.Width*cfg.Height > v.limits.MaxImagePixels {
		return "", fmt.Errorf("%w: %dx%d pixels", ErrImageTooLarge, cfg.Width, cfg.Height)
	}
	return mime, nil
}

// ValidateText accepts any valid UTF-8 up to the length limit, empty text
// included: it simply yields an empty record.
func (v *InputValidatorImpl) ValidateText(text string) error {
	if !utf8.ValidString(text) {
		return fmt.Errorf("%w: not valid UTF-8", ErrInvalidText)
	}
	if n := utf8.RuneCountInString(text); n > v.limits.MaxTextLength {
		return fmt.Errorf("%w: %d characters, max %d", ErrInvalidText, n, v.limits.MaxTextLength)
	}
	if strings.ContainsRune(text, 0) {
		return fmt.Errorf("%w: contains NUL", ErrInvalidText)
	}
	return nil
}

// ValidateRecord checks every value of a record sent back for export. Values
// may have been edited by hand, so they are bounded and must be printable.
func (v *InputValidatorImpl) ValidateRecord(rec extractor.Record) error {
	for _, f := range extractor.Fields() {
		val := rec.Get(f)
		if !utf8.ValidString(val) {
			return fmt.Errorf("%w: %s is not valid UTF-8", ErrInvalidRecord, f)
		}
		if n := utf8.RuneCountInString(val); n > v.limits.MaxValueLength {
			return fmt.Errorf("%w: %s has %d characters, max %d", ErrInvalidRecord, f, n, v.limits.MaxValueLength)
		}
		if strings.IndexFunc(val, isForbiddenControl) >= 0 {
			return fmt.Errorf("%w: %s contains control characters", ErrInvalidRecord, f)
		}
	}
	return nil
}

func isForbiddenControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t'
}

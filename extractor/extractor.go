package extractor

import "golang.org/x/text/unicode/norm"

// Extractor applies a pattern table to recognized text. The zero value is not
// usable; call New. An Extractor holds no mutable state and is safe for
// concurrent use.
type Extractor struct {
	rules []Rule
}

// New returns an extractor over the built-in pattern table.
func New() *Extractor {
	return &Extractor{rules: rules}
}

var defaultExtractor = New()

// Extract runs the built-in pattern table over text.
func Extract(text string) Record {
	return defaultExtractor.Extract(text)
}

// Extract builds a complete record from text. Each field is resolved on its
// own against the same source; a field with no surviving candidate is "".
// OCR output may carry decomposed accents, so text is NFC-normalized first.
func (e *Extractor) Extract(text string) Record {
	text = norm.NFC.String(text)

	var rec Record
	for _, rule := range e.rules {
		rec.Set(rule.Field, selectValue(rule.Field, collect(rule, text)))
	}
	return rec
}

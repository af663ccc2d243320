package extractor

import (
	"strings"
	"unicode/utf8"
)

// Candidate is one capture produced by one pattern of a field.
type Candidate struct {
	Pattern  int    // index of the pattern in the field's rule
	Value    string // raw captured text, before any trimming
	Position int    // byte offset of the capture in the source text
}

// minMedicationLength is the shortest accepted medication name, in runes.
// Four-letter names such as Keto are kept; only three letters or fewer are dropped.
const minMedicationLength = 4

// medicationStopWords are capitalized form labels that are never a drug name.
// Compared case-sensitively.
var medicationStopWords = map[string]struct{}{
	"Dr":      {},
	"Dre":     {},
	"Patient": {},
	"Date":    {},
	"Rx":      {},
	"Sig":     {},
	"Qty":     {},
	"Refills": {},
	"Name":    {},
	"Phone":   {},
	"Address": {},
	"RAMQ":    {},
}

// collect runs every pattern of the rule against text and pools the captures,
// in declared pattern order and then left to right.
func collect(rule Rule, text string) []Candidate {
	var pool []Candidate
	for i, p := range rule.Patterns {
		for _, c := range p.FindAll(text) {
			c.Pattern = i
			pool = append(pool, c)
		}
	}
	return pool
}

// Candidates exposes the full candidate pool of a field, mostly for tests and
// the pattern inspection endpoint. Unknown fields yield nil.
func Candidates(field FieldName, text string) []Candidate {
	for _, r := range rules {
		if r.Field == field {
			return collect(r, text)
		}
	}
	return nil
}

// normalize applies the per-field post-processing to a raw capture.
func normalize(field FieldName, value string) string {
	switch field {
	case Prescriber, Directions:
		return strings.TrimSpace(value)
	}
	return value
}

// accept reports whether a normalized value may be retained for the field.
func accept(field FieldName, value string) bool {
	if value == "" {
		return false
	}
	if field != Medication {
		return true
	}
	if _, stop := medicationStopWords[value]; stop {
		return false
	}
	return utf8.RuneCountInString(value) >= minMedicationLength
}

// selectValue reduces a candidate pool to one value: the first candidate that
// survives post-processing, or "" when none does.
func selectValue(field FieldName, pool []Candidate) string {
	for _, c := range pool {
		v := normalize(field, c.Value)
		if accept(field, v) {
			return v
		}
	}
	return ""
}

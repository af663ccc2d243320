package extractor

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Pattern is one compiled recognition rule. The expression captures exactly
// one group holding the field value.
type Pattern struct {
	Source string

	re *regexp.Regexp

	// boundLeft and boundRight require the captured value to sit on a word
	// boundary. Go's \b only knows ASCII, so accented letters are checked here.
	boundLeft  bool
	boundRight bool

	// accept, when set, vetoes a capture from its surrounding text.
	accept func(text string, start, end int) bool
}

// Rule is the ordered pattern list of a single field. Earlier patterns win.
type Rule struct {
	Field    FieldName
	Patterns []Pattern
}

func newPattern(src string, left, right bool) Pattern {
	return Pattern{
		Source:     src,
		re:         regexp.MustCompile(src),
		boundLeft:  left,
		boundRight: right,
	}
}

func withAccept(p Pattern, accept func(text string, start, end int) bool) Pattern {
	p.accept = accept
	return p
}

// notGramPrefix rejects a bare "g" unit glued to a lowercase word ("1 goutte").
// Other units may run into the next token, as in "500mgBID".
func notGramPrefix(text string, start, end int) bool {
	v := strings.ToLower(text[start:end])
	if !strings.HasSuffix(v, "g") || strings.HasSuffix(v, "mg") || strings.HasSuffix(v, "mcg") {
		return true
	}
	if end >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[end:])
	return !unicode.IsLower(r)
}

// Pharmacological suffixes a drug name commonly ends with.
var medicationSuffixes = []string{
	"ine", "ol", "ide", "cin", "mine", "pam", "tan", "lin", "xin",
	"done", "pril", "stat", "one", "pine", "mab", "nib", "fungin",
}

var (
	// Capitalized, optionally hyphenated or mixed-case word (Co-Amoxiclav, Amoxicillin).
	medicationWord = `[A-Z][a-z]*-?[A-Z]?[a-z]+`
	suffixGroup    = `(?:` + strings.Join(medicationSuffixes, "|") + `)`

	// One or more capitalized name words on the same line (Côté, Saint-Pierre).
	prescriberName = `(\p{Lu}[\p{L}'-]+(?:[ \t]+\p{Lu}[\p{L}'-]+)*)`

	// Free text up to the end of the line, bounded to drop fragments and runaways.
	directionsTail = `[:\s]*([^\n]{15,200})`
)

// Longer alternatives first: leftmost-first matching must prefer "tablets" over "tab".
var dosageForms = []string{
	"capsules", "capsule", "caps", "cap",
	"tablets", "tablet", "tabs", "tab",
	"comprimés", "comprimé", "comp",
	"cream", "crème", "ointment",
	"syrup", "sirop",
	"solution", "suspension", "injection", "inhalation",
}

// rules is the static pattern table, in canonical field order.
var rules = []Rule{
	{Field: Date, Patterns: []Pattern{
		newPattern(`\b(\d{1,2}[-/]\d{1,2}[-/]\d{4})\b`, true, true),
		newPattern(`\b(\d{4}[-/]\d{1,2}[-/]\d{1,2})\b`, true, true),
	}},
	{Field: Prescriber, Patterns: []Pattern{
		newPattern(`(?:Dr\.?|Dre\.?)\s*`+prescriberName, false, false),
		newPattern(`MD[:\s]*`+prescriberName, false, false),
	}},
	{Field: Medication, Patterns: []Pattern{
		newPattern(`\b(`+medicationWord+suffixGroup+`)\b`, true, true),
		newPattern(`\b(`+medicationWord+suffixGroup+`?)\b`, true, true),
	}},
	{Field: Strength, Patterns: []Pattern{
		withAccept(newPattern(`(?i)(\d+(?:\.\d+)?[ \t]*(?:mg|ml|mcg|g|units?)(?:/\d+(?:mg|ml))?)`, false, false), notGramPrefix),
	}},
	{Field: Form, Patterns: []Pattern{
		newPattern(`(?i)(`+strings.Join(dosageForms, "|")+`)`, true, true),
	}},
	{Field: Quantity, Patterns: []Pattern{
		newPattern(`(?i)qty[:\s]*(\d+)`, false, false),
		newPattern(`(?i)quantity[:\s]*(\d+)`, false, false),
		newPattern(`(?i)quantit[ée][:\s]*(\d+)`, false, false),
		newPattern(`(?i)disp(?:ense)?[:\s]*(\d+)`, false, false),
		newPattern(`#\s*(\d+)`, false, false),
		newPattern(`(?i)\b(\d{1,3})\s*(?:cap|tab|comp)`, true, false),
	}},
	{Field: Refills, Patterns: []Pattern{
		newPattern(`(?i)refills?[:\s]*(\d+)`, false, false),
		newPattern(`(?i)ren(?:ouvellements?)?[:\s]*(\d+)`, false, false),
		newPattern(`(?i)r[ée]p[ée]t[ée]?[:\s]*(\d+)`, false, false),
		newPattern(`(?i)rep[:\s]*(\d+)`, false, false),
	}},
	{Field: Directions, Patterns: []Pattern{
		// "sig" keeps a trailing boundary so Signature lines are not read as directions.
		newPattern(`(?i)sig\b`+directionsTail, false, false),
		newPattern(`(?i)directions?`+directionsTail, false, false),
		newPattern(`(?i)posologie`+directionsTail, false, false),
		newPattern(`(?i)(?:take|prendre|prenez)`+directionsTail, false, false),
	}},
}

// Rules returns the whole pattern table in canonical field order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Patterns returns the ordered patterns for a field, or nil for an unknown field.
func Patterns(field FieldName) []Pattern {
	for _, r := range rules {
		if r.Field == field {
			out := make([]Pattern, len(r.Patterns))
			copy(out, r.Patterns)
			return out
		}
	}
	return nil
}

// FindAll returns every capture of the pattern in text, left to right.
func (p Pattern) FindAll(text string) []Candidate {
	var out []Candidate
	for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[2], loc[3]
		if start < 0 {
			continue
		}
		if p.boundLeft && !leftBoundary(text, start) {
			continue
		}
		if p.boundRight && !rightBoundary(text, end) {
			continue
		}
		if p.accept != nil && !p.accept(text, start, end) {
			continue
		}
		out = append(out, Candidate{Value: text[start:end], Position: start})
	}
	return out
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

func leftBoundary(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func rightBoundary(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(r)
}

package textsource

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reBoxNoise   = regexp.MustCompile(`(?m)^[ ]*[_\-=|]{3,}[ ]*$`)
)

// Normalize cleans engine output before extraction: Latin-1 bytes are
// decoded, accents are composed (NFC), line endings unified, runs of spaces
// and blank lines collapsed and ruled lines dropped. Line breaks are kept
// since several fields stop at the end of a line.
func Normalize(raw []byte) string {
	s := string(raw)
	if !utf8.Valid(raw) {
		// Every byte is a valid Latin-1 code point, so this cannot fail.
		decoded, _ := charmap.ISO8859_1.NewDecoder().Bytes(raw)
		s = string(decoded)
	}

	if s == "" {
		return s
	}
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\f", "\n")
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")
	s = reBoxNoise.ReplaceAllString(s, "")

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	s = strings.Join(lines, "\n")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

package validate

import (
	"regexp"
	"strings"
)

// MaxDocumentBytes bounds long-form document text (readmes) at 500 KiB.
const MaxDocumentBytes = 500 * 1024

var (
	controlChars  = regexp.MustCompile("[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]")
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// Sanitize strips ASCII control characters (each replaced with a single
// space), collapses runs of whitespace to one space, and trims. It never
// fails; absent text yields empty text.
func Sanitize(text string) string {
	if text == "" {
		return ""
	}
	s := controlChars.ReplaceAllString(text, " ")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// SanitizeDocument sanitizes long-form document text and additionally
// truncates it to MaxDocumentBytes. The cut is a plain byte truncation of the
// sanitized text and the result is not re-validated afterwards.
func SanitizeDocument(text string) string {
	s := Sanitize(text)
	if len(s) > MaxDocumentBytes {
		s = s[:MaxDocumentBytes]
	}
	return s
}

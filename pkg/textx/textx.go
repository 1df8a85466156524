// Package textx provides small text utilities shared by the model client and
// the response extractor.
package textx

import "strings"

// SanitizeText removes control characters except tab/newline/CR and trims
// surrounding whitespace. Model output and OCR'd answers routinely carry
// stray control bytes that break JSON round-trips and log lines.
func SanitizeText(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(cleaned)
}

// CollapseWhitespace folds any run of whitespace into a single space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate shortens s to at most n runes, appending an ellipsis when cut.
// Used for log previews of model responses.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}

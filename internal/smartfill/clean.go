// File: internal/smartfill/clean.go
// Text normalization and answer cleanup. Cleaning is idempotent: running it
// over already-clean text is a no-op, which the matcher relies on.
package smartfill

import (
	"regexp"
	"strings"
)

var (
	nonAlnumRe   = regexp.MustCompile(`[^a-z0-9]+`)
	whitespaceRe = regexp.MustCompile(`\s+`)

	codeFenceOpenRe  = regexp.MustCompile(`(?i)^\s*` + "```" + `(?:json)?\s*`)
	codeFenceCloseRe = regexp.MustCompile(`\s*` + "```" + `\s*$`)
	answerLabelRe    = regexp.MustCompile(`(?im)^\s*\[\s*answer\s*\d*\s*\]\s*`)
	boldRe           = regexp.MustCompile(`\*\*(.+?)\*\*`)
	underlineRe      = regexp.MustCompile(`__(.+?)__`)
	inlineCodeRe     = regexp.MustCompile("`([^`]+)`")
	headingRe        = regexp.MustCompile(`(?m)^\s*#{1,6}\s*`)
	answerTagRe      = regexp.MustCompile(`(?i)<\s*/?\s*(?:text|answer)\s*>`)
	blankRunCollapse = regexp.MustCompile(`\n{3,}`)
)

// NormalizeText lowercases, folds every non-alphanumeric run into a single
// space and collapses whitespace. Dedup and similarity both operate on this
// form so that punctuation and casing drift never defeat a match.
func NormalizeText(s string) string {
	s = strings.ToLower(s)
	s = nonAlnumRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// CleanAnswer strips the decoration LLM output tends to carry: code fences,
// leading answer-label tokens, markdown emphasis and heading markers, stray
// text/answer tags, and runs of blank lines. Records whose body cleans to
// empty are dropped by the matcher.
func CleanAnswer(text string) string {
	out := strings.ReplaceAll(text, "\r\n", "\n")
	out = strings.ReplaceAll(out, "\r", "\n")
	out = strings.TrimSpace(out)

	out = codeFenceOpenRe.ReplaceAllString(out, "")
	out = codeFenceCloseRe.ReplaceAllString(out, "")
	out = answerLabelRe.ReplaceAllString(out, "")
	out = boldRe.ReplaceAllString(out, "$1")
	out = underlineRe.ReplaceAllString(out, "$1")
	out = inlineCodeRe.ReplaceAllString(out, "$1")
	out = headingRe.ReplaceAllString(out, "")
	out = answerTagRe.ReplaceAllString(out, "")
	out = blankRunCollapse.ReplaceAllString(out, "\n\n")

	return strings.TrimSpace(out)
}

// Truncate caps s at limit runes. Ceilings are applied before any placement
// pass so a runaway generation cannot produce pathological typing durations.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

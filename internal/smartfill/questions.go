// File: internal/smartfill/questions.go
// Question/prompt extraction. Two independent extractors share one predicate
// family: one scans the live DOM's visible text elements, the other scans
// exported plain text when the live DOM is inconvenient to query. Both
// deduplicate on normalized text, not exact strings.
package smartfill

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/xkilldash9x/studyflow-cli/api/schemas"
)

// Prompt-likeness cues: a question mark, trailing colon, a run of 3+
// underscores, empty bracket/paren pairs, a leading enumerator or bullet, or
// instructional vocabulary. Bounded to a length window to exclude noise.
var (
	questionMarkerRe = regexp.MustCompile(`\?|:\s*$|_{3,}|\[\s*\]|\(\s*\)`)
	enumeratorRe     = regexp.MustCompile(`^\s*(?:\d+[.)]|[A-Z][.)]|[-*])\s+`)
	keywordRe        = regexp.MustCompile(`\b(what|why|how|describe|explain|list|choose|write|brief summary|your (answer|response|thoughts)|free response)\b`)
	uiChromeRe       = regexp.MustCompile(`\b(turn in|add class comment|private comment|stream|class comment|search|instructions?|submit)\b`)
)

const (
	minPromptLen = 4
	maxPromptLen = 500
	// Doc-text prompts are capped tighter; exported lines run long.
	maxDocPromptLen = 260
)

// isPromptLike applies the shared predicate family to one cleaned line.
func isPromptLike(line string) bool {
	if len(line) < minPromptLen || len(line) > maxPromptLen {
		return false
	}
	lower := strings.ToLower(line)
	if uiChromeRe.MatchString(lower) {
		return false
	}
	return questionMarkerRe.MatchString(line) ||
		enumeratorRe.MatchString(line) ||
		keywordRe.MatchString(lower)
}

// extractQuestionsJS collects visible question-like text elements in vertical
// order, deduplicated by a lowercased key.
const extractQuestionsJS = `(function() {
	const clean = (t) => (t || '').replace(/\s+/g, ' ').trim();
	const ignore = /(turn in|add class comment|private comment|stream|search|submit|instructions?)/i;
	const qLike = (t) => {
		if (!t || t.length < 4 || t.length > 500) return false;
		if (ignore.test(t)) return false;
		return /\?|:\s*$|_{3,}|\[\s*\]|\(\s*\)/.test(t)
			|| /^\s*(?:\d+[.)]|[A-Z][.)]|[-*])\s+/.test(t)
			|| /\b(what|why|how|describe|explain|list|choose|write|brief summary|your (answer|response|thoughts)|free response)\b/i.test(t);
	};
	const seen = new Set();
	const out = [];
	const els = Array.from(document.querySelectorAll('h1,h2,h3,h4,h5,label,p,span,div[role="heading"],legend'));
	for (const el of els) {
		const rect = el.getBoundingClientRect();
		const style = getComputedStyle(el);
		if (style.display === 'none' || style.visibility === 'hidden') continue;
		if (rect.width < 5 || rect.height < 5) continue;
		const t = clean(el.textContent || el.innerText);
		if (!qLike(t)) continue;
		const key = t.toLowerCase().slice(0, 120);
		if (seen.has(key)) continue;
		seen.add(key);
		out.push({ snippet: t.slice(0, 300), y: rect.top });
	}
	out.sort((a, b) => a.y - b.y);
	return out;
})()`

// ExtractQuestions scans the live page for question-shaped text fragments in
// vertical document order.
func ExtractQuestions(ctx context.Context, page Page) ([]schemas.DetectedQuestion, error) {
	var raw []schemas.DetectedQuestion
	if err := page.Evaluate(ctx, extractQuestionsJS, &raw); err != nil {
		return nil, fmt.Errorf("question extraction failed: %w", err)
	}
	for i := range raw {
		raw[i].Index = i
	}
	return raw, nil
}

// ExtractDocPrompts runs the same predicate family over exported document
// text, line by line, for use when reasoning about a snapshot instead of the
// live DOM. The result is deduplicated on normalized text and capped at
// maxFields.
func ExtractDocPrompts(docText string, maxFields int) []string {
	if maxFields <= 0 {
		maxFields = 24
	}
	var prompts []string
	seen := make(map[string]bool)

	for _, raw := range strings.Split(docText, "\n") {
		line := strings.TrimSpace(whitespaceRe.ReplaceAllString(raw, " "))
		if len(line) < minPromptLen || len(line) > maxDocPromptLen {
			continue
		}
		if !isPromptLike(line) {
			continue
		}
		norm := NormalizeText(line)
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		prompts = append(prompts, line)
		if len(prompts) >= maxFields {
			break
		}
	}
	return prompts
}

// File: internal/smartfill/matcher.go
// Answer-to-field correspondence. Matching is greedy in document order: each
// field claims the best-scoring unused answer above the threshold; fields
// left over fall back to positional assignment, which may reuse answers so
// that no field is ever left without content.
package smartfill

import (
	"github.com/xkilldash9x/studyflow-cli/api/schemas"
)

// cleanedAnswer is one usable answer after cleanup, with consumption state
// for the greedy pass.
type cleanedAnswer struct {
	record schemas.AnswerRecord
	text   string
	used   bool
}

// prepareAnswers cleans every record and drops the ones whose body cleans to
// empty. Order is preserved; positional fallback depends on it.
func prepareAnswers(answers []schemas.AnswerRecord, maxChars int) []cleanedAnswer {
	out := make([]cleanedAnswer, 0, len(answers))
	for _, rec := range answers {
		text := Truncate(CleanAnswer(rec.Answer), maxChars)
		if text == "" {
			continue
		}
		out = append(out, cleanedAnswer{record: rec, text: text})
	}
	return out
}

// answerKey returns the text an answer is scored on: the echoed question when
// present, otherwise the answer body itself.
func answerKey(rec schemas.AnswerRecord) string {
	if rec.Question != "" {
		return rec.Question
	}
	return rec.Answer
}

// MatchAnswersToFields assigns one answer to every field. The greedy pass
// walks fields top to bottom and consumes the best-scoring unused answer when
// its score clears threshold. Any field still unmatched takes the answer at
// its own ordinal (clamped to the last answer), with no consumption, so two
// trailing fields may legitimately share a final answer. The second return is
// the count of positional assignments.
func MatchAnswersToFields(fields []schemas.DetectedField, answers []schemas.AnswerRecord, threshold float64, maxChars int) ([]schemas.Match, int) {
	cleaned := prepareAnswers(answers, maxChars)
	if len(cleaned) == 0 {
		return nil, 0
	}

	matches := make([]schemas.Match, len(fields))
	unmatched := make([]int, 0, len(fields))

	for fi, field := range fields {
		bestIdx := -1
		bestScore := 0.0
		for ai := range cleaned {
			if cleaned[ai].used {
				continue
			}
			score := Similarity(field.NearbyText, answerKey(cleaned[ai].record))
			if score > bestScore {
				bestScore = score
				bestIdx = ai
			}
		}
		if bestIdx >= 0 && bestScore >= threshold {
			cleaned[bestIdx].used = true
			matches[fi] = schemas.Match{Field: field, Answer: cleaned[bestIdx].text, Score: bestScore}
			continue
		}
		unmatched = append(unmatched, fi)
	}

	for _, fi := range unmatched {
		ai := fi
		if ai >= len(cleaned) {
			ai = len(cleaned) - 1
		}
		matches[fi] = schemas.Match{Field: fields[fi], Answer: cleaned[ai].text, Score: 0}
	}

	return matches, len(unmatched)
}

// PromptMatch pairs one document prompt with a full answer record; the record
// is kept whole because placement strategy selection reads its declared type.
type PromptMatch struct {
	Prompt string
	Record schemas.AnswerRecord
	Text   string
	Score  float64
}

// MatchQuestionsToAnswers is the document-surface counterpart of
// MatchAnswersToFields: same greedy pass, same positional fallback, keyed on
// exported prompt lines instead of detected fields.
func MatchQuestionsToAnswers(prompts []string, answers []schemas.AnswerRecord, threshold float64, maxChars int) ([]PromptMatch, int) {
	cleaned := prepareAnswers(answers, maxChars)
	if len(cleaned) == 0 {
		return nil, 0
	}

	matches := make([]PromptMatch, len(prompts))
	unmatched := make([]int, 0, len(prompts))

	for pi, prompt := range prompts {
		bestIdx := -1
		bestScore := 0.0
		for ai := range cleaned {
			if cleaned[ai].used {
				continue
			}
			score := Similarity(prompt, answerKey(cleaned[ai].record))
			if score > bestScore {
				bestScore = score
				bestIdx = ai
			}
		}
		if bestIdx >= 0 && bestScore >= threshold {
			cleaned[bestIdx].used = true
			matches[pi] = PromptMatch{Prompt: prompt, Record: cleaned[bestIdx].record, Text: cleaned[bestIdx].text, Score: bestScore}
			continue
		}
		unmatched = append(unmatched, pi)
	}

	for _, pi := range unmatched {
		ai := pi
		if ai >= len(cleaned) {
			ai = len(cleaned) - 1
		}
		matches[pi] = PromptMatch{Prompt: prompts[pi], Record: cleaned[ai].record, Text: cleaned[ai].text, Score: 0}
	}

	return matches, len(unmatched)
}

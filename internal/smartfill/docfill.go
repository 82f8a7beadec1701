// File: internal/smartfill/docfill.go
// Document-surface fill: places answers into an open rich-text document using
// keyboard-driven strategies instead of per-field focus. Used when the
// delivery surface is an attached editable document rather than discrete
// answer boxes.
package smartfill

import (
	"context"

	"go.uber.org/zap"

	"github.com/xkilldash9x/studyflow-cli/api/schemas"
)

// FillDocument runs one pass over an open document: prompts extracted from
// the exported text, layout classified from the exported markup, one
// placement strategy per matched prompt. Per-prompt failures are logged and
// skipped; the count of successful placements comes back with any final
// iteration error.
func (e *Engine) FillDocument(ctx context.Context, docText, exportURL string, answers []schemas.AnswerRecord) (*schemas.SmartFillResult, error) {
	result := &schemas.SmartFillResult{}

	prompts := ExtractDocPrompts(docText, e.cfg.MaxFields)
	result.TotalFields = len(prompts)
	if len(prompts) == 0 {
		e.logger.Info("No prompt lines found in document text")
		return result, nil
	}

	layout := schemas.DocTableInfo{Layout: schemas.LayoutPlain}
	if exportURL != "" {
		layout = FetchDocLayout(ctx, e.page, exportURL, e.cfg.TableRowPairs)
	}
	e.logger.Info("Document layout classified",
		zap.String("layout", string(layout.Layout)),
		zap.Int("rows", layout.Rows),
		zap.Int("prompts", len(prompts)))

	matches, positional := MatchQuestionsToAnswers(prompts, answers, e.cfg.MatchThreshold, e.cfg.MaxAnswerChars)
	if len(matches) == 0 {
		e.logger.Info("No usable answers supplied for document pass")
		return result, nil
	}
	if positional > 0 {
		e.logger.Debug("Positional fallback pairing used in document pass",
			zap.Int("positional", positional))
	}

	for i, m := range matches {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		strategy := PickStrategy(m.Record.Type, layout.Layout)
		if err := Place(ctx, e.page, strategy, m.Prompt, m.Text); err != nil {
			result.FailedCount++
			e.logger.Warn("Document placement failed",
				zap.String("strategy", string(strategy)),
				zap.String("prompt", Truncate(m.Prompt, 60)),
				zap.Error(err))
			continue
		}
		result.FilledCount++
		e.logger.Info("Answer placed in document",
			zap.String("strategy", string(strategy)),
			zap.Float64("score", m.Score))
		if i < len(matches)-1 {
			if err := e.pauseBetweenFields(ctx); err != nil {
				return result, err
			}
		}
	}
	return result, nil
}

// TypeDraft types a full draft body at the document's current cursor
// position. The single-editor fallback path uses it when no per-prompt
// structure is worth preserving.
func (e *Engine) TypeDraft(ctx context.Context, draft string) error {
	return e.page.TypeActive(ctx, Truncate(CleanAnswer(draft), e.cfg.MaxDraftChars))
}

// File: internal/smartfill/detect.go
package smartfill

import (
	"context"

	"go.uber.org/zap"

	"github.com/xkilldash9x/studyflow-cli/api/schemas"
)

// DetectAssignmentQuestionFields settles and scrolls the page, then returns
// its editable fields and question-shaped text fragments in one pass. Callers
// that only need detection (to decide whether a surface is worth filling, or
// to collect generation prompts) use this without committing to a fill.
func (e *Engine) DetectAssignmentQuestionFields(ctx context.Context) ([]schemas.DetectedField, []schemas.DetectedQuestion, error) {
	if err := e.page.Settle(ctx); err != nil {
		return nil, nil, err
	}
	if err := e.page.SlowScroll(ctx); err != nil {
		return nil, nil, err
	}
	fields, err := ExtractFields(ctx, e.page)
	if err != nil {
		return nil, nil, err
	}
	questions, err := ExtractQuestions(ctx, e.page)
	if err != nil {
		return nil, nil, err
	}
	e.logger.Info("Detection pass complete",
		zap.Int("fields", len(fields)), zap.Int("questions", len(questions)))
	return fields, questions, nil
}

// FillDetectedFields places answers into fields a caller already detected,
// skipping the settle/scroll/extract phases. Counts mirror Fill's; the
// fallback dump applies here too.
func (e *Engine) FillDetectedFields(ctx context.Context, fields []schemas.DetectedField, answers []schemas.AnswerRecord) (*schemas.SmartFillResult, error) {
	result := &schemas.SmartFillResult{TotalFields: len(fields)}
	if len(fields) == 0 {
		return result, nil
	}

	matches, positional := MatchAnswersToFields(fields, answers, e.cfg.MatchThreshold, e.cfg.MaxAnswerChars)
	if len(matches) == 0 {
		e.logger.Info("No usable answers supplied, nothing to fill",
			zap.Int("fields", len(fields)))
		return result, nil
	}
	if positional > 0 {
		e.logger.Debug("Positional fallback pairing used",
			zap.Int("positional", positional), zap.Int("fields", len(fields)))
	}

	for i, m := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := e.fillField(ctx, m.Field, m.Answer); err != nil {
			result.FailedCount++
			e.logger.Warn("Field fill failed",
				zap.Int("field", m.Field.Index),
				zap.String("nearby", Truncate(m.Field.NearbyText, 60)),
				zap.Error(err))
			e.captureDebug(ctx, result, m.Field.Index)
			continue
		}
		result.FilledCount++
		e.logger.Info("Field filled",
			zap.Int("field", m.Field.Index),
			zap.Float64("score", m.Score))
		if i < len(matches)-1 {
			if err := e.pauseBetweenFields(ctx); err != nil {
				return nil, err
			}
		}
	}

	if result.FilledCount == 0 {
		e.runFallback(ctx, fields, answers, result)
	}
	return result, nil
}

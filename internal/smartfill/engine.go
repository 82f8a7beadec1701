// File: internal/smartfill/engine.go
// The Smart-Fill orchestrator. One Fill call is one pass over a live page:
// settle, scroll, extract, match, then fill each field top to bottom. A pass
// that fills nothing despite having answers dumps the combined answers into
// the first field as a last resort; partial ugly delivery beats none, since
// human review happens downstream.
package smartfill

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/xkilldash9x/studyflow-cli/api/schemas"
	"github.com/xkilldash9x/studyflow-cli/internal/config"
)

// Engine runs fill passes against a single page.
type Engine struct {
	page   Page
	cfg    config.FillConfig
	logger *zap.Logger
	rng    *rand.Rand
}

// NewEngine binds the engine to a page. A nil rng gets a clock-seeded one;
// tests inject a fixed seed.
func NewEngine(page Page, cfg config.FillConfig, rng *rand.Rand, logger *zap.Logger) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{page: page, cfg: cfg, logger: logger, rng: rng}
}

// Fill runs one complete fill pass against the live page, retrying the whole
// pass on transient failure. Transient DOM-not-ready errors are common
// against uncontrolled third-party pages, so the retry wraps everything from
// settle to the final field.
func (e *Engine) Fill(ctx context.Context, answers []schemas.AnswerRecord) (*schemas.SmartFillResult, error) {
	attempts := e.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var result *schemas.SmartFillResult
	operation := func() error {
		res, err := e.fillOnce(ctx, answers)
		if err != nil {
			e.logger.Warn("Fill pass failed, may retry", zap.Error(err))
			return err
		}
		result = res
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(e.cfg.RetryBackoff), uint64(attempts-1)),
		ctx)
	if err := backoff.Retry(operation, bo); err != nil {
		return nil, fmt.Errorf("fill pass exhausted %d attempts: %w", attempts, err)
	}
	return result, nil
}

// fillOnce is a single pass: SETTLING, SCROLLING, EXTRACTING, MATCHING,
// FILLING each field, then the FALLBACK branch when nothing landed. Zero
// detected fields or zero usable answers end the pass early with zero counts
// and no error.
func (e *Engine) fillOnce(ctx context.Context, answers []schemas.AnswerRecord) (*schemas.SmartFillResult, error) {
	result := &schemas.SmartFillResult{}

	if err := e.page.Settle(ctx); err != nil {
		return nil, fmt.Errorf("page settle: %w", err)
	}
	if err := e.page.SlowScroll(ctx); err != nil {
		return nil, fmt.Errorf("pre-extraction scroll: %w", err)
	}

	fields, err := ExtractFields(ctx, e.page)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		e.logger.Info("No editable fields detected, nothing to fill")
		return result, nil
	}
	return e.FillDetectedFields(ctx, fields, answers)
}

// fillField places text into one detected field. Simple inputs take a direct
// value assignment; anything rejected or rich falls back to focus, clear,
// type. Clearing only touches the answer box itself, never document content.
func (e *Engine) fillField(ctx context.Context, field schemas.DetectedField, text string) error {
	sel := field.Selector()
	if err := e.page.ScrollIntoView(ctx, sel); err != nil {
		return fmt.Errorf("scroll to field: %w", err)
	}

	if field.Tag == "input" || field.Tag == "textarea" {
		if err := e.page.SetValue(ctx, sel, text); err == nil {
			return nil
		}
	}

	if err := e.page.Click(ctx, sel); err != nil {
		return fmt.Errorf("focus field: %w", err)
	}
	if err := e.page.SelectAll(ctx); err != nil {
		return err
	}
	if err := e.page.PressKey(ctx, "Delete"); err != nil {
		return err
	}
	return e.page.TypeActive(ctx, text)
}

// runFallback concatenates every cleaned answer and dumps the block into the
// first detected field. Entered only when the per-field loop landed nothing
// and at least one usable answer exists.
func (e *Engine) runFallback(ctx context.Context, fields []schemas.DetectedField, answers []schemas.AnswerRecord, result *schemas.SmartFillResult) {
	cleaned := prepareAnswers(answers, e.cfg.MaxAnswerChars)
	if len(cleaned) == 0 {
		return
	}
	parts := make([]string, 0, len(cleaned))
	for _, c := range cleaned {
		parts = append(parts, c.text)
	}
	combined := Truncate(strings.Join(parts, "\n\n"), e.cfg.MaxDraftChars)

	e.logger.Warn("All field fills failed, dumping combined answers into first field",
		zap.Int("answers", len(cleaned)))
	if err := e.fillField(ctx, fields[0], combined); err != nil {
		e.logger.Error("Fallback dump failed", zap.Error(err))
		e.captureDebug(ctx, result, fields[0].Index)
		return
	}
	result.FilledCount = 1
	result.FailedCount = len(fields) - 1
	result.FallbackUsed = true
}

// pauseBetweenFields sleeps a randomized interval so consecutive fills do not
// land back to back.
func (e *Engine) pauseBetweenFields(ctx context.Context) error {
	min, max := e.cfg.FieldPauseMin, e.cfg.FieldPauseMax
	if max <= min {
		return e.page.Sleep(ctx, min)
	}
	d := min + time.Duration(e.rng.Int63n(int64(max-min)))
	return e.page.Sleep(ctx, d)
}

// captureDebug writes a failure screenshot when a debug directory is
// configured. Screenshot failure is logged and swallowed.
func (e *Engine) captureDebug(ctx context.Context, result *schemas.SmartFillResult, fieldIdx int) {
	if e.cfg.DebugDir == "" {
		return
	}
	if err := os.MkdirAll(e.cfg.DebugDir, 0o755); err != nil {
		e.logger.Debug("Debug dir unavailable", zap.Error(err))
		return
	}
	path := filepath.Join(e.cfg.DebugDir,
		fmt.Sprintf("fill-fail-field%02d-%d.png", fieldIdx, time.Now().Unix()))
	if err := e.page.Screenshot(ctx, path); err != nil {
		e.logger.Debug("Screenshot failed", zap.Error(err))
		return
	}
	result.Screenshots = append(result.Screenshots, path)
}

// File: internal/workflow/workflow.go
// Run orchestration: scan the to-do list, draft one submission per pending
// assignment, deliver it, and record the outcome. A lock file keeps two
// processes from driving the same browser profile; the schedule loop repeats
// the pass on an interval and only touches assignments that appeared after
// its baseline.
package workflow

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/studyflow-cli/api/schemas"
	"github.com/xkilldash9x/studyflow-cli/internal/classroom"
	"github.com/xkilldash9x/studyflow-cli/internal/config"
	"github.com/xkilldash9x/studyflow-cli/internal/smartfill"
)

// staleLockAge is how old an abandoned lock file must be before a new run
// claims it.
const staleLockAge = 24 * time.Hour

type scanner interface {
	Scan(ctx context.Context) ([]schemas.Assignment, error)
}

type drafter interface {
	Generate(ctx context.Context, req schemas.GenerationRequest) (*schemas.GenerationResult, error)
}

type deliverer interface {
	Deliver(ctx context.Context, a *schemas.Assignment, gen *schemas.GenerationResult) (bool, error)
}

type styleLoader interface {
	LoadSamples() []string
}

type detector interface {
	DetectAssignmentQuestionFields(ctx context.Context) ([]schemas.DetectedField, []schemas.DetectedQuestion, error)
}

// Components are the collaborators one workflow drives. Production wiring
// hands in the real scanner, drafter and paster; tests substitute fakes.
type Components struct {
	Browser  classroom.Browser
	Fetcher  classroom.TextFetcher
	Scanner  scanner
	Style    styleLoader
	Drafter  drafter
	Paster   deliverer
	Detector detector
	State    *classroom.StateStore
}

// Workflow runs the scan/draft/deliver pipeline.
type Workflow struct {
	cfg    config.WorkflowConfig
	c      Components
	logger *zap.Logger
	rng    *rand.Rand

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(cfg config.WorkflowConfig, c Components, rng *rand.Rand, logger *zap.Logger) *Workflow {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workflow{
		cfg:    cfg,
		c:      c,
		logger: logger.Named("workflow"),
		rng:    rng,
		now:    time.Now,
		sleep:  contextSleep,
	}
}

// Run executes a single pass over every currently pending assignment.
func (w *Workflow) Run(ctx context.Context) error {
	release, err := w.acquireLock()
	if err != nil {
		return err
	}
	defer release()
	return w.runPass(ctx, false)
}

// Schedule repeats the pass on the configured interval until the context is
// cancelled. The first scan optionally baselines already-visible assignments
// so that only work appearing afterwards gets processed.
func (w *Workflow) Schedule(ctx context.Context) error {
	release, err := w.acquireLock()
	if err != nil {
		return err
	}
	defer release()

	interval := w.cfg.ScheduleInterval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	if w.cfg.BootstrapExisting && !w.c.State.Bootstrapped() {
		if err := w.bootstrap(ctx); err != nil {
			w.logger.Error("Baseline scan failed, will retry next interval", zap.Error(err))
		}
	} else if err := w.runPass(ctx, true); err != nil {
		w.logger.Error("Scheduled pass failed", zap.Error(err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.runPass(ctx, true); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				w.logger.Error("Scheduled pass failed", zap.Error(err))
			}
		}
	}
}

// bootstrap records every currently visible assignment as baseline-seen
// without processing any of them.
func (w *Workflow) bootstrap(ctx context.Context) error {
	assignments, err := w.c.Scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("baseline scan failed: %w", err)
	}
	if err := w.c.State.Bootstrap(assignments, w.now()); err != nil {
		return err
	}
	w.logger.Info("Baseline recorded, only new assignments will be processed",
		zap.Int("baselined", len(assignments)))
	return nil
}

// runPass is one full scan/draft/deliver cycle. newOnly skips assignments
// that were part of the schedule baseline.
func (w *Workflow) runPass(ctx context.Context, newOnly bool) error {
	assignments, err := w.c.Scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	pending := w.filterPending(assignments, newOnly)
	w.logger.Info("Scan complete",
		zap.Int("visible", len(assignments)), zap.Int("pending", len(pending)))
	if len(pending) == 0 {
		return nil
	}

	styleSamples := w.c.Style.LoadSamples()

	var succeeded, failed int
	for i := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		a := &pending[i]
		w.logger.Info("Processing assignment",
			zap.String("course", a.CourseName), zap.String("title", a.Title))

		if err := w.processAssignment(ctx, a, styleSamples); err != nil {
			failed++
			w.logger.Error("Assignment failed",
				zap.String("title", a.Title), zap.Error(err))
			if serr := w.c.State.MarkAttempt(*a, schemas.StatusFailed, w.now()); serr != nil {
				w.logger.Warn("Could not persist attempt", zap.Error(serr))
			}
		} else {
			succeeded++
			if serr := w.c.State.MarkAttempt(*a, schemas.StatusSuccess, w.now()); serr != nil {
				w.logger.Warn("Could not persist attempt", zap.Error(serr))
			}
		}

		if i < len(pending)-1 {
			if err := w.pauseBetweenAssignments(ctx); err != nil {
				return err
			}
		}
	}

	w.logger.Info("Pass finished",
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed),
		zap.Int("skipped", len(assignments)-len(pending)))
	return nil
}

// filterPending applies the run-state gate and refreshes last-seen stamps on
// everything it skips.
func (w *Workflow) filterPending(assignments []schemas.Assignment, newOnly bool) []schemas.Assignment {
	now := w.now()
	var pending []schemas.Assignment
	for _, a := range assignments {
		if newOnly {
			if rec, ok := w.c.State.Record(a); ok && rec.Status == schemas.StatusBootstrappedSeen {
				w.markSeen(a, now)
				continue
			}
		}
		if !w.c.State.ShouldProcess(a, now, w.cfg.FailedRetryAfter) {
			w.markSeen(a, now)
			continue
		}
		pending = append(pending, a)
	}
	return pending
}

func (w *Workflow) markSeen(a schemas.Assignment, now time.Time) {
	if err := w.c.State.MarkSeen(a, now); err != nil {
		w.logger.Warn("Could not refresh last-seen stamp", zap.Error(err))
	}
}

// processAssignment drafts one submission and delivers it, with bounded
// retries around the delivery step only; drafting is not retried because a
// generation failure repeats deterministically within one pass.
func (w *Workflow) processAssignment(ctx context.Context, a *schemas.Assignment, styleSamples []string) error {
	materials := classroom.CollectMaterialTexts(ctx, w.c.Fetcher, a.AttachmentURLs, w.logger)

	questions := w.detectQuestions(ctx, a)
	req := schemas.GenerationRequest{
		Assignment:    *a,
		StyleSamples:  styleSamples,
		MaterialTexts: materials,
		Questions:     questions,
	}
	gen, err := w.c.Drafter.Generate(ctx, req)
	if err != nil {
		return fmt.Errorf("draft generation failed: %w", err)
	}
	w.logger.Info("Draft ready",
		zap.Int("answers", len(gen.Answers)),
		zap.Int("draft_chars", len(gen.Draft)),
		zap.Bool("repaired", gen.Repaired))

	attempts := w.cfg.PasteAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		actx := ctx
		cancel := context.CancelFunc(func() {})
		if w.cfg.PasteAttemptTimeout > 0 {
			actx, cancel = context.WithTimeout(ctx, w.cfg.PasteAttemptTimeout)
		}
		ok, err := w.c.Paster.Deliver(actx, a, gen)
		cancel()
		if ok {
			w.logger.Info("Assignment delivered",
				zap.String("title", a.Title),
				zap.String("method", string(a.DeliveryMethod)),
				zap.Int("attempt", attempt))
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.logger.Warn("Delivery attempt failed",
			zap.Int("attempt", attempt), zap.Int("of", attempts), zap.Error(err))
	}
	if lastErr != nil {
		return fmt.Errorf("delivery failed after %d attempts: %w", attempts, lastErr)
	}
	return fmt.Errorf("delivery failed after %d attempts", attempts)
}

// detectQuestions opens the assignment page and collects generation prompts:
// question-shaped page text first, field prompt text as a supplement.
// Detection failure degrades to instruction-only drafting, never an abort.
func (w *Workflow) detectQuestions(ctx context.Context, a *schemas.Assignment) []string {
	if a.URL == "" {
		return nil
	}
	if err := w.c.Browser.Navigate(ctx, a.URL); err != nil {
		w.logger.Warn("Could not open assignment for question detection", zap.Error(err))
		return nil
	}
	fields, detected, err := w.c.Detector.DetectAssignmentQuestionFields(ctx)
	if err != nil {
		w.logger.Warn("Question detection failed", zap.Error(err))
		return nil
	}

	seen := make(map[string]bool)
	var questions []string
	add := func(text string) {
		norm := smartfill.NormalizeText(text)
		if norm == "" || seen[norm] {
			return
		}
		seen[norm] = true
		questions = append(questions, text)
	}
	for _, q := range detected {
		add(q.Snippet)
	}
	for _, f := range fields {
		// Synthetic positional labels carry no drafting signal.
		if strings.HasPrefix(f.NearbyText, "Field ") {
			continue
		}
		add(f.NearbyText)
	}
	w.logger.Info("Questions detected",
		zap.Int("fields", len(fields)), zap.Int("questions", len(questions)))
	return questions
}

// pauseBetweenAssignments sleeps a randomized interval so consecutive
// submissions do not land back to back.
func (w *Workflow) pauseBetweenAssignments(ctx context.Context) error {
	min, max := w.cfg.DelayMin, w.cfg.DelayMax
	if max < min {
		max = min
	}
	d := min
	if max > min {
		d = min + time.Duration(w.rng.Int63n(int64(max-min)))
	}
	if d <= 0 {
		return nil
	}
	w.logger.Debug("Pausing before next assignment", zap.Duration("delay", d))
	return w.sleep(ctx, d)
}

// acquireLock creates the run lock file exclusively. A leftover lock older
// than staleLockAge is treated as abandoned and replaced.
func (w *Workflow) acquireLock() (func(), error) {
	path := w.cfg.LockFile
	if path == "" {
		return func() {}, nil
	}
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			return func() {
				if rerr := os.Remove(path); rerr != nil {
					w.logger.Warn("Could not remove lock file", zap.Error(rerr))
				}
			}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create lock file: %w", err)
		}
		info, serr := os.Stat(path)
		if serr == nil && time.Since(info.ModTime()) > staleLockAge {
			w.logger.Warn("Removing stale lock file",
				zap.String("path", path), zap.Time("mtime", info.ModTime()))
			if rerr := os.Remove(path); rerr != nil {
				return nil, fmt.Errorf("failed to remove stale lock file: %w", rerr)
			}
			continue
		}
		return nil, fmt.Errorf("another run holds the lock file %s", path)
	}
	return nil, fmt.Errorf("could not acquire lock file %s", path)
}

// contextSleep waits for the duration or the context, whichever ends first.
func contextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

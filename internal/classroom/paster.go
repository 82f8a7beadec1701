// File: internal/classroom/paster.go
// Delivery. Three surfaces are tried in order of fidelity: discrete answer
// fields on the assignment page, an attached editable document, and finally
// a single editor surface that takes the whole draft. The method that landed
// is recorded on the assignment for the run-state store.
package classroom

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/studyflow-cli/api/schemas"
	"github.com/xkilldash9x/studyflow-cli/internal/smartfill"
)

// PasterBrowser is the browser capability the delivery layer needs beyond
// the Smart-Fill engine's own page binding.
type PasterBrowser interface {
	Browser
	TextFetcher
	Click(ctx context.Context, selector string) error
}

// editorMarkAttr tags the editor surface chosen by the fallback probe so it
// can be clicked by selector afterwards.
const editorMarkAttr = "data-sf-editor"

// clickAddWorkJS clicks the first visible add-work affordance, if any.
const clickAddWorkJS = `(function() {
	const wanted = ['add or create', 'add work'];
	const els = Array.from(document.querySelectorAll('button, [role="button"], a'));
	for (const el of els) {
		const t = (el.textContent || '').replace(/\s+/g, ' ').trim().toLowerCase();
		const label = (el.getAttribute('aria-label') || '').trim().toLowerCase();
		if (!wanted.includes(t) && !wanted.includes(label)) continue;
		const r = el.getBoundingClientRect();
		if (r.width < 2 || r.height < 2) continue;
		try { el.click(); return true; } catch (e) {}
	}
	return false;
})()`

// probeEditorJS tags the first visible editor surface and reports whether
// one exists.
const probeEditorJS = `(function(markAttr) {
	const selectors = ['div[contenteditable="true"]', 'div[role="textbox"]', '.editable', 'textarea'];
	for (const sel of selectors) {
		for (const el of document.querySelectorAll(sel)) {
			const r = el.getBoundingClientRect();
			const s = getComputedStyle(el);
			if (s.display === 'none' || s.visibility === 'hidden') continue;
			if (r.width < 5 || r.height < 5) continue;
			el.setAttribute(markAttr, '1');
			return true;
		}
	}
	return false;
})(%q)`

// Paster delivers one generated draft to its assignment.
type Paster struct {
	b      PasterBrowser
	engine *smartfill.Engine
	logger *zap.Logger
}

func NewPaster(b PasterBrowser, engine *smartfill.Engine, logger *zap.Logger) *Paster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Paster{b: b, engine: engine, logger: logger.Named("paster")}
}

// Deliver tries each delivery surface in order and records the outcome on
// the assignment. It returns true when any surface accepted content.
func (p *Paster) Deliver(ctx context.Context, a *schemas.Assignment, gen *schemas.GenerationResult) (bool, error) {
	if a.URL == "" {
		a.DeliveryMethod = schemas.DeliveryFailed
		a.DeliveryDetails = "assignment has no URL"
		return false, fmt.Errorf("assignment %q has no URL", a.Title)
	}
	a.DeliveryMethod = schemas.DeliveryNotAttempted
	a.DeliveryDetails = ""

	if err := p.b.Navigate(ctx, a.URL); err != nil {
		a.DeliveryMethod = schemas.DeliveryFailed
		a.DeliveryDetails = "navigation failed"
		return false, fmt.Errorf("failed to open assignment page: %w", err)
	}
	p.clickAddWork(ctx)

	if ok := p.tryFields(ctx, a, gen); ok {
		return true, nil
	}
	if ok := p.tryAttachedDoc(ctx, a, gen); ok {
		return true, nil
	}
	if ok := p.tryEditor(ctx, a, gen); ok {
		return true, nil
	}

	a.DeliveryMethod = schemas.DeliveryFailed
	if a.DeliveryDetails == "" {
		a.DeliveryDetails = "no delivery surface accepted content"
	}
	return false, nil
}

// clickAddWork expands the submission area when the page hides it behind an
// add-work button. Best effort; absence of the button is normal.
func (p *Paster) clickAddWork(ctx context.Context) {
	var clicked bool
	if err := p.b.Evaluate(ctx, clickAddWorkJS, &clicked); err != nil || !clicked {
		return
	}
	p.logger.Debug("Clicked add-work affordance")
	if err := p.b.Settle(ctx); err != nil {
		p.logger.Debug("Settle after add-work click failed", zap.Error(err))
	}
}

func (p *Paster) tryFields(ctx context.Context, a *schemas.Assignment, gen *schemas.GenerationResult) bool {
	res, err := p.engine.Fill(ctx, gen.Answers)
	if err != nil {
		p.logger.Warn("Field fill pass failed, trying next surface", zap.Error(err))
		return false
	}
	if res.FilledCount == 0 {
		return false
	}
	a.DeliveryMethod = schemas.DeliveryFieldsFilled
	a.DeliveryDetails = fmt.Sprintf("filled %d/%d fields (fallback=%v)",
		res.FilledCount, res.TotalFields, res.FallbackUsed)
	p.logger.Info("Draft delivered into response fields",
		zap.Int("filled", res.FilledCount), zap.Int("total", res.TotalFields))
	return true
}

// tryAttachedDoc opens the first attached editable document and places
// answers into it with the document-surface strategies.
func (p *Paster) tryAttachedDoc(ctx context.Context, a *schemas.Assignment, gen *schemas.GenerationResult) bool {
	for _, u := range a.AttachmentURLs {
		textURL, htmlURL, ok := DocExportURLs(u)
		if !ok {
			continue
		}
		docText, status, err := p.b.FetchText(ctx, textURL)
		if err != nil || status != 200 {
			p.logger.Warn("Could not read attached document",
				zap.String("url", u), zap.Int("status", status), zap.Error(err))
			continue
		}
		if err := p.b.Navigate(ctx, u); err != nil {
			p.logger.Warn("Could not open attached document", zap.String("url", u), zap.Error(err))
			continue
		}
		res, err := p.engine.FillDocument(ctx, docText, htmlURL, gen.Answers)
		if err != nil {
			p.logger.Warn("Document fill pass failed", zap.String("url", u), zap.Error(err))
			continue
		}
		if res.FilledCount == 0 {
			continue
		}
		a.DeliveryMethod = schemas.DeliveryDocEdited
		a.DeliveryDetails = fmt.Sprintf("placed %d/%d answers in attached doc",
			res.FilledCount, res.TotalFields)
		p.logger.Info("Draft delivered into attached document",
			zap.String("url", u), zap.Int("placed", res.FilledCount))
		return true
	}
	return false
}

// tryEditor types the whole draft into the first visible editor surface on
// the assignment page.
func (p *Paster) tryEditor(ctx context.Context, a *schemas.Assignment, gen *schemas.GenerationResult) bool {
	if gen.Draft == "" {
		return false
	}
	if err := p.b.Navigate(ctx, a.URL); err != nil {
		p.logger.Warn("Could not return to assignment page", zap.Error(err))
		return false
	}
	p.clickAddWork(ctx)

	var found bool
	if err := p.b.Evaluate(ctx, fmt.Sprintf(probeEditorJS, editorMarkAttr), &found); err != nil || !found {
		p.logger.Warn("No editor surface found", zap.String("title", a.Title))
		return false
	}
	sel := `[` + editorMarkAttr + `="1"]`
	if err := p.b.Click(ctx, sel); err != nil {
		p.logger.Warn("Could not focus editor surface", zap.Error(err))
		return false
	}
	if err := p.b.Sleep(ctx, 500*time.Millisecond); err != nil {
		return false
	}
	if err := p.engine.TypeDraft(ctx, gen.Draft); err != nil {
		p.logger.Warn("Typing draft into editor failed", zap.Error(err))
		return false
	}
	a.DeliveryMethod = schemas.DeliveryEditorTyped
	a.DeliveryDetails = "full draft typed into editor surface"
	p.logger.Info("Draft delivered via editor surface", zap.String("title", a.Title))
	return true
}

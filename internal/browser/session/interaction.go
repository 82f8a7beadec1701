// File: internal/browser/session/interaction.go
// High-level interaction primitives for a Session: navigation, clicking,
// typing, key dispatch, JS evaluation, in-page fetch, scrolling and
// screenshots. Every method takes the caller's context and bounds itself with
// an operation timeout so one unresponsive element cannot stall the run.
package session

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"time"

	"github.com/chromedp/cdproto/input"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var jsonit = jsoniter.ConfigCompatibleWithStandardLibrary

// namedKeys maps the key names the engine uses to the raw key runes chromedp
// understands.
var namedKeys = map[string]string{
	"Enter":     kb.Enter,
	"Tab":       kb.Tab,
	"Backspace": kb.Backspace,
	"Escape":    kb.Escape,
	"Delete":    kb.Delete,
	"ArrowDown": kb.ArrowDown,
	"ArrowUp":   kb.ArrowUp,
	"Home":      kb.Home,
	"End":       kb.End,
}

/// modModifier is the platform select-all/find modifier: Meta on macOS,
// Control everywhere else.
func modModifier() input.Modifier {
	if runtime.GOOS == "darwin" {
		return input.ModifierMeta
	}
	return input.ModifierCtrl
}

// jsString encodes a Go string as a JS string literal for safe inlining into
// evaluated scripts.
func jsString(v string) string {
	b, err := jsonit.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}

// Navigate loads the URL and then waits for the page to settle: a bounded
// network-idle wait (a timeout is tolerated, uncontrolled pages may never go
// quiet) followed by the configured grace sleep.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Info("Navigating.", zap.String("url", url))

	navTimeout := s.cfg.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = 90 * time.Second
	}
	opCtx, opCancel := s.operationContext(ctx)
	defer opCancel()
	navCtx, navCancel := context.WithTimeout(opCtx, navTimeout)
	defer navCancel()

	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		if navCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("navigation to %s timed out after %v: %w", url, navTimeout, navCtx.Err())
		}
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}

	return s.Settle(ctx)
}

// Settle performs the network-idle wait plus grace sleep without navigating.
// Used before extraction passes on pages that load content asynchronously.
func (s *Session) Settle(ctx context.Context) error {
	idleTimeout := s.cfg.NetworkIdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = 45 * time.Second
	}
	idleCtx, idleCancel := context.WithTimeout(ctx, idleTimeout)
	if err := s.WaitNetworkIdle(idleCtx, 500*time.Millisecond); err != nil {
		s.logger.Debug("Network never went idle; proceeding anyway.", zap.Error(err))
	}
	idleCancel()

	if s.cfg.SettleGrace > 0 {
		return s.Sleep(ctx, s.cfg.SettleGrace)
	}
	return nil
}

// Click scrolls the element into view, waits for visibility and clicks it.
func (s *Session) Click(ctx context.Context, selector string) error {
	opCtx, opCancel := s.operationContext(ctx)
	defer opCancel()
	clickCtx, clickCancel := context.WithTimeout(opCtx, 30*time.Second)
	defer clickCancel()

	err := chromedp.Run(clickCtx,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("click failed for selector %q: %w", selector, err)
	}
	return nil
}

// ScrollIntoView brings the element into the viewport without clicking it.
func (s *Session) ScrollIntoView(ctx context.Context, selector string) error {
	opCtx, opCancel := s.operationContext(ctx)
	defer opCancel()
	scrollCtx, scrollCancel := context.WithTimeout(opCtx, 8*time.Second)
	defer scrollCancel()

	if err := chromedp.Run(scrollCtx, chromedp.ScrollIntoView(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("scroll into view failed for selector %q: %w", selector, err)
	}
	return nil
}

// WaitVisible blocks until the selector is visible or the timeout elapses.
func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	opCtx, opCancel := s.operationContext(ctx)
	defer opCancel()
	waitCtx, waitCancel := context.WithTimeout(opCtx, timeout)
	defer waitCancel()

	if err := chromedp.Run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("selector %q not visible within %v: %w", selector, timeout, err)
	}
	return nil
}

// Evaluate runs a read-only script in the page and decodes its JSON result
// into out. Promises are awaited. Pass nil to discard the result.
func (s *Session) Evaluate(ctx context.Context, script string, out any) error {
	opCtx, opCancel := s.operationContext(ctx)
	defer opCancel()
	evalCtx, evalCancel := context.WithTimeout(opCtx, 30*time.Second)
	defer evalCancel()

	var raw []byte
	err := chromedp.Run(evalCtx,
		chromedp.Evaluate(script, &raw, func(p *cdpruntime.EvaluateParams) *cdpruntime.EvaluateParams {
			return p.WithReturnByValue(true).WithAwaitPromise(true)
		}),
	)
	if err != nil {
		return fmt.Errorf("script evaluation failed: %w", err)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := jsonit.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode script result: %w", err)
	}
	return nil
}

// SetValue assigns a value directly to a simple input element and fires the
// input/change events so reactive frameworks notice. Fails (rather than
// silently doing nothing) when the element is missing, disabled or readonly.
func (s *Session) SetValue(ctx context.Context, selector, value string) error {
	script := fmt.Sprintf(`(function(sel, val) {
		const el = document.querySelector(sel);
		if (!el) return false;
		if (el.disabled || el.readOnly) return false;
		el.value = val;
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
		return true;
	})(%s, %s)`, jsString(selector), jsString(value))

	var ok bool
	if err := s.Evaluate(ctx, script, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("could not set value on %q: element missing or not writable", selector)
	}
	return nil
}

// SendKeys dispatches raw keys to the currently focused element. This is the
// low-level hook the humanoid typist drives; it applies no pacing itself.
func (s *Session) SendKeys(ctx context.Context, keys string) error {
	opCtx, opCancel := s.operationContext(ctx)
	defer opCancel()
	keyCtx, keyCancel := context.WithTimeout(opCtx, 10*time.Second)
	defer keyCancel()

	if err := chromedp.Run(keyCtx, chromedp.KeyEvent(keys)); err != nil {
		return fmt.Errorf("key dispatch failed: %w", err)
	}
	return nil
}

// PressKey dispatches one named key (Enter, Tab, Escape, ArrowDown, ...).
func (s *Session) PressKey(ctx context.Context, name string) error {
	key, ok := namedKeys[name]
	if !ok {
		return fmt.Errorf("unknown key name %q", name)
	}
	return s.SendKeys(ctx, key)
}

// PressModCombo dispatches modifier+letter using the platform modifier
// (Control, or Meta on macOS). Used for select-all, find and replace.
func (s *Session) PressModCombo(ctx context.Context, letter rune) error {
	opCtx, opCancel := s.operationContext(ctx)
	defer opCancel()
	keyCtx, keyCancel := context.WithTimeout(opCtx, 10*time.Second)
	defer keyCancel()

	err := chromedp.Run(keyCtx,
		chromedp.KeyEvent(string(letter), chromedp.KeyModifiers(modModifier())),
	)
	if err != nil {
		return fmt.Errorf("modifier combo %q failed: %w", string(letter), err)
	}
	return nil
}

// SelectAll selects the focused element's content.
func (s *Session) SelectAll(ctx context.Context) error {
	return s.PressModCombo(ctx, 'a')
}

// TypeActive types text into the currently focused element. With a typist
// attached the text is delivered with human pacing (bursts, randomized
// per-key delays, occasional pauses); otherwise it is dispatched directly.
func (s *Session) TypeActive(ctx context.Context, text string) error {
	if s.typist != nil {
		return s.typist.Type(ctx, s, text)
	}
	return s.SendKeys(ctx, text)
}

// FindInPage drives the surface's find widget: open, type the query, confirm,
// dismiss. After this the surface's cursor/selection sits at the first match,
// which is the anchor every placement strategy builds on.
func (s *Session) FindInPage(ctx context.Context, query string) error {
	if err := s.PressModCombo(ctx, 'f'); err != nil {
		return err
	}
	if err := s.Sleep(ctx, 300*time.Millisecond); err != nil {
		return err
	}
	// The find widget owns focus now; query text goes in directly, unpaced.
	if err := s.SendKeys(ctx, query); err != nil {
		return err
	}
	if err := s.PressKey(ctx, "Enter"); err != nil {
		return err
	}
	if err := s.Sleep(ctx, 200*time.Millisecond); err != nil {
		return err
	}
	return s.PressKey(ctx, "Escape")
}

// ReplaceInPage drives the find-and-replace widget to substitute the first
// occurrence of find with replace.
func (s *Session) ReplaceInPage(ctx context.Context, find, replace string) error {
	if err := s.PressModCombo(ctx, 'h'); err != nil {
		return err
	}
	if err := s.Sleep(ctx, 300*time.Millisecond); err != nil {
		return err
	}
	if err := s.SendKeys(ctx, find); err != nil {
		return err
	}
	if err := s.PressKey(ctx, "Tab"); err != nil {
		return err
	}
	if err := s.SendKeys(ctx, replace); err != nil {
		return err
	}
	if err := s.PressKey(ctx, "Enter"); err != nil {
		return err
	}
	if err := s.Sleep(ctx, 200*time.Millisecond); err != nil {
		return err
	}
	return s.PressKey(ctx, "Escape")
}

// SlowScroll scrolls from top to bottom in half-viewport steps with small
// randomized pauses, then returns to the top. Forces lazily rendered fields
// into the document tree before extraction.
func (s *Session) SlowScroll(ctx context.Context) error {
	var dims struct {
		Total    int `json:"total"`
		Viewport int `json:"viewport"`
	}
	if err := s.Evaluate(ctx, `({ total: document.body.scrollHeight, viewport: window.innerHeight })`, &dims); err != nil {
		return err
	}

	step := dims.Viewport / 2
	if step < 200 {
		step = 200
	}
	for pos := step; pos < dims.Total+step; pos += step {
		if err := s.Evaluate(ctx, fmt.Sprintf("window.scrollTo(0, %d)", pos), nil); err != nil {
			return err
		}
		pause := time.Duration(150+rand.Intn(200)) * time.Millisecond
		if err := s.Sleep(ctx, pause); err != nil {
			return err
		}
	}
	if err := s.Evaluate(ctx, "window.scrollTo(0, 0)", nil); err != nil {
		return err
	}
	return s.Sleep(ctx, 300*time.Millisecond)
}

// FetchText fetches a URL through the page's own network context (cookies and
// all) and returns the response body and status code.
func (s *Session) FetchText(ctx context.Context, url string) (string, int, error) {
	script := fmt.Sprintf(`fetch(%s, { credentials: "include" })
		.then(r => r.text().then(body => ({ status: r.status, body: body })))`, jsString(url))

	var resp struct {
		Status int    `json:"status"`
		Body   string `json:"body"`
	}
	if err := s.Evaluate(ctx, script, &resp); err != nil {
		return "", 0, fmt.Errorf("in-page fetch of %s failed: %w", url, err)
	}
	return resp.Body, resp.Status, nil
}

// Screenshot captures the current viewport to path.
func (s *Session) Screenshot(ctx context.Context, path string) error {
	opCtx, opCancel := s.operationContext(ctx)
	defer opCancel()
	shotCtx, shotCancel := context.WithTimeout(opCtx, 15*time.Second)
	defer shotCancel()

	var buf []byte
	if err := chromedp.Run(shotCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return fmt.Errorf("screenshot failed: %w", err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("failed to write screenshot %s: %w", path, err)
	}
	return nil
}

// CurrentURL reports the page's current location.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := s.Evaluate(ctx, "window.location.href", &url); err != nil {
		return "", err
	}
	return url, nil
}

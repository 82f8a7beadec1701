// File: internal/smartfill/page.go
package smartfill

import (
	"context"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var jsonit = jsoniter.ConfigCompatibleWithStandardLibrary

// Page is the capability surface the Smart-Fill engine needs from the browser
// layer. *session.Session satisfies it; tests substitute fakes. All methods
// are sequential awaits against one page context: keyboard and find/replace
// operations are global to the active focus and must never run concurrently.
type Page interface {
	// Settle waits for a network-idle signal (bounded; proceeds on timeout)
	// plus a fixed grace sleep.
	Settle(ctx context.Context) error
	// SlowScroll walks the page top to bottom and back to force
	// lazy-rendered content into the document tree.
	SlowScroll(ctx context.Context) error
	// Evaluate runs a read-only script and decodes its JSON result into out.
	Evaluate(ctx context.Context, script string, out any) error
	Click(ctx context.Context, selector string) error
	ScrollIntoView(ctx context.Context, selector string) error
	// SetValue assigns directly to a simple input's value.
	SetValue(ctx context.Context, selector, value string) error
	// TypeActive types into the focused element with the session's pacing.
	TypeActive(ctx context.Context, text string) error
	PressKey(ctx context.Context, name string) error
	SelectAll(ctx context.Context) error
	// FindInPage locates text via the surface's find widget, leaving the
	// cursor at the first match.
	FindInPage(ctx context.Context, query string) error
	// ReplaceInPage substitutes the first occurrence of find with replace
	// via the surface's find-and-replace widget.
	ReplaceInPage(ctx context.Context, find, replace string) error
	// FetchText fetches a URL through the page's own network context.
	FetchText(ctx context.Context, url string) (body string, status int, err error)
	Screenshot(ctx context.Context, path string) error
	Sleep(ctx context.Context, d time.Duration) error
}

// jsQuote encodes a Go string as a JS string literal.
func jsQuote(v string) string {
	b, err := jsonit.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}

// File: internal/classroom/paster_test.go
package classroom

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/studyflow-cli/api/schemas"
	"github.com/xkilldash9x/studyflow-cli/internal/config"
	"github.com/xkilldash9x/studyflow-cli/internal/smartfill"
)

// pasterPage backs both the delivery layer and the fill engine in tests; in
// production both sides share one browser session the same way.
type pasterPage struct {
	fields    []schemas.DetectedField
	questions []schemas.DetectedQuestion
	// texts maps fetchable URLs to bodies; anything absent fetches as 404.
	texts       map[string]string
	navErr      map[string]error
	editorFound bool

	navigated []string
	clicked   []string
	setValues map[string]string
	typed     []string
	finds     []string
	keys      []string
}

func newPasterPage() *pasterPage {
	return &pasterPage{texts: map[string]string{}, setValues: map[string]string{}}
}

func (p *pasterPage) Navigate(_ context.Context, url string) error {
	p.navigated = append(p.navigated, url)
	if err := p.navErr[url]; err != nil {
		return err
	}
	return nil
}

func (p *pasterPage) Settle(context.Context) error     { return nil }
func (p *pasterPage) SlowScroll(context.Context) error { return nil }

func (p *pasterPage) Evaluate(_ context.Context, script string, out any) error {
	switch v := out.(type) {
	case *[]schemas.DetectedField:
		*v = p.fields
	case *[]schemas.DetectedQuestion:
		*v = p.questions
	case *bool:
		if strings.Contains(script, "add or create") {
			*v = false
		} else {
			*v = p.editorFound
		}
	default:
		return errors.New("unexpected evaluate output type")
	}
	return nil
}

func (p *pasterPage) Click(_ context.Context, selector string) error {
	p.clicked = append(p.clicked, selector)
	return nil
}

func (p *pasterPage) ScrollIntoView(context.Context, string) error { return nil }

func (p *pasterPage) SetValue(_ context.Context, selector, value string) error {
	p.setValues[selector] = value
	return nil
}

func (p *pasterPage) TypeActive(_ context.Context, text string) error {
	p.typed = append(p.typed, text)
	return nil
}

func (p *pasterPage) PressKey(_ context.Context, name string) error {
	p.keys = append(p.keys, name)
	return nil
}

func (p *pasterPage) SelectAll(context.Context) error { return nil }

func (p *pasterPage) FindInPage(_ context.Context, query string) error {
	p.finds = append(p.finds, query)
	return nil
}

func (p *pasterPage) ReplaceInPage(context.Context, string, string) error { return nil }

func (p *pasterPage) FetchText(_ context.Context, url string) (string, int, error) {
	body, ok := p.texts[url]
	if !ok {
		return "", 404, nil
	}
	return body, 200, nil
}

func (p *pasterPage) Screenshot(context.Context, string) error   { return nil }
func (p *pasterPage) Sleep(context.Context, time.Duration) error { return nil }

func pasteFillConfig() config.FillConfig {
	return config.FillConfig{
		MatchThreshold: 0.15,
		MaxFields:      24,
		TableRowPairs:  2,
		RetryAttempts:  1,
		RetryBackoff:   time.Millisecond,
		MaxAnswerChars: 4000,
		MaxDraftChars:  14000,
		FieldPauseMin:  time.Millisecond,
		FieldPauseMax:  2 * time.Millisecond,
	}
}

func newTestPaster(p *pasterPage) *Paster {
	engine := smartfill.NewEngine(p, pasteFillConfig(), rand.New(rand.NewSource(1)), zap.NewNop())
	return NewPaster(p, engine, zap.NewNop())
}

const assignURL = "https://classroom.example.com/c/course9/a/work7"

func pasteAssignment() schemas.Assignment {
	return schemas.Assignment{
		CourseID:     "course9",
		AssignmentID: "work7",
		Title:        "Chapter 4 questions",
		URL:          assignURL,
	}
}

func TestDeliverFillsFields(t *testing.T) {
	p := newPasterPage()
	p.fields = []schemas.DetectedField{
		{Index: 0, FieldID: "sf-1", Tag: "textarea", NearbyText: "What is the theme of the story?"},
	}
	gen := &schemas.GenerationResult{
		Draft: "The theme is loss.",
		Answers: []schemas.AnswerRecord{
			{Question: "What is the theme of the story?", Answer: "The theme is loss."},
		},
	}

	a := pasteAssignment()
	ok, err := newTestPaster(p).Deliver(context.Background(), &a, gen)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, schemas.DeliveryFieldsFilled, a.DeliveryMethod)
	assert.Contains(t, a.DeliveryDetails, "1/1")
	assert.Equal(t, "The theme is loss.", p.setValues[p.fields[0].Selector()])
}

func TestDeliverFallsBackToAttachedDoc(t *testing.T) {
	docURL := "https://docs.google.com/document/d/doc1/edit"
	p := newPasterPage()
	p.texts["https://docs.google.com/document/d/doc1/export?format=txt"] =
		"Worksheet\n\n1. What is the theme of the story?\n"

	gen := &schemas.GenerationResult{
		Draft: "The theme is loss.",
		Answers: []schemas.AnswerRecord{
			{Question: "What is the theme of the story?", Answer: "The theme is loss."},
		},
	}

	a := pasteAssignment()
	a.AttachmentURLs = []string{docURL}
	ok, err := newTestPaster(p).Deliver(context.Background(), &a, gen)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, schemas.DeliveryDocEdited, a.DeliveryMethod)
	assert.Contains(t, a.DeliveryDetails, "1/1")

	assert.Equal(t, []string{assignURL, docURL}, p.navigated)
	require.NotEmpty(t, p.finds)
	require.NotEmpty(t, p.typed)
	assert.Equal(t, "The theme is loss.", p.typed[len(p.typed)-1])
}

func TestDeliverFallsBackToEditor(t *testing.T) {
	p := newPasterPage()
	p.editorFound = true
	gen := &schemas.GenerationResult{Draft: "Full draft body for the editor."}

	a := pasteAssignment()
	ok, err := newTestPaster(p).Deliver(context.Background(), &a, gen)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, schemas.DeliveryEditorTyped, a.DeliveryMethod)

	// The editor path re-opens the assignment page before probing.
	assert.Equal(t, []string{assignURL, assignURL}, p.navigated)
	assert.Contains(t, p.clicked, `[data-sf-editor="1"]`)
	require.Len(t, p.typed, 1)
	assert.Equal(t, "Full draft body for the editor.", p.typed[0])
}

func TestDeliverReportsFailure(t *testing.T) {
	p := newPasterPage()
	gen := &schemas.GenerationResult{Draft: "A draft nobody accepts."}

	a := pasteAssignment()
	ok, err := newTestPaster(p).Deliver(context.Background(), &a, gen)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, schemas.DeliveryFailed, a.DeliveryMethod)
	assert.NotEmpty(t, a.DeliveryDetails)
}

func TestDeliverNavigationFailure(t *testing.T) {
	p := newPasterPage()
	p.navErr = map[string]error{assignURL: errors.New("net::ERR_TIMED_OUT")}

	a := pasteAssignment()
	ok, err := newTestPaster(p).Deliver(context.Background(), &a, &schemas.GenerationResult{Draft: "x"})
	require.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, schemas.DeliveryFailed, a.DeliveryMethod)
}

package smartfill

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/studyflow-cli/api/schemas"
)

func TestFillDocumentSideLayoutUsesAdjacentCell(t *testing.T) {
	docText := "Name:\nGrade:"
	page := &fakePage{exportBody: sideTableHTML, exportStatus: 200}

	answers := []schemas.AnswerRecord{
		{Question: "Name", Answer: "Alex Rivera", Type: schemas.QuestionFreeResponse},
		{Question: "Grade", Answer: "10", Type: schemas.QuestionFreeResponse},
	}
	engine := newTestEngine(page, testFillConfig())
	result, err := engine.FillDocument(context.Background(), docText, "https://example.com/export", answers)
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalFields)
	assert.Equal(t, 2, result.FilledCount)
	assert.Zero(t, result.FailedCount)

	// Side layout places via tab into the neighboring cell; the prompt text
	// itself is located, never replaced.
	assert.Equal(t, []string{"Name:", "Grade:"}, page.finds)
	assert.Equal(t, []string{"Tab", "Tab"}, page.keys)
	assert.Equal(t, []string{"Alex Rivera", "10"}, page.typed)
	assert.Empty(t, page.replaces)
}

func TestFillDocumentPlainLayoutTypesUnderPrompts(t *testing.T) {
	docText := strings.Join([]string{
		"1. What is the theme?",
		"",
		"2. Who narrates the story?",
	}, "\n")
	// No export URL: layout defaults to plain without a fetch.
	page := &fakePage{}

	answers := []schemas.AnswerRecord{
		{Question: "What is the theme", Answer: "Resilience.", Type: schemas.QuestionFreeResponse},
		{Question: "Who narrates the story", Answer: "An unnamed observer.", Type: schemas.QuestionFreeResponse},
	}
	engine := newTestEngine(page, testFillConfig())
	result, err := engine.FillDocument(context.Background(), docText, "", answers)
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilledCount)
	assert.Equal(t, []string{"Resilience.", "An unnamed observer."}, page.typed)
	// Each placement runs the full under-prompt key sequence.
	assert.Equal(t, 10, len(page.keys))
}

func TestFillDocumentDeclaredTypeOverridesLayout(t *testing.T) {
	docText := "1. The capital of France is _____."
	page := &fakePage{exportBody: sideTableHTML, exportStatus: 200}

	answers := []schemas.AnswerRecord{
		{Question: "capital of France", Answer: "Paris", Type: schemas.QuestionFillBlank},
	}
	engine := newTestEngine(page, testFillConfig())
	result, err := engine.FillDocument(context.Background(), docText, "https://example.com/export", answers)
	require.NoError(t, err)

	assert.Equal(t, 1, result.FilledCount)
	require.Len(t, page.replaces, 1)
	assert.Equal(t, [2]string{"_____", "Paris"}, page.replaces[0])
	assert.Empty(t, page.keys, "fill-blank ignores the table layout entirely")
}

func TestFillDocumentNoPrompts(t *testing.T) {
	page := &fakePage{}
	engine := newTestEngine(page, testFillConfig())

	result, err := engine.FillDocument(context.Background(), "nothing questionish here at all today", "", []schemas.AnswerRecord{{Answer: "x"}})
	require.NoError(t, err)
	assert.Zero(t, result.TotalFields)
	assert.Zero(t, result.FilledCount)
	assert.Empty(t, page.typed)
}

func TestFillDocumentContinuesPastPlacementFailure(t *testing.T) {
	docText := "1. First question?\n2. Second question?"
	page := &fakePage{findErr: assert.AnError}

	answers := []schemas.AnswerRecord{
		{Question: "First question", Answer: "one"},
		{Question: "Second question", Answer: "two"},
	}
	engine := newTestEngine(page, testFillConfig())
	result, err := engine.FillDocument(context.Background(), docText, "", answers)
	require.NoError(t, err)

	assert.Zero(t, result.FilledCount)
	assert.Equal(t, 2, result.FailedCount)
}

func TestTypeDraftCleansAndCaps(t *testing.T) {
	page := &fakePage{}
	cfg := testFillConfig()
	cfg.MaxDraftChars = 20

	engine := newTestEngine(page, cfg)
	err := engine.TypeDraft(context.Background(), "```\n**A very long draft body that keeps going**\n```")
	require.NoError(t, err)

	require.Len(t, page.typed, 1)
	assert.NotContains(t, page.typed[0], "`")
	assert.NotContains(t, page.typed[0], "*")
	assert.LessOrEqual(t, len(page.typed[0]), 20)
}

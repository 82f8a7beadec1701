package drafting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/studyflow-cli/api/schemas"
	"github.com/xkilldash9x/studyflow-cli/internal/config"
)

type genCall struct {
	model  string
	prompt string
}

// fakeGen replays canned replies in call order (the last reply repeats) and
// fails outright for models listed in failFor.
type fakeGen struct {
	replies []string
	failFor map[string]error
	calls   []genCall
}

func (f *fakeGen) generate(_ context.Context, model, prompt string) (string, error) {
	i := len(f.calls)
	f.calls = append(f.calls, genCall{model: model, prompt: prompt})
	if err, ok := f.failFor[model]; ok {
		return "", err
	}
	if len(f.replies) == 0 {
		return "", errors.New("no canned reply")
	}
	if i >= len(f.replies) {
		i = len(f.replies) - 1
	}
	return f.replies[i], nil
}

func testDraftingConfig() config.DraftingConfig {
	cfg := config.NewDefaultConfig().Drafting
	cfg.APIKey = "test-key"
	cfg.APITimeout = 10 * time.Millisecond
	cfg.RequestsPerMinute = 100000
	return cfg
}

func TestGeneratePlainDraft(t *testing.T) {
	gen := &fakeGen{replies: []string{"The story’s theme — loss; and memory.\n\n\n\nIt ends well!!"}}
	d := newDrafter(gen, testDraftingConfig(), nil)

	result, err := d.Generate(context.Background(), schemas.GenerationRequest{
		Assignment: schemas.Assignment{CourseName: "English 10", Title: "Chapter Review"},
	})
	require.NoError(t, err)

	assert.Equal(t, "The story's theme - loss, and memory.\n\nIt ends well!", result.Draft)
	assert.Empty(t, result.Answers)
	assert.False(t, result.Repaired)

	require.Len(t, gen.calls, 1)
	assert.Contains(t, gen.calls[0].prompt, "Chapter Review")
	assert.Contains(t, gen.calls[0].prompt, "Output ONLY the assignment text")
	assert.NotContains(t, gen.calls[0].prompt, "JSON")
}

func TestGenerateStructuredAnswers(t *testing.T) {
	reply := "```json\n" + `{"draft": "Full draft body.", "answers": [
		{"index": 0, "answer": "The theme is loss.", "type": "free_response"},
		{"index": 1, "question": "Who narrates?", "answer": "An observer.", "type": "free_response"}
	]}` + "\n```"
	gen := &fakeGen{replies: []string{reply}}
	d := newDrafter(gen, testDraftingConfig(), nil)

	result, err := d.Generate(context.Background(), schemas.GenerationRequest{
		Questions: []string{"What is the theme?", "Who narrates the story?"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Full draft body.", result.Draft)
	assert.False(t, result.Repaired)
	require.Len(t, result.Answers, 2)
	// Omitted question text is backfilled from the request by index.
	assert.Equal(t, "What is the theme?", result.Answers[0].Question)
	assert.Equal(t, "Who narrates?", result.Answers[1].Question)
	assert.Equal(t, "The theme is loss.", result.Answers[0].Answer)

	assert.Contains(t, gen.calls[0].prompt, "QUESTIONS DETECTED")
	assert.Contains(t, gen.calls[0].prompt, "1. What is the theme?")
}

func TestGenerateRepairsMalformedReply(t *testing.T) {
	gen := &fakeGen{replies: []string{
		`Sure! Here are the answers: theme is loss, narrator is unnamed.`,
		`{"draft": "Repaired draft.", "answers": [{"index": 0, "question": "Q", "answer": "A"}]}`,
	}}
	d := newDrafter(gen, testDraftingConfig(), nil)

	result, err := d.Generate(context.Background(), schemas.GenerationRequest{
		Questions: []string{"Q"},
	})
	require.NoError(t, err)

	assert.True(t, result.Repaired)
	assert.Equal(t, "Repaired draft.", result.Draft)
	require.Len(t, result.Answers, 1)

	require.Len(t, gen.calls, 2)
	assert.Contains(t, gen.calls[1].prompt, "could not be parsed")
	assert.Contains(t, gen.calls[1].prompt, "theme is loss")
}

func TestGenerateEvenSplitFallback(t *testing.T) {
	raw := "Paragraph one.\n\nParagraph two.\n\nParagraph three."
	gen := &fakeGen{replies: []string{raw, "still not json"}}
	d := newDrafter(gen, testDraftingConfig(), nil)

	questions := []string{"First question?", "Second question?"}
	result, err := d.Generate(context.Background(), schemas.GenerationRequest{Questions: questions})
	require.NoError(t, err)

	assert.False(t, result.Repaired)
	require.Len(t, result.Answers, 2)
	assert.Equal(t, "Paragraph one.\n\nParagraph two.", result.Answers[0].Answer)
	assert.Equal(t, "Paragraph three.", result.Answers[1].Answer)
	assert.Equal(t, "First question?", result.Answers[0].Question)
	for _, a := range result.Answers {
		assert.NotEmpty(t, a.Answer)
	}
}

func TestGenerateFallsBackAcrossModels(t *testing.T) {
	gen := &fakeGen{
		failFor: map[string]error{"gemini-2.0-flash": errors.New("primary quota exhausted")},
		replies: []string{"fallback draft"},
	}
	d := newDrafter(gen, testDraftingConfig(), nil)

	result, err := d.Generate(context.Background(), schemas.GenerationRequest{})
	require.NoError(t, err)
	assert.Equal(t, "fallback draft", result.Draft)

	require.GreaterOrEqual(t, len(gen.calls), 2)
	assert.Equal(t, "gemini-2.0-flash", gen.calls[0].model)
	assert.Equal(t, "gemma-3-1b-it", gen.calls[len(gen.calls)-1].model)
}

func TestGenerateAllModelsFailing(t *testing.T) {
	gen := &fakeGen{}
	d := newDrafter(gen, testDraftingConfig(), nil)

	_, err := d.Generate(context.Background(), schemas.GenerationRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all models failed")
}

func TestCandidateModelsDedup(t *testing.T) {
	cfg := testDraftingConfig()
	cfg.Model = "gemma-3-1b-it"
	d := newDrafter(&fakeGen{}, cfg, nil)
	assert.Equal(t, []string{"gemma-3-1b-it"}, d.candidateModels())
}

func TestSplitDraftAcrossQuestionsFewerParagraphs(t *testing.T) {
	records := splitDraftAcrossQuestions("One paragraph only.", []string{"a?", "b?", "c?"})
	require.Len(t, records, 3)
	for _, r := range records {
		assert.Equal(t, "One paragraph only.", r.Answer)
	}
}

func TestCleanStudentStyleText(t *testing.T) {
	in := "It’s “quoted” — twice; right?!?!\n\n\n\nNext   line."
	out := CleanStudentStyleText(in)
	assert.Equal(t, "It's \"quoted\" - twice, right?!?!\n\nNext line.", out)
	assert.False(t, strings.ContainsAny(out, "—–“”’;"))
}

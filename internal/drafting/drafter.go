// File: internal/drafting/drafter.go
// The drafting service: turns one assignment plus style/material context into
// a full draft and, when questions were detected, a per-question answer list.
// Structured output is best-effort: a malformed reply gets one repair
// round-trip, then the draft is split evenly across the questions so the fill
// pass always has something to place.
package drafting

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/xkilldash9x/studyflow-cli/api/schemas"
	"github.com/xkilldash9x/studyflow-cli/internal/config"
)

var jsonit = jsoniter.ConfigCompatibleWithStandardLibrary

// fallbackModels are tried in order after the configured model fails.
var fallbackModels = []string{"gemma-3-1b-it"}

var codeFenceRe = regexp.MustCompile("(?s)^\\s*```(?:json)?\\s*(.*?)\\s*```\\s*$")

// generator is the raw model call. The production implementation wraps the
// genai SDK; tests substitute a canned one.
type generator interface {
	generate(ctx context.Context, model, prompt string) (string, error)
}

// Drafter produces assignment drafts through a Gemini model with outbound
// rate limiting and per-call retry.
type Drafter struct {
	gen     generator
	cfg     config.DraftingConfig
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewDrafter builds a Drafter backed by the genai SDK.
func NewDrafter(ctx context.Context, cfg config.DraftingConfig, logger *zap.Logger) (*Drafter, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("drafting API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return newDrafter(&genaiGenerator{client: client, cfg: cfg}, cfg, logger), nil
}

func newDrafter(gen generator, cfg config.DraftingConfig, logger *zap.Logger) *Drafter {
	if logger == nil {
		logger = zap.NewNop()
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 6
	}
	return &Drafter{
		gen:     gen,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(rpm/60.0), 1),
		logger:  logger.Named("drafter"),
	}
}

// Generate produces the draft (and answers, when questions are present) for
// one assignment.
func (d *Drafter) Generate(ctx context.Context, req schemas.GenerationRequest) (*schemas.GenerationResult, error) {
	prompt := buildPrompt(req)

	raw, err := d.call(ctx, prompt)
	if err != nil {
		return nil, err
	}

	if len(req.Questions) == 0 {
		return &schemas.GenerationResult{Draft: CleanStudentStyleText(raw)}, nil
	}

	result, perr := parseEnvelope(raw, req.Questions)
	if perr == nil {
		return result, nil
	}
	d.logger.Warn("Structured reply failed to parse, requesting repair", zap.Error(perr))

	repaired, err := d.call(ctx, repairPrompt(raw))
	if err == nil {
		if result, perr = parseEnvelope(repaired, req.Questions); perr == nil {
			result.Repaired = true
			return result, nil
		}
		d.logger.Warn("Repair reply also failed to parse", zap.Error(perr))
	} else {
		d.logger.Warn("Repair call failed", zap.Error(err))
	}

	draft := CleanStudentStyleText(stripFences(raw))
	return &schemas.GenerationResult{
		Draft:   draft,
		Answers: splitDraftAcrossQuestions(draft, req.Questions),
	}, nil
}

// call runs one rate-limited, retried model invocation, walking the fallback
// model chain when the configured model keeps failing.
func (d *Drafter) call(ctx context.Context, prompt string) (string, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return "", err
	}

	var errs []string
	for _, model := range d.candidateModels() {
		text, err := d.callModel(ctx, model, prompt)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		errs = append(errs, fmt.Sprintf("%s: %v", model, err))
		d.logger.Warn("Model failed, trying next fallback if available",
			zap.String("model", model), zap.Error(err))
	}
	return "", fmt.Errorf("all models failed: %s", strings.Join(errs, " | "))
}

func (d *Drafter) callModel(ctx context.Context, model, prompt string) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = d.cfg.APITimeout
	if b.MaxElapsedTime <= 0 {
		b.MaxElapsedTime = 2 * time.Minute
	}
	b.MaxInterval = 30 * time.Second

	var text string
	operation := func() error {
		start := time.Now()
		out, err := d.gen.generate(ctx, model, prompt)
		if err != nil {
			return err
		}
		if strings.TrimSpace(out) == "" {
			return errors.New("model returned empty text")
		}
		d.logger.Info("Draft generation complete",
			zap.String("model", model),
			zap.Duration("duration", time.Since(start)),
			zap.Int("chars", len(out)))
		text = out
		return nil
	}
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return "", err
	}
	return text, nil
}

func (d *Drafter) candidateModels() []string {
	models := append([]string{d.cfg.Model}, fallbackModels...)
	seen := make(map[string]bool)
	out := models[:0]
	for _, m := range models {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

// answersEnvelope is the JSON shape requested from the model.
type answersEnvelope struct {
	Draft   string                 `json:"draft"`
	Answers []schemas.AnswerRecord `json:"answers"`
}

// parseEnvelope decodes a structured model reply, tolerating code fences and
// a bare answers array.
func parseEnvelope(raw string, questions []string) (*schemas.GenerationResult, error) {
	body := stripFences(raw)

	var env answersEnvelope
	if err := jsonit.UnmarshalFromString(body, &env); err != nil {
		var bare []schemas.AnswerRecord
		if err2 := jsonit.UnmarshalFromString(body, &bare); err2 != nil {
			return nil, fmt.Errorf("reply is neither an envelope nor an answer array: %w", err)
		}
		env.Answers = bare
	}
	if len(env.Answers) == 0 {
		return nil, errors.New("reply contained no answers")
	}

	for i := range env.Answers {
		if env.Answers[i].Question == "" && env.Answers[i].Index < len(questions) {
			env.Answers[i].Question = questions[env.Answers[i].Index]
		}
		env.Answers[i].Answer = CleanStudentStyleText(env.Answers[i].Answer)
	}

	draft := CleanStudentStyleText(env.Draft)
	if draft == "" {
		parts := make([]string, 0, len(env.Answers))
		for _, a := range env.Answers {
			parts = append(parts, a.Answer)
		}
		draft = strings.Join(parts, "\n\n")
	}
	return &schemas.GenerationResult{Draft: draft, Answers: env.Answers}, nil
}

// splitDraftAcrossQuestions distributes the draft's paragraphs evenly across
// the questions so every question receives a non-empty positional answer.
func splitDraftAcrossQuestions(draft string, questions []string) []schemas.AnswerRecord {
	if draft == "" || len(questions) == 0 {
		return nil
	}
	paras := strings.Split(draft, "\n\n")
	n := len(questions)
	if len(paras) < n {
		// Too few paragraphs to go around: every question gets the whole
		// draft and the matcher's positional pass sorts it out.
		records := make([]schemas.AnswerRecord, n)
		for i, q := range questions {
			records[i] = schemas.AnswerRecord{Index: i, Question: q, Answer: draft, Type: schemas.QuestionFreeResponse}
		}
		return records
	}

	records := make([]schemas.AnswerRecord, n)
	per := len(paras) / n
	extra := len(paras) % n
	pos := 0
	for i, q := range questions {
		take := per
		if i < extra {
			take++
		}
		records[i] = schemas.AnswerRecord{
			Index:    i,
			Question: q,
			Answer:   strings.TrimSpace(strings.Join(paras[pos:pos+take], "\n\n")),
			Type:     schemas.QuestionFreeResponse,
		}
		pos += take
	}
	return records
}

func stripFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if m := codeFenceRe.FindStringSubmatch(trimmed); m != nil {
		return m[1]
	}
	return trimmed
}

// genaiGenerator is the production generator over the genai SDK.
type genaiGenerator struct {
	client *genai.Client
	cfg    config.DraftingConfig
}

func (g *genaiGenerator) generate(ctx context.Context, model, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(g.cfg.Temperature)),
		MaxOutputTokens: 4096,
	}
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("model response carried no text parts")
	}
	return text, nil
}

// File: api/schemas/generation.go
package schemas

// GenerationRequest carries everything the drafting service needs to produce
// one answer per question: assignment metadata, prior-writing style samples,
// attached-material text, and the ordered question snippets detected on the
// submission surface.
type GenerationRequest struct {
	Assignment    Assignment `json:"assignment"`
	StyleSamples  []string   `json:"style_samples,omitempty"`
	MaterialTexts []string   `json:"material_texts,omitempty"`
	Questions     []string   `json:"questions"`
}

// GenerationResult is the drafting service's output: matched answers when the
// model produced parseable structure, plus the raw draft text for the
// even-split and single-editor fallbacks.
type GenerationResult struct {
	Answers []AnswerRecord `json:"answers"`
	// Draft is the full plain-text draft, always populated.
	Draft string `json:"draft"`
	// Repaired is set when the first response failed to parse and a repair
	// round-trip produced the answers.
	Repaired bool `json:"repaired,omitempty"`
}

// File: api/schemas/smartfill.go
// Data model for the Smart-Fill engine: detected page structure, generated
// answers, and the result summary of one fill pass. None of these entities
// outlive a single orchestration call; there is no cross-run cache.
package schemas

// FieldIDAttribute is the data attribute written onto every detected editable
// element so it can be re-located by a stable selector after the extraction
// call returns. Elements cannot be passed by reference across the JS
// evaluation boundary.
const FieldIDAttribute = "data-sf-field-id"

// DetectedField is one fillable region on a live page.
type DetectedField struct {
	// Index is the position of the field in document order (top to bottom).
	Index int `json:"index"`
	// FieldID is unique per detection pass and is tagged onto the element
	// under FieldIDAttribute.
	FieldID   string `json:"field_id"`
	Tag       string `json:"tag"`
	Role      string `json:"role"`
	InputType string `json:"input_type"`
	// NearbyText is the best-guess prompt associated with this field. It is
	// never empty: when no heuristic matches, a synthetic "Field N" label is
	// assigned.
	NearbyText string `json:"nearby_text"`
}

// Selector returns the CSS selector that re-locates the tagged element.
func (f DetectedField) Selector() string {
	return `[` + FieldIDAttribute + `="` + f.FieldID + `"]`
}

// DetectedQuestion is a question-shaped text fragment found anywhere in the
// visible document, independent of any editable field. Used as an alternate
// source of generation prompts when field proximity text is weak.
type DetectedQuestion struct {
	Index   int    `json:"index"`
	Snippet string `json:"snippet"`
}

// QuestionType tags a generated answer with the placement strategy family it
// expects.
type QuestionType string

const (
	QuestionFreeResponse   QuestionType = "free_response"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionFillBlank      QuestionType = "fill_blank"
)

// AnswerRecord is one generated answer as returned by the drafting service.
type AnswerRecord struct {
	// Index is the ordinal the generator declared for this answer, when it
	// declared one.
	Index int `json:"index"`
	// Question is the question text as echoed by the generator.
	Question string `json:"question"`
	// Answer is the answer body. Records whose body cleans to empty are
	// dropped before matching.
	Answer string       `json:"answer"`
	Type   QuestionType `json:"type,omitempty"`
}

// Match pairs one detected field (or prompt) with one answer plus a
// similarity score in [0,1]. Each answer is consumed by at most one Match per
// fill pass; every field receives exactly one Match.
type Match struct {
	Field  DetectedField `json:"field"`
	Answer string        `json:"answer"`
	Score  float64       `json:"score"`
}

// TableLayout classifies the structural layout of a document export.
type TableLayout string

const (
	// LayoutPlain means no qualifying table was found (or the export could
	// not be fetched). Not an error.
	LayoutPlain TableLayout = "plain"
	// LayoutSide means answer cells sit beside their prompt cells.
	LayoutSide TableLayout = "side"
	// LayoutBelow means answer rows sit beneath their prompt rows.
	LayoutBelow TableLayout = "below"
)

// DocTableInfo is the per-document table classification, derived once per
// fill pass from the document's structured export.
type DocTableInfo struct {
	Layout TableLayout `json:"layout"`
	// Rows is the row count of the table the classification came from, zero
	// for LayoutPlain.
	Rows int `json:"rows"`
}

// SmartFillResult summarizes one fill pass. It is created at the start of the
// pass, mutated as fields are processed, and returned to the caller.
type SmartFillResult struct {
	TotalFields  int      `json:"total_fields"`
	FilledCount  int      `json:"filled_count"`
	FailedCount  int      `json:"failed_count"`
	FallbackUsed bool     `json:"fallback_used"`
	Screenshots  []string `json:"screenshots,omitempty"`
}

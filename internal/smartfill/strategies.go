// File: internal/smartfill/strategies.go
// Placement strategies for document surfaces. Every strategy only inserts
// text; none of them selects-and-overwrites or deletes, so content present
// before a placement call survives it.
package smartfill

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/xkilldash9x/studyflow-cli/api/schemas"
)

// StrategyName identifies one placement technique in logs and results.
type StrategyName string

const (
	StrategyFillBlank       StrategyName = "fill_blank"
	StrategyMultipleChoice  StrategyName = "multiple_choice"
	StrategyTypeUnderPrompt StrategyName = "type_under_prompt"
	StrategyAdjacentCell    StrategyName = "type_into_adjacent_cell"
	StrategyCellBelow       StrategyName = "type_into_cell_below"
)

var (
	blankRunRe      = regexp.MustCompile(`_{3,}`)
	leadingNumberRe = regexp.MustCompile(`^\s*(\d+)`)
)

// PickStrategy selects the placement technique for one prompt/answer pair.
// A declared fill-blank or multiple-choice type wins outright; free-response
// placement dispatches on the document's table classification.
func PickStrategy(qtype schemas.QuestionType, layout schemas.TableLayout) StrategyName {
	switch qtype {
	case schemas.QuestionFillBlank:
		return StrategyFillBlank
	case schemas.QuestionMultipleChoice:
		return StrategyMultipleChoice
	}
	switch layout {
	case schemas.LayoutSide:
		return StrategyAdjacentCell
	case schemas.LayoutBelow:
		return StrategyCellBelow
	}
	return StrategyTypeUnderPrompt
}

// Place runs the named strategy against the active document surface. The
// prompt is shortened to a findable anchor before any find-widget call; long
// prompts overflow find widgets and match nothing.
func Place(ctx context.Context, page Page, strategy StrategyName, prompt, answer string) error {
	anchor := findAnchor(prompt)
	if anchor == "" {
		return fmt.Errorf("prompt %q has no findable anchor", Truncate(prompt, 40))
	}

	switch strategy {
	case StrategyFillBlank:
		return placeFillBlank(ctx, page, anchor, prompt, answer)
	case StrategyMultipleChoice:
		return placeMultipleChoice(ctx, page, anchor, prompt, answer)
	case StrategyAdjacentCell:
		return placeAdjacentCell(ctx, page, anchor, answer)
	case StrategyCellBelow:
		return placeCellBelow(ctx, page, anchor, answer)
	default:
		return placeUnderPrompt(ctx, page, anchor, answer)
	}
}

// placeFillBlank replaces the prompt's underscore run with the answer. With
// no blank run present the answer is appended at the end of the prompt line
// instead.
func placeFillBlank(ctx context.Context, page Page, anchor, prompt, answer string) error {
	line := firstLine(answer)
	if run := blankRunRe.FindString(prompt); run != "" {
		return page.ReplaceInPage(ctx, run, line)
	}
	if err := page.FindInPage(ctx, anchor); err != nil {
		return err
	}
	if err := page.PressKey(ctx, "End"); err != nil {
		return err
	}
	return page.TypeActive(ctx, " "+line)
}

// placeMultipleChoice locates the question's numbered marker and types the
// chosen option immediately after it. The number comes from the prompt when
// it leads with one, from the answer otherwise; with neither, placement
// degrades to typing under the prompt.
func placeMultipleChoice(ctx context.Context, page Page, anchor, prompt, answer string) error {
	num := leadingNumberRe.FindStringSubmatch(prompt)
	if num == nil {
		num = leadingNumberRe.FindStringSubmatch(answer)
	}
	if num == nil {
		return placeUnderPrompt(ctx, page, anchor, answer)
	}
	if err := page.FindInPage(ctx, num[1]+"."); err != nil {
		return err
	}
	if err := page.PressKey(ctx, "End"); err != nil {
		return err
	}
	return page.TypeActive(ctx, " "+firstLine(answer))
}

// placeUnderPrompt inserts the answer on a fresh line beneath the prompt's
// line, pushing any existing content down rather than over it.
func placeUnderPrompt(ctx context.Context, page Page, anchor, answer string) error {
	if err := page.FindInPage(ctx, anchor); err != nil {
		return err
	}
	for _, key := range []string{"End", "ArrowDown", "Home", "Enter"} {
		if err := page.PressKey(ctx, key); err != nil {
			return err
		}
	}
	if err := page.PressKey(ctx, "ArrowUp"); err != nil {
		return err
	}
	return page.TypeActive(ctx, answer)
}

// placeAdjacentCell tabs from the located prompt into the neighboring table
// cell and types there.
func placeAdjacentCell(ctx context.Context, page Page, anchor, answer string) error {
	if err := page.FindInPage(ctx, anchor); err != nil {
		return err
	}
	if err := page.PressKey(ctx, "Tab"); err != nil {
		return err
	}
	return page.TypeActive(ctx, answer)
}

// placeCellBelow steps one row down from the located prompt and types into
// that cell.
func placeCellBelow(ctx context.Context, page Page, anchor, answer string) error {
	if err := page.FindInPage(ctx, anchor); err != nil {
		return err
	}
	if err := page.PressKey(ctx, "End"); err != nil {
		return err
	}
	if err := page.PressKey(ctx, "ArrowDown"); err != nil {
		return err
	}
	return page.TypeActive(ctx, answer)
}

// findAnchor reduces a prompt to a short, distinctive search string: its
// first line with blank runs stripped, capped at a length find widgets accept.
func findAnchor(prompt string) string {
	line := firstLine(prompt)
	line = blankRunRe.ReplaceAllString(line, "")
	line = strings.TrimSpace(whitespaceRe.ReplaceAllString(line, " "))
	return Truncate(line, 80)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}

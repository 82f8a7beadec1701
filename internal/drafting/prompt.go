// File: internal/drafting/prompt.go
// Prompt assembly and output cleanup for the drafting service.
package drafting

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xkilldash9x/studyflow-cli/api/schemas"
)

var (
	repeatedPunctRe = regexp.MustCompile(`([!?.,])\1+`)
	spaceRunRe      = regexp.MustCompile(`[ \t]+`)
	blankRunRe      = regexp.MustCompile(`\n{3,}`)
)

// CleanStudentStyleText normalizes generated prose toward plain student
// punctuation: dashes and curly quotes flattened, semicolons softened to
// commas, repeated punctuation and whitespace collapsed.
func CleanStudentStyleText(text string) string {
	out := strings.ReplaceAll(text, "\r\n", "\n")
	out = strings.ReplaceAll(out, "\r", "\n")
	out = strings.TrimSpace(out)

	replacer := strings.NewReplacer(
		"—", "-", // em dash
		"–", "-", // en dash
		"“", `"`,
		"”", `"`,
		"’", "'",
		";", ",",
	)
	out = replacer.Replace(out)
	out = repeatedPunctRe.ReplaceAllString(out, "$1")
	out = spaceRunRe.ReplaceAllString(out, " ")
	out = blankRunRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

const promptRules = `You are writing a homework response in a student's personal voice.

CRITICAL RULES:
- Match the student's writing style and punctuation from the examples as closely as possible
- Keep punctuation simple and light (mostly periods/commas). Avoid semicolons and overly formal transitions
- Do NOT force slang that is not present in the examples
- NEVER sound robotic, formal, or AI-generated
- Keep wording natural, like real student writing with normal imperfections
- Answer the assignment accurately and completely
- Read both the assignment instructions and all attached material text before writing
- If attached materials include template prompts/questions/boxes, answer in the same order and keep each answer concise
- Keep it the right length for this assignment (not too long, not too short)`

// buildPrompt assembles the generation prompt. When the request carries
// detected questions the model is asked for a JSON envelope so answers can be
// matched back to fields; otherwise a plain prose draft is requested.
func buildPrompt(req schemas.GenerationRequest) string {
	var sb strings.Builder
	sb.WriteString(promptRules)

	sb.WriteString("\n\nSTUDENT'S WRITING STYLE EXAMPLES:\n")
	for i, ex := range req.StyleSamples {
		fmt.Fprintf(&sb, "\n--- Example %d of my past writing ---\n%s\n", i+1, ex)
	}

	sb.WriteString("\nASSIGNMENT INFO:\n")
	fmt.Fprintf(&sb, "Class: %s\nTitle: %s\nDescription: %s\n",
		req.Assignment.CourseName, req.Assignment.Title, req.Assignment.Instructions)

	if len(req.MaterialTexts) > 0 {
		sb.WriteString("\nATTACHED MATERIALS:\n")
		for i, mt := range req.MaterialTexts {
			fmt.Fprintf(&sb, "\n--- Attached Material %d ---\n%s\n", i+1, mt)
		}
	}

	if len(req.Questions) == 0 {
		sb.WriteString("\nWrite the complete assignment response now. Output ONLY the assignment text, nothing else.")
		return sb.String()
	}

	sb.WriteString("\nQUESTIONS DETECTED ON THE SUBMISSION PAGE (answer each, in order):\n")
	for i, q := range req.Questions {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, q)
	}
	sb.WriteString(`
Respond with ONLY a JSON object, no prose and no code fences, shaped exactly like:
{"draft": "<the full response as one plain-text document>", "answers": [{"index": 0, "question": "<question text>", "answer": "<answer text>", "type": "free_response"}]}
Use "type" values "free_response", "multiple_choice" or "fill_blank". Include one answers entry per question, in the same order.`)
	return sb.String()
}

// repairPrompt asks the model to re-emit its previous malformed reply as
// valid JSON.
func repairPrompt(raw string) string {
	return "Your previous reply could not be parsed as JSON. Here it is:\n\n" +
		raw +
		"\n\nRe-emit the same content as ONLY the JSON object described before, with no code fences and no commentary."
}

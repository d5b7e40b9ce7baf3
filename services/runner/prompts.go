package runner

import (
	"fmt"
	"strings"

	"github.com/speclens/speclens/services/document"
)

// interpretationSchema is the response contract every query asks for.
// Keeping it in one place keeps baseline and session prompts comparable.
const interpretationSchema = `Respond ONLY with a JSON object of this exact shape:
{
  "interpretation": "<one paragraph: what this section asks the reader to do>",
  "steps": ["<concrete action>", ...],
  "assumptions": ["<assumption you had to make>", ...],
  "ambiguities": ["<anything underspecified or contradictory>", ...]
}
Do not include any text outside the JSON object.`

// BaselinePrompt builds a self-contained prompt for a stateless query.
// The full section text rides along because the model has no other
// context.
func BaselinePrompt(sec document.Section) string {
	var b strings.Builder
	b.WriteString("You are reviewing one section of a technical document in isolation.\n\n")
	fmt.Fprintf(&b, "Section %q:\n\n%s\n\n", sec.Title, sec.RawText)
	b.WriteString("Explain how you would carry out this section's instructions.\n")
	b.WriteString(interpretationSchema)
	return b.String()
}

// SessionPrompt builds a prompt for a session-bound query. The document
// was already seeded into the session, so the prompt names the section
// and repeats its text to pin the model to the right span.
func SessionPrompt(sec document.Section) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From the document you have read, focus on the section titled %q:\n\n%s\n\n", sec.Title, sec.RawText)
	b.WriteString("Using the full document as context, explain how you would carry out this section's instructions.\n")
	b.WriteString(interpretationSchema)
	return b.String()
}

// SessionSeed builds the system context used when opening a session.
func SessionSeed(docText string) string {
	var b strings.Builder
	b.WriteString("You are reviewing a technical document for ambiguity. ")
	b.WriteString("Read it carefully; you will be asked about individual sections.\n\n")
	b.WriteString("--- DOCUMENT START ---\n")
	b.WriteString(docText)
	b.WriteString("\n--- DOCUMENT END ---")
	return b.String()
}

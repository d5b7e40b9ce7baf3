package llm

import (
	"encoding/json"
	"strings"
)

// Interpretation is the structured answer the pipeline asks each model
// to produce for a section.
type Interpretation struct {
	// Text is the model's restatement of what the section asks for.
	Text string `json:"interpretation"`

	// Steps are the concrete actions the model would take.
	Steps []string `json:"steps"`

	// Assumptions the model had to make to act on the section.
	Assumptions []string `json:"assumptions"`

	// Ambiguities the model itself flagged in the section text.
	Ambiguities []string `json:"ambiguities"`

	// Raw preserves the full response text. Set when the response did
	// not decode as structured JSON.
	Raw string `json:"raw,omitempty"`
}

// Structured reports whether the interpretation decoded from JSON
// rather than being captured verbatim.
func (i Interpretation) Structured() bool { return i.Raw == "" }

// ParseInterpretation decodes a model response into an Interpretation.
//
// Models frequently wrap their JSON in markdown code fences or prose, so
// parsing is lenient: try the text as-is, then with fences stripped, then
// the first balanced JSON object found anywhere in the text. When no
// decode succeeds, the raw text becomes the interpretation so downstream
// comparison still has something to work with.
func ParseInterpretation(text string) Interpretation {
	trimmed := strings.TrimSpace(text)

	candidates := []string{trimmed, stripFences(trimmed)}
	if obj := ExtractJSONObject(trimmed); obj != "" {
		candidates = append(candidates, obj)
	}

	for _, c := range candidates {
		if c == "" {
			continue
		}
		var interp Interpretation
		if err := json.Unmarshal([]byte(c), &interp); err == nil && interp.Text != "" {
			return interp
		}
	}

	return Interpretation{Text: trimmed, Raw: trimmed}
}

// stripFences removes a single leading/trailing markdown code fence,
// tolerating a language tag after the opening backticks.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return ""
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ExtractJSONObject returns the first brace-balanced object in s,
// scanning with a minimal string-aware state machine. Empty when no
// balanced object exists.
func ExtractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

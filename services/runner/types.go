// Package runner executes the interpretation queries against every
// configured model and records one response per (section, model, mode).
package runner

// Mode distinguishes the two query styles.
type Mode string

const (
	// ModeBaseline queries each section statelessly, with no shared
	// document context between queries.
	ModeBaseline Mode = "baseline"

	// ModeSession queries inside the model's document-seeded session.
	// A model running in stateless fallback still records this mode:
	// the mode names the run configuration, not the transport.
	ModeSession Mode = "session"
)

// ModelResponse is one model's answer for one section in one mode.
//
// A failed query is a response with Error set and Text empty. Failures
// are data, not control flow: they are persisted alongside successes so
// the detector can see exactly which cells of the (section, model) grid
// are missing.
type ModelResponse struct {
	ModelID       string   `json:"model_id"`
	SectionID     string   `json:"section_id"`
	SequenceIndex int      `json:"sequence_index"`
	Mode          Mode     `json:"mode"`
	Text          string   `json:"response_text,omitempty"`
	Assumptions   []string `json:"assumptions,omitempty"`
	LatencyMs     int64    `json:"latency_ms"`
	Cached        bool     `json:"cached,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// Failed reports whether the query behind this response errored.
func (r ModelResponse) Failed() bool { return r.Error != "" }

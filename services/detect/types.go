// Package detect turns the model response grid into ambiguity
// findings by comparing how independently-queried models interpreted
// each section.
package detect

// Severity ranks how badly the models diverged on a section.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// rank orders severities for sorting; higher is worse.
func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// Status classifies a section's finding across a baseline/session pair.
type Status string

const (
	// StatusResolved means the baseline finding disappeared with
	// document context.
	StatusResolved Status = "resolved"

	// StatusPersisted means the finding survived document context; the
	// ambiguity is in the text, not in missing context.
	StatusPersisted Status = "persisted"

	// StatusNew means document context introduced a divergence the
	// isolated reading did not have.
	StatusNew Status = "new"
)

// Finding is one detected ambiguity.
type Finding struct {
	SectionID string   `json:"section_id"`
	Severity  Severity `json:"severity"`

	// Similarity is the strategy's agreement score in [0,1].
	Similarity float64 `json:"similarity"`

	// Groups partitions model ids into agreement clusters. Three or
	// more clusters means the section supports at least three distinct
	// readings.
	Groups [][]string `json:"groups"`

	// Summary is the strategy's account of the disagreement.
	Summary string `json:"summary"`

	// SelfReported collects ambiguities the models themselves flagged.
	SelfReported []string `json:"self_reported,omitempty"`
}

// Comparison is the three-way partition of findings across a
// baseline/session run pair, keyed by section id. The three sets are
// disjoint and cover every section id appearing in either run.
type Comparison struct {
	Resolved  []Finding `json:"resolved"`
	Persisted []Finding `json:"persisted"`
	New       []Finding `json:"new"`
}

package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/speclens/speclens/services/detect"
	"github.com/speclens/speclens/services/pipeline"
	"github.com/speclens/speclens/services/session"
)

func TestRender_SectionsAndOrdering(t *testing.T) {
	rep := pipeline.DetectionReport{
		Session: []detect.Finding{
			{SectionID: "section_0", Severity: detect.SeverityCritical, Similarity: 0.1,
				Summary: "two incompatible install procedures",
				Groups:  [][]string{{"alpha"}, {"beta"}}},
			{SectionID: "section_2", Severity: detect.SeverityLow, Similarity: 0.9,
				Summary: "assumption divergence"},
		},
	}
	rep.Comparison = detect.Compare(
		[]detect.Finding{rep.Session[0]},
		rep.Session,
	)

	out := Render("run-42", rep, nil, time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC))

	assert.Contains(t, out, "`run-42`")
	assert.Contains(t, out, "## Persisted")
	assert.Contains(t, out, "## New")
	assert.NotContains(t, out, "## Resolved")
	assert.Contains(t, out, "section_0 — CRITICAL")
	assert.Contains(t, out, "| critical | 1 |")
	assert.Contains(t, out, "alpha | beta")
}

func TestRender_FallbackWarning(t *testing.T) {
	sessions := []session.Record{
		{ModelID: "claude", State: session.StateClosed},
		{ModelID: "granite", State: session.StateStatelessFallback, Err: "connection refused"},
		{ModelID: "gpt", State: session.StateFailed, Err: "api key missing"},
	}

	out := Render("run-1", pipeline.DetectionReport{}, sessions, time.Now())

	assert.Contains(t, out, "## Warnings")
	assert.Contains(t, out, "`granite`")
	assert.Contains(t, out, "connection refused")
	assert.Contains(t, out, "`gpt`")
	assert.NotContains(t, out, "`claude` ran without")
}

func TestRender_NoFindings(t *testing.T) {
	out := Render("run-1", pipeline.DetectionReport{}, nil, time.Now())
	assert.Contains(t, out, "No ambiguity findings.")
}

// Package report renders a run's findings as a Markdown document.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/speclens/speclens/services/detect"
	"github.com/speclens/speclens/services/pipeline"
	"github.com/speclens/speclens/services/session"
)

// Render produces the Markdown report for one completed run.
//
// The report leads with what a reader acts on: persisted findings (the
// text itself is ambiguous), then new and resolved ones, then the
// severity breakdown and any degraded sessions.
func Render(runID string, rep pipeline.DetectionReport, sessions []session.Record, generatedAt time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Ambiguity Report\n\n")
	fmt.Fprintf(&b, "- Run: `%s`\n", runID)
	fmt.Fprintf(&b, "- Generated: %s\n\n", generatedAt.UTC().Format(time.RFC3339))

	writeFallbackWarnings(&b, sessions)
	writeBreakdown(&b, rep)

	writeFindingSet(&b, "Persisted", rep.Comparison.Persisted,
		"Flagged both in isolation and with full document context. The ambiguity is in the text.")
	writeFindingSet(&b, "New", rep.Comparison.New,
		"Only flagged with full document context.")
	writeFindingSet(&b, "Resolved", rep.Comparison.Resolved,
		"Flagged in isolation but resolved by document context.")

	if len(rep.Comparison.Persisted)+len(rep.Comparison.New)+len(rep.Comparison.Resolved) == 0 {
		b.WriteString("No ambiguity findings.\n")
	}

	return b.String()
}

func writeFallbackWarnings(b *strings.Builder, sessions []session.Record) {
	var degraded []session.Record
	for _, rec := range sessions {
		if rec.State.Degraded() {
			degraded = append(degraded, rec)
		}
	}
	if len(degraded) == 0 {
		return
	}

	b.WriteString("## Warnings\n\n")
	for _, rec := range degraded {
		fmt.Fprintf(b, "- Model `%s` ran without a session", rec.ModelID)
		if rec.Err != "" {
			fmt.Fprintf(b, " (%s)", rec.Err)
		}
		b.WriteString("; its session-mode answers lacked document context.\n")
	}
	b.WriteString("\n")
}

func writeBreakdown(b *strings.Builder, rep pipeline.DetectionReport) {
	counts := map[detect.Severity]int{}
	for _, f := range rep.Session {
		counts[f.Severity]++
	}

	b.WriteString("## Severity Breakdown (session run)\n\n")
	b.WriteString("| Severity | Findings |\n|---|---|\n")
	for _, sev := range []detect.Severity{
		detect.SeverityCritical, detect.SeverityHigh,
		detect.SeverityMedium, detect.SeverityLow,
	} {
		fmt.Fprintf(b, "| %s | %d |\n", sev, counts[sev])
	}
	b.WriteString("\n")
}

func writeFindingSet(b *strings.Builder, title string, findings []detect.Finding, note string) {
	if len(findings) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n%s\n\n", title, note)
	for _, f := range findings {
		fmt.Fprintf(b, "### %s — %s\n\n", f.SectionID, strings.ToUpper(string(f.Severity)))
		fmt.Fprintf(b, "%s\n\n", f.Summary)
		fmt.Fprintf(b, "- Similarity: %.2f\n", f.Similarity)
		if len(f.Groups) > 1 {
			parts := make([]string, len(f.Groups))
			for i, g := range f.Groups {
				parts[i] = strings.Join(g, ", ")
			}
			fmt.Fprintf(b, "- Readings: %s\n", strings.Join(parts, " | "))
		}
		for _, amb := range f.SelfReported {
			fmt.Fprintf(b, "- Self-reported: %s\n", amb)
		}
		b.WriteString("\n")
	}
}

package detect

import "sort"

// Compare partitions findings across a baseline/session run pair by
// section id.
//
// Resolved: flagged in baseline, gone with document context — the
// section was ambiguous only in isolation. Persisted: flagged in both —
// the text itself is ambiguous; the persisted entry carries the session
// run's finding. New: flagged only with document context.
//
// The three sets are disjoint and cover every section id that appears
// in either input.
func Compare(baseline, session []Finding) Comparison {
	baseBySection := indexBySection(baseline)
	sessBySection := indexBySection(session)

	var cmp Comparison
	for id, f := range baseBySection {
		if _, still := sessBySection[id]; still {
			continue
		}
		cmp.Resolved = append(cmp.Resolved, f)
	}
	for id, f := range sessBySection {
		if _, was := baseBySection[id]; was {
			cmp.Persisted = append(cmp.Persisted, f)
		} else {
			cmp.New = append(cmp.New, f)
		}
	}

	sortFindings(cmp.Resolved)
	sortFindings(cmp.Persisted)
	sortFindings(cmp.New)
	return cmp
}

func indexBySection(findings []Finding) map[string]Finding {
	out := make(map[string]Finding, len(findings))
	for _, f := range findings {
		out[f.SectionID] = f
	}
	return out
}

func sortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Severity.rank() != findings[j].Severity.rank() {
			return findings[i].Severity.rank() > findings[j].Severity.rank()
		}
		return findings[i].SectionID < findings[j].SectionID
	})
}

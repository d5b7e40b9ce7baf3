package detect

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/speclens/speclens/services/llm"
	"github.com/speclens/speclens/services/runner"
)

// executableKeywords marks assumptions that change what actually gets
// executed, which bumps an assumption-only divergence above cosmetic.
var executableKeywords = []string{
	"install", "delete", "remove", "overwrite", "run", "execute",
	"restart", "deploy", "drop", "format", "migrate",
}

// Detector groups model responses by section and scores each section's
// agreement with a strategy.
type Detector struct {
	strategy Strategy
	logger   *slog.Logger
}

// NewDetector builds a detector. logger may be nil.
func NewDetector(strategy Strategy, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{strategy: strategy, logger: logger}
}

// Detect produces findings for every section where at least two models
// answered and the interpretations diverge beyond phrasing.
//
// Failed responses reduce the comparison set for their section; a
// section with fewer than two usable interpretations yields no finding.
// A strategy error aborts the whole stage: a partial finding list would
// read as "the other sections are fine", which the detector cannot
// claim.
func (d *Detector) Detect(ctx context.Context, responses []runner.ModelResponse) ([]Finding, error) {
	bySection := groupInterpretations(responses)

	sectionIDs := make([]string, 0, len(bySection))
	for id := range bySection {
		sectionIDs = append(sectionIDs, id)
	}
	sort.Strings(sectionIDs)

	var findings []Finding
	for _, sectionID := range sectionIDs {
		interps := bySection[sectionID]
		if len(interps) < 2 {
			d.logger.Debug("section has too few interpretations to compare",
				"section", sectionID, "count", len(interps))
			continue
		}

		result, err := d.strategy.Compare(ctx, sectionID, interps)
		if err != nil {
			return nil, &JudgeError{SectionID: sectionID, Reason: "comparison failed", Err: err}
		}

		severity, ok := classify(result, interps)
		if !ok {
			continue
		}

		findingsTotal.WithLabelValues(string(severity)).Inc()
		findings = append(findings, Finding{
			SectionID:    sectionID,
			Severity:     severity,
			Similarity:   result.Similarity,
			Groups:       result.Groups,
			Summary:      result.Summary,
			SelfReported: selfReported(interps),
		})
	}

	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Severity.rank() != findings[j].Severity.rank() {
			return findings[i].Severity.rank() > findings[j].Severity.rank()
		}
		return findings[i].SectionID < findings[j].SectionID
	})
	return findings, nil
}

// classify maps a strategy result onto the severity ladder. The second
// return is false when the section does not warrant a finding.
func classify(result Result, interps map[string]llm.Interpretation) (Severity, bool) {
	switch {
	case len(result.Groups) >= 3:
		return SeverityCritical, true
	case result.Similarity < 0.3:
		return SeverityCritical, true
	case result.Similarity < 0.5:
		return SeverityHigh, true
	case result.Similarity < agreementThreshold:
		return SeverityMedium, true
	}

	// Models agree on the procedure; check whether they got there by
	// making different assumptions.
	if divergent, executable := assumptionDivergence(interps); divergent {
		if executable {
			return SeverityMedium, true
		}
		return SeverityLow, true
	}
	return "", false
}

// assumptionDivergence reports whether the models' assumption sets
// differ, and whether any divergent assumption touches an executable
// action.
func assumptionDivergence(interps map[string]llm.Interpretation) (divergent, executable bool) {
	seen := make(map[string]int)
	total := 0
	for _, interp := range interps {
		total++
		for _, a := range interp.Assumptions {
			seen[normalizeAssumption(a)]++
		}
	}
	for a, count := range seen {
		if count == total {
			continue // every model made it
		}
		divergent = true
		for _, kw := range executableKeywords {
			if strings.Contains(a, kw) {
				executable = true
			}
		}
	}
	return divergent, executable
}

func normalizeAssumption(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func selfReported(interps map[string]llm.Interpretation) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range sortedModels(interps) {
		for _, amb := range interps[m].Ambiguities {
			key := strings.ToLower(strings.TrimSpace(amb))
			if _, dup := seen[key]; dup || key == "" {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, amb)
		}
	}
	return out
}

// groupInterpretations parses each non-failed response and indexes by
// section then model.
func groupInterpretations(responses []runner.ModelResponse) map[string]map[string]llm.Interpretation {
	out := make(map[string]map[string]llm.Interpretation)
	for _, resp := range responses {
		if resp.Failed() || strings.TrimSpace(resp.Text) == "" {
			continue
		}
		if out[resp.SectionID] == nil {
			out[resp.SectionID] = make(map[string]llm.Interpretation)
		}
		out[resp.SectionID][resp.ModelID] = llm.ParseInterpretation(resp.Text)
	}
	return out
}

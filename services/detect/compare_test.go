package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finding(sectionID string, sev Severity) Finding {
	return Finding{SectionID: sectionID, Severity: sev, Similarity: 0.4}
}

func TestCompare_ThreeWayPartition(t *testing.T) {
	baseline := []Finding{
		finding("section_0", SeverityHigh),   // resolved
		finding("section_1", SeverityMedium), // persisted
	}
	session := []Finding{
		finding("section_1", SeverityLow),      // persisted (session copy kept)
		finding("section_2", SeverityCritical), // new
	}

	cmp := Compare(baseline, session)

	require.Len(t, cmp.Resolved, 1)
	assert.Equal(t, "section_0", cmp.Resolved[0].SectionID)

	require.Len(t, cmp.Persisted, 1)
	assert.Equal(t, "section_1", cmp.Persisted[0].SectionID)
	assert.Equal(t, SeverityLow, cmp.Persisted[0].Severity, "persisted carries the session finding")

	require.Len(t, cmp.New, 1)
	assert.Equal(t, "section_2", cmp.New[0].SectionID)
}

func TestCompare_PartitionsAreDisjointAndCovering(t *testing.T) {
	baseline := []Finding{
		finding("section_0", SeverityHigh),
		finding("section_1", SeverityHigh),
		finding("section_3", SeverityLow),
	}
	session := []Finding{
		finding("section_1", SeverityMedium),
		finding("section_2", SeverityMedium),
		finding("section_3", SeverityMedium),
	}

	cmp := Compare(baseline, session)

	seen := map[string]int{}
	for _, set := range [][]Finding{cmp.Resolved, cmp.Persisted, cmp.New} {
		for _, f := range set {
			seen[f.SectionID]++
		}
	}

	// Every section id from either run appears exactly once.
	for _, id := range []string{"section_0", "section_1", "section_2", "section_3"} {
		assert.Equal(t, 1, seen[id], id)
	}
	assert.Len(t, seen, 4)
}

func TestCompare_EmptyInputs(t *testing.T) {
	cmp := Compare(nil, nil)
	assert.Empty(t, cmp.Resolved)
	assert.Empty(t, cmp.Persisted)
	assert.Empty(t, cmp.New)

	onlyBase := Compare([]Finding{finding("section_0", SeverityLow)}, nil)
	require.Len(t, onlyBase.Resolved, 1)
	assert.Empty(t, onlyBase.Persisted)
	assert.Empty(t, onlyBase.New)
}

func TestCompare_SortedBySeverityWithinSet(t *testing.T) {
	session := []Finding{
		finding("section_5", SeverityLow),
		finding("section_3", SeverityCritical),
		finding("section_4", SeverityHigh),
	}

	cmp := Compare(nil, session)

	require.Len(t, cmp.New, 3)
	assert.Equal(t, "section_3", cmp.New[0].SectionID)
	assert.Equal(t, "section_4", cmp.New[1].SectionID)
	assert.Equal(t, "section_5", cmp.New[2].SectionID)
}

package document

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `# Setup

Run the installer and verify the checksum before continuing.

## Glass Mode

Glass Mode must be enabled before any export step runs.

## Background

Some historical context with no actionable content here at all.

## Export

Execute the export and check the output directory.
`

func TestExtract_ContiguousIndexes(t *testing.T) {
	p := NewProcessor(nil)
	sections, err := p.Extract(sampleDoc)
	require.NoError(t, err)
	require.NotEmpty(t, sections)

	for i, s := range sections {
		assert.Equal(t, i, s.SequenceIndex, "sequence indexes must be contiguous from 0")
		assert.Equal(t, fmt.Sprintf("section_%d", i), s.ID)
	}
}

func TestExtract_SkipsNonInstructionalSections(t *testing.T) {
	p := NewProcessor(nil)
	sections, err := p.Extract(sampleDoc)
	require.NoError(t, err)

	for _, s := range sections {
		assert.NotEqual(t, "Background", s.Title, "descriptive prose sections must be dropped")
	}
	// Setup, Glass Mode, Export all carry instruction keywords.
	require.Len(t, sections, 3)
	assert.Equal(t, "Setup", sections[0].Title)
	assert.Equal(t, "Glass Mode", sections[1].Title)
	assert.Equal(t, "Export", sections[2].Title)
}

func TestExtract_HeadersInsideCodeFences(t *testing.T) {
	doc := "# Install\n\nRun the setup script:\n\n```bash\n# this is a comment, not a heading\necho install\n```\n\nThen verify the output.\n"
	p := NewProcessor(nil)
	sections, err := p.Extract(doc)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "Install", sections[0].Title)
	assert.Contains(t, sections[0].RawText, "# this is a comment")
}

func TestExtract_NoBoundaries(t *testing.T) {
	p := NewProcessor(nil)

	_, err := p.Extract("just a paragraph of plain text with nothing to run")
	require.ErrorIs(t, err, ErrNoSections)

	_, err = p.Extract("")
	require.ErrorIs(t, err, ErrNoSections)

	// Instruction keywords without a heading are still not a section.
	_, err = p.Extract("You must run the installer and verify the checksum.")
	require.ErrorIs(t, err, ErrNoSections)
}

func TestExtract_PreambleBeforeFirstHeadingDropped(t *testing.T) {
	doc := "Some introductory prose you should skip entirely.\n\n# Install\n\nRun the setup script and verify the output.\n"
	p := NewProcessor(nil)
	sections, err := p.Extract(doc)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "Install", sections[0].Title)
	assert.NotContains(t, sections[0].RawText, "introductory prose")
}

func TestExtract_LastSectionIncluded(t *testing.T) {
	doc := "# Only\n\nCreate the final artifact and verify it."
	p := NewProcessor(nil)
	sections, err := p.Extract(doc)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "Only", sections[0].Title)
}

package document

// Section is a contiguous, testable span of the source document.
//
// Sections are immutable once extracted: the extraction stage creates them
// and every later stage treats them as read-only input.
type Section struct {
	// ID is the stable ordinal identifier, e.g. "section_0".
	ID string `json:"id"`

	// Title is the heading text the section was extracted under.
	Title string `json:"title"`

	// RawText is the section body, exactly as it appeared in the source.
	RawText string `json:"raw_text"`

	// SequenceIndex is the position in document order, contiguous from 0.
	SequenceIndex int `json:"sequence_index"`

	// StartLine and EndLine locate the section in the source document.
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`

	// Level is the markdown heading level (1-6).
	Level int `json:"level"`
}

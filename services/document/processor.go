// Package document extracts testable sections from markdown documents.
//
// Extraction is the leaf stage of the pipeline: it runs once per document
// and its output is read-only for the remainder of a run.
package document

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

var headerRe = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// instructionKeywords mark a section as testable. Sections with none of
// these are descriptive prose and are skipped, matching the behavior of
// the extraction step this pipeline replays against.
var instructionKeywords = []string{
	"step", "must", "should", "create", "generate", "validate",
	"process", "execute", "run", "configure", "setup", "install",
	"build", "deploy", "test", "check", "verify", "ensure",
}

// Processor extracts sections from a markdown document.
type Processor struct {
	logger *slog.Logger
}

// NewProcessor creates a Processor. A nil logger falls back to slog.Default.
func NewProcessor(logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{logger: logger}
}

// ExtractFile reads a document from disk and extracts its sections.
func (p *Processor) ExtractFile(path string) ([]Section, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document %s: %w", path, err)
	}
	return p.Extract(string(data))
}

// Extract splits a markdown document into instruction sections.
//
// Headings open a new section; fenced code blocks are tracked so that a
// `# comment` inside a fence never splits a section. Sections whose body
// contains no instruction keyword are dropped. Returned sections carry
// strictly increasing, contiguous sequence indexes starting at 0.
//
// Returns ErrNoSections when the document yields no testable section.
func (p *Processor) Extract(content string) ([]Section, error) {
	lines := strings.Split(content, "\n")

	type rawSection struct {
		title     string
		body      []string
		startLine int
		level     int
	}

	var sections []Section
	current := rawSection{}
	inCodeFence := false
	seenHeading := false

	flush := func(endLine int) {
		body := strings.Join(current.body, "\n")
		if !isInstructional(body) {
			return
		}
		idx := len(sections)
		sections = append(sections, Section{
			ID:            fmt.Sprintf("section_%d", idx),
			Title:         current.title,
			RawText:       body,
			SequenceIndex: idx,
			StartLine:     current.startLine,
			EndLine:       endLine,
			Level:         current.level,
		})
	}

	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inCodeFence = !inCodeFence
		}

		var match []string
		if !inCodeFence {
			match = headerRe.FindStringSubmatch(line)
		}

		if match != nil {
			if seenHeading && len(current.body) > 0 {
				flush(i - 1)
			}
			seenHeading = true
			current = rawSection{
				title:     strings.TrimSpace(match[2]),
				startLine: i,
				level:     len(match[1]),
			}
			continue
		}

		// Preamble before the first heading belongs to no section.
		if !seenHeading {
			continue
		}
		current.body = append(current.body, line)
	}

	if seenHeading && len(current.body) > 0 {
		flush(len(lines) - 1)
	}

	if len(sections) == 0 {
		return nil, ErrNoSections
	}

	p.logger.Info("sections extracted", "count", len(sections))
	return sections, nil
}

// isInstructional reports whether text contains instructional content
// worth testing: non-trivial length plus at least one instruction keyword.
func isInstructional(text string) bool {
	if len(strings.TrimSpace(text)) < 10 {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range instructionKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

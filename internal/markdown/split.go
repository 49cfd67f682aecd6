// Package markdown splits raw markdown text into structural sections.
// Splitting is a pure function over the text so it can be tested without disk I/O.
package markdown

import (
	"regexp"
	"strings"
)

// headerPattern matches ATX headers: one to six '#' followed by a space.
var headerPattern = regexp.MustCompile(`^#{1,6}\s`)

// Section is a contiguous span of markdown that starts at a header line
// (or at the top of the document for leading headerless text).
type Section struct {
	// Heading is the raw header line that opens the section, empty for the preamble.
	Heading string
	// Content is the full section text including the header line.
	Content string
	// StartLine is the zero-based line number where the section begins.
	StartLine int
}

// Split breaks text into sections at header boundaries. A header inside a
// fenced code block does not start a new section. Text before the first
// header becomes a section with an empty Heading. Documents without any
// header yield a single section. Malformed markdown is never an error;
// anything unrecognized is carried along as plain text.
func Split(text string) []Section {
	lines := strings.Split(text, "\n")
	var sections []Section
	var current []string
	currentStart := 0
	currentHeading := ""
	inFence := false

	flush := func(nextStart int) {
		content := strings.Join(current, "\n")
		if strings.TrimSpace(content) != "" {
			sections = append(sections, Section{
				Heading:   currentHeading,
				Content:   content,
				StartLine: currentStart,
			})
		}
		current = current[:0]
		currentStart = nextStart
	}

	for i, line := range lines {
		if isFenceDelimiter(line) {
			inFence = !inFence
		}
		if !inFence && headerPattern.MatchString(line) {
			flush(i)
			currentHeading = line
		}
		current = append(current, line)
	}
	flush(len(lines))
	return sections
}

// isFenceDelimiter reports whether line opens or closes a fenced code block.
func isFenceDelimiter(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	return strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")
}

// IsHeader reports whether line is an ATX header line.
func IsHeader(line string) bool {
	return headerPattern.MatchString(line)
}

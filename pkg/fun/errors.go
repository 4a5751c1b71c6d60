package fun

import (
	"fmt"
	"strings"
)

// SourceLocation represents a location in source code
type SourceLocation struct {
	Filename string
	Line     int
	Column   int
	Length   int // Length of the offending token, at least 1 when rendered
}

func (loc *SourceLocation) String() string {
	return fmt.Sprintf("%s:%d:%d", loc.Filename, loc.Line, loc.Column)
}

// ParseError is a syntax error with the location where parsing failed.
type ParseError struct {
	Message  string
	Location *SourceLocation
	Source   string // The full source text being parsed
}

func (e *ParseError) Error() string {
	if e.Location == nil {
		return e.Message
	}
	if e.Source == "" {
		return fmt.Sprintf("%s: %s", e.Location, e.Message)
	}
	return e.FormatWithHighlighting()
}

// FormatWithHighlighting renders the error with the surrounding source lines
// and a caret under the failing position.
func (e *ParseError) FormatWithHighlighting() string {
	if e.Location == nil || e.Source == "" {
		return e.Message
	}

	lines := strings.Split(e.Source, "\n")
	if e.Location.Line < 1 || e.Location.Line > len(lines) {
		return e.Message
	}

	const (
		red   = "\033[31m"
		blue  = "\033[34m"
		bold  = "\033[1m"
		reset = "\033[0m"
		dim   = "\033[2m"
	)

	var result strings.Builder

	fmt.Fprintf(&result, "%s%sError:%s %s\n", bold, red, reset, e.Message)
	fmt.Fprintf(&result, "  %s%s--> %s%s\n", dim, blue, e.Location, reset)
	fmt.Fprintf(&result, " %s%s |%s\n", dim, padLeft("", 3), reset)

	startLine := max(1, e.Location.Line-2)
	endLine := min(len(lines), e.Location.Line+2)

	for i := startLine; i <= endLine; i++ {
		lineNo := padLeft(fmt.Sprintf("%d", i), 3)
		if i == e.Location.Line {
			fmt.Fprintf(&result, " %s%s%s%s | %s%s\n", dim, blue, bold, lineNo, reset, lines[i-1])

			// 1 space + 3 for line number + " | " + column offset
			padding := strings.Repeat(" ", 1+3+3+e.Location.Column-1)
			underline := strings.Repeat("^", max(1, e.Location.Length))
			fmt.Fprintf(&result, "%s%s%s%s%s\n", dim, padding, red, underline, reset)
		} else {
			fmt.Fprintf(&result, " %s%s | %s%s\n", dim, lineNo, lines[i-1], reset)
		}
	}

	fmt.Fprintf(&result, " %s%s |%s\n", dim, padLeft("", 3), reset)

	return result.String()
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

// MissingMainError is returned when a program declares no main binding.
type MissingMainError struct {
	Filename string
}

func (e *MissingMainError) Error() string {
	if e.Filename == "" {
		return "program has no main binding"
	}
	return fmt.Sprintf("%s: program has no main binding", e.Filename)
}

// DivisionByZeroError is returned when an integer is divided by zero.
type DivisionByZeroError struct {
	Term Term // the division being reduced, operands already evaluated
}

func (e *DivisionByZeroError) Error() string {
	return fmt.Sprintf("division by zero: %s", e.Term)
}

// StepLimitError is returned when an evaluation runs out of fuel.
type StepLimitError struct {
	Limit int
}

func (e *StepLimitError) Error() string {
	return fmt.Sprintf("step limit exceeded: evaluation did not finish within %d steps", e.Limit)
}

package source

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// IndentUnit is the number of spaces added per nested scope.
const IndentUnit = 4

// Generator accumulates line-numbered, indented pseudo-source.
//
// Line numbers start at 1 and advance by exactly one per AddLine call, so
// the number AddLine returns is the line a debugger will show for
// whatever is emitted right after it.
type Generator struct {
	buf   strings.Builder
	lines []string
	depth int
}

// NewGenerator returns an empty generator positioned at line 1.
func NewGenerator() *Generator {
	return &Generator{}
}

// AddLine appends text at the current indentation and returns the line
// number it occupies. The text is not checked for syntax; it must not
// contain a line break, since that would desynchronise line numbers.
func (g *Generator) AddLine(text string) int {
	if strings.ContainsAny(text, "\r\n") {
		panic("source: line text must not contain a line break")
	}
	line := strings.Repeat(" ", g.depth*IndentUnit) + norm.NFC.String(text)
	g.buf.WriteString(line)
	g.buf.WriteByte('\n')
	g.lines = append(g.lines, line)
	return len(g.lines)
}

// EnterScope increases indentation by one unit.
func (g *Generator) EnterScope() {
	g.depth++
}

// LeaveScope decreases indentation by one unit. Leaving more scopes than
// were entered panics.
func (g *Generator) LeaveScope() {
	if g.depth == 0 {
		panic("source: LeaveScope without matching EnterScope")
	}
	g.depth--
}

// Depth reports the current nesting depth.
func (g *Generator) Depth() int {
	return g.depth
}

// CurrentLine is the number the next AddLine call will return.
func (g *Generator) CurrentLine() int {
	return len(g.lines) + 1
}

// LineCount is the number of lines rendered so far.
func (g *Generator) LineCount() int {
	return len(g.lines)
}

// Line returns the rendered text of line n (1-based), including indentation.
func (g *Generator) Line(n int) (string, bool) {
	if n < 1 || n > len(g.lines) {
		return "", false
	}
	return g.lines[n-1], true
}

// Get returns the full accumulated text. It has no side effects.
func (g *Generator) Get() string {
	return g.buf.String()
}

// Package listing renders a finished artifact as an annotated listing:
// each pseudo-source line next to the IR opcodes stamped with it.
package listing

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"weave/codegen"
)

// Options controls rendering.
type Options struct {
	Color bool
	// Width caps the source column; longer lines are truncated with "...".
	// Zero sizes the column to the widest line.
	Width int
}

type styles struct {
	header lipgloss.Style
	gutter lipgloss.Style
	ops    lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{header: plain, gutter: plain, ops: plain}
	}
	return styles{
		header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7")),
		gutter: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		ops:    lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	}
}

func paint(st lipgloss.Style, color bool, text string) string {
	if !color {
		return text
	}
	return st.Render(text)
}

// Render writes the listing of art to w.
func Render(w io.Writer, art *codegen.Artifact, opts Options) error {
	_, err := io.WriteString(w, String(art, opts))
	return err
}

// String returns the listing of art.
func String(art *codegen.Artifact, opts Options) string {
	st := newStyles(opts.Color)
	lines := strings.Split(strings.TrimSuffix(art.Source, "\n"), "\n")
	if art.Source == "" {
		lines = nil
	}

	ops := make(map[int][]string)
	for _, e := range art.Lines.Entries {
		ops[e.Line] = append(ops[e.Line], e.Opcode)
	}

	col := 0
	for _, l := range lines {
		col = max(col, runewidth.StringWidth(l))
	}
	if opts.Width > 0 {
		col = min(col, opts.Width)
	}
	gutter := len(strconv.Itoa(len(lines)))

	var b strings.Builder
	header := fmt.Sprintf("; %s (module %s, %d line(s), %d function(s))", art.SourcePath, art.Name, len(lines), len(art.Functions))
	b.WriteString(paint(st.header, opts.Color, header))
	b.WriteByte('\n')
	for i, l := range lines {
		n := i + 1
		b.WriteString(paint(st.gutter, opts.Color, fmt.Sprintf("%*d |", gutter, n)))
		b.WriteByte(' ')
		text := truncate(l, col)
		stamped := ops[n]
		if len(stamped) == 0 {
			b.WriteString(strings.TrimRight(text, " "))
			b.WriteByte('\n')
			continue
		}
		b.WriteString(runewidth.FillRight(text, col))
		b.WriteString("  ")
		b.WriteString(paint(st.ops, opts.Color, "; "+strings.Join(stamped, ", ")))
		b.WriteByte('\n')
	}
	return b.String()
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}

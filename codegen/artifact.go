package codegen

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"fortio.org/safecast"
	"github.com/llir/llvm/ir"
	"github.com/vmihailenco/msgpack/v5"

	"weave/internal/debuginfo"
)

// lineTableSchema is bumped whenever LineTable's encoding changes.
const lineTableSchema uint16 = 1

// ErrLineTableSchema is returned when decoding a line table written by a
// different schema version.
var ErrLineTableSchema = errors.New("line table schema mismatch")

// Artifact is the immutable result of Module.Finalize.
type Artifact struct {
	Name       string
	SourcePath string
	Source     string // pseudo-source text; line n of it is debug line n
	Module     *ir.Module
	Functions  []FunctionRef
	Lines      LineTable
}

// IR renders the finished module as LLVM assembly.
func (a *Artifact) IR() string {
	return a.Module.String()
}

// LineEntry ties one IR instruction to the pseudo-source line it was
// stamped with.
type LineEntry struct {
	Function string
	Line     int
	Opcode   string
}

// LineTable lists every attributed instruction in IR order.
type LineTable struct {
	Schema  uint16
	Source  string
	Entries []LineEntry
}

// ForLine returns the entries stamped with line n.
func (t LineTable) ForLine(n int) []LineEntry {
	var out []LineEntry
	for _, e := range t.Entries {
		if e.Line == n {
			out = append(out, e)
		}
	}
	return out
}

// Lines returns the distinct stamped lines in ascending order.
func (t LineTable) Lines() []int {
	seen := make(map[int]struct{}, len(t.Entries))
	var out []int
	for _, e := range t.Entries {
		if _, ok := seen[e.Line]; ok {
			continue
		}
		seen[e.Line] = struct{}{}
		out = append(out, e.Line)
	}
	sort.Ints(out)
	return out
}

// EncodeLineTable writes t as msgpack.
func EncodeLineTable(w io.Writer, t LineTable) error {
	t.Schema = lineTableSchema
	enc := msgpack.NewEncoder(w)
	if err := enc.Encode(&t); err != nil {
		return fmt.Errorf("encode line table: %w", err)
	}
	return nil
}

// DecodeLineTable reads a table written by EncodeLineTable.
func DecodeLineTable(r io.Reader) (LineTable, error) {
	var t LineTable
	dec := msgpack.NewDecoder(r)
	if err := dec.Decode(&t); err != nil {
		return LineTable{}, fmt.Errorf("decode line table: %w", err)
	}
	if t.Schema != lineTableSchema {
		return LineTable{}, fmt.Errorf("%w: got %d, want %d", ErrLineTableSchema, t.Schema, lineTableSchema)
	}
	return t, nil
}

func extractLineTable(m *ir.Module, sourcePath string) (LineTable, error) {
	t := LineTable{Schema: lineTableSchema, Source: sourcePath}
	add := func(fn string, v any) error {
		loc, ok := debuginfo.LocationOf(v)
		if !ok {
			return nil
		}
		line, err := safecast.Conv[int](loc.Line)
		if err != nil {
			return fmt.Errorf("line table: %s: %w", fn, err)
		}
		t.Entries = append(t.Entries, LineEntry{Function: fn, Line: line, Opcode: opcode(v)})
		return nil
	}
	for _, f := range m.Funcs {
		name := f.Name()
		for _, blk := range f.Blocks {
			for _, inst := range blk.Insts {
				if err := add(name, inst); err != nil {
					return LineTable{}, err
				}
			}
			if blk.Term != nil {
				if err := add(name, blk.Term); err != nil {
					return LineTable{}, err
				}
			}
		}
	}
	return t, nil
}

func opcode(v any) string {
	switch v.(type) {
	case *ir.InstAdd:
		return "add"
	case *ir.InstSub:
		return "sub"
	case *ir.InstMul:
		return "mul"
	case *ir.InstFAdd:
		return "fadd"
	case *ir.InstFSub:
		return "fsub"
	case *ir.InstFMul:
		return "fmul"
	case *ir.TermRet:
		return "ret"
	default:
		name := fmt.Sprintf("%T", v)
		name = strings.TrimPrefix(name, "*ir.")
		name = strings.TrimPrefix(name, "Inst")
		name = strings.TrimPrefix(name, "Term")
		return strings.ToLower(name)
	}
}

// Package debuginfo builds the DWARF metadata graph attached to generated
// LLVM IR: one compile unit and file per module, basic and subroutine
// types, a subprogram per function and a location per statement.
//
// Nodes are registered with the owning ir.Module as they are created and
// receive explicit metadata IDs, so the module prints a complete graph at
// any point. Finalize adds the named roots (llvm.dbg.cu and module flags)
// after validating that every instruction is attributed.
package debuginfo

import (
	"errors"
	"fmt"
	"path/filepath"

	"fortio.org/safecast"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/metadata"
	"github.com/llir/llvm/ir/types"
)

const (
	dwarfVersion     = 4
	debugInfoVersion = 3

	// module flag behaviours
	flagWarning = 2
	flagMax     = 7
)

// ErrFinalized is returned when the graph is modified after Finalize.
var ErrFinalized = errors.New("debuginfo: builder already finalized")

// Basic describes a DW_TAG_base_type. The zero value means "no type"
// and is encoded as null (used for void returns).
type Basic struct {
	Name     string
	SizeBits uint64
	Align    uint64
	Encoding enum.DwarfAttEncoding
}

// IsZero reports whether b describes no type.
func (b Basic) IsZero() bool {
	return b.Name == ""
}

// Config selects the compile-unit properties.
type Config struct {
	SourcePath string // recorded only; never opened
	Producer   string
}

// Builder owns the debug metadata of one ir.Module.
type Builder struct {
	m         *ir.Module
	nextID    int64
	cu        *metadata.DICompileUnit
	file      *metadata.DIFile
	basics    map[string]*metadata.DIBasicType
	funcs     []*metadata.DISubprogram
	finalized bool
}

// NewBuilder creates the compile unit and file for m.
func NewBuilder(m *ir.Module, cfg Config) *Builder {
	b := &Builder{
		m:      m,
		basics: make(map[string]*metadata.DIBasicType),
	}
	dir, name := filepath.Split(cfg.SourcePath)
	if dir == "" {
		dir = "."
	}
	b.file = &metadata.DIFile{
		Filename:  name,
		Directory: filepath.Clean(dir),
	}
	b.register(b.file)
	b.cu = &metadata.DICompileUnit{
		Distinct:     true,
		Language:     enum.DwarfLangC99,
		File:         b.file,
		Producer:     cfg.Producer,
		EmissionKind: enum.EmissionKindFullDebug,
	}
	b.register(b.cu)
	return b
}

func (b *Builder) register(def metadata.Definition) {
	def.SetID(b.nextID)
	b.nextID++
	b.m.MetadataDefs = append(b.m.MetadataDefs, def)
}

// CompileUnit is the root debug scope.
func (b *Builder) CompileUnit() *metadata.DICompileUnit { return b.cu }

// File is the pseudo-source file every location refers to.
func (b *Builder) File() *metadata.DIFile { return b.file }

// Subprograms returns the subprograms created so far, in creation order.
func (b *Builder) Subprograms() []*metadata.DISubprogram { return b.funcs }

// BasicType returns the node for bt, creating it on first use.
// A zero Basic yields a null field.
func (b *Builder) BasicType(bt Basic) metadata.Field {
	if bt.IsZero() {
		return &metadata.NullLit{}
	}
	if n, ok := b.basics[bt.Name]; ok {
		return n
	}
	n := &metadata.DIBasicType{
		Tag:      enum.DwarfTagBaseType,
		Name:     bt.Name,
		Size:     bt.SizeBits,
		Align:    bt.Align,
		Encoding: bt.Encoding,
	}
	b.register(n)
	b.basics[bt.Name] = n
	return n
}

// SubroutineType builds the type array {ret, params...} for a function.
func (b *Builder) SubroutineType(ret Basic, params []Basic) *metadata.DISubroutineType {
	fields := make([]metadata.Field, 0, len(params)+1)
	fields = append(fields, b.BasicType(ret))
	for _, p := range params {
		fields = append(fields, b.BasicType(p))
	}
	tuple := &metadata.Tuple{Fields: fields}
	b.register(tuple)
	st := &metadata.DISubroutineType{
		Flags: enum.DIFlagPrototyped,
		Types: tuple,
	}
	b.register(st)
	return st
}

// Subprogram creates a function definition node at line in scope.
func (b *Builder) Subprogram(scope metadata.Field, name string, line int, typ *metadata.DISubroutineType) (*metadata.DISubprogram, error) {
	if b.finalized {
		return nil, ErrFinalized
	}
	l, err := lineNumber(line)
	if err != nil {
		return nil, fmt.Errorf("subprogram %s: %w", name, err)
	}
	if scope == nil {
		scope = b.file
	}
	sp := &metadata.DISubprogram{
		Distinct:    true,
		Scope:       scope,
		Name:        name,
		LinkageName: name,
		File:        b.file,
		Line:        l,
		Type:        typ,
		ScopeLine:   l,
		Flags:       enum.DIFlagPrototyped,
		SPFlags:     enum.DISPFlagDefinition,
		Unit:        b.cu,
	}
	b.register(sp)
	b.funcs = append(b.funcs, sp)
	return sp, nil
}

// Location creates the node for (line, col) inside scope.
func (b *Builder) Location(line, col int, scope metadata.Field) (*metadata.DILocation, error) {
	if b.finalized {
		return nil, ErrFinalized
	}
	l, err := lineNumber(line)
	if err != nil {
		return nil, err
	}
	c, err := safecast.Conv[uint16](col)
	if err != nil {
		return nil, fmt.Errorf("column %d: %w", col, err)
	}
	loc := &metadata.DILocation{
		Line:   l,
		Column: int64(c),
		Scope:  scope,
	}
	b.register(loc)
	return loc, nil
}

func lineNumber(line int) (int64, error) {
	l, err := safecast.Conv[uint32](line)
	if err != nil {
		return 0, fmt.Errorf("line %d: %w", line, err)
	}
	if l == 0 {
		return 0, fmt.Errorf("line numbers start at 1")
	}
	return int64(l), nil
}

// Finalize validates the graph against maxLine (the last pseudo-source
// line) and adds llvm.dbg.cu and llvm.module.flags. It may be called once.
func (b *Builder) Finalize(maxLine int) error {
	if b.finalized {
		return ErrFinalized
	}
	if err := Validate(b.m, maxLine); err != nil {
		return err
	}
	b.finalized = true

	if b.m.NamedMetadataDefs == nil {
		b.m.NamedMetadataDefs = make(map[string]*metadata.NamedDef)
	}
	b.m.NamedMetadataDefs["llvm.dbg.cu"] = &metadata.NamedDef{
		Name:  "llvm.dbg.cu",
		Nodes: []metadata.Node{b.cu},
	}
	b.m.NamedMetadataDefs["llvm.module.flags"] = &metadata.NamedDef{
		Name: "llvm.module.flags",
		Nodes: []metadata.Node{
			b.moduleFlag(flagMax, "Dwarf Version", dwarfVersion),
			b.moduleFlag(flagWarning, "Debug Info Version", debugInfoVersion),
		},
	}
	return nil
}

func (b *Builder) moduleFlag(behaviour int64, name string, val int64) *metadata.Tuple {
	t := &metadata.Tuple{Fields: []metadata.Field{
		constant.NewInt(types.I32, behaviour),
		&metadata.String{Value: name},
		constant.NewInt(types.I32, val),
	}}
	b.register(t)
	return t
}

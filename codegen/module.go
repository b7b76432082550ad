package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/metadata"

	"weave/internal/debuginfo"
	"weave/internal/source"
	"weave/internal/trace"
)

// SourceExt is appended to the module name when no source path is given.
const SourceExt = ".weave"

// DefaultProducer is recorded in the compile unit when Options.Producer is empty.
const DefaultProducer = "weave"

// Options configures a Module.
type Options struct {
	// SourcePath is recorded in the debug compile unit as the file the
	// pseudo-source lives in. It is never opened. Default: <name>.weave.
	SourcePath string
	// Producer is recorded in the compile unit.
	Producer string
	// Tracer receives module, function and statement events. Default: trace.Nop.
	Tracer trace.Tracer
}

type state uint8

const (
	stateOpen state = iota
	stateFinalized
	statePoisoned
)

// Module owns one compilation unit under construction: the IR module,
// its debug graph and the pseudo-source text. It is consumed by Finalize.
type Module struct {
	name   string
	path   string
	mod    *ir.Module
	dbg    *debuginfo.Builder
	src    *source.Generator
	tracer trace.Tracer
	span   *trace.Span

	state state
	cause error

	scope   metadata.Field // current debug scope: compile unit or enclosing subprogram
	fr      *frame         // function whose body is open, nil between builds
	funcs   []FunctionRef
	defined map[string]struct{}
}

// NewModule starts an empty module.
func NewModule(name string, opts Options) *Module {
	if opts.SourcePath == "" {
		opts.SourcePath = name + SourceExt
	}
	if opts.Producer == "" {
		opts.Producer = DefaultProducer
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}

	mod := ir.NewModule()
	mod.SourceFilename = opts.SourcePath
	dbg := debuginfo.NewBuilder(mod, debuginfo.Config{
		SourcePath: opts.SourcePath,
		Producer:   opts.Producer,
	})
	return &Module{
		name:    name,
		path:    opts.SourcePath,
		mod:     mod,
		dbg:     dbg,
		src:     source.NewGenerator(),
		tracer:  opts.Tracer,
		span:    trace.Begin(opts.Tracer, trace.ScopeModule, "module:"+name, 0),
		scope:   dbg.CompileUnit(),
		defined: make(map[string]struct{}),
	}
}

// Name returns the module name.
func (m *Module) Name() string { return m.name }

// SourcePath returns the path recorded in the debug compile unit.
func (m *Module) SourcePath() string { return m.path }

// String returns the pseudo-source rendered so far. It is empty once the
// module has been finalized.
func (m *Module) String() string {
	if m.state == stateFinalized {
		return ""
	}
	return m.src.Get()
}

// Functions returns the functions built so far, in completion order.
func (m *Module) Functions() []FunctionRef {
	return append([]FunctionRef(nil), m.funcs...)
}

// Err returns the build failure that poisoned the module, if any.
func (m *Module) Err() error {
	if m.state == statePoisoned {
		return m.cause
	}
	return nil
}

func (m *Module) usable() error {
	switch m.state {
	case stateFinalized:
		return fmt.Errorf("%s: %w", m.name, ErrFinalized)
	case statePoisoned:
		return fmt.Errorf("%s: %w: %w", m.name, ErrPoisoned, m.cause)
	default:
		return nil
	}
}

func (m *Module) poison(err error) {
	if m.state != stateOpen {
		return
	}
	m.state = statePoisoned
	m.cause = err
	trace.Point(m.tracer, trace.ScopeModule, "poisoned", err.Error(), m.span.ID())
}

// Finalize validates the debug graph, closes it and hands the finished
// unit over as an Artifact. It succeeds at most once; afterwards the
// module rejects every mutating call with ErrFinalized.
func (m *Module) Finalize() (*Artifact, error) {
	if err := m.usable(); err != nil {
		return nil, err
	}
	if m.fr != nil {
		return nil, fmt.Errorf("%s: finalize while %s is being built", m.name, m.fr.name)
	}
	lines, err := extractLineTable(m.mod, m.path)
	if err != nil {
		return nil, m.failFinalize(err, "invalid line table")
	}
	if err := m.dbg.Finalize(m.src.LineCount()); err != nil {
		return nil, m.failFinalize(err, "invalid debug info")
	}
	m.state = stateFinalized

	art := &Artifact{
		Name:       m.name,
		SourcePath: m.path,
		Source:     m.src.Get(),
		Module:     m.mod,
		Functions:  m.Functions(),
		Lines:      lines,
	}
	m.src = source.NewGenerator()
	m.span.Set("functions", fmt.Sprint(len(m.funcs))).End("finalized")
	return art, nil
}

func (m *Module) failFinalize(err error, detail string) error {
	err = fmt.Errorf("%s: %w", m.name, err)
	m.poison(err)
	m.span.Set("error", err.Error()).End(detail)
	return err
}

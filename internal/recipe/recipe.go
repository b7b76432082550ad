// Package recipe loads weave.toml files: declarative descriptions of
// modules and their functions that are built through codegen's dynamic
// builder.
package recipe

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"weave/codegen"
)

// DefaultFile is the recipe name looked up when none is given.
const DefaultFile = "weave.toml"

// Recipe is a parsed recipe file.
type Recipe struct {
	Path    string   `toml:"-"`
	Root    string   `toml:"-"`
	Modules []Module `toml:"module"`
}

// Module describes one compilation unit.
type Module struct {
	Name      string     `toml:"name"`
	Source    string     `toml:"source"`
	Producer  string     `toml:"producer"`
	Functions []Function `toml:"function"`
}

// Function describes one function and its body.
type Function struct {
	Name    string   `toml:"name"`
	Returns string   `toml:"returns"`
	Params  []string `toml:"params"`
	Body    []Stmt   `toml:"body"`
}

// Stmt is one body statement. Exactly one of Let and Return is set.
//
//	{ let = "add", lhs = "arg0", rhs = "arg1" }
//	{ let = "copy", lhs = "7", type = "i64" }
//	{ return = "v0" }
//	{ return = "" }
type Stmt struct {
	Let    string  `toml:"let"`
	LHS    string  `toml:"lhs"`
	RHS    string  `toml:"rhs"`
	Type   string  `toml:"type"`
	Return *string `toml:"return"`
}

// SourcePath is where the module's pseudo-source is recorded to live.
func (m Module) SourcePath() string {
	if strings.TrimSpace(m.Source) != "" {
		return m.Source
	}
	return m.Name + codegen.SourceExt
}

// Find walks up from startDir looking for weave.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, DefaultFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load reads and validates the recipe at path.
func Load(path string) (*Recipe, error) {
	var r Recipe
	meta, err := toml.DecodeFile(path, &r)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	return finish(&r, meta, path)
}

// Parse decodes recipe text; name is used in error messages.
func Parse(name, text string) (*Recipe, error) {
	var r Recipe
	meta, err := toml.Decode(text, &r)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", name, err)
	}
	return finish(&r, meta, name)
}

func finish(r *Recipe, meta toml.MetaData, path string) (*Recipe, error) {
	if !meta.IsDefined("module") || len(r.Modules) == 0 {
		return nil, fmt.Errorf("%s: missing [[module]]", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	r.Path = path
	r.Root = filepath.Dir(path)
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Module returns the module called name.
func (r *Recipe) Module(name string) (Module, bool) {
	for _, m := range r.Modules {
		if m.Name == name {
			return m, true
		}
	}
	return Module{}, false
}

// Validate checks names, types and statement shapes. Operand resolution
// happens while building.
func (r *Recipe) Validate() error {
	modules := make(map[string]struct{}, len(r.Modules))
	outputs := make(map[string]string, 3*len(r.Modules))
	for i, m := range r.Modules {
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("module[%d]: missing name", i)
		}
		if _, dup := modules[m.Name]; dup {
			return fmt.Errorf("module %q defined twice", m.Name)
		}
		modules[m.Name] = struct{}{}
		if err := m.validate(); err != nil {
			return fmt.Errorf("module %q: %w", m.Name, err)
		}
		for _, out := range m.outputs() {
			if other, dup := outputs[out]; dup {
				return fmt.Errorf("module %q: output %s is also written by module %q", m.Name, out, other)
			}
			outputs[out] = m.Name
		}
	}
	return nil
}

// outputs lists the files a build writes for m, relative to the output
// directory: the pseudo-source, the IR and the line table.
func (m Module) outputs() []string {
	return []string{
		filepath.Clean(filepath.FromSlash(m.SourcePath())),
		m.Name + ".ll",
		m.Name + ".lines.mp",
	}
}

func (m Module) validate() error {
	if !filepath.IsLocal(m.Name) {
		return fmt.Errorf("name %q is not a local file name", m.Name)
	}
	if src := m.SourcePath(); !filepath.IsLocal(filepath.FromSlash(src)) {
		return fmt.Errorf("source %q must be a relative path inside the output directory", src)
	}
	funcs := make(map[string]struct{}, len(m.Functions))
	for i, f := range m.Functions {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("function[%d]: missing name", i)
		}
		if _, dup := funcs[f.Name]; dup {
			return fmt.Errorf("function %q defined twice", f.Name)
		}
		funcs[f.Name] = struct{}{}
		if err := f.validate(); err != nil {
			return fmt.Errorf("function %q: %w", f.Name, err)
		}
	}
	return nil
}

func (f Function) validate() error {
	if _, ok := codegen.LookupType(f.Returns); !ok {
		return fmt.Errorf("unknown return type %q", f.Returns)
	}
	for i, p := range f.Params {
		t, ok := codegen.LookupType(p)
		if !ok {
			return fmt.Errorf("param %d: unknown type %q", i, p)
		}
		if _, void := t.(codegen.Void); void {
			return fmt.Errorf("param %d: void is not a value type", i)
		}
	}
	for i, s := range f.Body {
		if err := s.validate(); err != nil {
			return fmt.Errorf("body[%d]: %w", i, err)
		}
	}
	return nil
}

func (s Stmt) validate() error {
	switch {
	case s.Let != "" && s.Return != nil:
		return fmt.Errorf("statement sets both let and return")
	case s.Return != nil:
		if s.LHS != "" || s.RHS != "" {
			return fmt.Errorf("return takes no lhs/rhs")
		}
	case s.Let == "copy":
		if s.LHS == "" || s.RHS != "" {
			return fmt.Errorf("copy needs lhs and no rhs")
		}
	case s.Let != "":
		if _, err := codegen.ParseBinaryOp(s.Let); err != nil {
			return err
		}
		if s.LHS == "" || s.RHS == "" {
			return fmt.Errorf("%s needs lhs and rhs", s.Let)
		}
	default:
		return fmt.Errorf("statement needs let or return")
	}
	if s.Type != "" {
		if _, ok := codegen.LookupType(s.Type); !ok {
			return fmt.Errorf("unknown type %q", s.Type)
		}
	}
	return nil
}

package driver

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"weave/codegen"
)

// Written lists the files produced for one artifact.
type Written struct {
	IR     string
	Source string
	Lines  string
}

// WriteArtifact writes <name>.ll, the pseudo-source at the artifact's
// recorded source path and the msgpack line table <name>.lines.mp. All
// three must resolve to distinct files inside dir.
func WriteArtifact(dir string, art *codegen.Artifact) (Written, error) {
	source := filepath.FromSlash(art.SourcePath)
	if !filepath.IsLocal(art.Name) {
		return Written{}, fmt.Errorf("%s: module name is not a local file name", art.Name)
	}
	if !filepath.IsLocal(source) {
		return Written{}, fmt.Errorf("%s: source %q is not inside %s", art.Name, art.SourcePath, dir)
	}
	out := Written{
		IR:     filepath.Join(dir, art.Name+".ll"),
		Source: filepath.Join(dir, source),
		Lines:  filepath.Join(dir, art.Name+".lines.mp"),
	}
	if out.Source == out.IR || out.Source == out.Lines {
		return Written{}, fmt.Errorf("%s: source %q overwrites a build output", art.Name, art.SourcePath)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Written{}, fmt.Errorf("create %s: %w", dir, err)
	}

	if err := writeAtomic(out.IR, []byte(art.IR())); err != nil {
		return Written{}, err
	}
	if err := writeAtomic(out.Source, []byte(art.Source)); err != nil {
		return Written{}, err
	}
	var buf bytes.Buffer
	if err := codegen.EncodeLineTable(&buf, art.Lines); err != nil {
		return Written{}, err
	}
	if err := writeAtomic(out.Lines, buf.Bytes()); err != nil {
		return Written{}, err
	}
	return out, nil
}

// writeAtomic writes through a temp file in the target directory and
// renames it into place.
func writeAtomic(path string, data []byte) (err error) {
	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.CreateTemp(filepath.Dir(path), ".weave-tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()
	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = os.Chmod(f.Name(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

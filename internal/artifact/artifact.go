// Package artifact stores compiled programs on disk.
package artifact

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/vmihailenco/msgpack/v5"

	"sierracasm/internal/compiler"
	"sierracasm/internal/observ"
)

// Schema is bumped whenever the encoded layout changes.
const Schema uint16 = 1

var (
	// ErrIncompatible reports an artifact written by an incompatible
	// compiler or schema.
	ErrIncompatible = errors.New("incompatible artifact")
	// ErrCorrupt reports an artifact that cannot be decoded.
	ErrCorrupt = errors.New("corrupt artifact")
)

// Header identifies who wrote an artifact.
type Header struct {
	Schema          uint16 `msgpack:"schema"`
	CompilerVersion string `msgpack:"compiler_version"`
}

// Artifact is the on-disk form of a compiled program.
type Artifact struct {
	Header  Header           `msgpack:"header"`
	Program compiler.Program `msgpack:"program"`
	Timings *observ.Report   `msgpack:"timings,omitempty"`
}

// New wraps p for writing by compiler version ver.
func New(p *compiler.Program, ver string) *Artifact {
	return &Artifact{Header: Header{Schema: Schema, CompilerVersion: ver}, Program: *p}
}

// Encode serializes a.
func Encode(a *Artifact) ([]byte, error) {
	return msgpack.Marshal(a)
}

// Decode parses data and checks that it can be read by compiler version
// current.
func Decode(data []byte, current string) (*Artifact, error) {
	var a Artifact
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if err := Compatible(a.Header, current); err != nil {
		return nil, err
	}
	return &a, nil
}

// Compatible accepts artifacts of the current schema written by a compiler
// with the same major and minor version as current.
func Compatible(h Header, current string) error {
	if h.Schema != Schema {
		return fmt.Errorf("%w: schema %d, expected %d", ErrIncompatible, h.Schema, Schema)
	}
	cur, err := semver.NewVersion(current)
	if err != nil {
		return fmt.Errorf("compiler version %q: %w", current, err)
	}
	written, err := semver.NewVersion(h.CompilerVersion)
	if err != nil {
		return fmt.Errorf("%w: compiler version %q: %w", ErrIncompatible, h.CompilerVersion, err)
	}
	// The -0 prerelease lets development builds satisfy the constraint.
	c, err := semver.NewConstraint(fmt.Sprintf("^%d.%d.0-0", cur.Major(), cur.Minor()))
	if err != nil {
		return err
	}
	if !c.Check(written) {
		return fmt.Errorf("%w: written by %s, this is %s", ErrIncompatible, written, cur)
	}
	return nil
}

// Write stores a at path, replacing any previous file atomically.
func Write(path string, a *Artifact) (err error) {
	data, err := Encode(a)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".casm-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()
	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// Read loads the artifact at path.
func Read(path, current string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	a, err := Decode(data, current)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

package artifact_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"sierracasm/internal/artifact"
	"sierracasm/internal/casm"
	"sierracasm/internal/compiler"
	"sierracasm/internal/felt"
)

func sample() *compiler.Program {
	return &compiler.Program{
		Instructions: []casm.Instruction{
			{
				Kind:     casm.InstrAssertEq,
				AssertEq: casm.AssertEqInstr{Lhs: casm.APRef(0), Rhs: casm.ResFromImmediate(felt.FromInt64(-7))},
				IncAp:    true,
			},
			{Kind: casm.InstrRet},
		},
		StatementOffsets: []int{0, 2, 3},
		Debug:            compiler.Debug{Statements: []compiler.StatementDebug{{Statement: 0, Libfunc: "c", Instructions: 1}}},
	}
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "prog.casm")
	if err := artifact.Write(path, artifact.New(sample(), "0.1.0-dev")); err != nil {
		t.Fatal(err)
	}
	a, err := artifact.Read(path, "0.1.4")
	if err != nil {
		t.Fatal(err)
	}
	if got := a.Program.Instructions[0].String(); got != "[ap + 0] = -7, ap++;" {
		t.Fatalf("instruction = %q", got)
	}
	if a.Program.Size() != 3 || a.Header.CompilerVersion != "0.1.0-dev" {
		t.Fatalf("artifact = %+v", a)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestCompatible(t *testing.T) {
	tests := []struct {
		written, current string
		ok               bool
	}{
		{"0.1.0", "0.1.9", true},
		{"0.1.0-dev", "0.1.0-dev", true},
		{"0.2.0", "0.1.0", false},
		{"1.4.0", "1.4.2", true},
		{"1.3.0", "1.4.2", false},
		{"2.0.0", "1.4.2", false},
		{"not-a-version", "0.1.0", false},
	}
	for _, tt := range tests {
		t.Run(tt.written+"->"+tt.current, func(t *testing.T) {
			err := artifact.Compatible(artifact.Header{Schema: artifact.Schema, CompilerVersion: tt.written}, tt.current)
			if (err == nil) != tt.ok {
				t.Fatalf("err = %v, want ok=%v", err, tt.ok)
			}
			if err != nil && !errors.Is(err, artifact.ErrIncompatible) {
				t.Fatalf("error is not ErrIncompatible: %v", err)
			}
		})
	}
	err := artifact.Compatible(artifact.Header{Schema: artifact.Schema + 1, CompilerVersion: "0.1.0"}, "0.1.0")
	if !errors.Is(err, artifact.ErrIncompatible) {
		t.Fatalf("schema mismatch: %v", err)
	}
}

func TestDecodeCorrupt(t *testing.T) {
	data, err := msgpack.Marshal("just a string")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := artifact.Decode(data, "0.1.0"); !errors.Is(err, artifact.ErrCorrupt) {
		t.Fatalf("got %v", err)
	}
}

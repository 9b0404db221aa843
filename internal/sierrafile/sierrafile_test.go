package sierrafile_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"sierracasm/internal/compiler"
	"sierracasm/internal/sierra"
	"sierracasm/internal/sierrafile"
	"sierracasm/internal/testkit"
)

func TestLoadTestdataCompiles(t *testing.T) {
	reg := sierra.NewCoreRegistry()
	prog, err := sierrafile.Load(filepath.Join("testdata", "write_then_read.toml"), reg)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(prog.Statements) != 8 || len(prog.Libfuncs) != 5 || len(prog.Funcs) != 1 {
		t.Fatalf("program shape: %d statements, %d libfuncs, %d functions",
			len(prog.Statements), len(prog.Libfuncs), len(prog.Funcs))
	}
	write := prog.Statements[2].Invocation
	if len(write.Branches) != 2 || write.Branches[1].Target.Statement != 7 ||
		write.Branches[0].Target.Kind != sierra.TargetFallthrough {
		t.Fatalf("write branches = %+v", write.Branches)
	}
	if prog.Statements[6].Kind != sierra.StatementReturn {
		t.Fatalf("statement 6 should return")
	}

	out, bag, err := compiler.Compile(context.Background(), reg, prog, compiler.Options{File: "write_then_read.toml"})
	if err != nil {
		t.Fatal(err)
	}
	if bag.HasErrors() {
		t.Fatalf("diagnostics: %v", bag.Items())
	}
	if err := testkit.CheckProgram(out.Instructions, out.StatementOffsets); err != nil {
		t.Fatal(err)
	}
}

func TestLoadResolvesGenericTypes(t *testing.T) {
	reg := sierra.NewCoreRegistry()
	src := `
[[types]]
name = "felt"
generic = "felt"

[[types]]
name = "Array<felt>"
generic = "Array"
args = [{ type = "felt" }]
`
	prog, err := sierrafile.Parse("arr.toml", src, reg)
	if err != nil {
		t.Fatal(err)
	}
	arr, ok := prog.TypeNames["Array<felt>"]
	if !ok {
		t.Fatalf("Array<felt> not declared: %v", prog.TypeNames)
	}
	if got := reg.TypeName(arr); got != "Array<felt>" {
		t.Fatalf("TypeName = %q", got)
	}
	if info := reg.MustTypeInfo(arr); info.Size != 2 {
		t.Fatalf("array size = %d", info.Size)
	}
}

func TestParseErrors(t *testing.T) {
	const felt = "[[types]]\nname = \"felt\"\ngeneric = \"felt\"\n"
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"unknown key", "[[types]]\nname = \"felt\"\ngeneric = \"felt\"\ncolour = 1\n", sierrafile.ErrUnknownField},
		{"duplicate type", felt + felt, sierrafile.ErrDuplicateType},
		{"undeclared type arg", "[[types]]\nname = \"a\"\ngeneric = \"Array\"\nargs = [{ type = \"felt\" }]\n", sierrafile.ErrUnknownType},
		{"type and value", felt + "[[libfuncs]]\nid = \"x\"\ngeneric = \"felt_const\"\nargs = [{ type = \"felt\", value = \"1\" }]\n", sierrafile.ErrBadValue},
		{"bad number", "[[libfuncs]]\nid = \"x\"\ngeneric = \"felt_const\"\nargs = [{ value = \"12z\" }]\n", sierrafile.ErrBadValue},
		{"negative variable", "[[statements]]\nreturn = [-1]\n", sierrafile.ErrBadValue},
		{"invoke and return", "[[statements]]\ninvoke = \"x\"\nreturn = [1]\n", sierrafile.ErrBadValue},
		{"unknown return type", "[[functions]]\nname = \"f\"\nreturns = [\"u8\"]\n", sierrafile.ErrUnknownType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sierrafile.Parse("bad.toml", tt.src, sierra.NewCoreRegistry())
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseSpecializationError(t *testing.T) {
	src := "[[types]]\nname = \"x\"\ngeneric = \"NoSuchType\"\n"
	_, err := sierrafile.Parse("bad.toml", src, sierra.NewCoreRegistry())
	if !errors.Is(err, &sierra.SpecializationError{Kind: sierra.ErrUnsupportedID}) {
		t.Fatalf("got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := sierrafile.Load(filepath.Join(t.TempDir(), "none.toml"), sierra.NewCoreRegistry())
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("got %v", err)
	}
}

// Package sierrafile reads programs written as TOML.
//
// A program file declares named types, libfunc instantiations, a flat list
// of statements and the functions entering it:
//
//	[[types]]
//	name = "felt"
//	generic = "felt"
//
//	[[libfuncs]]
//	id = "read"
//	generic = "storage_read_syscall"
//
//	[[statements]]
//	invoke = "read"
//	args = [0, 1]
//	branches = [{ results = [2, 3] }]
//
//	[[statements]]
//	return = [2, 3]
//
//	[[functions]]
//	name = "main"
//	entry = 0
//	params = [{ id = 0, type = "System" }, { id = 1, type = "StorageAddress" }]
//	returns = ["System", "felt"]
//
// Generic arguments are inline tables: { type = "felt" } or { value = "5" }.
// A branch without target falls through.
package sierrafile

import (
	"errors"
	"fmt"
	"strings"

	"fortio.org/safecast"
	"github.com/BurntSushi/toml"

	"sierracasm/internal/felt"
	"sierracasm/internal/sierra"
)

var (
	// ErrUnknownField reports keys the format does not define.
	ErrUnknownField = errors.New("unknown field")
	// ErrBadValue reports a malformed value.
	ErrBadValue = errors.New("bad value")
	// ErrUnknownType reports a reference to an undeclared type name.
	ErrUnknownType = errors.New("unknown type")
	// ErrDuplicateType reports a type name declared twice.
	ErrDuplicateType = errors.New("type declared twice")
)

type argSpec struct {
	Type  string `toml:"type"`
	Value string `toml:"value"`
}

type typeSpec struct {
	Name    string    `toml:"name"`
	Generic string    `toml:"generic"`
	Args    []argSpec `toml:"args"`
}

type libfuncSpec struct {
	ID      string    `toml:"id"`
	Generic string    `toml:"generic"`
	Args    []argSpec `toml:"args"`
}

type branchSpec struct {
	Target  *int64  `toml:"target"`
	Results []int64 `toml:"results"`
}

type statementSpec struct {
	Invoke   string       `toml:"invoke"`
	Args     []int64      `toml:"args"`
	Branches []branchSpec `toml:"branches"`
	Return   []int64      `toml:"return"`
}

type paramSpec struct {
	ID   int64  `toml:"id"`
	Type string `toml:"type"`
}

type functionSpec struct {
	Name    string      `toml:"name"`
	Entry   int64       `toml:"entry"`
	Params  []paramSpec `toml:"params"`
	Returns []string    `toml:"returns"`
}

type file struct {
	Types      []typeSpec      `toml:"types"`
	Libfuncs   []libfuncSpec   `toml:"libfuncs"`
	Statements []statementSpec `toml:"statements"`
	Functions  []functionSpec  `toml:"functions"`
}

// Load reads the program at path and resolves its types against reg.
func Load(path string, reg *sierra.Registry) (*sierra.Program, error) {
	var f file
	meta, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	return build(path, &f, meta, reg)
}

// Parse is Load for in-memory sources; name is used in errors.
func Parse(name, src string, reg *sierra.Registry) (*sierra.Program, error) {
	var f file
	meta, err := toml.Decode(src, &f)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", name, err)
	}
	return build(name, &f, meta, reg)
}

func build(name string, f *file, meta toml.MetaData, reg *sierra.Registry) (*sierra.Program, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: %w: %s", name, ErrUnknownField, strings.Join(keys, ", "))
	}

	r := resolver{reg: reg, names: make(map[string]sierra.ConcreteTypeID, len(f.Types))}
	prog := &sierra.Program{TypeNames: r.names}
	var errs []error
	for i, t := range f.Types {
		if err := r.declare(t); err != nil {
			errs = append(errs, fmt.Errorf("types[%d]: %w", i, err))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%s: %w", name, errors.Join(errs...))
	}

	for i, l := range f.Libfuncs {
		args, err := r.args(l.Args)
		if err != nil {
			errs = append(errs, fmt.Errorf("libfuncs[%d] %s: %w", i, l.ID, err))
			continue
		}
		if l.ID == "" || l.Generic == "" {
			errs = append(errs, fmt.Errorf("libfuncs[%d]: %w: id and generic are required", i, ErrBadValue))
			continue
		}
		prog.Libfuncs = append(prog.Libfuncs, sierra.LibfuncDeclaration{
			ID:      sierra.ConcreteLibfuncID(l.ID),
			Generic: sierra.GenericLibfuncID(l.Generic),
			Args:    args,
		})
	}

	for i, s := range f.Statements {
		st, err := statement(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("statements[%d]: %w", i, err))
			continue
		}
		prog.Statements = append(prog.Statements, st)
	}

	for i, fn := range f.Functions {
		out, err := r.function(fn)
		if err != nil {
			errs = append(errs, fmt.Errorf("functions[%d] %s: %w", i, fn.Name, err))
			continue
		}
		prog.Funcs = append(prog.Funcs, out)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%s: %w", name, errors.Join(errs...))
	}
	return prog, nil
}

type resolver struct {
	reg   *sierra.Registry
	names map[string]sierra.ConcreteTypeID
}

func (r *resolver) declare(t typeSpec) error {
	if t.Name == "" || t.Generic == "" {
		return fmt.Errorf("%w: name and generic are required", ErrBadValue)
	}
	if _, dup := r.names[t.Name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateType, t.Name)
	}
	args, err := r.args(t.Args)
	if err != nil {
		return err
	}
	id, err := r.reg.GetConcreteType(sierra.GenericTypeID(t.Generic), args)
	if err != nil {
		return err
	}
	r.names[t.Name] = id
	return nil
}

func (r *resolver) lookup(name string) (sierra.ConcreteTypeID, error) {
	id, ok := r.names[name]
	if !ok {
		return sierra.NoTypeID, fmt.Errorf("%w: %s", ErrUnknownType, name)
	}
	return id, nil
}

func (r *resolver) args(specs []argSpec) ([]sierra.GenericArg, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	out := make([]sierra.GenericArg, 0, len(specs))
	for i, a := range specs {
		switch {
		case a.Type != "" && a.Value != "":
			return nil, fmt.Errorf("arg %d: %w: both type and value given", i, ErrBadValue)
		case a.Type != "":
			id, err := r.lookup(a.Type)
			if err != nil {
				return nil, fmt.Errorf("arg %d: %w", i, err)
			}
			out = append(out, sierra.TypeArg(id))
		case a.Value != "":
			v, err := felt.Parse(a.Value)
			if err != nil {
				return nil, fmt.Errorf("arg %d: %w: %w", i, ErrBadValue, err)
			}
			out = append(out, sierra.ValueArg(v))
		default:
			return nil, fmt.Errorf("arg %d: %w: empty argument", i, ErrBadValue)
		}
	}
	return out, nil
}

func (r *resolver) function(fn functionSpec) (sierra.Function, error) {
	entry, err := safecast.Conv[int](fn.Entry)
	if err != nil {
		return sierra.Function{}, fmt.Errorf("entry: %w: %w", ErrBadValue, err)
	}
	out := sierra.Function{Name: fn.Name, Entry: sierra.StatementIdx(entry)}
	for _, p := range fn.Params {
		id, err := varID(p.ID)
		if err != nil {
			return sierra.Function{}, err
		}
		ty, err := r.lookup(p.Type)
		if err != nil {
			return sierra.Function{}, err
		}
		out.Params = append(out.Params, sierra.Param{ID: id, Type: ty})
	}
	for _, name := range fn.Returns {
		ty, err := r.lookup(name)
		if err != nil {
			return sierra.Function{}, err
		}
		out.Returns = append(out.Returns, ty)
	}
	return out, nil
}

func statement(s statementSpec) (sierra.Statement, error) {
	if s.Invoke == "" {
		if len(s.Args) > 0 || len(s.Branches) > 0 {
			return sierra.Statement{}, fmt.Errorf("%w: args or branches without invoke", ErrBadValue)
		}
		vars, err := varIDs(s.Return)
		if err != nil {
			return sierra.Statement{}, err
		}
		return sierra.Statement{Kind: sierra.StatementReturn, Return: vars}, nil
	}
	if len(s.Return) > 0 {
		return sierra.Statement{}, fmt.Errorf("%w: invoke and return in one statement", ErrBadValue)
	}
	args, err := varIDs(s.Args)
	if err != nil {
		return sierra.Statement{}, err
	}
	inv := sierra.Invocation{Libfunc: sierra.ConcreteLibfuncID(s.Invoke), Args: args}
	branches := s.Branches
	if len(branches) == 0 {
		branches = []branchSpec{{}}
	}
	for i, b := range branches {
		results, err := varIDs(b.Results)
		if err != nil {
			return sierra.Statement{}, fmt.Errorf("branch %d: %w", i, err)
		}
		br := sierra.BranchInfo{Results: results}
		if b.Target != nil {
			target, err := safecast.Conv[int](*b.Target)
			if err != nil {
				return sierra.Statement{}, fmt.Errorf("branch %d: %w: %w", i, ErrBadValue, err)
			}
			br.Target = sierra.BranchTarget{Kind: sierra.TargetStatement, Statement: sierra.StatementIdx(target)}
		}
		inv.Branches = append(inv.Branches, br)
	}
	return sierra.Statement{Kind: sierra.StatementInvocation, Invocation: inv}, nil
}

func varID(v int64) (sierra.VarID, error) {
	id, err := safecast.Conv[uint64](v)
	if err != nil {
		return 0, fmt.Errorf("variable %d: %w: %w", v, ErrBadValue, err)
	}
	return sierra.VarID(id), nil
}

func varIDs(vs []int64) ([]sierra.VarID, error) {
	if len(vs) == 0 {
		return nil, nil
	}
	out := make([]sierra.VarID, len(vs))
	for i, v := range vs {
		id, err := varID(v)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

package sierra

import (
	"errors"
	"fmt"
)

// LibfuncDeclaration binds a user name to a generic libfunc instantiation.
type LibfuncDeclaration struct {
	ID      ConcreteLibfuncID
	Generic GenericLibfuncID
	Args    []GenericArg
}

// TargetKind tells where a branch continues.
type TargetKind uint8

const (
	// TargetFallthrough continues at the next statement.
	TargetFallthrough TargetKind = iota
	TargetStatement
)

// BranchTarget is the continuation of one branch.
type BranchTarget struct {
	Kind      TargetKind
	Statement StatementIdx
}

// BranchInfo is one branch of an invocation with the vars it binds.
type BranchInfo struct {
	Target  BranchTarget
	Results []VarID
}

// Invocation calls a concrete libfunc.
type Invocation struct {
	Libfunc  ConcreteLibfuncID
	Args     []VarID
	Branches []BranchInfo
}

// StatementKind distinguishes statements.
type StatementKind uint8

const (
	StatementInvocation StatementKind = iota
	StatementReturn
)

// Statement is one step of a program.
type Statement struct {
	Kind       StatementKind
	Invocation Invocation
	Return     []VarID
}

// Param is a typed function parameter.
type Param struct {
	ID   VarID
	Type ConcreteTypeID
}

// Function is an entry point into the statement list.
type Function struct {
	Name    string
	Entry   StatementIdx
	Params  []Param
	Returns []ConcreteTypeID
}

// Program is a flat list of statements plus the declarations they use.
// Type declarations are resolved against a Registry when the program is
// loaded; TypeNames keeps the user-facing names for diagnostics.
type Program struct {
	TypeNames  map[string]ConcreteTypeID
	Libfuncs   []LibfuncDeclaration
	Statements []Statement
	Funcs      []Function
}

// NextStatement returns where a branch of statement idx continues.
func (t BranchTarget) NextStatement(idx StatementIdx) StatementIdx {
	if t.Kind == TargetFallthrough {
		return idx + 1
	}
	return t.Statement
}

func (t BranchTarget) String() string {
	if t.Kind == TargetFallthrough {
		return "fallthrough"
	}
	return fmt.Sprintf("statement #%d", t.Statement)
}

// Validate checks structural invariants that do not need specialization:
// unique libfunc ids, known libfunc references and in-range targets.
func (p *Program) Validate() error {
	if p == nil {
		return nil
	}
	var errs []error
	declared := make(map[ConcreteLibfuncID]bool, len(p.Libfuncs))
	for _, d := range p.Libfuncs {
		if declared[d.ID] {
			errs = append(errs, fmt.Errorf("libfunc %q declared twice", d.ID))
		}
		declared[d.ID] = true
	}
	n := StatementIdx(len(p.Statements))
	for i, st := range p.Statements {
		idx := StatementIdx(i)
		if st.Kind != StatementInvocation {
			continue
		}
		inv := st.Invocation
		if !declared[inv.Libfunc] {
			errs = append(errs, fmt.Errorf("statement #%d: undeclared libfunc %q", i, inv.Libfunc))
		}
		if len(inv.Branches) == 0 {
			errs = append(errs, fmt.Errorf("statement #%d: invocation without branches", i))
		}
		for bi, b := range inv.Branches {
			next := b.Target.NextStatement(idx)
			if next < 0 || next >= n {
				errs = append(errs, fmt.Errorf("statement #%d branch %d: target #%d out of range", i, bi, next))
			}
		}
	}
	for _, f := range p.Funcs {
		if f.Entry < 0 || f.Entry >= n {
			errs = append(errs, fmt.Errorf("function %s: entry #%d out of range", f.Name, f.Entry))
		}
	}
	return errors.Join(errs...)
}

package compiler

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"sierracasm/internal/diag"
	"sierracasm/internal/sierra"
)

// specializeLibfuncs specializes every declaration of prog. Failures are
// reported to rep; the returned map only holds successful entries.
func specializeLibfuncs(ctx context.Context, reg *sierra.Registry, prog *sierra.Program, jobs int, file string, rep diag.Reporter) (map[sierra.ConcreteLibfuncID]*sierra.ConcreteLibfunc, error) {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	decls := prog.Libfuncs
	// indices are unique per goroutine, no lock needed
	results := make([]*sierra.ConcreteLibfunc, len(decls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(decls))))
	for i, d := range decls {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			lf, err := reg.SpecializeLibfunc(d.Generic, d.Args)
			if err != nil {
				rep.Report(diag.NewError(SpecializationCode(err), diag.InFile(file),
					fmt.Sprintf("libfunc %s: %v", d.ID, err)))
				return nil
			}
			results[i] = lf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[sierra.ConcreteLibfuncID]*sierra.ConcreteLibfunc, len(decls))
	for i, d := range decls {
		if results[i] != nil {
			out[d.ID] = results[i]
		}
	}
	return out, nil
}

package buildpipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"sierracasm/internal/artifact"
	"sierracasm/internal/compiler"
	"sierracasm/internal/diag"
	"sierracasm/internal/observ"
	"sierracasm/internal/sierra"
	"sierracasm/internal/sierrafile"
	"sierracasm/internal/trace"
)

// Build compiles every file of req. Program errors are recorded per file in
// the result; the returned error is reserved for cancellation.
func Build(ctx context.Context, req *Request) (Result, error) {
	sink := req.Progress
	if sink == nil {
		sink = nopSink{}
	}
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeDriver, "build", trace.ParentID(ctx))
	defer span.End("")
	ctx = trace.WithSpan(ctx, span)

	for _, f := range req.Files {
		sink.OnEvent(Event{File: f, Stage: StageLoad, Status: StatusQueued})
	}

	res := Result{Files: make([]FileResult, len(req.Files))}
	g, gctx := errgroup.WithContext(ctx)
	jobs := req.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(max(1, jobs))
	for i, path := range req.Files {
		g.Go(func() error {
			r, err := buildFile(gctx, req, path, sink)
			res.Files[i] = r
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	sink.OnEvent(Event{Stage: StageWrite, Status: StatusDone})
	return res, nil
}

func buildFile(ctx context.Context, req *Request, path string, sink ProgressSink) (FileResult, error) {
	start := time.Now()
	res := FileResult{Path: path}
	fail := func(stage Stage, err error) (FileResult, error) {
		res.Elapsed = time.Since(start)
		sink.OnEvent(Event{File: path, Stage: stage, Status: StatusError, Err: err, Elapsed: res.Elapsed})
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	sink.OnEvent(Event{File: path, Stage: StageLoad, Status: StatusWorking})
	reg := sierra.NewCoreRegistry()
	prog, err := sierrafile.Load(path, reg)
	if err != nil {
		res.Diagnostics = diag.NewBag(1)
		res.Diagnostics.Add(diag.NewError(LoadCode(err), diag.InFile(path), err.Error()))
		return fail(StageLoad, err)
	}

	sink.OnEvent(Event{File: path, Stage: StageCompile, Status: StatusWorking})
	out, bag, err := compiler.Compile(ctx, reg, prog, compiler.Options{
		File:           path,
		Jobs:           req.SpecializeJobs,
		MaxDiagnostics: req.MaxDiagnostics,
	})
	if err != nil {
		return res, err
	}
	res.Diagnostics = bag
	if out == nil {
		return fail(StageCompile, errors.New("compilation failed"))
	}
	res.Program = out

	sink.OnEvent(Event{File: path, Stage: StageWrite, Status: StatusWorking})
	output := OutputPath(path, req.OutDir, req.Format)
	if err := WriteOutput(output, out, req.Format, req.Version, nil); err != nil {
		res.Diagnostics.Add(diag.NewError(diag.IOWriteFailed, diag.InFile(output), err.Error()))
		return fail(StageWrite, err)
	}
	res.Output = output
	res.Elapsed = time.Since(start)
	sink.OnEvent(Event{File: path, Stage: StageWrite, Status: StatusDone, Elapsed: res.Elapsed})
	return res, nil
}

// OutputPath derives the output file for input. The extension of input is
// replaced with the one of format.
func OutputPath(input, outDir string, format Format) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + format.Ext()
	if outDir == "" {
		return filepath.Join(filepath.Dir(input), base)
	}
	return filepath.Join(outDir, base)
}

// WriteOutput stores p at path in the given format. timings is embedded in
// msgpack artifacts when non-nil.
func WriteOutput(path string, p *compiler.Program, format Format, version string, timings *observ.Report) error {
	if format == FormatMsgpack {
		a := artifact.New(p, version)
		a.Timings = timings
		return artifact.Write(path, a)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := p.Dump(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// LoadCode classifies a failure to read a program file.
func LoadCode(err error) diag.Code {
	var se *sierra.SpecializationError
	switch {
	case errors.Is(err, os.ErrNotExist), errors.Is(err, os.ErrPermission):
		return diag.IOReadFailed
	case errors.Is(err, sierrafile.ErrUnknownField):
		return diag.IOUnknownField
	case errors.Is(err, sierrafile.ErrUnknownType):
		return diag.PrgUnknownType
	case errors.Is(err, sierrafile.ErrDuplicateType):
		return diag.SpcDuplicateTypeName
	case errors.Is(err, sierrafile.ErrBadValue):
		return diag.IOBadValue
	case errors.As(err, &se):
		return compiler.SpecializationCode(err)
	}
	return diag.IODecodeFailed
}

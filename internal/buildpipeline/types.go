// Package buildpipeline compiles a batch of program files concurrently and
// reports per-file progress.
package buildpipeline

import (
	"time"

	"sierracasm/internal/compiler"
	"sierracasm/internal/diag"
)

// Stage describes a high-level pipeline phase.
type Stage string

const (
	// StageLoad reads and resolves the program file.
	StageLoad Stage = "load"
	// StageCompile specializes, compiles and relocates the program.
	StageCompile Stage = "compile"
	// StageWrite writes the output file.
	StageWrite Stage = "write"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the task is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the task is currently working.
	StatusWorking Status = "working"
	// StatusDone indicates the task is done.
	StatusDone Status = "done"
	// StatusError indicates the task encountered an error.
	StatusError Status = "error"
)

// Event reports progress for a file (or for the overall pipeline when File is empty).
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// Format selects the output encoding.
type Format string

const (
	// FormatText writes the assembly listing.
	FormatText Format = "text"
	// FormatMsgpack writes a versioned artifact.
	FormatMsgpack Format = "msgpack"
)

// Ext returns the file extension used for outputs in this format.
func (f Format) Ext() string {
	if f == FormatMsgpack {
		return ".casmpkg"
	}
	return ".casm"
}

// Request describes a batch build.
type Request struct {
	Files []string
	// OutDir receives one output per input; empty writes next to the input.
	OutDir string
	Format Format
	// Jobs bounds how many files compile at once; 0 means GOMAXPROCS.
	Jobs int
	// SpecializeJobs and MaxDiagnostics are passed to each compilation.
	SpecializeJobs int
	MaxDiagnostics int
	// Version is stamped into msgpack artifacts.
	Version  string
	Progress ProgressSink
}

// FileResult is the outcome for one input.
type FileResult struct {
	Path        string
	Output      string
	Program     *compiler.Program
	Diagnostics *diag.Bag
	Elapsed     time.Duration
}

// Failed reports whether the file produced no output.
func (r FileResult) Failed() bool {
	return r.Program == nil || r.Output == ""
}

// Result holds the per-file outcomes in request order.
type Result struct {
	Files []FileResult
}

// Failed counts the files that produced no output.
func (r Result) Failed() int {
	n := 0
	for _, f := range r.Files {
		if f.Failed() {
			n++
		}
	}
	return n
}

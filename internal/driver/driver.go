// Package driver runs the compilation pipeline for source files: parse,
// optimize, lower, verify and emit. Independent files are compiled in
// parallel on a bounded number of workers.
package driver

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"bfc/internal/backend"
	"bfc/internal/config"
	"bfc/internal/errors"
	"bfc/internal/ir"
	"bfc/internal/lower"
	"bfc/internal/parser"
	"bfc/internal/ssa"
)

var log = commonlog.GetLogger("bfc.driver")

// Options control how units are compiled
type Options struct {
	Emit  string // config.EmitLLVM, config.EmitObject or config.EmitSSA
	Jobs  int
	Clang string
}

// OptionsFromConfig takes the compiler options out of cfg
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{Emit: cfg.Emit, Jobs: cfg.Jobs, Clang: cfg.Clang}
}

// Unit is one input file and where its output goes
type Unit struct {
	Input  string
	Output string
}

func (u Unit) String() string {
	return fmt.Sprintf("%s -> %s", u.Input, u.Output)
}

// Result is the outcome of compiling one unit
type Result struct {
	Unit     Unit
	Source   string
	Err      error
	Duration time.Duration
}

// ParseErrors returns the syntax errors that stopped the unit, if any
func (r Result) ParseErrors() []errors.CompilerError {
	if failure, ok := r.Err.(*ParseFailure); ok {
		return failure.Errors
	}
	return nil
}

// ParseFailure reports a source file with syntax errors
type ParseFailure struct {
	Path   string
	Errors []errors.CompilerError
}

func (f *ParseFailure) Error() string {
	msgs := make([]string, len(f.Errors))
	for i, e := range f.Errors {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%s: %s", f.Path, strings.Join(msgs, "; "))
}

// Artifact is everything the pipeline produced for one source
type Artifact struct {
	Parse    *parser.ParseResult
	Program  *ir.Program // optimized
	Function *ssa.Function
	Tape     *ssa.StackSlot
}

// Compile runs source through the front end and lowering. Syntax errors are
// returned as a *ParseFailure; broken compiler invariants as an
// *errors.InternalError.
func Compile(name, source string) (*Artifact, error) {
	return CompileParsed(parser.ParseSource(name, source))
}

// CompileParsed continues from an existing parse
func CompileParsed(result *parser.ParseResult) (artifact *Artifact, err error) {
	if !result.OK() {
		return &Artifact{Parse: result}, &ParseFailure{Path: result.Path, Errors: result.Errors}
	}

	program := ir.BuildProgram(result.Path, result.Nodes)

	defer func() {
		if r := recover(); r != nil {
			ierr, ok := r.(*errors.InternalError)
			if !ok {
				panic(r)
			}
			artifact, err = nil, ierr
		}
	}()

	b := ssa.NewBuilder("main")
	l := lower.New(b, lower.DefaultPrimitives(b))
	if err := l.Lower(program.Nodes); err != nil {
		return nil, err
	}

	return &Artifact{
		Parse:    result,
		Program:  program,
		Function: b.Function(),
		Tape:     l.Tape(),
	}, nil
}

// Emit renders fn in the requested output format
func Emit(ctx context.Context, fn *ssa.Function, opts Options) ([]byte, error) {
	switch opts.Emit {
	case config.EmitSSA:
		return []byte(ssa.Print(fn)), nil
	case config.EmitLLVM, "":
		module, err := backend.EmitLLVM(fn)
		if err != nil {
			return nil, err
		}
		return []byte(module.String()), nil
	case config.EmitObject:
		module, err := backend.EmitLLVM(fn)
		if err != nil {
			return nil, err
		}
		return backend.EmitObject(ctx, module, opts.Clang)
	default:
		return nil, fmt.Errorf("unknown output format %q", opts.Emit)
	}
}

// CompileUnit compiles one file and writes the output, replacing any
// existing file
func CompileUnit(ctx context.Context, unit Unit, opts Options) Result {
	start := time.Now()
	result := Result{Unit: unit}
	result.Err = compileUnit(ctx, unit, opts, &result)
	result.Duration = time.Since(start)

	if result.Err != nil {
		log.Debugf("%s failed after %s: %s", unit, result.Duration, result.Err)
	} else {
		log.Debugf("%s done in %s", unit, result.Duration)
	}
	return result
}

func compileUnit(ctx context.Context, unit Unit, opts Options, result *Result) error {
	parsed, err := parser.ParseFile(unit.Input)
	if err != nil {
		return fmt.Errorf("unable to read %s: %w", unit.Input, err)
	}
	result.Source = parsed.Source

	artifact, err := CompileParsed(parsed)
	if err != nil {
		return err
	}

	data, err := Emit(ctx, artifact.Function, opts)
	if err != nil {
		return err
	}

	if err := os.WriteFile(unit.Output, data, 0o644); err != nil {
		return fmt.Errorf("could not write result of compilation into %s: %w", unit.Output, err)
	}
	return nil
}

// CompileAll compiles every unit on at most opts.Jobs workers and returns
// once all of them are done. A failing unit does not stop the others;
// results are in the order of units.
func CompileAll(ctx context.Context, units []Unit, opts Options) []Result {
	jobs := opts.Jobs
	if jobs < 1 {
		jobs = 1
	}
	log.Infof("compiling %d units on %d workers", len(units), jobs)

	results := make([]Result, len(units))
	var g errgroup.Group
	g.SetLimit(jobs)

	for i, unit := range units {
		i, unit := i, unit
		g.Go(func() error {
			results[i] = CompileUnit(ctx, unit, opts)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Failed counts the results that carry an error
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

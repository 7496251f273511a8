// SPDX-License-Identifier: Apache-2.0
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/tebeka/atexit"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"bfc/internal/config"
	"bfc/internal/driver"
	"bfc/internal/errors"
	"bfc/internal/watch"
)

func usage(cmd string) {
	fmt.Printf("%s <input file> <output file> <input file 2> <output file 2>... - Compile input files into output files.\n", cmd)
	fmt.Printf("%s - Print this help page\n", cmd)
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Printf("  %-15s output format: %s, %s or %s (default %s)\n", config.EnvEmit, config.EmitLLVM, config.EmitObject, config.EmitSSA, config.EmitLLVM)
	fmt.Printf("  %-15s files compiled in parallel (default: number of CPUs)\n", config.EnvJobs)
	fmt.Printf("  %-15s clang used for %s output\n", config.EnvClang, config.EmitObject)
	fmt.Printf("  %-15s recompile whenever an input changes\n", config.EnvWatch)
	fmt.Printf("  %-15s log verbosity\n", config.EnvVerbosity)
	fmt.Printf("  %-15s log to this file instead of stderr\n", config.EnvLogFile)
}

func main() {
	args := os.Args[1:]

	if len(args) == 0 {
		usage(os.Args[0])
		return
	}
	if len(args)%2 != 0 {
		fmt.Println("For each input file, there needs to be an output.")
		atexit.Exit(1)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		color.Red("Invalid configuration: %s", err)
		atexit.Exit(1)
	}
	commonlog.Configure(cfg.Verbosity, cfg.LogPath())

	units := make([]driver.Unit, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		unit := driver.Unit{Input: args[i], Output: args[i+1]}
		fmt.Println(unit)
		units = append(units, unit)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	atexit.Register(stop)

	opts := driver.OptionsFromConfig(cfg)
	startTime := time.Now()
	results := driver.CompileAll(ctx, units, opts)
	for _, r := range results {
		report(r)
	}
	duration := formatDuration(time.Since(startTime))

	failed := driver.Failed(results)
	if failed == 0 {
		color.Green("Successfully compiled %d file(s) in %s", len(results), duration)
	} else {
		color.Red("%d of %d file(s) failed after %s", failed, len(results), duration)
	}

	if cfg.Watch {
		runWatch(ctx, units, opts)
	}

	if failed > 0 {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

func runWatch(ctx context.Context, units []driver.Unit, opts driver.Options) {
	w, err := watch.New(units, opts, func(r driver.Result) {
		report(r)
		if r.Err == nil {
			color.Green("Recompiled %s in %s", r.Unit, formatDuration(r.Duration))
		}
	})
	if err != nil {
		color.Red("Cannot watch inputs: %s", err)
		atexit.Exit(1)
	}
	atexit.Register(func() { w.Close() })

	fmt.Println("Watching for changes, press Ctrl+C to stop")
	if err := w.Run(ctx); err != nil {
		color.Red("Watch stopped: %s", err)
		atexit.Exit(1)
	}
}

// report prints a failed unit's diagnostics
func report(r driver.Result) {
	if r.Err == nil {
		return
	}

	if parseErrors := r.ParseErrors(); len(parseErrors) > 0 {
		reporter := errors.NewErrorReporter(r.Unit.Input, r.Source)
		fmt.Print(reporter.FormatErrors(parseErrors))
		return
	}
	color.Red("%s: %s", r.Unit.Input, r.Err)
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return fmt.Sprintf("%.2fmin", d.Minutes())
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1000000.0)
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1000.0)
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}

// Package config reads compiler settings from the environment.
package config

import (
	"fmt"
	"runtime"

	"github.com/xyproto/env/v2"
)

// Environment variables
const (
	EnvJobs      = "BFC_JOBS"
	EnvEmit      = "BFC_EMIT"
	EnvClang     = "BFC_CLANG"
	EnvVerbosity = "BFC_VERBOSITY"
	EnvLogFile   = "BFC_LOG_FILE"
	EnvWatch     = "BFC_WATCH"
	EnvStepLimit = "BFC_STEP_LIMIT"
)

// Output formats
const (
	EmitLLVM   = "llvm"
	EmitObject = "obj"
	EmitSSA    = "ssa"
)

// DefaultStepLimit bounds interpreted runs so a non-terminating program
// cannot hang the REPL
const DefaultStepLimit = 10_000_000

// Config holds every tunable of the compiler
type Config struct {
	Jobs      int    // compilation units built in parallel
	Emit      string // llvm, obj or ssa
	Clang     string // clang used for object emission
	Verbosity int    // commonlog verbosity; 0 is quiet
	LogFile   string // empty logs to stderr
	Watch     bool   // keep recompiling on change
	StepLimit int    // interpreter step limit; 0 is unlimited
}

// Load reads the configuration from the environment, filling in defaults
func Load() *Config {
	// env caches the environment on first use; pick up later changes
	env.Load()

	return &Config{
		Jobs:      env.Int(EnvJobs, runtime.NumCPU()),
		Emit:      env.Str(EnvEmit, EmitLLVM),
		Clang:     env.Str(EnvClang, "clang"),
		Verbosity: env.Int(EnvVerbosity, 0),
		LogFile:   env.Str(EnvLogFile),
		Watch:     env.Bool(EnvWatch),
		StepLimit: env.Int(EnvStepLimit, DefaultStepLimit),
	}
}

// Validate reports the first setting that cannot be used
func (c *Config) Validate() error {
	if c.Jobs < 1 {
		return fmt.Errorf("%s must be at least 1, got %d", EnvJobs, c.Jobs)
	}
	switch c.Emit {
	case EmitLLVM, EmitObject, EmitSSA:
	default:
		return fmt.Errorf("%s must be one of %s, %s or %s, got %q", EnvEmit, EmitLLVM, EmitObject, EmitSSA, c.Emit)
	}
	if c.Emit == EmitObject && c.Clang == "" {
		return fmt.Errorf("%s must name a clang binary to emit objects", EnvClang)
	}
	if c.StepLimit < 0 {
		return fmt.Errorf("%s cannot be negative", EnvStepLimit)
	}
	return nil
}

// LogPath returns the log file for commonlog.Configure; nil logs to stderr
func (c *Config) LogPath() *string {
	if c.LogFile == "" {
		return nil
	}
	path := c.LogFile
	return &path
}

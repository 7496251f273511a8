package config

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, name := range []string{EnvJobs, EnvEmit, EnvClang, EnvVerbosity, EnvLogFile, EnvWatch, EnvStepLimit} {
		t.Setenv(name, "")
	}

	cfg := Load()
	assert.Equal(t, runtime.NumCPU(), cfg.Jobs)
	assert.Equal(t, EmitLLVM, cfg.Emit)
	assert.Equal(t, "clang", cfg.Clang)
	assert.Equal(t, 0, cfg.Verbosity)
	assert.False(t, cfg.Watch)
	assert.Equal(t, DefaultStepLimit, cfg.StepLimit)
	assert.Nil(t, cfg.LogPath())
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv(EnvJobs, "3")
	t.Setenv(EnvEmit, EmitObject)
	t.Setenv(EnvClang, "/opt/llvm/bin/clang")
	t.Setenv(EnvVerbosity, "2")
	t.Setenv(EnvLogFile, "/tmp/bfc.log")
	t.Setenv(EnvWatch, "1")
	t.Setenv(EnvStepLimit, "500")

	cfg := Load()
	assert.Equal(t, 3, cfg.Jobs)
	assert.Equal(t, EmitObject, cfg.Emit)
	assert.Equal(t, "/opt/llvm/bin/clang", cfg.Clang)
	assert.Equal(t, 2, cfg.Verbosity)
	assert.True(t, cfg.Watch)
	assert.Equal(t, 500, cfg.StepLimit)

	require.NotNil(t, cfg.LogPath())
	assert.Equal(t, "/tmp/bfc.log", *cfg.LogPath())
	assert.NoError(t, cfg.Validate())
}

func TestLoadSeesLaterChanges(t *testing.T) {
	t.Setenv(EnvJobs, "2")
	t.Setenv(EnvEmit, EmitSSA)
	first := Load()
	assert.Equal(t, 2, first.Jobs)
	assert.Equal(t, EmitSSA, first.Emit)

	t.Setenv(EnvJobs, "5")
	t.Setenv(EnvEmit, EmitObject)
	second := Load()
	assert.Equal(t, 5, second.Jobs)
	assert.Equal(t, EmitObject, second.Emit)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		message string
	}{
		{"no workers", Config{Jobs: 0, Emit: EmitLLVM}, "BFC_JOBS must be at least 1"},
		{"unknown format", Config{Jobs: 1, Emit: "wasm"}, `got "wasm"`},
		{"object without clang", Config{Jobs: 1, Emit: EmitObject}, "BFC_CLANG"},
		{"negative step limit", Config{Jobs: 1, Emit: EmitSSA, StepLimit: -1}, "BFC_STEP_LIMIT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

package driver

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bfc/internal/config"
	"bfc/internal/errors"
	"bfc/internal/parser"
	"bfc/internal/ssa"
)

const helloWorld = "++++++++[>++++[>++>+++>+++>+<<<<-]>+>+>->>+[<]<-]>>.>---.+++++++..+++.>>.<-.<.+++.------.--------.>>+.>++."

func writeSource(t *testing.T, dir, name, source string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
	return path
}

func TestCompileRunsPipeline(t *testing.T) {
	artifact, err := Compile("hello.bf", helloWorld)
	require.NoError(t, err)
	require.NotNil(t, artifact.Function)
	require.NoError(t, ssa.Verify(artifact.Function))

	// Adjacent operators are merged before lowering
	assert.Less(t, len(artifact.Program.Nodes), len(artifact.Parse.Nodes))

	var out bytes.Buffer
	in := ssa.NewInterpreter(ssa.NewIORuntime(nil, &out))
	_, err = in.Run(context.Background(), artifact.Function)
	require.NoError(t, err)
	assert.Equal(t, "Hello World!\n", out.String())
	assert.Len(t, in.Memory(artifact.Tape), 1024)
}

func TestCompileReportsParseErrors(t *testing.T) {
	artifact, err := Compile("broken.bf", "[[]")
	require.Error(t, err)

	var failure *ParseFailure
	require.ErrorAs(t, err, &failure)
	require.Len(t, failure.Errors, 1)
	assert.Equal(t, errors.ErrorUnclosedLoop, failure.Errors[0].Code)
	assert.Contains(t, err.Error(), "broken.bf")

	require.NotNil(t, artifact)
	assert.False(t, artifact.Parse.OK())
}

func TestCompileParsedFromFile(t *testing.T) {
	dir := t.TempDir()
	parsed, err := parser.ParseFile(writeSource(t, dir, "loop.bf", "++[->+<]>."))
	require.NoError(t, err)

	artifact, err := CompileParsed(parsed)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "loop.bf"), artifact.Program.Name)
	assert.Same(t, parsed, artifact.Parse)

	broken, err := parser.ParseFile(writeSource(t, dir, "broken.bf", "]"))
	require.NoError(t, err)
	_, err = CompileParsed(broken)
	var failure *ParseFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, filepath.Join(dir, "broken.bf"), failure.Path)
}

func TestEmitFormats(t *testing.T) {
	artifact, err := Compile("inc.bf", "+.")
	require.NoError(t, err)

	out, err := Emit(context.Background(), artifact.Function, Options{Emit: config.EmitSSA})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "function %main() -> i32 system_v {"))

	out, err = Emit(context.Background(), artifact.Function, Options{Emit: config.EmitLLVM})
	require.NoError(t, err)
	assert.Contains(t, string(out), "define i32 @main()")

	_, err = Emit(context.Background(), artifact.Function, Options{Emit: "wasm"})
	assert.ErrorContains(t, err, `unknown output format "wasm"`)
}

func TestEmitObjectWithoutClang(t *testing.T) {
	artifact, err := Compile("inc.bf", "+.")
	require.NoError(t, err)

	_, err = Emit(context.Background(), artifact.Function, Options{
		Emit:  config.EmitObject,
		Clang: filepath.Join(t.TempDir(), "no-such-clang"),
	})
	var ierr *errors.InternalError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, errors.ErrorEmission, ierr.Code)
}

func TestCompileUnitWritesOutput(t *testing.T) {
	dir := t.TempDir()
	input := writeSource(t, dir, "inc.bf", "+.")
	output := filepath.Join(dir, "inc.ll")

	// Stale content is replaced, not partly overwritten
	require.NoError(t, os.WriteFile(output, bytes.Repeat([]byte("x"), 1<<16), 0o644))

	result := CompileUnit(context.Background(), Unit{Input: input, Output: output}, Options{Emit: config.EmitLLVM})
	require.NoError(t, result.Err)
	assert.Equal(t, "+.", result.Source)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "define i32 @main()")
	assert.NotContains(t, string(data), "xxx")
}

func TestCompileUnitMissingInput(t *testing.T) {
	dir := t.TempDir()
	result := CompileUnit(context.Background(), Unit{
		Input:  filepath.Join(dir, "missing.bf"),
		Output: filepath.Join(dir, "missing.ll"),
	}, Options{Emit: config.EmitLLVM})

	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "unable to read")
	assert.Nil(t, result.ParseErrors())
	assert.NoFileExists(t, filepath.Join(dir, "missing.ll"))
}

func TestCompileAllKeepsGoingAfterFailures(t *testing.T) {
	dir := t.TempDir()
	units := []Unit{
		{Input: writeSource(t, dir, "a.bf", "+++."), Output: filepath.Join(dir, "a.ssa")},
		{Input: writeSource(t, dir, "b.bf", "]"), Output: filepath.Join(dir, "b.ssa")},
		{Input: filepath.Join(dir, "c.bf"), Output: filepath.Join(dir, "c.ssa")},
		{Input: writeSource(t, dir, "d.bf", helloWorld), Output: filepath.Join(dir, "d.ssa")},
	}

	for _, jobs := range []int{1, 2, 8} {
		results := CompileAll(context.Background(), units, Options{Emit: config.EmitSSA, Jobs: jobs})
		require.Len(t, results, len(units))

		for i, r := range results {
			assert.Equal(t, units[i], r.Unit, "jobs=%d", jobs)
		}
		assert.NoError(t, results[0].Err)
		assert.Len(t, results[1].ParseErrors(), 1)
		assert.Error(t, results[2].Err)
		assert.NoError(t, results[3].Err)
		assert.Equal(t, 2, Failed(results))

		assert.FileExists(t, units[0].Output)
		assert.FileExists(t, units[3].Output)
		assert.NoFileExists(t, units[1].Output)
	}
}

func TestUnitString(t *testing.T) {
	assert.Equal(t, "in.bf -> out.o", Unit{Input: "in.bf", Output: "out.o"}.String())
}

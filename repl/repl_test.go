package repl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func eval(lines ...string) string {
	var out bytes.Buffer
	s := NewSession(&out, 100_000)
	for _, line := range lines {
		s.Eval(line)
	}
	return out.String()
}

func TestRunPrintsOutput(t *testing.T) {
	// 8 * 8 + 1 = 'A'
	assert.Equal(t, "A\n", eval("++++++++[>++++++++<-]>+."))
}

func TestRunFeedsInput(t *testing.T) {
	assert.Equal(t, "ib\n", eval(",+.,+.!ha"))
}

func TestParseErrorsAreReported(t *testing.T) {
	out := eval("[[")
	assert.Contains(t, out, "E0100")
	assert.Contains(t, out, "loop is never closed")
}

func TestStepLimit(t *testing.T) {
	assert.Contains(t, eval("+[]"), "runtime error: step limit exceeded")
}

func TestTape(t *testing.T) {
	assert.Equal(t, "nothing has run yet\n", eval(":tape"))

	out := eval(">+++>-", ":tape")
	assert.Contains(t, out, "Tape (first 32 of 1024 cells)")
	assert.Contains(t, out, "|  3 |")
	assert.Contains(t, out, "| 255 |")
}

func TestUnknownCommand(t *testing.T) {
	assert.Equal(t, "unknown command :tpe, did you mean :tape?\n", eval(":tpe"))
	assert.Equal(t, "unknown command :zzz\n", eval(":zzz"))
}

func TestDumpCommands(t *testing.T) {
	assert.Contains(t, eval(":ir +++"), "add 3\n")
	assert.Contains(t, eval(":ssa +."), "function %main() -> i32 system_v {")
	assert.Contains(t, eval(":llvm +."), "define i32 @main()")
	assert.Equal(t, "+\n[-]\n", eval(":fmt +[-]"))
	assert.Contains(t, eval(":fmt +]"), "Syntax error")
}

func TestStartStopsOnQuit(t *testing.T) {
	var out bytes.Buffer
	Start(strings.NewReader("+++++++++++++++++++++++++++++++++.\n:quit\n+.\n"), &out, 1000)

	assert.Equal(t, PROMPT+"!\n"+PROMPT, out.String())
}

func TestStartStopsAtEOF(t *testing.T) {
	var out bytes.Buffer
	Start(strings.NewReader(""), &out, 1000)
	assert.Equal(t, PROMPT+"\n", out.String())
}

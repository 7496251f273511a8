package grammar

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bfc/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokensOperators(t *testing.T) {
	tokens, err := Tokens("ops.b", "+-<>.,[]")
	require.NoError(t, err)
	require.Len(t, tokens, 8)

	expected := []token.TokenType{
		token.PLUS, token.MINUS, token.LT, token.GT,
		token.DOT, token.COMMA, token.LBRACKET, token.RBRACKET,
	}
	for i, tok := range tokens {
		assert.Equal(t, expected[i], tok.Type, "token %d", i)
		assert.Equal(t, 1, tok.Pos.Line)
		assert.Equal(t, i+1, tok.Pos.Column)
	}
}

func TestTokensCommentary(t *testing.T) {
	tokens, err := Tokens("comment.b", "hello + world\n.")
	require.NoError(t, err)

	var ops []token.Token
	var ignored int
	for _, tok := range tokens {
		if tok.Type == token.IGNORED {
			ignored++
			continue
		}
		ops = append(ops, tok)
	}

	assert.Equal(t, 2, ignored)
	require.Len(t, ops, 2)
	assert.Equal(t, token.TokenType(token.PLUS), ops[0].Type)
	assert.Equal(t, 7, ops[0].Pos.Column)
	assert.Equal(t, token.TokenType(token.DOT), ops[1].Type)
	assert.Equal(t, 2, ops[1].Pos.Line)
	assert.Equal(t, 1, ops[1].Pos.Column)
}

func TestTokensEmpty(t *testing.T) {
	tokens, err := Tokens("empty.b", "")
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestLookupOperator(t *testing.T) {
	assert.Equal(t, token.TokenType(token.LBRACKET), token.LookupOperator("["))
	assert.Equal(t, token.TokenType(token.IGNORED), token.LookupOperator("x"))
}

func TestParseStringStructure(t *testing.T) {
	program, err := ParseString("nested.b", "+[>[-]<-] done")
	require.NoError(t, err)

	assert.Equal(t, 9, program.Ops())
	assert.Equal(t, 2, program.Depth())
	require.Len(t, program.Items, 3)
	assert.Equal(t, "+", program.Items[0].Op)
	require.NotNil(t, program.Items[1].Loop)
	require.NotNil(t, program.Items[2].Comment)
	assert.Equal(t, " done", program.Items[2].Comment.Text)
}

func TestParseStringUnbalanced(t *testing.T) {
	for _, src := range []string{"[", "+]", "[[]"} {
		_, err := ParseString("bad.b", src)
		assert.Error(t, err, "source %q", src)
	}
}

func TestReportParseError(t *testing.T) {
	src := "++\n+]"
	_, err := ParseString("bad.b", src)
	require.Error(t, err)

	var out strings.Builder
	ReportParseError(&out, src, err)
	assert.Contains(t, out.String(), "line 2, column 2")
	assert.Contains(t, out.String(), "+]")
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "inc.b")
	require.NoError(t, os.WriteFile(path, []byte("inc [-]+"), 0o644))

	program, source, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "inc [-]+", source)
	assert.Equal(t, 4, program.Ops())

	_, _, err = ParseFile(filepath.Join(dir, "missing.b"))
	assert.ErrorContains(t, err, "failed to read file")
}

func TestFormat(t *testing.T) {
	program, err := ParseString("fmt.b", "set up  ++[>+<-]\n\n  move it>[->>+<<[-]]")
	require.NoError(t, err)

	expected := "set up\n" +
		"++\n" +
		"[>+<-]\n" +
		"move it\n" +
		">\n" +
		"[\n" +
		"    ->>+<<\n" +
		"    [-]\n" +
		"]\n"
	assert.Equal(t, expected, Format(program))
}

func TestFormatIsStable(t *testing.T) {
	src := "++++++++[>++++[>++>+++>+++>+<<<<-]>+>+>->>+[<]<-]>>.>---.+++++++..+++."
	program, err := ParseString("hello.b", src)
	require.NoError(t, err)
	first := Format(program)

	again, err := ParseString("hello.b", first)
	require.NoError(t, err)
	assert.Equal(t, first, Format(again))
	assert.Equal(t, program.Ops(), again.Ops())
}

func TestFormatWrapsLongRuns(t *testing.T) {
	program, err := ParseString("long.b", strings.Repeat("+", LineWidth+3))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(Format(program), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Len(t, lines[0], LineWidth)
	assert.Equal(t, "+++", lines[1])
}

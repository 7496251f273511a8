package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// TapeLexer splits source text into single-character operators and runs of
// commentary. Every character that is not one of the eight operators is
// commentary.
var TapeLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Op", Pattern: `[-+.,<>\[\]]`},
	{Name: "Comment", Pattern: `[^-+.,<>\[\]]+`},
})

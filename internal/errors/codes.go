package errors

// Error codes for the bfc compiler
// These codes are used in error messages so the same failure is identified
// the same way by the CLI and the language server.
//
// Error code ranges:
// E0100-E0199: Parser errors
// E0900-E0999: Internal compiler errors

const (
	// E0100: A loop opened with '[' has no matching ']'
	ErrorUnclosedLoop = "E0100"

	// E0101: A ']' appears with no open loop
	ErrorUnmatchedLoopEnd = "E0101"

	// E0102: The source could not be tokenized
	ErrorLexer = "E0102"

	// E0900: Lowering hit a broken invariant (missing loop blocks, bad builder use)
	ErrorInternalLowering = "E0900"

	// E0901: The lowered function failed structural verification
	ErrorVerification = "E0901"

	// E0902: Native code emission failed
	ErrorEmission = "E0902"
)

// ErrorDescriptions maps error codes to short descriptions
var ErrorDescriptions = map[string]string{
	ErrorUnclosedLoop:     "unclosed loop",
	ErrorUnmatchedLoopEnd: "loop end with no beginning",
	ErrorLexer:            "source could not be tokenized",
	ErrorInternalLowering: "internal lowering error",
	ErrorVerification:     "lowered function failed verification",
	ErrorEmission:         "code emission failed",
}

// GetErrorDescription returns the description for an error code
func GetErrorDescription(code string) string {
	if desc, ok := ErrorDescriptions[code]; ok {
		return desc
	}
	return "unknown error"
}

// IsInternalError reports whether the code belongs to the internal range
func IsInternalError(code string) bool {
	return code >= "E0900" && code <= "E0999"
}

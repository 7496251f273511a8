package backend

import (
	"bytes"
	"context"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/llir/llvm/ir"

	"bfc/internal/config"
	"bfc/internal/errors"
)

var execCommand = exec.CommandContext

// TypedPointerLimit is the first clang release that no longer reads the
// typed pointers (i8*) llir writes into textual IR
const TypedPointerLimit = 17

var clangVersion = regexp.MustCompile(`clang version (\d+)\.`)

// EmitObject compiles module to a relocatable object file with clang. The
// module text is passed on stdin and the object is read back from stdout.
func EmitObject(ctx context.Context, module *ir.Module, clang string) ([]byte, error) {
	if clang == "" {
		clang = "clang"
	}

	if major, ok := ClangMajorVersion(ctx, clang); ok && major >= TypedPointerLimit {
		return nil, errors.Internal(errors.ErrorEmission, stage,
			"%s is clang %d, which rejects typed-pointer IR; point %s at clang %d or earlier",
			clang, major, config.EnvClang, TypedPointerLimit-1)
	}

	var stdout, stderr bytes.Buffer
	cmd := execCommand(ctx, clang, "-c", "-O2", "-x", "ir", "-o", "-", "-")
	cmd.Stdin = strings.NewReader(module.String())
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "no diagnostics"
		}
		return nil, errors.Internal(errors.ErrorEmission, stage, "%s failed: %s", clang, msg).Wrap(err)
	}
	log.Debugf("%s produced %d bytes of object code", clang, stdout.Len())
	return stdout.Bytes(), nil
}

// ClangMajorVersion asks clang for its version. ok is false when the
// binary cannot be run or its banner is not recognised.
func ClangMajorVersion(ctx context.Context, clang string) (major int, ok bool) {
	out, err := execCommand(ctx, clang, "--version").Output()
	if err != nil {
		log.Debugf("cannot get the version of %s: %s", clang, err)
		return 0, false
	}
	m := clangVersion.FindSubmatch(out)
	if m == nil {
		return 0, false
	}
	major, err = strconv.Atoi(string(m[1]))
	return major, err == nil
}

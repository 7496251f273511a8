// Package repl SPDX-License-Identifier: Apache-2.0
package repl

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"bfc/grammar"
	"bfc/internal/backend"
	"bfc/internal/driver"
	"bfc/internal/errors"
	"bfc/internal/ir"
	"bfc/internal/ssa"
)

const PROMPT = ">> "

// InputSeparator splits a line into a program and the input it reads
const InputSeparator = "!"

// cells shown by :tape, tapeRow to a table row
const (
	tapePreview = 32
	tapeRow     = 8
)

var commands = []string{":ssa", ":ir", ":llvm", ":fmt", ":tape", ":quit"}

// Session compiles and runs one line at a time. Each line is a complete
// program with a fresh tape.
type Session struct {
	out       io.Writer
	stepLimit int
	lastTape  []byte
}

// NewSession creates a session writing to out. stepLimit bounds every run;
// zero means unlimited.
func NewSession(out io.Writer, stepLimit int) *Session {
	return &Session{out: out, stepLimit: stepLimit}
}

// Start reads lines from in until it is exhausted
func Start(in io.Reader, out io.Writer, stepLimit int) {
	scanner := bufio.NewScanner(in)
	session := NewSession(out, stepLimit)

	for {
		fmt.Fprint(out, PROMPT)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return
		}
		if !session.Eval(scanner.Text()) {
			return
		}
	}
}

// Eval handles one line and reports whether the session continues.
//
//	:ssa <program>   print the lowered function
//	:ir <program>    print the optimized nodes
//	:llvm <program>  print the LLVM module
//	:fmt <program>   print the program in canonical layout
//	:tape            show the first cells of the last run's tape
//	:quit            end the session
//
// Anything else is run; text after "!" is fed to the program as input.
func (s *Session) Eval(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}

	cmd, rest := line, ""
	if i := strings.IndexByte(line, ' '); i >= 0 {
		cmd, rest = line[:i], strings.TrimSpace(line[i+1:])
	}

	switch cmd {
	case ":quit", ":q":
		return false
	case ":tape":
		s.showTape()
	case ":ir":
		if artifact := s.compile(rest); artifact != nil {
			fmt.Fprint(s.out, ir.PrintProgram(artifact.Program))
		}
	case ":ssa":
		if artifact := s.compile(rest); artifact != nil {
			fmt.Fprint(s.out, ssa.Print(artifact.Function))
		}
	case ":llvm":
		if artifact := s.compile(rest); artifact != nil {
			module, err := backend.EmitLLVM(artifact.Function)
			if err != nil {
				fmt.Fprintln(s.out, err)
				return true
			}
			fmt.Fprintln(s.out, module.String())
		}
	case ":fmt":
		formatted, err := grammar.FormatSource("<repl>", rest)
		if err != nil {
			grammar.ReportParseError(s.out, rest, err)
			return true
		}
		fmt.Fprint(s.out, formatted)
	default:
		if strings.HasPrefix(cmd, ":") {
			s.unknown(cmd)
			return true
		}
		s.run(line)
	}
	return true
}

func (s *Session) compile(source string) *driver.Artifact {
	artifact, err := driver.Compile("<repl>", source)
	if err != nil {
		if artifact != nil && artifact.Parse != nil {
			reporter := errors.NewErrorReporter("<repl>", source)
			fmt.Fprint(s.out, reporter.FormatErrors(artifact.Parse.Errors))
		} else {
			fmt.Fprintln(s.out, err)
		}
		return nil
	}
	return artifact
}

func (s *Session) run(line string) {
	source, input := line, ""
	if i := strings.Index(line, InputSeparator); i >= 0 {
		source, input = line[:i], line[i+len(InputSeparator):]
	}

	artifact := s.compile(source)
	if artifact == nil {
		return
	}

	var output bytes.Buffer
	interp := ssa.NewInterpreter(ssa.NewIORuntime(strings.NewReader(input), &output))
	interp.StepLimit = s.stepLimit

	_, err := interp.Run(context.Background(), artifact.Function)
	s.out.Write(output.Bytes())
	if output.Len() > 0 && !bytes.HasSuffix(output.Bytes(), []byte("\n")) {
		fmt.Fprintln(s.out)
	}
	if err != nil {
		fmt.Fprintf(s.out, "runtime error: %s\n", err)
	}
	s.lastTape = interp.Memory(artifact.Tape)
}

func (s *Session) showTape() {
	if s.lastTape == nil {
		fmt.Fprintln(s.out, "nothing has run yet")
		return
	}

	tapeTable := table.NewWriter()
	tapeTable.SetTitle(fmt.Sprintf("Tape (first %d of %d cells)", tapePreview, len(s.lastTape)))

	header := table.Row{"Cell"}
	for i := 0; i < tapeRow; i++ {
		header = append(header, fmt.Sprintf("+%d", i))
	}
	tapeTable.AppendHeader(header)

	configs := make([]table.ColumnConfig, 0, tapeRow+1)
	for i := 1; i <= tapeRow+1; i++ {
		configs = append(configs, table.ColumnConfig{Number: i, Align: text.AlignRight})
	}
	tapeTable.SetColumnConfigs(configs)

	for base := 0; base < tapePreview; base += tapeRow {
		row := table.Row{base}
		for _, c := range s.lastTape[base : base+tapeRow] {
			row = append(row, c)
		}
		tapeTable.AppendRow(row)
	}
	fmt.Fprintln(s.out, tapeTable.Render())
}

// unknown reports a command that does not exist, suggesting the closest one
func (s *Session) unknown(cmd string) {
	ranks := fuzzy.RankFindFold(cmd, commands)
	if len(ranks) == 0 {
		fmt.Fprintf(s.out, "unknown command %s\n", cmd)
		return
	}
	sort.Sort(ranks)
	fmt.Fprintf(s.out, "unknown command %s, did you mean %s?\n", cmd, ranks[0].Target)
}

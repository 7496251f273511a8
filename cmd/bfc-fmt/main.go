// SPDX-License-Identifier: Apache-2.0
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/tebeka/atexit"

	"bfc/grammar"
)

// bfc-fmt lays tape programs out canonically.
// Flags:
//
//	-w      write result to (source) file.
//	-l      list files whose formatting differs.
//	-stdin  read from stdin instead of files, write formatted to stdout.
func main() {
	var (
		writeInPlace bool
		listOnly     bool
		fromStdin    bool
	)
	flag.BoolVar(&writeInPlace, "w", false, "write result to (source) file instead of stdout")
	flag.BoolVar(&listOnly, "l", false, "list files whose formatting differs from bfc-fmt output")
	flag.BoolVar(&fromStdin, "stdin", false, "read from stdin instead of files")
	flag.Parse()

	if fromStdin {
		in, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			atexit.Exit(1)
		}
		out, err := grammar.FormatSource("<stdin>", string(in))
		if err != nil {
			grammar.ReportParseError(os.Stderr, string(in), err)
			atexit.Exit(1)
		}
		fmt.Print(out)
		atexit.Exit(0)
	}

	if flag.NArg() == 0 {
		fmt.Printf("%s [-w] [-l] <file>... - Format tape programs\n", os.Args[0])
		flag.PrintDefaults()
		atexit.Exit(2)
	}

	exitCode := 0
	for _, path := range flag.Args() {
		if err := formatFile(path, writeInPlace, listOnly); err != nil {
			color.Red("%s: %s", path, err)
			exitCode = 1
		}
	}
	atexit.Exit(exitCode)
}

func formatFile(path string, writeInPlace, listOnly bool) error {
	program, source, err := grammar.ParseFile(path)
	if err != nil {
		return err
	}

	out := grammar.Format(program)
	changed := out != source
	switch {
	case listOnly:
		if changed {
			fmt.Println(path)
		}
	case writeInPlace:
		if changed {
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			return os.WriteFile(path, []byte(out), info.Mode().Perm())
		}
	default:
		fmt.Print(out)
	}
	return nil
}

// SPDX-License-Identifier: GPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"os/user"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"bfc/internal/config"
	"bfc/repl"
)

func main() {
	currentUser, err := user.Current()
	if err != nil {
		fmt.Printf("Error getting current user: %v\n", err)
		return
	}

	cfg := config.Load()
	commonlog.Configure(cfg.Verbosity, cfg.LogPath())

	fmt.Printf("Welcome to the bfc REPL, %s!\n", currentUser.Username)
	fmt.Println("Type a program to run it; text after ! is its input. Commands: :ssa :ir :llvm :fmt :tape :quit")
	repl.Start(os.Stdin, os.Stdout, cfg.StepLimit)
}

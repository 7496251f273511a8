// SPDX-License-Identifier: Apache-2.0
package main

import (
	"github.com/tebeka/atexit"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"bfc/internal/config"
	"bfc/internal/lsp"
)

const lsName = "bfc" // Name identifier for the language server

var (
	version = "0.1.0"        // Server version
	handler protocol.Handler // Protocol handler instance (wired up below)
)

var log = commonlog.GetLogger("bfc.lsp.server")

func main() {
	// Editors talk over stdio, so logs must not go to stdout
	cfg := config.Load()
	verbosity := cfg.Verbosity
	if verbosity == 0 {
		verbosity = 1
	}
	commonlog.Configure(verbosity, cfg.LogPath())

	tapeHandler := lsp.NewTapeHandler()
	handler = tapeHandler.Handler()

	// Parameters: the protocol handler, the name shown to clients and
	// whether glsp logs its own traffic
	s := server.NewServer(&handler, lsName, false)

	log.Infof("starting %s language server %s", lsName, version)

	if err := s.RunStdio(); err != nil {
		log.Errorf("error running %s language server: %s", lsName, err)
		atexit.Exit(1)
	}
}

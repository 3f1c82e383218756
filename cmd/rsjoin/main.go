// Package main is the entry point for rsjoin.
//
// rsjoin joins newly launched database nodes to their replica set. The
// provisioner subcommand runs the Lambda handler that bootstraps launching
// instances, and gate runs the one that admits node-ready messages and
// converges the cluster one run at a time. converge applies a single local
// corrective pass.
//
// For detailed usage information, run:
//
//	rsjoin --help
package main

import (
	"fmt"
	"os"

	"github.com/imamik/rsjoin/cmd/rsjoin/commands"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Package main is the entry point for paneruntimed, the composition root
// that wires the event bus, filesystem/git/forge projectors and the
// workspace store into a running process.
package main

import (
	urfavecli "github.com/urfave/cli/v2"
)

// globalFlags returns the top-level flags. There is no GUI surface here
// (spec: "CLI surface: None at the core boundary") — these exist only to
// let an embedding application (or this demo binary) point the core at a
// config file and a set of worktree roots to watch.
func globalFlags() []urfavecli.Flag {
	return []urfavecli.Flag{
		&urfavecli.StringFlag{
			Name:  "config-file",
			Usage: "Path to configuration file",
		},
		&urfavecli.StringFlag{
			Name:    "worktree-dir",
			Aliases: []string{"w"},
			Usage:   "Override the default worktree root directory",
		},
		&urfavecli.StringFlag{
			Name:  "state-file",
			Usage: "Path to the persisted workspace state file",
		},
		&urfavecli.StringFlag{
			Name:  "debug-log",
			Usage: "Path to debug log file",
		},
		&urfavecli.StringSliceFlag{
			Name:    "config",
			Aliases: []string{"C"},
			Usage:   "Override config values (repeatable): --config=paneruntime.key=value",
		},
		&urfavecli.StringSliceFlag{
			Name:    "root",
			Aliases: []string{"r"},
			Usage:   "Register a worktree root to watch (repeatable)",
		},
		&urfavecli.BoolFlag{
			Name:  "print-events",
			Usage: "Print every bus envelope to stdout until interrupted",
		},
	}
}

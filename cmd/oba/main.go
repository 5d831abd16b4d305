// Package main provides the entry point for the oba LDAP server CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	exitCode := run(os.Args)
	os.Exit(exitCode)
}

// run executes the CLI and returns an exit code.
// This is separated from main() to facilitate testing.
func run(args []string) int {
	exitCode := 0
	root := newRootCmd(&exitCode)
	root.SetArgs(args[1:])

	if err := root.Execute(); err != nil {
		return 1
	}
	return exitCode
}

// newRootCmd builds the oba command tree. Every leaf sets
// DisableFlagParsing so cobra only supplies command routing and
// top-level help, forwarding its raw arguments unchanged to the
// existing flag.FlagSet-based implementation of each command.
func newRootCmd(exitCode *int) *cobra.Command {
	root := &cobra.Command{
		Use:   "oba",
		Short: "oba - LDAP directory server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				printUsage(os.Stdout)
				*exitCode = 1
				return nil
			}
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintln(os.Stderr, "Run 'oba help' for usage.")
			*exitCode = 1
			return nil
		},
	}
	root.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		printUsage(os.Stdout)
	})

	root.AddCommand(
		forwardingCommand(exitCode, "serve", serveCmd),
		forwardingCommand(exitCode, "backup", backupCmd),
		forwardingCommand(exitCode, "restore", restoreCmd),
		forwardingCommand(exitCode, "user", userCmd),
		forwardingCommand(exitCode, "config", configCmd),
		forwardingCommand(exitCode, "reload", reloadCmd),
		forwardingCommand(exitCode, "version", versionCmd),
		forwardingCommand(exitCode, "ltdb", ltdbCmd),
	)

	return root
}

// forwardingCommand wraps a legacy args-to-exit-code command function as a
// cobra.Command, delegating flag parsing, help text, and exit-code
// decisions entirely to the wrapped function.
func forwardingCommand(exitCode *int, name string, fn func([]string) int) *cobra.Command {
	return &cobra.Command{
		Use:                name,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			*exitCode = fn(args)
			return nil
		},
	}
}

// Package main provides the ltdb diagnostic command for the oba LDAP server.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/KilimcininKorOglu/oba/internal/ltdb"
)

// ltdbCmd handles the ltdb diagnostic command group: dump and seqnum.
func ltdbCmd(args []string) int {
	if len(args) < 1 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printLtdbUsage(os.Stdout)
		return 0
	}

	subcommand := args[0]
	rest := args[1:]

	switch subcommand {
	case "dump":
		return ltdbDumpCmd(rest)
	case "seqnum":
		return ltdbSeqnumCmd(rest)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown ltdb subcommand: %s\n", subcommand)
		fmt.Fprintln(os.Stderr, "Run 'oba ltdb help' for usage.")
		return 1
	}
}

// ltdbDumpCmd opens a store file read-only and prints every entry it
// holds, exercising the Request Dispatcher's search path directly
// against a store file without going through the LDAP server.
func ltdbDumpCmd(args []string) int {
	fs := flag.NewFlagSet("ltdb dump", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *help || *helpLong {
		printLtdbDumpUsage(os.Stdout)
		return 0
	}

	path := fs.Arg(0)
	if path == "" {
		fmt.Fprintln(os.Stderr, "Error: path required")
		fmt.Fprintln(os.Stderr, "Usage: oba ltdb dump <path>")
		return 1
	}

	db, err := ltdb.Open(path, ltdb.OpenFlags{ReadOnly: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open %s: %v\n", path, err)
		return 1
	}
	defer db.Close()

	entries, err := db.DumpEntries()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to dump entries: %v\n", err)
		return 1
	}

	for _, entry := range entries {
		fmt.Printf("dn: %s\n", entry.DN)
		for _, el := range entry.Elements {
			for _, v := range el.Values {
				fmt.Printf("%s: %s\n", el.Name, v)
			}
		}
		fmt.Println()
	}
	fmt.Fprintf(os.Stderr, "# %d entries\n", len(entries))
	return 0
}

// ltdbSeqnumCmd opens a store file read-only and prints its current
// sequence number, exercising the Sequence Tracker directly.
func ltdbSeqnumCmd(args []string) int {
	fs := flag.NewFlagSet("ltdb seqnum", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")
	next := fs.Bool("next", false, "Report the next sequence number instead of the current one")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *help || *helpLong {
		printLtdbSeqnumUsage(os.Stdout)
		return 0
	}

	path := fs.Arg(0)
	if path == "" {
		fmt.Fprintln(os.Stderr, "Error: path required")
		fmt.Fprintln(os.Stderr, "Usage: oba ltdb seqnum <path>")
		return 1
	}

	db, err := ltdb.Open(path, ltdb.OpenFlags{ReadOnly: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open %s: %v\n", path, err)
		return 1
	}
	defer db.Close()

	mode := ltdb.SeqHighest
	if *next {
		mode = ltdb.SeqNext
	}

	seq, err := db.SequenceNumber(mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to read sequence number: %v\n", err)
		return 1
	}

	fmt.Println(seq)
	return 0
}

// printLtdbUsage prints the ltdb command group usage.
func printLtdbUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: oba ltdb <subcommand> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Inspect an ltdb-style store file offline, without starting the server.")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Subcommands:")
	fmt.Fprintln(w, "  dump      Print every entry in the store")
	fmt.Fprintln(w, "  seqnum    Print the store's current sequence number")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'oba ltdb <subcommand> -h' for subcommand options.")
}

// printLtdbDumpUsage prints the ltdb dump subcommand usage.
func printLtdbDumpUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: oba ltdb dump <path>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Print every entry in the store at <path> in LDIF-like form.")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  -h, -help   Show this help message")
}

// printLtdbSeqnumUsage prints the ltdb seqnum subcommand usage.
func printLtdbSeqnumUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: oba ltdb seqnum <path>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Print the store's current sequence number.")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  -next       Print the next sequence number instead of the current one")
	fmt.Fprintln(w, "  -h, -help   Show this help message")
}

// Command leaudio-log views and analyzes LE Audio protocol trace files.
//
// Trace files are written by leaudio-client with the -trace flag, or by
// any program that sets service.Config.ProtocolLogger to a log.FileLogger.
//
// Usage:
//
//	leaudio-log <command> [flags] <file.lalog>
//
// Commands:
//
//	view     View trace file in human-readable format
//	export   Export trace file to JSON lines or CSV
//	filter   Filter trace file and write to new file
//	stats    Show statistics about the trace file
//
// Examples:
//
//	# View all events
//	leaudio-log view session.lalog
//
//	# View only offload handshake steps of one device
//	leaudio-log view --category offload --addr 00:1B:DC:0F:10:01 session.lalog
//
//	# Keep group 1 only
//	leaudio-log filter --group 1 -o group1.lalog session.lalog
//
//	# Export to CSV
//	leaudio-log export --format csv session.lalog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/leaudio/leaudio-go/cmd/leaudio-log/commands"
)

const usage = `leaudio-log - LE Audio Trace Analyzer

Usage:
  leaudio-log <command> [flags] <file.lalog>

Commands:
  view     View trace file in human-readable format
  export   Export trace file to JSON lines or CSV
  filter   Filter trace file and write to new file
  stats    Show statistics about the trace file

Use "leaudio-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// filterFlags registers the selection flags shared by view and filter.
func filterFlags(fs *flag.FlagSet, opts *commands.FilterOptions) {
	fs.StringVar(&opts.SessionID, "session", "", "Filter by session ID")
	fs.StringVar(&opts.Address, "addr", "", "Filter by device address")
	fs.StringVar(&opts.GroupID, "group", "", "Filter by group ID")
	fs.StringVar(&opts.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	fs.StringVar(&opts.Layer, "layer", "", "Filter by layer (controller, service, offload)")
	fs.StringVar(&opts.Direction, "direction", "", "Filter by direction (in, out)")
	fs.StringVar(&opts.Category, "category", "", "Filter by category (command, event, state, offload, error)")
}

func newFlagSet(name, summary, synopsis string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "leaudio-log %s - %s\n\nUsage:\n  leaudio-log %s\n\nFlags:\n", name, summary, synopsis)
		fs.PrintDefaults()
	}
	return fs
}

// requirePath parses args and returns the single positional argument.
func requirePath(fs *flag.FlagSet, args []string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: trace file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func runView(args []string) {
	fs := newFlagSet("view", "View trace file in human-readable format", "view [flags] <file.lalog>")
	var opts commands.FilterOptions
	filterFlags(fs, &opts)
	path := requirePath(fs, args)

	filter, err := opts.Build()
	if err != nil {
		fail(err)
	}
	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fail(err)
	}
}

func runExport(args []string) {
	fs := newFlagSet("export", "Export trace file to JSON lines or CSV", "export [flags] <file.lalog>")
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	path := requirePath(fs, args)

	if err := commands.RunExport(path, *format, *output); err != nil {
		fail(err)
	}
}

func runFilter(args []string) {
	fs := newFlagSet("filter", "Filter trace file and write to new file", "filter [flags] <file.lalog>")
	var opts commands.FilterOptions
	fs.StringVar(&opts.Output, "o", "", "Output file (required)")
	filterFlags(fs, &opts)
	path := requirePath(fs, args)

	if opts.Output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	count, err := commands.RunFilter(path, opts)
	if err != nil {
		fail(err)
	}
	fmt.Printf("Filtered %d events to %s\n", count, opts.Output)
}

func runStats(args []string) {
	fs := newFlagSet("stats", "Show statistics about the trace file", "stats <file.lalog>")
	path := requirePath(fs, args)

	if err := commands.RunStats(path, os.Stdout); err != nil {
		fail(err)
	}
}

// Command labrobot-log views and analyzes run logs written by labrobot-run
// with the --run-log flag.
//
// Usage:
//
//	labrobot-log <command> [flags] <file.rlog>
//
// Commands:
//
//	view     View the log in human-readable format
//	export   Export the log to JSON lines or CSV
//	filter   Write matching events to a new log file
//	stats    Show statistics about the log
//
// Every command accepts the filter flags --run-id, --category, --mount,
// --command, --time-start and --time-end.
//
// Examples:
//
//	# View all events
//	labrobot-log view run.rlog
//
//	# View errors on the left mount
//	labrobot-log view --category error --mount left run.rlog
//
//	# Total aspirated volume per command
//	labrobot-log stats --category command run.rlog
//
//	# Export to CSV
//	labrobot-log export --format csv -o run.csv run.rlog
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/labrobot/labrobot-go/cmd/labrobot-log/commands"
)

const usage = `labrobot-log - run log analyzer

Usage:
  labrobot-log <command> [flags] <file.rlog>

Commands:
  view     View the log in human-readable format
  export   Export the log to JSON lines or CSV
  filter   Write matching events to a new log file
  stats    Show statistics about the log

Use "labrobot-log <command> --help" for more information about a command.
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprint(stderr, usage)
		return 1
	}

	cmd, args := args[0], args[1:]
	switch cmd {
	case "view":
		return runView(args, stdout, stderr)
	case "export":
		return runExport(args, stdout, stderr)
	case "filter":
		return runFilter(args, stdout, stderr)
	case "stats":
		return runStats(args, stdout, stderr)
	case "-h", "-help", "--help", "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(stderr, usage)
		return 1
	}
}

// newFlagSet builds a subcommand flag set with the shared filter flags.
func newFlagSet(name, summary string, stderr io.Writer, opts *commands.FilterOptions) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "labrobot-log %s - %s\n\nUsage:\n  labrobot-log %s [flags] <file.rlog>\n\nFlags:\n", name, summary, name)
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.RunID, "run-id", "", "Filter by run ID")
	fs.StringVar(&opts.Category, "category", "", "Filter by category (command, comment, state, error)")
	fs.StringVar(&opts.Mount, "mount", "", "Filter by mount (left, right)")
	fs.StringVar(&opts.Command, "command", "", "Filter by command name (aspirate, move_to, ...)")
	fs.StringVar(&opts.TimeStart, "time-start", "", "Only events at or after this time (RFC3339)")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "Only events before this time (RFC3339)")
	return fs
}

// parse parses args and returns the log path, or an exit code.
func parse(fs *flag.FlagSet, args []string, stderr io.Writer) (string, int) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return "", 0
		}
		return "", 1
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(stderr, "Error: log file path required")
		fs.Usage()
		return "", 1
	}
	return fs.Arg(0), -1
}

func fail(stderr io.Writer, err error) int {
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}

func runView(args []string, stdout, stderr io.Writer) int {
	var opts commands.FilterOptions
	fs := newFlagSet("view", "View the log in human-readable format", stderr, &opts)
	path, code := parse(fs, args, stderr)
	if code >= 0 {
		return code
	}
	if err := commands.RunView(path, opts, stdout); err != nil {
		return fail(stderr, err)
	}
	return 0
}

func runExport(args []string, stdout, stderr io.Writer) int {
	var opts commands.FilterOptions
	fs := newFlagSet("export", "Export the log to JSON lines or CSV", stderr, &opts)
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.StringP("output", "o", "", "Output file (default: stdout)")
	path, code := parse(fs, args, stderr)
	if code >= 0 {
		return code
	}

	w := stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return fail(stderr, fmt.Errorf("failed to create output file: %w", err))
		}
		defer f.Close()
		w = f
	}
	if err := commands.RunExport(path, *format, opts, w); err != nil {
		return fail(stderr, err)
	}
	return 0
}

func runFilter(args []string, stdout, stderr io.Writer) int {
	var opts commands.FilterOptions
	fs := newFlagSet("filter", "Write matching events to a new log file", stderr, &opts)
	output := fs.StringP("output", "o", "", "Output file (required)")
	path, code := parse(fs, args, stderr)
	if code >= 0 {
		return code
	}
	if *output == "" {
		fmt.Fprintln(stderr, "Error: output file (-o) required")
		fs.Usage()
		return 1
	}

	n, err := commands.RunFilter(path, *output, opts)
	if err != nil {
		return fail(stderr, err)
	}
	fmt.Fprintf(stdout, "Wrote %d events to %s\n", n, *output)
	return 0
}

func runStats(args []string, stdout, stderr io.Writer) int {
	var opts commands.FilterOptions
	fs := newFlagSet("stats", "Show statistics about the log", stderr, &opts)
	path, code := parse(fs, args, stderr)
	if code >= 0 {
		return code
	}
	if err := commands.RunStats(path, opts, stdout); err != nil {
		return fail(stderr, err)
	}
	return 0
}

package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/labrobot/labrobot-go/pkg/protocol"
	"github.com/labrobot/labrobot-go/pkg/types"
)

// console reads operator commands while a script runs.
type console struct {
	rl *readline.Instance
}

func newConsole() (*console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "robot> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &console{rl: rl}, nil
}

// Stdout returns a writer that does not clobber the prompt.
func (c *console) Stdout() io.Writer { return c.rl.Stdout() }

// Stderr returns a writer that does not clobber the prompt.
func (c *console) Stderr() io.Writer { return c.rl.Stderr() }

// Close stops the command loop.
func (c *console) Close() { _ = c.rl.Close() }

// Run handles commands until ctx is done or the input ends. Quitting
// cancels the run.
func (c *console) Run(ctx context.Context, cancel context.CancelFunc, proto *protocol.ProtocolContext) {
	out := c.rl.Stdout()
	fmt.Fprintln(out, "Commands: pause, resume, status, comment <text>, quit")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if handleCommand(out, proto, input) {
			fmt.Fprintln(out, "Stopping run...")
			cancel()
			return
		}
	}
}

// handleCommand runs one console command and reports whether the operator quit.
func handleCommand(out io.Writer, proto *protocol.ProtocolContext, input string) bool {
	parts := strings.Fields(input)
	switch strings.ToLower(parts[0]) {
	case "help", "?":
		fmt.Fprintln(out, "Commands: pause, resume, status, comment <text>, quit")

	case "pause", "p":
		proto.RequestPause()
		fmt.Fprintln(out, "Pause requested; the run stops before the next command")

	case "resume", "r":
		proto.Resume()

	case "status", "s":
		printStatus(out, proto)

	case "comment", "c":
		proto.Comment(strings.TrimSpace(strings.TrimPrefix(input, parts[0])))

	case "quit", "exit", "q":
		return true

	default:
		fmt.Fprintf(out, "Unknown command: %s (type 'help' for commands)\n", parts[0])
	}
	return false
}

func printStatus(out io.Writer, proto *protocol.ProtocolContext) {
	state := "RUNNING"
	if proto.IsPaused() {
		state = "PAUSED"
	}
	fmt.Fprintf(out, "Run %s: %s\n", proto.RunID(), state)

	for _, m := range types.Mounts {
		inst := proto.Instrument(m)
		if inst == nil {
			fmt.Fprintf(out, "  %-5s  -\n", m)
			continue
		}
		st := inst.Status()
		fmt.Fprintf(out, "  %-5s  %s  %s  %.2fuL\n", m, st.Name, st.State, st.Volume)
	}
	for _, pl := range proto.LoadedLabwares() {
		fmt.Fprintf(out, "  slot %-2s %s\n", pl.Slot, pl.Labware)
	}
}

// Command labrobot-run executes a protocol script on the simulated robot.
//
// Usage:
//
//	labrobot-run [flags] <script.yaml>
//
// Flags:
//
//	--config string             Configuration file (YAML)
//	--driver-timeout duration   Timeout for a single driver command (default 30s)
//	--log-level string          Log level: debug, info, warn, error (default "info")
//	--run-log string            Write the run event log (CBOR) to this file
//	--labware-dir strings       Extra labware definition directory (repeatable)
//	--simulator-latency dur     Simulated latency per driver command
//	--left, --right string      Pipettes attached to the simulator mounts
//	--check                     Only parse and validate the script
//	--interactive               Accept pause/resume/status commands while running
//
// Every setting can also come from the config file or a LABROBOT_*
// environment variable.
//
// Examples:
//
//	# Validate a script
//	labrobot-run --check protocols/plate_fill.yaml
//
//	# Run with a p300 on the left mount and keep the event log
//	labrobot-run --left p300_single --run-log run.rlog protocols/plate_fill.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/labrobot/labrobot-go/pkg/config"
	"github.com/labrobot/labrobot-go/pkg/driver"
	"github.com/labrobot/labrobot-go/pkg/labware"
	runlog "github.com/labrobot/labrobot-go/pkg/log"
	"github.com/labrobot/labrobot-go/pkg/protocol"
	"github.com/labrobot/labrobot-go/pkg/script"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// options are the flags that are not part of the shared configuration.
type options struct {
	check       bool
	interactive bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("labrobot-run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	config.RegisterFlags(fs)
	var opts options
	fs.BoolVar(&opts.check, "check", false, "Only parse and validate the script")
	fs.BoolVarP(&opts.interactive, "interactive", "i", false, "Accept pause/resume/status commands while running")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: labrobot-run [flags] <script.yaml>")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	s, err := script.Load(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if opts.check {
		fmt.Fprintf(stdout, "%s: OK (%d steps)\n", s.Name, len(s.Steps))
		return 0
	}

	if err := execute(ctx, cfg, opts, s, stdout, stderr); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func execute(ctx context.Context, cfg config.Config, opts options, s *script.Script, stdout, stderr io.Writer) error {
	level, err := cfg.Level()
	if err != nil {
		return err
	}

	var con *console
	logOut := stderr
	if opts.interactive {
		con, err = newConsole()
		if err != nil {
			return err
		}
		logOut = con.Stderr()
		stdout = con.Stdout()
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	registry := labware.NewBuiltinRegistry()
	for _, dir := range cfg.LabwareDirs {
		if err := registry.AddDirectory(dir); err != nil {
			return fmt.Errorf("labware directory %s: %w", dir, err)
		}
	}

	sim, err := driver.NewSimulator(driver.SimulatorConfig{
		Attached: cfg.Attached(),
		Latency:  cfg.Simulator.Latency,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	events := []runlog.Logger{runlog.NewSlogAdapter(logger)}
	if cfg.RunLog != "" {
		fl, err := runlog.NewFileLogger(cfg.RunLog)
		if err != nil {
			_ = sim.Close()
			return err
		}
		defer func() {
			if n := fl.Dropped(); n > 0 {
				logger.Warn("run log dropped events", "count", n)
			}
			_ = fl.Close()
		}()
		events = append(events, fl)
	}

	pcfg := protocol.DefaultConfig()
	pcfg.Driver = sim
	pcfg.DriverTimeout = cfg.DriverTimeout
	pcfg.Loader = registry
	pcfg.Logger = logger
	pcfg.EventLogger = runlog.NewMultiLogger(events...)

	proto, err := protocol.New(pcfg)
	if err != nil {
		_ = sim.Close()
		return err
	}
	defer proto.Close()

	runner := script.NewRunner(proto, logger)
	runner.OnStep = func(n int, st *script.Step) {
		desc := st.Action
		if st.Description != "" {
			desc += ": " + st.Description
		}
		fmt.Fprintf(stdout, "[%d/%d] %s\n", n+1, len(s.Steps), desc)
	}

	fmt.Fprintf(stdout, "Running %s (run %s)\n", s.Name, proto.RunID())

	if con != nil {
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go con.Run(runCtx, cancel, proto)
		ctx = runCtx
	}

	res, err := runner.Run(ctx, s)
	if con != nil {
		con.Close()
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Completed %d steps in %s\n", res.StepsRun, res.Duration.Round(time.Millisecond))
	return nil
}

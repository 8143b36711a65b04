package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labrobot/labrobot-go/pkg/driver"
	runlog "github.com/labrobot/labrobot-go/pkg/log"
	"github.com/labrobot/labrobot-go/pkg/protocol"
	"github.com/labrobot/labrobot-go/pkg/script"
)

// isolate keeps stray config files and LABROBOT_* variables out of a test.
func isolate(t *testing.T) string {
	t.Helper()
	script, err := filepath.Abs("../../pkg/script/testdata/plate_fill.yaml")
	require.NoError(t, err)
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("HOME", dir)
	t.Setenv("LABROBOT_CONFIG", "")
	return script
}

func TestRunCheck(t *testing.T) {
	script := isolate(t)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"--check", script}, &stdout, &stderr)

	assert.Equal(t, 0, code, stderr.String())
	assert.Equal(t, "plate fill: OK (12 steps)\n", stdout.String())
}

func TestRunWritesRunLog(t *testing.T) {
	script := isolate(t)
	logPath := filepath.Join(t.TempDir(), "run.rlog")
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{
		"--left", "p300_single",
		"--log-level", "warn",
		"--run-log", logPath,
		script,
	}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "[12/12] home")
	assert.Contains(t, stdout.String(), "Completed 12 steps")

	cat := runlog.CategoryCommand
	r, err := runlog.NewFilteredReader(logPath, runlog.Filter{Category: &cat})
	require.NoError(t, err)
	defer r.Close()
	events, err := r.ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.NotEmpty(t, events[0].RunID)
}

func TestRunFailures(t *testing.T) {
	script := isolate(t)

	tests := []struct {
		name string
		args []string
		code int
		msg  string
	}{
		{"no script", nil, 2, "Usage"},
		{"unknown flag", []string{"--bogus", script}, 2, "unknown flag"},
		{"missing script", []string{"nope.yaml"}, 1, "failed to read file"},
		{"bad log level", []string{"--log-level", "loud", script}, 1, "log_level"},
		{"wrong pipette", []string{"--left", "p50_single", script}, 1, "mismatch"},
		{"missing config", []string{"--config", "absent.yaml", script}, 1, "read config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(context.Background(), tt.args, &stdout, &stderr)
			assert.Equal(t, tt.code, code)
			assert.Contains(t, stderr.String(), tt.msg)
		})
	}
}

func TestHandleCommand(t *testing.T) {
	proto, err := protocol.New(protocol.DefaultConfig())
	require.NoError(t, err)
	defer proto.Close()

	var out bytes.Buffer

	assert.False(t, handleCommand(&out, proto, "pause"))
	assert.True(t, proto.IsPaused())

	out.Reset()
	assert.False(t, handleCommand(&out, proto, "status"))
	assert.Contains(t, out.String(), "PAUSED")
	assert.Contains(t, out.String(), "slot 12")

	assert.False(t, handleCommand(&out, proto, "resume"))
	assert.False(t, proto.IsPaused())

	out.Reset()
	assert.False(t, handleCommand(&out, proto, "dance"))
	assert.Contains(t, out.String(), "Unknown command: dance")

	assert.False(t, handleCommand(&out, proto, "comment refill the reservoir"))
	assert.True(t, handleCommand(&out, proto, "quit"))
}

func TestStatusDuringRun(t *testing.T) {
	s, err := script.Load("../../pkg/script/testdata/plate_fill.yaml")
	require.NoError(t, err)

	cfg := protocol.DefaultConfig()
	cfg.Driver = driver.MustNewSimulator(driver.SimulatorConfig{Latency: time.Millisecond})
	proto, err := protocol.New(cfg)
	require.NoError(t, err)
	defer proto.Close()

	done := make(chan error, 1)
	go func() {
		_, err := script.NewRunner(proto, nil).Run(context.Background(), s)
		done <- err
	}()

	var out bytes.Buffer
	for running := true; running; {
		select {
		case err := <-done:
			require.NoError(t, err)
			running = false
		default:
			handleCommand(&out, proto, "status")
		}
	}

	out.Reset()
	handleCommand(&out, proto, "status")
	assert.Contains(t, out.String(), "p300_single  IDLE  0.00uL")
	assert.Contains(t, out.String(), "tips")
}

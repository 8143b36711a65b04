// Package log captures a structured event trace of a protocol run.
//
// This is separate from operational logging (slog). The run trace is a
// complete machine-readable record of what a run did: every liquid-handling
// command, every comment a script emitted, every state change (tip attached,
// run paused, driver swapped), and every error.
//
// # Basic Usage
//
// A ProtocolContext is configured with a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.EventLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to a binary run log
//	cfg.EventLogger, _ = log.NewFileLogger("/var/log/labrobot/run.rlog")
//
//	// Both
//	cfg.EventLogger = log.NewMultiLogger(console, file)
//
// # File Format
//
// Run logs are a stream of CBOR-encoded events with integer keys, usually
// stored with the .rlog extension. [Reader] iterates a run log with optional
// filtering; the labrobot-log tool views and summarizes them.
package log

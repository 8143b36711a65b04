package commands

import (
	"fmt"
	"io"

	"github.com/labrobot/labrobot-go/pkg/log"
)

const timeFormat = "2006-01-02T15:04:05.000000Z"

// RunView prints every matching event of path in human-readable form.
func RunView(path string, opts FilterOptions, w io.Writer) error {
	filter, err := opts.Build()
	if err != nil {
		return err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(w, event)
	}
}

// formatEvent writes one event as a header line plus detail lines.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format(timeFormat)
	mount := "-"
	if event.Mount.Valid() {
		mount = event.Mount.String()
	}
	fmt.Fprintf(w, "%s [run:%s] %-5s %s\n", ts, shortenRunID(event.RunID), mount, event.Category)

	switch {
	case event.Command != nil:
		c := event.Command
		fmt.Fprintf(w, "  %s", c.Name)
		if c.Volume != 0 {
			fmt.Fprintf(w, " %.2fuL", c.Volume)
		}
		if c.Rate != 0 {
			fmt.Fprintf(w, " rate=%g", c.Rate)
		}
		if c.Duration != 0 {
			fmt.Fprintf(w, " (%s)", c.Duration)
		}
		fmt.Fprintln(w)
		if c.Location != "" {
			fmt.Fprintf(w, "  at %s\n", c.Location)
		}

	case event.Comment != nil:
		fmt.Fprintf(w, "  %s\n", event.Comment.Message)

	case event.StateChange != nil:
		sc := event.StateChange
		old := sc.OldState
		if old == "" {
			old = "-"
		}
		fmt.Fprintf(w, "  %s: %s -> %s\n", sc.Entity, old, sc.NewState)
		if sc.Reason != "" {
			fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
		}

	case event.Error != nil:
		e := event.Error
		if e.Command != "" {
			fmt.Fprintf(w, "  Command: %s\n", e.Command)
		}
		fmt.Fprintf(w, "  %s: %s\n", e.Kind, e.Message)
	}
}

func shortenRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "-"
	}
	return id
}

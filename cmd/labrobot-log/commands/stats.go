package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/labrobot/labrobot-go/pkg/log"
	"github.com/labrobot/labrobot-go/pkg/types"
)

// Stats holds aggregate statistics about a run log.
type Stats struct {
	TotalEvents      int
	EventsByCategory map[log.Category]int
	EventsByMount    map[types.Mount]int
	Commands         map[string]*CommandStats
	ErrorsByKind     map[string]int
	Runs             map[string]int
	TimeRange        struct {
		Start time.Time
		End   time.Time
	}
}

// CommandStats aggregates one command name.
type CommandStats struct {
	Count    int
	Volume   float64
	Duration time.Duration
}

// Collect reads every matching event of path.
func Collect(path string, opts FilterOptions) (*Stats, error) {
	filter, err := opts.Build()
	if err != nil {
		return nil, err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByCategory: make(map[log.Category]int),
		EventsByMount:    make(map[types.Mount]int),
		Commands:         make(map[string]*CommandStats),
		ErrorsByKind:     make(map[string]int),
		Runs:             make(map[string]int),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByCategory[event.Category]++
		stats.Runs[event.RunID]++
		if event.Mount.Valid() {
			stats.EventsByMount[event.Mount]++
		}

		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		if c := event.Command; c != nil {
			cs, ok := stats.Commands[c.Name]
			if !ok {
				cs = &CommandStats{}
				stats.Commands[c.Name] = cs
			}
			cs.Count++
			cs.Volume += c.Volume
			cs.Duration += c.Duration
		}
		if e := event.Error; e != nil {
			stats.ErrorsByKind[e.Kind]++
		}
	}
	return stats, nil
}

// RunStats prints statistics about the matching events of path.
func RunStats(path string, opts FilterOptions, w io.Writer) error {
	stats, err := Collect(path, opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Total events: %d\n", stats.TotalEvents)
	fmt.Fprintf(w, "Runs: %d\n", len(stats.Runs))
	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time range: %s - %s (%s)\n",
			stats.TimeRange.Start.UTC().Format(timeFormat),
			stats.TimeRange.End.UTC().Format(timeFormat),
			stats.TimeRange.End.Sub(stats.TimeRange.Start))
	}

	fmt.Fprintln(w, "\nBy category:")
	for _, c := range log.Categories {
		if n := stats.EventsByCategory[c]; n > 0 {
			fmt.Fprintf(w, "  %s: %d\n", c, n)
		}
	}

	if len(stats.EventsByMount) > 0 {
		fmt.Fprintln(w, "\nBy mount:")
		for _, m := range types.Mounts {
			if n := stats.EventsByMount[m]; n > 0 {
				fmt.Fprintf(w, "  %s: %d\n", m, n)
			}
		}
	}

	if len(stats.Commands) > 0 {
		fmt.Fprintln(w, "\nCommands:")
		for _, name := range sortedKeys(stats.Commands) {
			cs := stats.Commands[name]
			fmt.Fprintf(w, "  %-12s %4d", name, cs.Count)
			if cs.Volume > 0 {
				fmt.Fprintf(w, "  %10.2fuL", cs.Volume)
			}
			fmt.Fprintln(w)
		}
	}

	if len(stats.ErrorsByKind) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		for _, kind := range sortedKeys(stats.ErrorsByKind) {
			fmt.Fprintf(w, "  %s: %d\n", kind, stats.ErrorsByKind[kind])
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

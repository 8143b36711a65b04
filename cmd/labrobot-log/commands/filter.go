// Package commands implements the labrobot-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/labrobot/labrobot-go/pkg/log"
	"github.com/labrobot/labrobot-go/pkg/types"
)

// FilterOptions are the textual filter flags shared by every command.
type FilterOptions struct {
	RunID     string
	Category  string
	Mount     string
	Command   string
	TimeStart string
	TimeEnd   string
}

// Build converts the options to a log.Filter.
func (o FilterOptions) Build() (log.Filter, error) {
	filter := log.Filter{RunID: o.RunID, Command: o.Command}

	if o.Category != "" {
		c, err := ParseCategory(o.Category)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Category = &c
	}

	if o.Mount != "" {
		m, err := types.ParseMount(o.Mount)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Mount = m
	}

	if o.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, o.TimeStart)
		if err != nil {
			return log.Filter{}, fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}

	if o.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, o.TimeEnd)
		if err != nil {
			return log.Filter{}, fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}

	return filter, nil
}

// ParseCategory parses a category name, case-insensitively.
func ParseCategory(s string) (log.Category, error) {
	for _, c := range log.Categories {
		if strings.EqualFold(s, c.String()) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown category: %s (valid: command, comment, state, error)", s)
}

// RunFilter copies the events of path that match opts into output.
func RunFilter(path, output string, opts FilterOptions) (int, error) {
	filter, err := opts.Build()
	if err != nil {
		return 0, err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	writer, err := log.NewFileLogger(output)
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}

	count := 0
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			_ = writer.Close()
			return count, fmt.Errorf("failed to read event: %w", err)
		}
		writer.Log(event)
		count++
	}

	if err := writer.Close(); err != nil {
		return count, err
	}
	if n := writer.Dropped(); n > 0 {
		return count - n, fmt.Errorf("failed to write %d events", n)
	}
	return count, nil
}

package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/labrobot/labrobot-go/pkg/log"
)

// RunExport writes the matching events of path to w as jsonl or csv.
func RunExport(path, format string, opts FilterOptions, w io.Writer) error {
	if format != "jsonl" && format != "csv" {
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}

	filter, err := opts.Build()
	if err != nil {
		return err
	}
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	if format == "jsonl" {
		return exportJSONL(reader, w)
	}
	return exportCSV(reader, w)
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"timestamp", "run_id", "category", "mount", "name", "volume_ul", "location", "detail"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		mount := ""
		if event.Mount.Valid() {
			mount = event.Mount.String()
		}
		var name, volume, location, detail string
		switch {
		case event.Command != nil:
			name = event.Command.Name
			volume = strconv.FormatFloat(event.Command.Volume, 'f', -1, 64)
			location = event.Command.Location
		case event.Comment != nil:
			detail = event.Comment.Message
		case event.StateChange != nil:
			name = event.StateChange.Entity.String()
			detail = event.StateChange.OldState + "->" + event.StateChange.NewState
		case event.Error != nil:
			name = event.Error.Kind
			detail = event.Error.Message
		}

		row := []string{
			event.Timestamp.UTC().Format(timeFormat),
			event.RunID,
			event.Category.String(),
			mount,
			name,
			volume,
			location,
			detail,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return cw.Error()
}

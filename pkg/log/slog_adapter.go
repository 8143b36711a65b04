package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes run events to an slog.Logger. Comments are logged at
// info, errors at warn, everything else at debug.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter returns an adapter writing to logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("run_id", event.RunID),
		slog.String("category", event.Category.String()),
	}
	if event.Mount.Valid() {
		attrs = append(attrs, slog.String("mount", event.Mount.String()))
	}

	level := slog.LevelDebug
	switch {
	case event.Command != nil:
		attrs = append(attrs, slog.String("command", event.Command.Name))
		if event.Command.Volume != 0 {
			attrs = append(attrs, slog.Float64("volume_ul", event.Command.Volume))
		}
		if event.Command.Location != "" {
			attrs = append(attrs, slog.String("location", event.Command.Location))
		}
		if event.Command.Rate != 0 {
			attrs = append(attrs, slog.Float64("rate", event.Command.Rate))
		}
		if event.Command.Duration != 0 {
			attrs = append(attrs, slog.Duration("duration", event.Command.Duration))
		}
	case event.Comment != nil:
		level = slog.LevelInfo
		attrs = append(attrs, slog.String("comment", event.Comment.Message))
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Error != nil:
		level = slog.LevelWarn
		attrs = append(attrs,
			slog.String("error_kind", event.Error.Kind),
			slog.String("error_msg", event.Error.Message),
		)
		if event.Error.Command != "" {
			attrs = append(attrs, slog.String("command", event.Error.Command))
		}
	}

	a.logger.LogAttrs(context.Background(), level, "run event", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)

package log

import (
	"context"
	"encoding/hex"
	"log/slog"
)

// SlogAdapter writes trace events to an slog.Logger at debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates an adapter writing to logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event as one "trace" record.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session", event.SessionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}
	if event.Address != "" {
		attrs = append(attrs, slog.String("addr", event.Address))
	}
	if event.GroupID != nil {
		attrs = append(attrs, slog.Int("group", *event.GroupID))
	}

	switch {
	case event.Command != nil:
		c := event.Command
		attrs = append(attrs, slog.String("op", c.Operation))
		if c.EndpointID != nil {
			attrs = append(attrs, slog.Uint64("ase", uint64(*c.EndpointID)))
		}
		if c.StreamID != nil {
			attrs = append(attrs, slog.Uint64("stream", uint64(*c.StreamID)))
		}
		if c.Detail != "" {
			attrs = append(attrs, slog.String("detail", c.Detail))
		}
	case event.Notification != nil:
		n := event.Notification
		attrs = append(attrs, slog.String("event", n.Type))
		if n.EndpointID != nil {
			attrs = append(attrs, slog.Uint64("ase", uint64(*n.EndpointID)))
		}
		if n.StreamID != nil {
			attrs = append(attrs, slog.Uint64("stream", uint64(*n.StreamID)))
		}
		if n.Status != nil {
			attrs = append(attrs, slog.Uint64("status", uint64(*n.Status)))
		}
		if n.Detail != "" {
			attrs = append(attrs, slog.String("detail", n.Detail))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Offload != nil:
		o := event.Offload
		attrs = append(attrs,
			slog.String("cmd_id", o.CommandID),
			slog.Bool("start", o.Start),
			slog.String("step", o.Step.String()),
		)
		if len(o.Params) > 0 {
			attrs = append(attrs, slog.String("params", hex.EncodeToString(o.Params)))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
		if event.Error.Code != nil {
			attrs = append(attrs, slog.Int("error_code", *event.Error.Code))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "trace", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)

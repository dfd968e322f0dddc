// Package commands implements the leaudio-log CLI commands.
package commands

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/leaudio/leaudio-go/pkg/log"
)

// timeFormat is used for every timestamp the tool prints.
const timeFormat = "2006-01-02T15:04:05.000000Z"

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [session] DIRECTION LAYER Type addr group
	ts := event.Timestamp.UTC().Format(timeFormat)
	fmt.Fprintf(w, "%s [%s] %-3s %s %s", ts, shortenSessionID(event.SessionID),
		event.Direction, event.Layer, eventType(event))
	if event.Address != "" {
		fmt.Fprintf(w, " %s", event.Address)
	}
	if event.GroupID != nil {
		fmt.Fprintf(w, " group=%d", *event.GroupID)
	}
	fmt.Fprintln(w)

	switch {
	case event.Command != nil:
		formatCommandDetails(w, event.Command)
	case event.Notification != nil:
		formatNotificationDetails(w, event.Notification)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Offload != nil:
		formatOffloadDetails(w, event.Offload)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

// eventType returns the label of the event's payload.
func eventType(event log.Event) string {
	switch {
	case event.Command != nil:
		return event.Command.Operation
	case event.Notification != nil:
		return event.Notification.Type
	case event.StateChange != nil:
		return "State"
	case event.Offload != nil:
		return "Offload"
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

// shortenSessionID returns the first 8 characters of the session id.
func shortenSessionID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatCommandDetails(w io.Writer, c *log.CommandEvent) {
	if c.EndpointID != nil {
		fmt.Fprintf(w, "  ASE: %d\n", *c.EndpointID)
	}
	if c.StreamID != nil {
		fmt.Fprintf(w, "  Stream: %d\n", *c.StreamID)
	}
	if c.Detail != "" {
		fmt.Fprintf(w, "  Detail: %s\n", c.Detail)
	}
}

func formatNotificationDetails(w io.Writer, n *log.NotificationEvent) {
	if n.EndpointID != nil {
		fmt.Fprintf(w, "  ASE: %d\n", *n.EndpointID)
	}
	if n.StreamID != nil {
		fmt.Fprintf(w, "  Stream: %d\n", *n.StreamID)
	}
	if n.Status != nil {
		fmt.Fprintf(w, "  Status: %#02x\n", *n.Status)
	}
	if n.Detail != "" {
		fmt.Fprintf(w, "  Detail: %s\n", n.Detail)
	}
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity)
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatOffloadDetails(w io.Writer, o *log.OffloadEvent) {
	kind := "stop"
	if o.Start {
		kind = "start"
	}
	fmt.Fprintf(w, "  Command: %s %s %s\n", o.CommandID, kind, o.Step)
	if o.OGF != 0 || o.OCF != 0 {
		fmt.Fprintf(w, "  Opcode: OGF=%#02x OCF=%#04x\n", o.OGF, o.OCF)
	}
	if len(o.Params) > 0 {
		fmt.Fprintf(w, "  Params: %s\n", hex.EncodeToString(o.Params))
	}
}

func formatErrorDetails(w io.Writer, e *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", e.Layer)
	fmt.Fprintf(w, "  Message: %s\n", e.Message)
	if e.Code != nil {
		fmt.Fprintf(w, "  Code: %d\n", *e.Code)
	}
	if e.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", e.Context)
	}
}

// ParseLayerFlag parses a layer name (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "controller":
		return log.LayerController, nil
	case "service":
		return log.LayerService, nil
	case "offload":
		return log.LayerOffload, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be controller, service, or offload)", s)
	}
}

// ParseDirectionFlag parses a direction name (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategoryFlag parses a category name (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "command":
		return log.CategoryCommand, nil
	case "event":
		return log.CategoryEvent, nil
	case "state":
		return log.CategoryState, nil
	case "offload":
		return log.CategoryOffload, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be command, event, state, offload, or error)", s)
	}
}

// RunView prints the events of path matching filter.
func RunView(path string, filter log.Filter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}
}

package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/leaudio/leaudio-go/pkg/log"
)

// Stats holds aggregate statistics about a trace file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Commands          map[string]int
	OffloadSteps      map[log.OffloadStep]int
	Devices           map[string]*DeviceStats
	Sessions          map[string]bool
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// DeviceStats holds statistics for a single remote device.
type DeviceStats struct {
	FirstSeen   time.Time
	LastSeen    time.Time
	Events      int
	Transitions int
	LastState   string
}

// Collect reads path and aggregates its events.
func Collect(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Commands:          make(map[string]int),
		OffloadSteps:      make(map[log.OffloadStep]int),
		Devices:           make(map[string]*DeviceStats),
		Sessions:          make(map[string]bool),
	}

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++
	if event.SessionID != "" {
		s.Sessions[event.SessionID] = true
	}

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	switch {
	case event.Command != nil:
		s.Commands[event.Command.Operation]++
	case event.Offload != nil:
		s.OffloadSteps[event.Offload.Step]++
	case event.Error != nil:
		s.Errors++
	}

	if event.Address == "" {
		return
	}
	dev, ok := s.Devices[event.Address]
	if !ok {
		dev = &DeviceStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
		s.Devices[event.Address] = dev
	}
	dev.Events++
	if event.Timestamp.After(dev.LastSeen) {
		dev.LastSeen = event.Timestamp
	}
	if sc := event.StateChange; sc != nil && sc.Entity == log.StateEntityDevice {
		dev.Transitions++
		dev.LastState = sc.NewState
	}
}

// RunStats analyzes path and prints the statistics.
func RunStats(path string, w io.Writer) error {
	stats, err := Collect(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== LE Audio Trace Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Millisecond))
		fmt.Fprintf(w, "Sessions:   %d\n", len(stats.Sessions))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerController, log.LayerService, log.LayerOffload} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryCommand, log.CategoryEvent, log.CategoryState, log.CategoryOffload, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", dir.String()+":", count)
		}
	}

	if len(stats.Commands) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Commands:")
		ops := make([]string, 0, len(stats.Commands))
		for op := range stats.Commands {
			ops = append(ops, op)
		}
		sort.Strings(ops)
		for _, op := range ops {
			fmt.Fprintf(w, "  %-22s %d\n", op+":", stats.Commands[op])
		}
	}

	if len(stats.OffloadSteps) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Offload:")
		for _, step := range []log.OffloadStep{log.OffloadSent, log.OffloadCompleted, log.OffloadFailed, log.OffloadTimedOut, log.OffloadIgnored} {
			if count := stats.OffloadSteps[step]; count > 0 {
				fmt.Fprintf(w, "  %-12s %d\n", step.String()+":", count)
			}
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Devices: %d\n", len(stats.Devices))
	addrs := make([]string, 0, len(stats.Devices))
	for addr := range stats.Devices {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	for _, addr := range addrs {
		d := stats.Devices[addr]
		fmt.Fprintf(w, "  [%s] %d events, %d transitions, duration %s\n",
			addr, d.Events, d.Transitions, d.LastSeen.Sub(d.FirstSeen).Round(time.Millisecond))
		if d.LastState != "" {
			fmt.Fprintf(w, "           Last state: %s\n", d.LastState)
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}

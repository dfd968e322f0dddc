package commands

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/leaudio/leaudio-go/pkg/bdaddr"
	"github.com/leaudio/leaudio-go/pkg/log"
)

// FilterOptions holds the filter criteria as given on the command line.
// Empty fields match everything.
type FilterOptions struct {
	Output    string
	SessionID string
	Address   string
	GroupID   string
	TimeStart string
	TimeEnd   string
	Layer     string
	Direction string
	Category  string
}

// Build converts the options to a log.Filter.
func (o FilterOptions) Build() (log.Filter, error) {
	filter := log.Filter{SessionID: o.SessionID}

	if o.Address != "" {
		addr, err := bdaddr.Parse(o.Address)
		if err != nil {
			return filter, err
		}
		filter.Address = addr.String()
	}

	if o.GroupID != "" {
		id, err := strconv.Atoi(o.GroupID)
		if err != nil {
			return filter, fmt.Errorf("invalid group id: %s", o.GroupID)
		}
		filter.GroupID = &id
	}

	if o.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, o.TimeStart)
		if err != nil {
			return filter, fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}

	if o.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, o.TimeEnd)
		if err != nil {
			return filter, fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}

	if o.Layer != "" {
		l, err := ParseLayerFlag(o.Layer)
		if err != nil {
			return filter, err
		}
		filter.Layer = &l
	}

	if o.Direction != "" {
		d, err := ParseDirectionFlag(o.Direction)
		if err != nil {
			return filter, err
		}
		filter.Direction = &d
	}

	if o.Category != "" {
		c, err := ParseCategoryFlag(o.Category)
		if err != nil {
			return filter, err
		}
		filter.Category = &c
	}

	return filter, nil
}

// RunFilter writes the events of path matching opts to opts.Output and
// returns how many were written.
func RunFilter(path string, opts FilterOptions) (int, error) {
	filter, err := opts.Build()
	if err != nil {
		return 0, err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	logger, err := log.NewFileLogger(opts.Output)
	if err != nil {
		return 0, fmt.Errorf("failed to create output logger: %w", err)
	}

	count := 0
	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.Close()
			return count, fmt.Errorf("failed to read event: %w", err)
		}
		logger.Log(event)
		count++
	}
	return count, logger.Close()
}

package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/leaudio/leaudio-go/pkg/log"
)

func TestFormatCommandEvent(t *testing.T) {
	ts := time.Date(2026, 3, 2, 9, 30, 12, 345678000, time.UTC)
	ase := uint8(3)
	streamID := uint32(0x101)
	event := log.Event{
		Timestamp: ts,
		SessionID: "9c4e12ab-0d6f-4a7e-9b51-3f0a2e8c7d11",
		Direction: log.DirectionOut,
		Layer:     log.LayerController,
		Category:  log.CategoryCommand,
		Address:   "00:1B:DC:0F:10:01",
		GroupID:   intPtr(0),
		Command: &log.CommandEvent{
			Operation:  "CONFIG_CODEC",
			EndpointID: &ase,
			StreamID:   &streamID,
			Detail:     "preset=16_2",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	for _, want := range []string{
		"2026-03-02T09:30:12.345678Z",
		"[9c4e12ab]",
		"OUT",
		"CONTROLLER",
		"CONFIG_CODEC",
		"00:1B:DC:0F:10:01",
		"group=0",
		"ASE: 3",
		"Stream: 257",
		"Detail: preset=16_2",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestFormatNotificationEvent(t *testing.T) {
	status := uint8(0x07)
	event := log.Event{
		Timestamp: time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
		Direction: log.DirectionIn,
		Layer:     log.LayerController,
		Category:  log.CategoryEvent,
		Notification: &log.NotificationEvent{
			Type:   "OPERATION_COMPLETED",
			Status: &status,
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "IN ") {
		t.Errorf("expected IN direction, got: %s", output)
	}
	if !strings.Contains(output, "OPERATION_COMPLETED") {
		t.Errorf("expected notification type, got: %s", output)
	}
	if !strings.Contains(output, "Status: 0x07") {
		t.Errorf("expected status, got: %s", output)
	}
	if strings.Contains(output, "group=") {
		t.Errorf("did not expect a group, got: %s", output)
	}
}

func TestFormatStateChangeEvent(t *testing.T) {
	event := log.Event{
		Timestamp: time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
		Layer:     log.LayerService,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityDevice,
			OldState: "OPENED",
			NewState: "STARTED",
			Reason:   "enabling",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	for _, want := range []string{"State", "Entity: DEVICE", "OPENED -> STARTED", "Reason: enabling"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestFormatOffloadEvent(t *testing.T) {
	event := log.Event{
		Timestamp: time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
		Direction: log.DirectionOut,
		Layer:     log.LayerOffload,
		Category:  log.CategoryOffload,
		Offload: &log.OffloadEvent{
			CommandID: "7",
			Start:     true,
			Step:      log.OffloadSent,
			OGF:       0x3f,
			OCF:       0x0150,
			Params:    []byte{0x01, 0x02},
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	for _, want := range []string{"Offload", "Command: 7 start SENT", "OGF=0x3f", "OCF=0x0150", "Params: 0102"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestFormatErrorEvent(t *testing.T) {
	code := 7
	event := log.Event{
		Timestamp: time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
		Layer:     log.LayerService,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerController,
			Message: "codec configuration rejected",
			Code:    &code,
			Context: "CONFIG_CODEC",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	for _, want := range []string{"Error", "Message: codec configuration rejected", "Code: 7", "Context: CONFIG_CODEC"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestRunViewAppliesFilter(t *testing.T) {
	ts := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, Layer: log.LayerController, Category: log.CategoryCommand, Command: &log.CommandEvent{Operation: "ENABLE"}},
		{Timestamp: ts, Layer: log.LayerService, Category: log.CategoryState, StateChange: &log.StateChangeEvent{NewState: "STARTED"}},
	}
	path := createTestLogFile(t, events)

	layer := log.LayerController
	var buf bytes.Buffer
	if err := RunView(path, log.Filter{Layer: &layer}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "ENABLE") {
		t.Errorf("expected ENABLE command, got: %s", output)
	}
	if strings.Contains(output, "STARTED") {
		t.Errorf("state change should be filtered out, got: %s", output)
	}
}

func TestRunViewMissingFile(t *testing.T) {
	var buf bytes.Buffer
	if err := RunView("/nonexistent/trace"+log.Extension, log.Filter{}, &buf); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseLayer(t *testing.T) {
	tests := []struct {
		input   string
		want    log.Layer
		wantErr bool
	}{
		{"controller", log.LayerController, false},
		{"CONTROLLER", log.LayerController, false},
		{"service", log.LayerService, false},
		{"Offload", log.LayerOffload, false},
		{"transport", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLayerFlag(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLayerFlag(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseLayerFlag(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		input   string
		want    log.Direction
		wantErr bool
	}{
		{"in", log.DirectionIn, false},
		{"OUT", log.DirectionOut, false},
		{"both", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDirectionFlag(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDirectionFlag(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseDirectionFlag(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		input   string
		want    log.Category
		wantErr bool
	}{
		{"command", log.CategoryCommand, false},
		{"event", log.CategoryEvent, false},
		{"State", log.CategoryState, false},
		{"offload", log.CategoryOffload, false},
		{"ERROR", log.CategoryError, false},
		{"message", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCategoryFlag(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCategoryFlag(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseCategoryFlag(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

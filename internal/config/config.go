// Package config loads the YAML configuration of the reference client.
//
// Example file:
//
//	log:
//	  level: debug
//	  trace: /tmp/session.lalog
//	limits:
//	  max_groups: 16
//	  max_cis: 32
//	offload:
//	  enabled: true
//	  timeout: 500ms
//	presets:
//	  voice: ["16_2", "8_2"]
//	devices:
//	  - addr: "00:11:22:33:44:01"
//	    set_key: "000102030405060708090a0b0c0d0e0f"
//	    rank: 1
//	    contexts: [conversational, media]
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/leaudio/leaudio-go/pkg/bdaddr"
	"github.com/leaudio/leaudio-go/pkg/codec"
	"github.com/leaudio/leaudio-go/pkg/group"
	"github.com/leaudio/leaudio-go/pkg/service"
)

// Errors returned while validating a file.
var (
	ErrInvalidLevel   = errors.New("invalid log level")
	ErrInvalidContext = errors.New("invalid usage context")
	ErrDuplicateAddr  = errors.New("duplicate device address")
)

// File is the top-level document.
type File struct {
	Log     Log               `yaml:"log"`
	Limits  Limits            `yaml:"limits"`
	Offload Offload           `yaml:"offload"`
	Presets codec.PresetOrder `yaml:"presets"`
	Devices []Device          `yaml:"devices"`
}

// Log selects the operational log level and the trace file.
type Log struct {
	Level string `yaml:"level"`
	Trace string `yaml:"trace"`
}

// Limits bounds the service pools. Zero keeps the default.
type Limits struct {
	MaxGroups    int `yaml:"max_groups"`
	MaxCIS       int `yaml:"max_cis"`
	MaxObservers int `yaml:"max_observers"`
	QueueSize    int `yaml:"queue_size"`
}

// Offload configures the vendor offload handshake.
type Offload struct {
	Enabled bool          `yaml:"enabled"`
	Timeout time.Duration `yaml:"timeout"`
}

// Device describes one simulated remote device.
type Device struct {
	Addr     bdaddr.Addr `yaml:"addr"`
	SetKey   string      `yaml:"set_key"`
	Rank     uint8       `yaml:"rank"`
	Contexts []string    `yaml:"contexts"`

	// SinkEndpoints and SourceEndpoints default to one each.
	SinkEndpoints   int `yaml:"sink_endpoints"`
	SourceEndpoints int `yaml:"source_endpoints"`
}

// LoadError reports a file that could not be loaded.
type LoadError struct {
	File    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.File, e.Message, e.Cause)
	}
	return e.File + ": " + e.Message
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Parse decodes and validates a document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Load reads and parses path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: "failed to read file", Cause: err}
	}
	f, err := Parse(data)
	if err != nil {
		return nil, &LoadError{File: path, Message: "invalid configuration", Cause: err}
	}
	return f, nil
}

// Validate checks names and values that YAML decoding cannot.
func (f *File) Validate() error {
	if _, err := f.Log.SlogLevel(); err != nil {
		return err
	}
	if _, err := codec.NewNegotiator(f.Presets); err != nil {
		return err
	}
	seen := make(map[bdaddr.Addr]bool, len(f.Devices))
	for i, d := range f.Devices {
		if seen[d.Addr] {
			return fmt.Errorf("devices[%d]: %w: %s", i, ErrDuplicateAddr, d.Addr)
		}
		seen[d.Addr] = true
		if _, _, err := d.Key(); err != nil {
			return fmt.Errorf("devices[%d]: %w", i, err)
		}
		if _, err := d.ContextMask(); err != nil {
			return fmt.Errorf("devices[%d]: %w", i, err)
		}
	}
	return nil
}

// SlogLevel maps the level name. An empty name is info.
func (l Log) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLevel, l.Level)
	}
}

// Apply copies the non-zero settings onto cfg.
func (f *File) Apply(cfg *service.Config) {
	if f.Limits.MaxGroups > 0 {
		cfg.MaxGroups = f.Limits.MaxGroups
	}
	if f.Limits.MaxCIS > 0 {
		cfg.MaxCIS = f.Limits.MaxCIS
	}
	if f.Limits.MaxObservers > 0 {
		cfg.MaxObservers = f.Limits.MaxObservers
	}
	if f.Limits.QueueSize > 0 {
		cfg.QueueSize = f.Limits.QueueSize
	}
	cfg.OffloadEnabled = f.Offload.Enabled
	if f.Offload.Timeout > 0 {
		cfg.OffloadTimeout = f.Offload.Timeout
	}
	if len(f.Presets.Voice) > 0 {
		cfg.Presets.Voice = f.Presets.Voice
	}
	if len(f.Presets.Media) > 0 {
		cfg.Presets.Media = f.Presets.Media
	}
	if len(f.Presets.Live) > 0 {
		cfg.Presets.Live = f.Presets.Live
	}
}

// Key returns the device's set key; ok is false when it has none.
func (d Device) Key() (key group.SetKey, ok bool, err error) {
	if d.SetKey == "" {
		return key, false, nil
	}
	key, err = group.ParseSetKey(d.SetKey)
	if err != nil {
		return key, false, err
	}
	return key, true, nil
}

// ContextMask returns the advertised contexts as a bitmask. No contexts
// means conversational and media.
func (d Device) ContextMask() (uint16, error) {
	if len(d.Contexts) == 0 {
		return codec.ContextConversational.Bit() | codec.ContextMedia.Bit(), nil
	}
	var mask uint16
	for _, name := range d.Contexts {
		ctx, ok := codec.ParseContext(name)
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrInvalidContext, name)
		}
		mask |= ctx.Bit()
	}
	return mask, nil
}

// Endpoints returns the number of sink and source endpoints.
func (d Device) Endpoints() (sink, source int) {
	sink, source = d.SinkEndpoints, d.SourceEndpoints
	if sink == 0 && source == 0 {
		return 1, 1
	}
	return sink, source
}

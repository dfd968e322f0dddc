package service

import (
	"errors"
	"log/slog"
	"time"

	"github.com/leaudio/leaudio-go/pkg/codec"
	"github.com/leaudio/leaudio-go/pkg/group"
	"github.com/leaudio/leaudio-go/pkg/log"
	"github.com/leaudio/leaudio-go/pkg/observer"
	"github.com/leaudio/leaudio-go/pkg/offload"
)

// ServiceState represents the lifecycle state of the service.
type ServiceState uint8

const (
	// StateIdle - service created but not started.
	StateIdle ServiceState = iota

	// StateStarting - service is starting.
	StateStarting

	// StateRunning - service loop is running.
	StateRunning

	// StateStopping - service is shutting down.
	StateStopping

	// StateStopped - service has stopped.
	StateStopped
)

// String returns the state name.
func (s ServiceState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateStarting:
		return "STARTING"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Service errors. Errors from the registry, negotiator and stream table are
// wrapped into one of the first five so callers can classify them with
// errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrNotSupported      = errors.New("not supported")
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrInvalidState      = errors.New("invalid state")
	ErrNotEnabled        = errors.New("service not enabled")

	ErrAlreadyStarted = errors.New("service already started")
	ErrNotStarted     = errors.New("service not started")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// Defaults.
const (
	// DefaultMaxCIS bounds the CIS id pool.
	DefaultMaxCIS = 32

	// DefaultQueueSize is the depth of the API request queue.
	DefaultQueueSize = 64
)

// Config configures a Service.
type Config struct {
	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// ProtocolLogger receives the trace of commands, controller events
	// and transitions. If nil, tracing is disabled.
	ProtocolLogger log.Logger

	// MaxGroups bounds the number of groups including the default group.
	MaxGroups int

	// MaxCIS bounds the number of CIS ids handed out to devices.
	MaxCIS int

	// MaxObservers bounds the number of registered callback sets.
	MaxObservers int

	// QueueSize bounds pending API requests. Controller events are not
	// counted against it.
	QueueSize int

	// OffloadEnabled routes started streams through the vendor offload
	// handshake before audio is brought up.
	OffloadEnabled bool

	// OffloadTimeout bounds an outstanding vendor command.
	OffloadTimeout time.Duration

	// OffloadBuilder encodes vendor commands. Nil uses offload.DefaultBuilder.
	OffloadBuilder offload.Builder

	// Presets overrides the negotiation order per context class.
	Presets codec.PresetOrder
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxGroups:      group.DefaultMaxGroups,
		MaxCIS:         DefaultMaxCIS,
		MaxObservers:   observer.DefaultCapacity,
		QueueSize:      DefaultQueueSize,
		OffloadTimeout: offload.DefaultTimeout,
		Presets:        codec.DefaultPresetOrder(),
	}
}

// Validate checks if the config is valid.
func (c *Config) Validate() error {
	if c.MaxGroups < 1 || c.MaxCIS < 1 || c.MaxObservers < 1 || c.QueueSize < 1 {
		return ErrInvalidConfig
	}
	if c.OffloadEnabled && c.OffloadTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// LinkState is the link-level connection state of a device.
type LinkState uint8

const (
	LinkDisconnected LinkState = iota
	LinkConnected
)

// String returns the link state name.
func (s LinkState) String() string {
	switch s {
	case LinkDisconnected:
		return "DISCONNECTED"
	case LinkConnected:
		return "CONNECTED"
	default:
		return "UNKNOWN"
	}
}

// ASEOperation is an ASE control point operation reported complete by the
// controller.
type ASEOperation uint8

const (
	OpConfigCodec ASEOperation = iota + 1
	OpConfigQoS
	OpEnable
	OpDisable
	OpRelease
	OpUpdateMetadata
)

// String returns the operation name.
func (o ASEOperation) String() string {
	switch o {
	case OpConfigCodec:
		return "CONFIG_CODEC"
	case OpConfigQoS:
		return "CONFIG_QOS"
	case OpEnable:
		return "ENABLE"
	case OpDisable:
		return "DISABLE"
	case OpRelease:
		return "RELEASE"
	case OpUpdateMetadata:
		return "UPDATE_METADATA"
	default:
		return "UNKNOWN"
	}
}

package offload

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/leaudio/leaudio-go/pkg/codec"
)

// Vendor command opcode fields.
const (
	VendorOGF uint8  = 0x3F
	OCFStart  uint16 = 0x0170
	OCFStop   uint16 = 0x0171

	subStart uint8 = 0x01
	subStop  uint8 = 0x02
)

// MaxStreamsPerRole bounds the streams routed per role.
const MaxStreamsPerRole = 4

// Payload errors.
var (
	ErrTooManyStreams = errors.New("too many offload streams for role")
	ErrNoActiveRole   = errors.New("no active role to offload")
)

// StreamInfo is one routed stream.
type StreamInfo struct {
	Handle     uint16 `cbor:"1,keyasint"`
	Allocation uint32 `cbor:"2,keyasint"`
}

// RoleConfig is the routing for one role.
type RoleConfig struct {
	Active  bool         `cbor:"1,keyasint"`
	Streams []StreamInfo `cbor:"2,keyasint,omitempty"`
	Codec   codec.Config `cbor:"3,keyasint"`
}

// Config is the routing handed to the offload path for one device,
// indexed by codec.Role.
type Config struct {
	Roles [codec.RoleCount]RoleConfig `cbor:"1,keyasint"`
}

// Validate checks stream counts and that at least one role is active.
func (c Config) Validate() error {
	active := false
	for i, r := range c.Roles {
		if len(r.Streams) > MaxStreamsPerRole {
			return fmt.Errorf("%w: %s has %d", ErrTooManyStreams, codec.Role(i), len(r.Streams))
		}
		if r.Active {
			active = true
		}
	}
	if !active {
		return ErrNoActiveRole
	}
	return nil
}

// Command is a vendor HCI command with its correlation id.
type Command struct {
	ID     uuid.UUID `cbor:"1,keyasint"`
	Start  bool      `cbor:"2,keyasint"`
	OGF    uint8     `cbor:"3,keyasint"`
	OCF    uint16    `cbor:"4,keyasint"`
	Params []byte    `cbor:"5,keyasint"`
}

// Opcode returns the combined 16-bit HCI opcode.
func (c Command) Opcode() uint16 {
	return uint16(c.OGF)<<10 | c.OCF&0x03FF
}

// Builder turns routing configuration into vendor commands.
type Builder interface {
	BuildStart(cfg Config) (Command, error)
	BuildStop(cfg Config) (Command, error)
}

// DefaultBuilder encodes little-endian vendor payloads.
//
// Start layout: sub-opcode, then per role: active, stream count, per
// stream (handle u16, allocation u32), and for active roles the sample
// rate u32, frame duration in microseconds u16, octets u16 and blocks u8.
// Stop layout: sub-opcode, then per role: active, stream count, handles.
type DefaultBuilder struct{}

// BuildStart implements Builder.
func (DefaultBuilder) BuildStart(cfg Config) (Command, error) {
	if err := cfg.Validate(); err != nil {
		return Command{}, err
	}

	buf := []byte{subStart}
	for _, r := range cfg.Roles {
		buf = appendRole(buf, r, true)
	}
	return Command{ID: uuid.New(), Start: true, OGF: VendorOGF, OCF: OCFStart, Params: buf}, nil
}

// BuildStop implements Builder.
func (DefaultBuilder) BuildStop(cfg Config) (Command, error) {
	if err := cfg.Validate(); err != nil {
		return Command{}, err
	}

	buf := []byte{subStop}
	for _, r := range cfg.Roles {
		buf = appendRole(buf, r, false)
	}
	return Command{ID: uuid.New(), OGF: VendorOGF, OCF: OCFStop, Params: buf}, nil
}

func appendRole(buf []byte, r RoleConfig, withCodec bool) []byte {
	active := uint8(0)
	if r.Active {
		active = 1
	}
	buf = append(buf, active, uint8(len(r.Streams)))
	for _, s := range r.Streams {
		buf = binary.LittleEndian.AppendUint16(buf, s.Handle)
		if withCodec {
			buf = binary.LittleEndian.AppendUint32(buf, s.Allocation)
		}
	}
	if withCodec && r.Active {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(r.Codec.SampleRate()))
		buf = binary.LittleEndian.AppendUint16(buf, uint16(r.Codec.Duration.Micros()))
		buf = binary.LittleEndian.AppendUint16(buf, r.Codec.Octets)
		buf = append(buf, r.Codec.Blocks)
	}
	return buf
}

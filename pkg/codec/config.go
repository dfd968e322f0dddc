package codec

import "math/bits"

// TargetLatency is the latency target requested when configuring an
// endpoint.
type TargetLatency uint8

const (
	LatencyLow             TargetLatency = 1
	LatencyBalanced        TargetLatency = 2
	LatencyHighReliability TargetLatency = 3
)

// PHY is the target PHY requested when configuring an endpoint.
type PHY uint8

const (
	PHY1M    PHY = 1
	PHY2M    PHY = 2
	PHYCoded PHY = 3
)

// Defaults applied to a negotiated configuration.
const (
	DefaultBlocks     uint8  = 1
	DefaultAllocation uint32 = 0x01
	BitsPerSample            = 16
)

// ChannelMode is the channel layout handed to the audio subsystem.
type ChannelMode uint8

const (
	ChannelMono   ChannelMode = 1
	ChannelStereo ChannelMode = 2
)

// String returns the mode name.
func (m ChannelMode) String() string {
	switch m {
	case ChannelMono:
		return "MONO"
	case ChannelStereo:
		return "STEREO"
	default:
		return "UNKNOWN"
	}
}

// Config is a negotiated codec configuration for one endpoint.
type Config struct {
	CodecID       ID            `cbor:"1,keyasint"`
	Preset        string        `cbor:"2,keyasint,omitempty"`
	Frequency     Frequency     `cbor:"3,keyasint"`
	Duration      FrameDuration `cbor:"4,keyasint"`
	Octets        uint16        `cbor:"5,keyasint"`
	Blocks        uint8         `cbor:"6,keyasint"`
	Allocation    uint32        `cbor:"7,keyasint"`
	TargetLatency TargetLatency `cbor:"8,keyasint"`
	TargetPHY     PHY           `cbor:"9,keyasint"`
}

// IsZero reports whether the configuration was never negotiated.
func (c Config) IsZero() bool {
	return c.Frequency == 0 && c.Octets == 0
}

// SampleRate returns the sampling rate in Hz.
func (c Config) SampleRate() int {
	return c.Frequency.Hz()
}

// Channels returns the number of audio channels implied by the allocation.
func (c Config) Channels() int {
	n := bits.OnesCount32(c.Allocation)
	if n == 0 {
		return 1
	}
	return n
}

// Mode returns the channel mode for the audio subsystem.
func (c Config) Mode() ChannelMode {
	if c.Channels() >= 2 {
		return ChannelStereo
	}
	return ChannelMono
}

// FrameSamples returns the number of PCM samples per channel in one frame.
func (c Config) FrameSamples() int {
	return c.SampleRate() * c.Duration.Micros() / 1_000_000
}

// BitRate returns the encoded bit rate in bits per second.
func (c Config) BitRate() int {
	us := c.Duration.Micros()
	if us == 0 {
		return 0
	}
	return 8 * c.Channels() * int(c.Octets) * 1_000_000 / us
}

// PacketSize returns the SDU size in bytes.
func (c Config) PacketSize() int {
	blocks := int(c.Blocks)
	if blocks == 0 {
		blocks = 1
	}
	return int(c.Octets) * c.Channels() * blocks
}

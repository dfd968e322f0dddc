package codec

import "fmt"

// ID identifies a codec in a capability record or codec configuration.
type ID uint8

// IDLC3 is the LC3 coding format.
const IDLC3 ID = 0x06

// Frequency is an LE Audio sampling frequency code. Code n occupies bit
// n-1 of a supported-frequency bitmask.
type Frequency uint8

const (
	Freq8000   Frequency = 1
	Freq11025  Frequency = 2
	Freq16000  Frequency = 3
	Freq22050  Frequency = 4
	Freq24000  Frequency = 5
	Freq32000  Frequency = 6
	Freq44100  Frequency = 7
	Freq48000  Frequency = 8
	Freq88200  Frequency = 9
	Freq96000  Frequency = 10
	Freq176400 Frequency = 11
	Freq192000 Frequency = 12
	Freq384000 Frequency = 13
)

var frequencyHz = map[Frequency]int{
	Freq8000:   8000,
	Freq11025:  11025,
	Freq16000:  16000,
	Freq22050:  22050,
	Freq24000:  24000,
	Freq32000:  32000,
	Freq44100:  44100,
	Freq48000:  48000,
	Freq88200:  88200,
	Freq96000:  96000,
	Freq176400: 176400,
	Freq192000: 192000,
	Freq384000: 384000,
}

// Hz returns the sampling rate, or 0 for an unknown code.
func (f Frequency) Hz() int {
	return frequencyHz[f]
}

// Mask returns the frequency's bit in a supported-frequency bitmask.
func (f Frequency) Mask() uint16 {
	if f == 0 {
		return 0
	}
	return 1 << uint16(f-1)
}

// String returns the rate in Hz.
func (f Frequency) String() string {
	if hz := f.Hz(); hz != 0 {
		return fmt.Sprintf("%dHz", hz)
	}
	return "UNKNOWN"
}

// FrequencyMask builds a supported-frequency bitmask.
func FrequencyMask(freqs ...Frequency) uint16 {
	var m uint16
	for _, f := range freqs {
		m |= f.Mask()
	}
	return m
}

// FrameDuration is an LC3 frame duration code.
type FrameDuration uint8

const (
	Duration7_5 FrameDuration = 0
	Duration10  FrameDuration = 1
)

// Frame duration bitmask bits in a capability record.
const (
	DurationSupported7_5 uint8 = 1 << 0
	DurationSupported10  uint8 = 1 << 1
	DurationPreferred7_5 uint8 = 1 << 4
	DurationPreferred10  uint8 = 1 << 5
)

// Micros returns the frame duration in microseconds.
func (d FrameDuration) Micros() int {
	switch d {
	case Duration7_5:
		return 7500
	case Duration10:
		return 10000
	default:
		return 0
	}
}

// String returns the duration name.
func (d FrameDuration) String() string {
	switch d {
	case Duration7_5:
		return "7.5ms"
	case Duration10:
		return "10ms"
	default:
		return "UNKNOWN"
	}
}

// supportedBy reports whether the duration bitmask lists d as supported or
// preferred.
func (d FrameDuration) supportedBy(mask uint8) bool {
	switch d {
	case Duration7_5:
		return mask&(DurationSupported7_5|DurationPreferred7_5) != 0
	case Duration10:
		return mask&(DurationSupported10|DurationPreferred10) != 0
	default:
		return false
	}
}

// Preset is a named LC3 parameter set.
type Preset struct {
	Name      string
	Frequency Frequency
	Duration  FrameDuration
	Octets    uint16
}

// Presets is the LC3 preset table in preset number order.
var Presets = []Preset{
	{Name: "8_1", Frequency: Freq8000, Duration: Duration7_5, Octets: 26},
	{Name: "8_2", Frequency: Freq8000, Duration: Duration10, Octets: 30},
	{Name: "16_1", Frequency: Freq16000, Duration: Duration7_5, Octets: 30},
	{Name: "16_2", Frequency: Freq16000, Duration: Duration10, Octets: 40},
	{Name: "24_1", Frequency: Freq24000, Duration: Duration7_5, Octets: 45},
	{Name: "24_2", Frequency: Freq24000, Duration: Duration10, Octets: 60},
	{Name: "32_1", Frequency: Freq32000, Duration: Duration7_5, Octets: 60},
	{Name: "32_2", Frequency: Freq32000, Duration: Duration10, Octets: 80},
	{Name: "441_1", Frequency: Freq44100, Duration: Duration7_5, Octets: 97},
	{Name: "441_2", Frequency: Freq44100, Duration: Duration10, Octets: 130},
	{Name: "48_1", Frequency: Freq48000, Duration: Duration7_5, Octets: 75},
	{Name: "48_2", Frequency: Freq48000, Duration: Duration10, Octets: 100},
	{Name: "48_3", Frequency: Freq48000, Duration: Duration7_5, Octets: 90},
	{Name: "48_4", Frequency: Freq48000, Duration: Duration10, Octets: 120},
	{Name: "48_5", Frequency: Freq48000, Duration: Duration7_5, Octets: 117},
	{Name: "48_6", Frequency: Freq48000, Duration: Duration10, Octets: 155},
}

// PresetByName looks up a preset in the table.
func PresetByName(name string) (Preset, bool) {
	for _, p := range Presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

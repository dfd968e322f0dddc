package codec

import (
	"errors"
	"fmt"
)

// Negotiation errors.
var (
	ErrNotSupported   = errors.New("no codec configuration supported")
	ErrUnknownPreset  = errors.New("unknown codec preset")
	ErrInvalidContext = errors.New("invalid usage context")
)

// Class groups related usage contexts that share a preset list.
type Class uint8

const (
	ClassVoice Class = iota
	ClassMedia
	ClassLive
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case ClassVoice:
		return "VOICE"
	case ClassMedia:
		return "MEDIA"
	case ClassLive:
		return "LIVE"
	default:
		return "UNKNOWN"
	}
}

// ClassOf returns the preset class for a usage context.
func ClassOf(ctx Context) Class {
	switch ctx {
	case ContextMedia:
		return ClassMedia
	case ContextUnspecified, ContextGame, ContextLive:
		return ClassLive
	default:
		return ClassVoice
	}
}

// PresetOrder names the candidate presets, in order, for each class.
// An empty list keeps the default for that class.
type PresetOrder struct {
	Voice []string `yaml:"voice"`
	Media []string `yaml:"media"`
	Live  []string `yaml:"live"`
}

// DefaultPresetOrder returns the built-in candidate lists.
func DefaultPresetOrder() PresetOrder {
	return PresetOrder{
		Voice: []string{"16_2", "8_2", "24_2"},
		Media: []string{"32_2", "24_2", "16_2"},
		Live:  []string{"16_2", "24_2", "32_2"},
	}
}

// Negotiator selects codec configurations from capability records.
// It is immutable after construction and safe for concurrent use.
type Negotiator struct {
	classes [3][]Preset
}

// NewNegotiator resolves the preset names in order.
func NewNegotiator(order PresetOrder) (*Negotiator, error) {
	def := DefaultPresetOrder()
	lists := [3][]string{order.Voice, order.Media, order.Live}
	defaults := [3][]string{def.Voice, def.Media, def.Live}

	n := &Negotiator{}
	for i, names := range lists {
		if len(names) == 0 {
			names = defaults[i]
		}
		for _, name := range names {
			p, ok := PresetByName(name)
			if !ok {
				return nil, fmt.Errorf("%w: %q (%s)", ErrUnknownPreset, name, Class(i))
			}
			n.classes[i] = append(n.classes[i], p)
		}
	}
	return n, nil
}

// DefaultNegotiator returns a negotiator using DefaultPresetOrder.
func DefaultNegotiator() *Negotiator {
	n, err := NewNegotiator(DefaultPresetOrder())
	if err != nil {
		panic(err)
	}
	return n
}

// Candidates returns the ordered candidate presets for ctx.
func (n *Negotiator) Candidates(ctx Context) []Preset {
	out := make([]Preset, len(n.classes[ClassOf(ctx)]))
	copy(out, n.classes[ClassOf(ctx)])
	return out
}

// Negotiate selects a configuration for an endpoint of the given role.
//
// The first pass tries capability records whose preferred-context metadata
// includes ctx. If that fails and the device lists ctx in available, the
// same records are tried again regardless of their metadata.
func (n *Negotiator) Negotiate(caps []Capability, ctx Context, role Role, available uint16) (Config, error) {
	if !ctx.Valid() {
		return Config{}, fmt.Errorf("%w: %d", ErrInvalidContext, ctx)
	}

	candidates := n.classes[ClassOf(ctx)]
	bit := ctx.Bit()

	if p, ok := selectPreset(caps, role, candidates, func(c Capability) bool {
		return c.PreferredContexts&bit != 0
	}); ok {
		return newConfig(p), nil
	}

	if available&bit != 0 {
		if p, ok := selectPreset(caps, role, candidates, func(Capability) bool {
			return true
		}); ok {
			return newConfig(p), nil
		}
	}

	return Config{}, fmt.Errorf("%w: context %s role %s", ErrNotSupported, ctx, role)
}

func selectPreset(caps []Capability, role Role, candidates []Preset, eligible func(Capability) bool) (Preset, bool) {
	for _, c := range caps {
		if c.Role != role || c.CodecID != IDLC3 || !eligible(c) {
			continue
		}
		for _, p := range candidates {
			if c.Accepts(p) {
				return p, true
			}
		}
	}
	return Preset{}, false
}

func newConfig(p Preset) Config {
	return Config{
		CodecID:       IDLC3,
		Preset:        p.Name,
		Frequency:     p.Frequency,
		Duration:      p.Duration,
		Octets:        p.Octets,
		Blocks:        DefaultBlocks,
		Allocation:    DefaultAllocation,
		TargetLatency: LatencyBalanced,
		TargetPHY:     PHY2M,
	}
}

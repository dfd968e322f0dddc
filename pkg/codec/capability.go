package codec

// Capability is one published audio capability record for a role.
type Capability struct {
	// Role the record applies to.
	Role Role

	// CodecID is the coding format. Only LC3 records are negotiated.
	CodecID ID

	// Frequencies is the supported sampling frequency bitmask.
	Frequencies uint16

	// Durations is the supported/preferred frame duration bitmask.
	Durations uint8

	// ChannelCounts is the supported audio channel count bitmask.
	ChannelCounts uint8

	// MinOctets and MaxOctets bound the octets per codec frame (inclusive).
	MinOctets uint16
	MaxOctets uint16

	// MaxFramesPerSDU is the maximum number of codec frames per SDU.
	MaxFramesPerSDU uint8

	// PreferredContexts is the preferred audio contexts metadata, zero if
	// the record carries none.
	PreferredContexts uint16
}

// Accepts reports whether the record can carry preset p: the frequency
// must be supported, the octet count must lie within [MinOctets,
// MaxOctets], and the duration must be supported or preferred.
func (c Capability) Accepts(p Preset) bool {
	if p.Frequency == 0 || c.Frequencies&p.Frequency.Mask() == 0 {
		return false
	}
	if p.Octets < c.MinOctets || p.Octets > c.MaxOctets {
		return false
	}
	return p.Duration.supportedBy(c.Durations)
}

package device

// State is the connection state of a device.
type State uint8

const (
	// StateClosed is the initial and terminal state.
	StateClosed State = iota

	// StateOpening means the link is up and audio is not configured.
	StateOpening

	// StateOpened means endpoints are being configured.
	StateOpened

	// StateStarted means the device's endpoints were enabled.
	StateStarted

	// StateClosing means streams are being torn down.
	StateClosing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpening:
		return "OPENING"
	case StateOpened:
		return "OPENED"
	case StateStarted:
		return "STARTED"
	case StateClosing:
		return "CLOSING"
	default:
		return "UNKNOWN"
	}
}

// Connected reports whether the link is up in this state.
func (s State) Connected() bool {
	return s != StateClosed
}

// ASEState is the procedure state of an audio stream endpoint.
type ASEState uint8

const (
	ASEIdle ASEState = iota
	ASECodecConfigured
	ASEQoSConfigured
	ASEEnabling
	ASEStreaming
	ASEDisabling
	ASEReleasing
)

// String returns the procedure state name.
func (s ASEState) String() string {
	switch s {
	case ASEIdle:
		return "IDLE"
	case ASECodecConfigured:
		return "CODEC_CONFIGURED"
	case ASEQoSConfigured:
		return "QOS_CONFIGURED"
	case ASEEnabling:
		return "ENABLING"
	case ASEStreaming:
		return "STREAMING"
	case ASEDisabling:
		return "DISABLING"
	case ASEReleasing:
		return "RELEASING"
	default:
		return "UNKNOWN"
	}
}

// Op is the last procedure step requested for an endpoint. Steps are
// ordered; a later step implies the earlier ones were reached.
type Op uint8

const (
	OpNone Op = iota
	OpCodec
	OpQoS
	OpEnabling
)

// String returns the step name.
func (o Op) String() string {
	switch o {
	case OpNone:
		return "NONE"
	case OpCodec:
		return "CODEC"
	case OpQoS:
		return "QOS"
	case OpEnabling:
		return "ENABLING"
	default:
		return "UNKNOWN"
	}
}

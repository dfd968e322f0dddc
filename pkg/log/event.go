package log

import "time"

// Extension is the file extension used for trace files.
const Extension = ".lalog"

// Event is one trace record. CBOR encoding uses integer keys.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the service run that produced the event.
	SessionID string `cbor:"2,keyasint"`

	// Direction is IN for controller to host and OUT for host to controller.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the payload.
	Category Category `cbor:"5,keyasint"`

	// Address is the remote device address, if the event concerns one.
	Address string `cbor:"6,keyasint,omitempty"`

	// GroupID is set when the event concerns a group. The default group
	// has id 0, so absence is nil rather than zero.
	GroupID *int `cbor:"7,keyasint,omitempty"`

	// Exactly one payload is set.
	Command      *CommandEvent      `cbor:"10,keyasint,omitempty"`
	Notification *NotificationEvent `cbor:"11,keyasint,omitempty"`
	StateChange  *StateChangeEvent  `cbor:"12,keyasint,omitempty"`
	Offload      *OffloadEvent      `cbor:"13,keyasint,omitempty"`
	Error        *ErrorEventData    `cbor:"14,keyasint,omitempty"`
}

// WithGroup returns a copy of e tagged with a group id.
func (e Event) WithGroup(id int) Event {
	e.GroupID = &id
	return e
}

// Direction indicates the direction of a message relative to the host.
type Direction uint8

const (
	// DirectionIn is a notification from the controller.
	DirectionIn Direction = 0
	// DirectionOut is a request to the controller.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which component captured the event.
type Layer uint8

const (
	// LayerController is the controller interface boundary.
	LayerController Layer = 0
	// LayerService is the service loop and state machines.
	LayerService Layer = 1
	// LayerOffload is the vendor offload handshake.
	LayerOffload Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerController:
		return "CONTROLLER"
	case LayerService:
		return "SERVICE"
	case LayerOffload:
		return "OFFLOAD"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event payload.
type Category uint8

const (
	// CategoryCommand is a request issued to the controller.
	CategoryCommand Category = 0
	// CategoryEvent is a notification from the controller.
	CategoryEvent Category = 1
	// CategoryState is a state transition.
	CategoryState Category = 2
	// CategoryOffload is an offload handshake step.
	CategoryOffload Category = 3
	// CategoryError is a failure.
	CategoryError Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryCommand:
		return "COMMAND"
	case CategoryEvent:
		return "EVENT"
	case CategoryState:
		return "STATE"
	case CategoryOffload:
		return "OFFLOAD"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// CommandEvent is a request issued to the controller.
type CommandEvent struct {
	// Operation names the request, e.g. "CONFIG_CODEC".
	Operation string `cbor:"1,keyasint"`

	// EndpointID is the target ASE, if any.
	EndpointID *uint8 `cbor:"2,keyasint,omitempty"`

	// StreamID is the target stream, if any.
	StreamID *uint32 `cbor:"3,keyasint,omitempty"`

	// Detail is a short human readable argument summary.
	Detail string `cbor:"4,keyasint,omitempty"`
}

// NotificationEvent is an event reported by the controller.
type NotificationEvent struct {
	// Type names the notification, e.g. "ASE_STATE".
	Type string `cbor:"1,keyasint"`

	// EndpointID is the reporting ASE, if any.
	EndpointID *uint8 `cbor:"2,keyasint,omitempty"`

	// StreamID is the affected stream, if any.
	StreamID *uint32 `cbor:"3,keyasint,omitempty"`

	// Status is the controller result code on completion events.
	Status *uint8 `cbor:"4,keyasint,omitempty"`

	// Detail is a short human readable summary.
	Detail string `cbor:"5,keyasint,omitempty"`
}

// StateChangeEvent captures a transition of a device, endpoint, group,
// offload handshake or the service itself.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change, if known.
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what changed state.
type StateEntity uint8

const (
	// StateEntityDevice is a device connection state machine.
	StateEntityDevice StateEntity = 0
	// StateEntityEndpoint is an ASE procedure state.
	StateEntityEndpoint StateEntity = 1
	// StateEntityGroup is a group barrier or context change.
	StateEntityGroup StateEntity = 2
	// StateEntityOffload is a per-device offload handshake.
	StateEntityOffload StateEntity = 3
	// StateEntityService is the service lifecycle.
	StateEntityService StateEntity = 4
)

// String returns the entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityDevice:
		return "DEVICE"
	case StateEntityEndpoint:
		return "ENDPOINT"
	case StateEntityGroup:
		return "GROUP"
	case StateEntityOffload:
		return "OFFLOAD"
	case StateEntityService:
		return "SERVICE"
	default:
		return "UNKNOWN"
	}
}

// OffloadEvent captures one step of the vendor command handshake.
type OffloadEvent struct {
	// CommandID correlates a request with its completion.
	CommandID string `cbor:"1,keyasint"`

	// Start is true for start commands and false for stop commands.
	Start bool `cbor:"2,keyasint"`

	// Step is what happened to the command.
	Step OffloadStep `cbor:"3,keyasint"`

	// OGF and OCF form the vendor opcode.
	OGF uint8  `cbor:"4,keyasint,omitempty"`
	OCF uint16 `cbor:"5,keyasint,omitempty"`

	// Params is the encoded command payload (sent step only).
	Params []byte `cbor:"6,keyasint,omitempty"`
}

// OffloadStep is a handshake step.
type OffloadStep uint8

const (
	// OffloadSent means the command was dispatched.
	OffloadSent OffloadStep = 0
	// OffloadCompleted means the controller acknowledged with success.
	OffloadCompleted OffloadStep = 1
	// OffloadFailed means the controller acknowledged with an error.
	OffloadFailed OffloadStep = 2
	// OffloadTimedOut means the request was abandoned.
	OffloadTimedOut OffloadStep = 3
	// OffloadIgnored means a completion matched no outstanding request.
	OffloadIgnored OffloadStep = 4
)

// String returns the step name.
func (s OffloadStep) String() string {
	switch s {
	case OffloadSent:
		return "SENT"
	case OffloadCompleted:
		return "COMPLETED"
	case OffloadFailed:
		return "FAILED"
	case OffloadTimedOut:
		return "TIMED_OUT"
	case OffloadIgnored:
		return "IGNORED"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures a failure at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error text.
	Message string `cbor:"2,keyasint"`

	// Code is a controller status code, if applicable.
	Code *int `cbor:"3,keyasint,omitempty"`

	// Context describes the operation that failed.
	Context string `cbor:"4,keyasint,omitempty"`
}

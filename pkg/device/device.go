package device

import (
	"errors"
	"sync"

	"github.com/leaudio/leaudio-go/pkg/bdaddr"
	"github.com/leaudio/leaudio-go/pkg/codec"
)

// Table limits.
const (
	// MaxEndpoints is the number of ASEs tracked per device.
	MaxEndpoints = 8

	// MaxCapabilities is the number of capability records kept per device.
	MaxCapabilities = 16

	// NoCIS marks a device without an allocated CIS id.
	NoCIS = -1
)

// Device errors.
var (
	ErrEndpointTableFull   = errors.New("endpoint table full")
	ErrCapabilityTableFull = errors.New("capability table full")
	ErrEndpointNotFound    = errors.New("endpoint not found")
	ErrInvalidRole         = errors.New("invalid role")
)

// Endpoint is one audio stream endpoint of a device.
type Endpoint struct {
	// ID is unique within the device.
	ID uint8

	// Role is the endpoint direction.
	Role codec.Role

	// State is the last reported procedure state.
	State ASEState

	// Active is set once the endpoint was selected for the current session.
	Active bool

	// StreamID is the controller-assigned stream id, 0 until allocated.
	StreamID uint32

	// Op is the last procedure step requested for the endpoint.
	Op Op

	// Codec is the negotiated configuration while Active.
	Codec codec.Config
}

// Device is a remote LE Audio device.
type Device struct {
	mu sync.RWMutex

	addr  bdaddr.Addr
	state State

	caps       []codec.Capability
	supported  [codec.RoleCount]uint16
	available  [codec.RoleCount]uint16
	allocation [codec.RoleCount]uint32

	endpoints []Endpoint

	cisID int
	rank  uint8
}

// New creates a device in the Closed state.
func New(addr bdaddr.Addr) *Device {
	return &Device{
		addr:  addr,
		state: StateClosed,
		cisID: NoCIS,
	}
}

// Addr returns the device address.
func (d *Device) Addr() bdaddr.Addr {
	return d.addr
}

// State returns the connection state.
func (d *Device) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// SetState sets the connection state and returns the previous one.
func (d *Device) SetState(s State) State {
	d.mu.Lock()
	defer d.mu.Unlock()
	old := d.state
	d.state = s
	return old
}

// AddCapability appends a published capability record.
func (d *Device) AddCapability(c codec.Capability) error {
	if c.Role >= codec.RoleCount {
		return ErrInvalidRole
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.caps) >= MaxCapabilities {
		return ErrCapabilityTableFull
	}
	d.caps = append(d.caps, c)
	return nil
}

// Capabilities returns a copy of the capability table.
func (d *Device) Capabilities() []codec.Capability {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]codec.Capability, len(d.caps))
	copy(out, d.caps)
	return out
}

// SetSupportedContexts records the supported context bitmask for a role.
func (d *Device) SetSupportedContexts(role codec.Role, mask uint16) error {
	if role >= codec.RoleCount {
		return ErrInvalidRole
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.supported[role] = mask
	return nil
}

// SupportedContexts returns the supported context bitmask for a role.
func (d *Device) SupportedContexts(role codec.Role) uint16 {
	if role >= codec.RoleCount {
		return 0
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.supported[role]
}

// SetAvailableContexts records the available context bitmask for a role.
func (d *Device) SetAvailableContexts(role codec.Role, mask uint16) error {
	if role >= codec.RoleCount {
		return ErrInvalidRole
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.available[role] = mask
	return nil
}

// AvailableContexts returns the available context bitmask for a role.
func (d *Device) AvailableContexts(role codec.Role) uint16 {
	if role >= codec.RoleCount {
		return 0
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.available[role]
}

// SetAllocation records the audio channel allocation for a role.
func (d *Device) SetAllocation(role codec.Role, alloc uint32) error {
	if role >= codec.RoleCount {
		return ErrInvalidRole
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.allocation[role] = alloc
	return nil
}

// Allocation returns the audio channel allocation for a role.
func (d *Device) Allocation(role codec.Role) uint32 {
	if role >= codec.RoleCount {
		return 0
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.allocation[role]
}

// CISID returns the allocated CIS id or NoCIS.
func (d *Device) CISID() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cisID
}

// SetCISID records the allocated CIS id. Pass NoCIS to clear it.
func (d *Device) SetCISID(id int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cisID = id
}

// Rank returns the device's rank within its coordinated set.
func (d *Device) Rank() uint8 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.rank
}

// SetRank sets the device's rank within its coordinated set.
func (d *Device) SetRank(rank uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rank = rank
}

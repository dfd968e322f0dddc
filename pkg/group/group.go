package group

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/leaudio/leaudio-go/pkg/bdaddr"
	"github.com/leaudio/leaudio-go/pkg/codec"
	"github.com/leaudio/leaudio-go/pkg/device"
)

// DefaultID is the id of the default group.
const DefaultID = 0

// SetKey is the 16-byte coordinated set identity key (SIRK).
type SetKey [16]byte

// String returns the key in hex.
func (k SetKey) String() string {
	return hex.EncodeToString(k[:])
}

// ErrInvalidSetKey is returned when a set key string cannot be parsed.
var ErrInvalidSetKey = errors.New("invalid set key")

// ParseSetKey parses a 32 character hex string.
func ParseSetKey(s string) (SetKey, error) {
	var k SetKey
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(k) {
		return k, fmt.Errorf("%w: %q", ErrInvalidSetKey, s)
	}
	copy(k[:], b)
	return k, nil
}

// Group is a set of devices that are configured together.
type Group struct {
	mu sync.RWMutex

	id     int
	key    SetKey
	hasKey bool
	size   uint8

	latch   device.Op
	context codec.Context

	members []*device.Device
}

// ID returns the group id.
func (g *Group) ID() int {
	return g.id
}

// IsDefault reports whether g is the default group.
func (g *Group) IsDefault() bool {
	return g.id == DefaultID
}

// SetKey returns the set key, if the group is a coordinated set.
func (g *Group) SetKey() (SetKey, bool) {
	return g.key, g.hasKey
}

// Size returns the coordinated set size reported by the set.
func (g *Group) Size() uint8 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.size
}

// Context returns the usage context last requested for the group.
func (g *Group) Context() codec.Context {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.context
}

// Latch returns the barrier step the group has completed.
func (g *Group) Latch() device.Op {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.latch
}

// Members returns the member devices in insertion order.
func (g *Group) Members() []*device.Device {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*device.Device, len(g.members))
	copy(out, g.members)
	return out
}

// Len returns the number of members.
func (g *Group) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.members)
}

// Has reports whether addr is a member.
func (g *Group) Has(addr bdaddr.Addr) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.indexOf(addr) >= 0
}

// member returns the device for addr. Caller holds g.mu.
func (g *Group) member(addr bdaddr.Addr) *device.Device {
	if i := g.indexOf(addr); i >= 0 {
		return g.members[i]
	}
	return nil
}

func (g *Group) indexOf(addr bdaddr.Addr) int {
	for i, d := range g.members {
		if d.Addr() == addr {
			return i
		}
	}
	return -1
}

// attach appends d and resets the barrier. Caller holds the registry lock.
func (g *Group) attach(d *device.Device) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.members = append(g.members, d)
	g.latch = device.OpNone
}

// detach removes addr and resets the barrier. Caller holds the registry lock.
func (g *Group) detach(addr bdaddr.Addr) *device.Device {
	g.mu.Lock()
	defer g.mu.Unlock()

	i := g.indexOf(addr)
	if i < 0 {
		return nil
	}
	d := g.members[i]
	g.members = append(g.members[:i], g.members[i+1:]...)
	g.latch = device.OpNone
	return d
}

// Info is a point-in-time copy of a group for status queries.
type Info struct {
	ID      int
	SetKey  *SetKey
	Size    uint8
	Latch   device.Op
	Context codec.Context
	Members []bdaddr.Addr
}

// Info returns a consistent copy of the group's fields.
func (g *Group) Info() Info {
	g.mu.RLock()
	defer g.mu.RUnlock()

	info := Info{
		ID:      g.id,
		Size:    g.size,
		Latch:   g.latch,
		Context: g.context,
		Members: make([]bdaddr.Addr, 0, len(g.members)),
	}
	if g.hasKey {
		k := g.key
		info.SetKey = &k
	}
	for _, d := range g.members {
		info.Members = append(info.Members, d.Addr())
	}
	return info
}

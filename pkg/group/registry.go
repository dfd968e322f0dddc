package group

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/leaudio/leaudio-go/pkg/bdaddr"
	"github.com/leaudio/leaudio-go/pkg/codec"
	"github.com/leaudio/leaudio-go/pkg/device"
	"github.com/leaudio/leaudio-go/pkg/indexalloc"
)

// DefaultMaxGroups is the default size of the group id pool.
const DefaultMaxGroups = 16

// Registry errors.
var (
	ErrNotFound          = errors.New("group not found")
	ErrDeviceNotFound    = errors.New("device not found")
	ErrGroupExists       = errors.New("group already exists for set key")
	ErrAlreadyMember     = errors.New("device already belongs to a group")
	ErrDefaultGroup      = errors.New("operation not allowed on the default group")
	ErrResourceExhausted = errors.New("no group id available")
)

// Registry owns all groups and their devices.
type Registry struct {
	mu sync.RWMutex

	groups map[int]*Group
	pool   *indexalloc.Allocator
}

// NewRegistry creates a registry with the default group in place.
// maxGroups bounds the number of groups including the default group.
func NewRegistry(maxGroups int) *Registry {
	if maxGroups <= 0 {
		maxGroups = DefaultMaxGroups
	}

	r := &Registry{
		groups: make(map[int]*Group),
		pool:   indexalloc.New(maxGroups - 1),
	}
	_ = r.pool.Reserve(DefaultID)
	r.groups[DefaultID] = &Group{id: DefaultID}
	return r
}

// Create allocates a group for a coordinated set.
func (r *Registry) Create(key SetKey) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.bySetKey(key) != nil {
		return 0, fmt.Errorf("%w: %s", ErrGroupExists, key)
	}

	id, err := r.pool.Alloc()
	if err != nil {
		return 0, ErrResourceExhausted
	}

	r.groups[id] = &Group{id: id, key: key, hasKey: true}
	return id, nil
}

// Delete removes the group for a coordinated set and frees its id.
// Members still in the group are moved back to the default group and
// returned.
func (r *Registry) Delete(key SetKey) (int, []bdaddr.Addr, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g := r.bySetKey(key)
	if g == nil {
		return 0, nil, ErrNotFound
	}

	def := r.groups[DefaultID]
	var moved []bdaddr.Addr
	for _, d := range g.Members() {
		g.detach(d.Addr())
		def.attach(d)
		moved = append(moved, d.Addr())
	}

	delete(r.groups, g.id)
	_ = r.pool.Free(g.id)
	return g.id, moved, nil
}

// AddMember adds a device to a group. A device owned by any group is
// rejected with ErrAlreadyMember.
func (r *Registry) AddMember(groupID int, d *device.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[groupID]
	if !ok {
		return ErrNotFound
	}
	if owner := r.ownerOf(d.Addr()); owner != nil {
		return fmt.Errorf("%w: %s in group %d", ErrAlreadyMember, d.Addr(), owner.id)
	}

	g.attach(d)
	return nil
}

// EnsureDevice returns the device for addr, creating it in the default
// group if unknown. The boolean is true when the device was created.
func (r *Registry) EnsureDevice(addr bdaddr.Addr) (*device.Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g := r.ownerOf(addr); g != nil {
		g.mu.RLock()
		defer g.mu.RUnlock()
		return g.member(addr), false
	}

	d := device.New(addr)
	r.groups[DefaultID].attach(d)
	return d, true
}

// RemoveMember detaches a device from a group and returns it. It fails
// with ErrNotFound when the group does not exist and ErrDeviceNotFound
// when the device is not a member. An emptied group is kept.
func (r *Registry) RemoveMember(groupID int, addr bdaddr.Addr) (*device.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[groupID]
	if !ok {
		return nil, ErrNotFound
	}
	d := g.detach(addr)
	if d == nil {
		return nil, ErrDeviceNotFound
	}
	return d, nil
}

// MoveMember transfers a device between groups, keeping the device value
// (state, endpoints) intact.
func (r *Registry) MoveMember(src, dst int, addr bdaddr.Addr) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	from, ok := r.groups[src]
	if !ok {
		return fmt.Errorf("%w: source %d", ErrNotFound, src)
	}
	to, ok := r.groups[dst]
	if !ok {
		return fmt.Errorf("%w: destination %d", ErrNotFound, dst)
	}
	if src == dst {
		if !from.Has(addr) {
			return ErrDeviceNotFound
		}
		return nil
	}

	d := from.detach(addr)
	if d == nil {
		return ErrDeviceNotFound
	}
	to.attach(d)
	return nil
}

// Group returns a group by id.
func (r *Registry) Group(id int) (*Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.groups[id]
	if !ok {
		return nil, ErrNotFound
	}
	return g, nil
}

// GroupOf returns the group owning addr together with the device.
func (r *Registry) GroupOf(addr bdaddr.Addr) (*Group, *device.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g := r.ownerOf(addr)
	if g == nil {
		return nil, nil, ErrDeviceNotFound
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g, g.member(addr), nil
}

// GroupBySetKey returns the group for a coordinated set.
func (r *Registry) GroupBySetKey(key SetKey) (*Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if g := r.bySetKey(key); g != nil {
		return g, nil
	}
	return nil, ErrNotFound
}

// Device returns the device for addr.
func (r *Registry) Device(addr bdaddr.Addr) (*device.Device, error) {
	_, d, err := r.GroupOf(addr)
	return d, err
}

// Groups returns all groups ordered by id.
func (r *Registry) Groups() []*Group {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Group, 0, len(r.groups))
	for _, g := range r.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Devices returns every device across all groups.
func (r *Registry) Devices() []*device.Device {
	var out []*device.Device
	for _, g := range r.Groups() {
		out = append(out, g.Members()...)
	}
	return out
}

// SetContext records the usage context requested for a new audio session
// and resets the group's barrier.
func (r *Registry) SetContext(id int, ctx codec.Context) error {
	g, err := r.Group(id)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.context = ctx
	g.latch = device.OpNone
	return nil
}

// SetSize records the coordinated set size.
func (r *Registry) SetSize(id int, size uint8) error {
	g, err := r.Group(id)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.size = size
	return nil
}

// AvailableIDs returns the number of group ids left in the pool.
func (r *Registry) AvailableIDs() int {
	return r.pool.Available()
}

// ownerOf finds the group containing addr. Caller holds r.mu.
func (r *Registry) ownerOf(addr bdaddr.Addr) *Group {
	for _, g := range r.groups {
		if g.Has(addr) {
			return g
		}
	}
	return nil
}

// bySetKey finds a coordinated-set group. Caller holds r.mu.
func (r *Registry) bySetKey(key SetKey) *Group {
	for _, g := range r.groups {
		if g.hasKey && g.key == key {
			return g
		}
	}
	return nil
}

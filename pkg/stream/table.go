// Package stream holds the process-wide table of active audio streams.
//
// Stream ids are assigned by the controller independently of device
// lifetime, so streams are owned by the table rather than by a device.
package stream

import (
	"errors"
	"sort"
	"sync"

	"github.com/leaudio/leaudio-go/pkg/bdaddr"
	"github.com/leaudio/leaudio-go/pkg/codec"
)

// Stream table errors.
var (
	ErrNotFound       = errors.New("stream not found")
	ErrExists         = errors.New("stream already exists")
	ErrDeviceNotFound = errors.New("stream owner not in any group")
)

// Stream is one active audio path.
type Stream struct {
	ID      uint32
	Addr    bdaddr.Addr
	GroupID int
	Role    codec.Role
	Started bool
	Codec   codec.Config
}

// IsSource reports whether the stream carries audio from the device.
func (s Stream) IsSource() bool {
	return s.Role == codec.RoleSource
}

// GroupLookup resolves the group currently owning addr.
type GroupLookup func(addr bdaddr.Addr) (groupID int, ok bool)

// Table maps stream ids to streams.
type Table struct {
	mu      sync.RWMutex
	streams map[uint32]*Stream
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{streams: make(map[uint32]*Stream)}
}

// Add registers a stream. The owning device must belong to a group
// according to lookup, otherwise the stream is dropped with
// ErrDeviceNotFound.
func (t *Table) Add(id uint32, addr bdaddr.Addr, role codec.Role, lookup GroupLookup) (Stream, error) {
	groupID, ok := lookup(addr)
	if !ok {
		return Stream{}, ErrDeviceNotFound
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.streams[id]; exists {
		return Stream{}, ErrExists
	}
	s := &Stream{ID: id, Addr: addr, GroupID: groupID, Role: role}
	t.streams[id] = s
	return *s, nil
}

// Remove deletes a stream and returns its last value.
func (t *Table) Remove(id uint32) (Stream, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.streams[id]
	if !ok {
		return Stream{}, ErrNotFound
	}
	delete(t.streams, id)
	return *s, nil
}

// Get returns a copy of a stream.
func (t *Table) Get(id uint32) (Stream, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.streams[id]
	if !ok {
		return Stream{}, ErrNotFound
	}
	return *s, nil
}

// MarkStarted flags a stream as started with its negotiated parameters.
func (t *Table) MarkStarted(id uint32, cfg codec.Config) (Stream, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.streams[id]
	if !ok {
		return Stream{}, ErrNotFound
	}
	s.Started = true
	s.Codec = cfg
	return *s, nil
}

// MarkStopped clears the started flag and the codec parameters.
func (t *Table) MarkStopped(id uint32) (Stream, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.streams[id]
	if !ok {
		return Stream{}, ErrNotFound
	}
	s.Started = false
	s.Codec = codec.Config{}
	return *s, nil
}

// SetGroup updates the group id of a stream, used when its owner moves.
func (t *Table) SetGroup(id uint32, groupID int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.streams[id]
	if !ok {
		return ErrNotFound
	}
	s.GroupID = groupID
	return nil
}

// ByGroup returns the streams of a group ordered by id.
func (t *Table) ByGroup(groupID int) []Stream {
	return t.filter(func(s *Stream) bool { return s.GroupID == groupID })
}

// ByDevice returns the streams owned by addr ordered by id.
func (t *Table) ByDevice(addr bdaddr.Addr) []Stream {
	return t.filter(func(s *Stream) bool { return s.Addr == addr })
}

// All returns every stream ordered by id.
func (t *Table) All() []Stream {
	return t.filter(func(*Stream) bool { return true })
}

// Len returns the number of streams.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.streams)
}

func (t *Table) filter(keep func(*Stream) bool) []Stream {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []Stream
	for _, s := range t.streams {
		if keep(s) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

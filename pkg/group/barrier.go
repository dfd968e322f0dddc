package group

import (
	"github.com/leaudio/leaudio-go/pkg/bdaddr"
	"github.com/leaudio/leaudio-go/pkg/codec"
	"github.com/leaudio/leaudio-go/pkg/device"
)

// EndpointView is the barrier-relevant part of an active endpoint.
type EndpointView struct {
	Addr     bdaddr.Addr
	ID       uint8
	Role     codec.Role
	StreamID uint32
	Op       device.Op
	State    device.ASEState
}

// Snapshot is an immutable copy of a group's active endpoints.
type Snapshot struct {
	GroupID   int
	Latch     device.Op
	Endpoints []EndpointView
}

// StreamIDs returns the non-zero stream ids in the snapshot.
func (s Snapshot) StreamIDs() []uint32 {
	var ids []uint32
	for _, ep := range s.Endpoints {
		if ep.StreamID != 0 {
			ids = append(ids, ep.StreamID)
		}
	}
	return ids
}

// CompletedByOp reports whether every active endpoint has been asked for
// op (or a later step), or the group already latched op. A snapshot with
// no active endpoint is never complete.
func CompletedByOp(s Snapshot, op device.Op) bool {
	if op != device.OpNone && s.Latch >= op {
		return true
	}
	if len(s.Endpoints) == 0 {
		return false
	}
	for _, ep := range s.Endpoints {
		if ep.Op < op {
			return false
		}
	}
	return true
}

// CompletedByState reports whether every active endpoint is in state.
func CompletedByState(s Snapshot, state device.ASEState) bool {
	if len(s.Endpoints) == 0 {
		return false
	}
	for _, ep := range s.Endpoints {
		if ep.State != state {
			return false
		}
	}
	return true
}

// Snapshot copies the active endpoints of every member of a group.
func (r *Registry) Snapshot(id int) (Snapshot, error) {
	g, err := r.Group(id)
	if err != nil {
		return Snapshot{}, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.snapshot(), nil
}

// CompletedByOp evaluates the barrier for op and latches it on success.
func (r *Registry) CompletedByOp(id int, op device.Op) (bool, error) {
	done, _, err := r.evaluate(id, op)
	return done, err
}

// Advance evaluates the barrier for op and reports true only on the call
// that latches it. Use it to issue a group-wide request exactly once.
func (r *Registry) Advance(id int, op device.Op) (bool, error) {
	_, latched, err := r.evaluate(id, op)
	return latched, err
}

// CompletedByState is a readiness query against endpoint procedure state.
// It does not latch.
func (r *Registry) CompletedByState(id int, state device.ASEState) (bool, error) {
	s, err := r.Snapshot(id)
	if err != nil {
		return false, err
	}
	return CompletedByState(s, state), nil
}

// ResetBarrier clears the group's latch.
func (r *Registry) ResetBarrier(id int) error {
	g, err := r.Group(id)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.latch = device.OpNone
	return nil
}

func (r *Registry) evaluate(id int, op device.Op) (done, latched bool, err error) {
	g, err := r.Group(id)
	if err != nil {
		return false, false, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if !CompletedByOp(g.snapshot(), op) {
		return false, false, nil
	}
	if g.latch < op {
		g.latch = op
		latched = true
	}
	return true, latched, nil
}

// snapshot builds a Snapshot. Caller holds g.mu.
func (g *Group) snapshot() Snapshot {
	s := Snapshot{GroupID: g.id, Latch: g.latch}
	for _, d := range g.members {
		for _, ep := range d.ActiveEndpoints() {
			s.Endpoints = append(s.Endpoints, EndpointView{
				Addr:     d.Addr(),
				ID:       ep.ID,
				Role:     ep.Role,
				StreamID: ep.StreamID,
				Op:       ep.Op,
				State:    ep.State,
			})
		}
	}
	return s
}

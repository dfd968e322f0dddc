package service

import (
	"errors"
	"fmt"

	"github.com/leaudio/leaudio-go/pkg/bdaddr"
	"github.com/leaudio/leaudio-go/pkg/codec"
	"github.com/leaudio/leaudio-go/pkg/csip"
	"github.com/leaudio/leaudio-go/pkg/device"
	"github.com/leaudio/leaudio-go/pkg/group"
	"github.com/leaudio/leaudio-go/pkg/indexalloc"
	"github.com/leaudio/leaudio-go/pkg/log"
	"github.com/leaudio/leaudio-go/pkg/observer"
	"github.com/leaudio/leaudio-go/pkg/offload"
	"github.com/leaudio/leaudio-go/pkg/stream"
)

// lookupMachine returns the machine of a known device.
func (s *Service) lookupMachine(addr bdaddr.Addr) (*machine, error) {
	d, err := s.registry.Device(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: device %s", ErrNotFound, addr)
	}
	return s.machineFor(d), nil
}

// ensureMachine returns the machine of addr, creating the device in the
// default group if it is unknown.
func (s *Service) ensureMachine(addr bdaddr.Addr) *machine {
	d, created := s.registry.EnsureDevice(addr)
	if created {
		s.debugLog("device created", "addr", addr)
	}
	return s.machineFor(d)
}

func (s *Service) machineFor(d *device.Device) *machine {
	addr := d.Addr()
	if m, ok := s.machines[addr]; ok && m.dev == d {
		return m
	} else if ok {
		m.offload.Reset()
	}
	m := newMachine(s, d)
	s.machines[addr] = m
	return m
}

// deliver dispatches in to the machine of a known device.
func (s *Service) deliver(addr bdaddr.Addr, in input) error {
	m, err := s.lookupMachine(addr)
	if err != nil {
		return err
	}
	return m.dispatch(in)
}

// destroyDevice drops the machine of a device that left every group.
func (s *Service) destroyDevice(addr bdaddr.Addr) {
	m, ok := s.machines[addr]
	if !ok {
		return
	}
	m.release()
	delete(s.machines, addr)
	s.debugLog("device destroyed", "addr", addr)
}

// request issues a group-wide controller request and traces it.
func (s *Service) request(addr bdaddr.Addr, gid int, op string, ids []uint32, fn func(int, []uint32) error) {
	s.traceCommand(addr, gid, op, ids, "")
	if err := fn(gid, ids); err != nil {
		s.traceError(log.LayerController, addr, op, err)
	}
}

func (s *Service) notifyConnection(addr bdaddr.Addr, state LinkState) {
	s.notify(func(cb Callbacks) {
		if cb.ConnectionStateChanged != nil {
			cb.ConnectionStateChanged(addr, state)
		}
	})
}

func (s *Service) groupLookup(addr bdaddr.Addr) (int, bool) {
	g, _, err := s.registry.GroupOf(addr)
	if err != nil {
		return 0, false
	}
	return g.ID(), true
}

func (s *Service) addStream(d *device.Device, id uint32) error {
	ep, ok := d.EndpointByStream(id)
	if !ok {
		return fmt.Errorf("%w: stream %d has no endpoint on %s", ErrNotFound, id, d.Addr())
	}
	if _, err := s.streams.Add(id, d.Addr(), ep.Role, s.groupLookup); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *Service) removeStream(id uint32) error {
	if _, err := s.streams.Remove(id); err != nil {
		return mapError(err)
	}
	return nil
}

// regroupStreams keeps the stream table's group ids in step with a
// device that changed groups.
func (s *Service) regroupStreams(addr bdaddr.Addr) {
	gid, ok := s.groupLookup(addr)
	if !ok {
		return
	}
	for _, st := range s.streams.ByDevice(addr) {
		_ = s.streams.SetGroup(st.ID, gid)
	}
}

// groupStarted brings audio up for every started stream of a group once
// the offload path is ready.
func (s *Service) groupStarted(gid int) {
	snap, err := s.registry.Snapshot(gid)
	if err != nil {
		return
	}
	for _, ep := range snap.Endpoints {
		st, err := s.streams.Get(ep.StreamID)
		if err != nil || !st.Started {
			continue
		}
		_ = s.deliver(ep.Addr, input{event: evStreamStarted, streamID: st.ID})
	}
}

// offloadConfig builds the routing of a group's started streams.
func (s *Service) offloadConfig(gid int) (offload.Config, error) {
	var cfg offload.Config
	snap, err := s.registry.Snapshot(gid)
	if err != nil {
		return cfg, err
	}
	for _, ep := range snap.Endpoints {
		st, err := s.streams.Get(ep.StreamID)
		if err != nil || !st.Started || st.Role >= codec.RoleCount {
			continue
		}
		rc := &cfg.Roles[st.Role]
		rc.Active = true
		rc.Codec = st.Codec
		rc.Streams = append(rc.Streams, offload.StreamInfo{
			Handle:     uint16(st.ID),
			Allocation: st.Codec.Allocation,
		})
	}
	return cfg, cfg.Validate()
}

// mapError classifies package errors into the service taxonomy.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNotSupported),
		errors.Is(err, ErrResourceExhausted), errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrNotEnabled):
		return err
	case errors.Is(err, group.ErrNotFound), errors.Is(err, group.ErrDeviceNotFound),
		errors.Is(err, stream.ErrNotFound), errors.Is(err, stream.ErrDeviceNotFound),
		errors.Is(err, csip.ErrUnknownSet), errors.Is(err, device.ErrEndpointNotFound),
		errors.Is(err, observer.ErrStaleHandle):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, group.ErrResourceExhausted), errors.Is(err, indexalloc.ErrExhausted),
		errors.Is(err, observer.ErrFull), errors.Is(err, device.ErrEndpointTableFull),
		errors.Is(err, device.ErrCapabilityTableFull):
		return fmt.Errorf("%w: %v", ErrResourceExhausted, err)
	case errors.Is(err, codec.ErrNotSupported), errors.Is(err, codec.ErrInvalidContext),
		errors.Is(err, csip.ErrNotCoordinated), errors.Is(err, group.ErrDefaultGroup):
		return fmt.Errorf("%w: %v", ErrNotSupported, err)
	case errors.Is(err, group.ErrAlreadyMember), errors.Is(err, group.ErrGroupExists),
		errors.Is(err, stream.ErrExists):
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	default:
		return err
	}
}

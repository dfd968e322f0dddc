package service

import (
	"fmt"
	"sort"

	"github.com/leaudio/leaudio-go/pkg/bdaddr"
	"github.com/leaudio/leaudio-go/pkg/codec"
	"github.com/leaudio/leaudio-go/pkg/device"
	"github.com/leaudio/leaudio-go/pkg/group"
	"github.com/leaudio/leaudio-go/pkg/observer"
)

// Connect asks the controller for a link to addr. An unknown device is
// created in the default group. The result is reported through
// Callbacks.ConnectionStateChanged.
func (s *Service) Connect(addr bdaddr.Addr) error {
	return s.call(func() error {
		return s.ensureMachine(addr).dispatch(input{event: evConnect})
	})
}

// Disconnect asks the controller to drop the link to addr.
func (s *Service) Disconnect(addr bdaddr.Addr) error {
	return s.call(func() error {
		m, err := s.lookupMachine(addr)
		if err != nil {
			return err
		}
		return m.dispatch(input{event: evDisconnect})
	})
}

// ConnectAudio starts stream configuration for the device. The group
// takes ctx only when the device's state accepts the request.
func (s *Service) ConnectAudio(addr bdaddr.Addr, ctx codec.Context) error {
	return s.call(func() error {
		if !ctx.Valid() {
			return fmt.Errorf("%w: context %d", ErrNotSupported, ctx)
		}
		m, err := s.lookupMachine(addr)
		if err != nil {
			return err
		}
		if err := checkConnectAudio(m.dev, ctx); err != nil {
			return err
		}
		return m.dispatch(input{event: evConnectAudio, context: ctx})
	})
}

// DisconnectAudio asks the controller to disable the active streams of
// the device's group.
func (s *Service) DisconnectAudio(addr bdaddr.Addr) error {
	return s.call(func() error {
		m, err := s.lookupMachine(addr)
		if err != nil {
			return err
		}
		return m.dispatch(input{event: evDisconnectAudio})
	})
}

// ConnectionState reports whether the link to addr is up.
func (s *Service) ConnectionState(addr bdaddr.Addr) (LinkState, error) {
	st, err := s.DeviceState(addr)
	if err != nil {
		return LinkDisconnected, err
	}
	if st.Connected() {
		return LinkConnected, nil
	}
	return LinkDisconnected, nil
}

// DeviceState returns the connection machine state of addr.
func (s *Service) DeviceState(addr bdaddr.Addr) (device.State, error) {
	if err := s.checkEnabled(); err != nil {
		return device.StateClosed, err
	}
	d, err := s.registry.Device(addr)
	if err != nil {
		return device.StateClosed, mapError(err)
	}
	return d.State(), nil
}

// GroupID returns the id of the group owning addr.
func (s *Service) GroupID(addr bdaddr.Addr) (int, error) {
	if err := s.checkEnabled(); err != nil {
		return 0, err
	}
	g, _, err := s.registry.GroupOf(addr)
	if err != nil {
		return 0, mapError(err)
	}
	return g.ID(), nil
}

// DiscoveryStart starts a search for further members of a set.
func (s *Service) DiscoveryStart(groupID int) error {
	return s.call(func() error {
		return mapError(s.coordinator.DiscoveryStart(groupID))
	})
}

// DiscoveryStop stops a member search.
func (s *Service) DiscoveryStop(groupID int) error {
	return s.call(func() error {
		return mapError(s.coordinator.DiscoveryStop(groupID))
	})
}

// GroupAddMember places addr in a group.
func (s *Service) GroupAddMember(groupID int, addr bdaddr.Addr) error {
	return s.call(func() error {
		return mapError(s.coordinator.AddMember(groupID, addr))
	})
}

// GroupRemoveMember detaches addr from a group. It fails with
// ErrNotFound if addr is not a member of that group.
func (s *Service) GroupRemoveMember(groupID int, addr bdaddr.Addr) error {
	return s.call(func() error {
		return mapError(s.coordinator.RemoveMember(groupID, addr))
	})
}

// GroupConnectAudio starts stream configuration for every connected
// member able to carry ctx. It fails only when no member could start,
// in which case the group's context is left unchanged.
func (s *Service) GroupConnectAudio(groupID int, ctx codec.Context) error {
	return s.call(func() error {
		if !ctx.Valid() {
			return fmt.Errorf("%w: context %d", ErrNotSupported, ctx)
		}
		g, err := s.registry.Group(groupID)
		if err != nil {
			return mapError(err)
		}
		var firstErr error
		started := 0
		for _, d := range g.Members() {
			err := checkConnectAudio(d, ctx)
			if err == nil {
				err = s.machineFor(d).dispatch(input{event: evConnectAudio, context: ctx})
			}
			if err != nil {
				s.debugLog("member not connected to audio", "group", groupID, "addr", d.Addr(), "error", err)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			started++
		}
		if started == 0 {
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: group %d has no members", ErrInvalidState, groupID)
			}
			return firstErr
		}
		return nil
	})
}

// GroupDisconnectAudio disables the active streams of a group with one
// request.
func (s *Service) GroupDisconnectAudio(groupID int) error {
	return s.call(func() error {
		g, err := s.registry.Group(groupID)
		if err != nil {
			return mapError(err)
		}
		for _, d := range g.Members() {
			if d.State() == device.StateStarted {
				return s.machineFor(d).dispatch(input{event: evDisconnectAudio})
			}
		}
		return fmt.Errorf("%w: no started member in group %d", ErrInvalidState, groupID)
	})
}

// GroupLock requests the set lock. The result is reported through
// Callbacks.GroupLocked.
func (s *Service) GroupLock(groupID int) error {
	return s.call(func() error {
		return mapError(s.coordinator.Lock(groupID))
	})
}

// GroupUnlock releases the set lock. The result is reported through
// Callbacks.GroupUnlocked.
func (s *Service) GroupUnlock(groupID int) error {
	return s.call(func() error {
		return mapError(s.coordinator.Unlock(groupID))
	})
}

// RegisterCallbacks adds an observer. It may be called before Start.
func (s *Service) RegisterCallbacks(cb Callbacks) (observer.Handle, error) {
	h, err := s.observers.Register(cb)
	if err != nil {
		return observer.Handle{}, mapError(err)
	}
	return h, nil
}

// UnregisterCallbacks removes an observer.
func (s *Service) UnregisterCallbacks(h observer.Handle) error {
	return mapError(s.observers.Unregister(h))
}

// Devices returns a snapshot of every known device, ordered by address.
func (s *Service) Devices() []device.Info {
	devices := s.registry.Devices()
	out := make([]device.Info, 0, len(devices))
	for _, d := range devices {
		out = append(out, d.Info())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Addr.String() < out[j].Addr.String()
	})
	return out
}

// Groups returns a snapshot of every group, ordered by id.
func (s *Service) Groups() []group.Info {
	groups := s.registry.Groups()
	out := make([]group.Info, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.Info())
	}
	return out
}

func (s *Service) checkEnabled() error {
	if s.State() != StateRunning {
		return ErrNotEnabled
	}
	return nil
}

// checkConnectAudio rejects a device whose link is down or that can
// carry ctx in neither direction.
func checkConnectAudio(d *device.Device, ctx codec.Context) error {
	if !d.State().Connected() {
		return fmt.Errorf("%w: %s is not connected", ErrInvalidState, d.Addr())
	}
	sink := codec.ContextValid(ctx, d.SupportedContexts(codec.RoleSink), d.AvailableContexts(codec.RoleSink))
	source := codec.ContextValid(ctx, d.SupportedContexts(codec.RoleSource), d.AvailableContexts(codec.RoleSource))
	if !sink && !source {
		return fmt.Errorf("%w: %s does not accept %s", ErrNotSupported, d.Addr(), ctx)
	}
	return nil
}

package simulator

import (
	"github.com/leaudio/leaudio-go/pkg/bdaddr"
	"github.com/leaudio/leaudio-go/pkg/codec"
	"github.com/leaudio/leaudio-go/pkg/csip"
	"github.com/leaudio/leaudio-go/pkg/device"
	"github.com/leaudio/leaudio-go/pkg/group"
	"github.com/leaudio/leaudio-go/pkg/offload"
	"github.com/leaudio/leaudio-go/pkg/service"
)

type reply = func(service.ControllerEvents)

// Connect brings the link up and reports the device's capabilities,
// contexts, locations and idle endpoints.
func (s *Simulator) Connect(addr bdaddr.Addr) error {
	s.count("CONNECT")
	d, err := s.device(addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	wasConnected := d.connected
	d.connected = true
	p := d.profile
	s.mu.Unlock()
	if !wasConnected {
		s.connected.Inc()
	}
	s.debugLog("sim connect", "addr", addr)

	batch := []reply{
		func(e service.ControllerEvents) { e.LinkStateChanged(addr, service.LinkConnected) },
	}
	for _, c := range p.Capabilities {
		c := c
		batch = append(batch, func(e service.ControllerEvents) { e.CapabilityReported(addr, c) })
	}
	batch = append(batch,
		func(e service.ControllerEvents) { e.SupportedContextsReported(addr, p.Contexts, p.Contexts) },
		func(e service.ControllerEvents) { e.AvailableContextsReported(addr, p.Contexts, p.Contexts) },
	)
	for role, alloc := range p.Allocation {
		role, alloc := role, alloc
		if alloc == 0 {
			continue
		}
		batch = append(batch, func(e service.ControllerEvents) { e.LocationReported(addr, codec.Role(role), alloc) })
	}

	aseID := uint8(1)
	for i := 0; i < p.SinkEndpoints; i++ {
		batch = append(batch, endpointState(addr, aseID, codec.RoleSink, device.ASEIdle))
		aseID++
	}
	for i := 0; i < p.SourceEndpoints; i++ {
		batch = append(batch, endpointState(addr, aseID, codec.RoleSource, device.ASEIdle))
		aseID++
	}
	s.emit(batch...)
	return nil
}

// Disconnect drops the link and forgets the device's streams.
func (s *Simulator) Disconnect(addr bdaddr.Addr) error {
	s.count("DISCONNECT")
	d, err := s.device(addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	wasConnected := d.connected
	d.connected = false
	for id, ref := range s.streams {
		if ref.addr == addr {
			delete(s.streams, id)
		}
	}
	s.mu.Unlock()
	if wasConnected {
		s.connected.Dec()
	}

	s.emit(func(e service.ControllerEvents) { e.LinkStateChanged(addr, service.LinkDisconnected) })
	return nil
}

// AllocateStream hands out increasing stream ids.
func (s *Simulator) AllocateStream(groupID, cisID int, aseID uint8, role codec.Role) (uint32, error) {
	s.count("ALLOCATE_STREAM")
	return s.nextStream.Inc(), nil
}

// GroupAddStream records the stream and reports it added.
func (s *Simulator) GroupAddStream(groupID int, cfg service.StreamConfig) error {
	s.count("GROUP_ADD_STREAM")
	if _, err := s.device(cfg.Addr); err != nil {
		return err
	}
	s.mu.Lock()
	s.streams[cfg.ID] = streamRef{addr: cfg.Addr, aseID: cfg.ASEID, role: cfg.Role}
	s.mu.Unlock()

	addr, id := cfg.Addr, cfg.ID
	s.emit(func(e service.ControllerEvents) { e.StreamAdded(addr, id) })
	return nil
}

// GroupRemoveStreams forgets the streams and reports them removed.
func (s *Simulator) GroupRemoveStreams(groupID int, ids []uint32) error {
	s.count("GROUP_REMOVE_STREAMS")
	var batch []reply
	s.mu.Lock()
	for _, id := range ids {
		id := id
		ref, ok := s.streams[id]
		if !ok {
			continue
		}
		delete(s.streams, id)
		addr := ref.addr
		batch = append(batch, func(e service.ControllerEvents) { e.StreamRemoved(addr, id) })
	}
	s.mu.Unlock()
	s.emit(batch...)
	return nil
}

// RequestCodec configures every stream's endpoint.
func (s *Simulator) RequestCodec(groupID int, ids []uint32) error {
	s.count("CONFIG_CODEC")
	s.perStream(ids, func(ref streamRef, id uint32, p Profile) []reply {
		return []reply{
			endpointState(ref.addr, ref.aseID, ref.role, device.ASECodecConfigured),
			completed(ref.addr, id, service.OpConfigCodec, p.CodecStatus),
		}
	})
	return nil
}

// RequestQoS configures QoS on every stream's endpoint.
func (s *Simulator) RequestQoS(groupID int, ids []uint32) error {
	s.count("CONFIG_QOS")
	s.perStream(ids, func(ref streamRef, id uint32, _ Profile) []reply {
		return []reply{
			endpointState(ref.addr, ref.aseID, ref.role, device.ASEQoSConfigured),
			completed(ref.addr, id, service.OpConfigQoS, 0),
		}
	})
	return nil
}

// RequestEnable enables every stream, then reports it streaming.
func (s *Simulator) RequestEnable(groupID int, ids []uint32, contexts uint16) error {
	s.count("ENABLE")
	s.perStream(ids, func(ref streamRef, id uint32, _ Profile) []reply {
		return []reply{
			endpointState(ref.addr, ref.aseID, ref.role, device.ASEEnabling),
			completed(ref.addr, id, service.OpEnable, 0),
		}
	})
	s.perStream(ids, func(ref streamRef, id uint32, _ Profile) []reply {
		return []reply{
			endpointState(ref.addr, ref.aseID, ref.role, device.ASEStreaming),
			func(e service.ControllerEvents) { e.StreamStarted(id) },
		}
	})
	return nil
}

// RequestDisable disables and releases every stream.
func (s *Simulator) RequestDisable(groupID int, ids []uint32) error {
	s.count("DISABLE")
	s.perStream(ids, func(ref streamRef, id uint32, _ Profile) []reply {
		return []reply{
			endpointState(ref.addr, ref.aseID, ref.role, device.ASEDisabling),
			completed(ref.addr, id, service.OpDisable, 0),
			func(e service.ControllerEvents) { e.StreamStopped(id) },
		}
	})
	s.perStream(ids, func(ref streamRef, id uint32, _ Profile) []reply {
		return []reply{
			endpointState(ref.addr, ref.aseID, ref.role, device.ASEReleasing),
			completed(ref.addr, id, service.OpRelease, 0),
			endpointState(ref.addr, ref.aseID, ref.role, device.ASEIdle),
		}
	})
	return nil
}

// SendVendorCommand acknowledges the command unless configured to drop it.
func (s *Simulator) SendVendorCommand(cmd offload.Command) error {
	s.count("VENDOR_COMMAND")
	s.vendor.Inc()
	if s.config.DropVendor {
		s.debugLog("sim vendor command dropped", "id", cmd.ID)
		return nil
	}
	id, status := cmd.ID, s.config.VendorStatus
	s.emit(func(e service.ControllerEvents) { e.VendorCommandCompleted(id, status) })
	return nil
}

// GroupCreate is accepted without a reply.
func (s *Simulator) GroupCreate(groupID int, key group.SetKey) error {
	s.count("GROUP_CREATE")
	return nil
}

// GroupDelete is accepted without a reply.
func (s *Simulator) GroupDelete(groupID int) error {
	s.count("GROUP_DELETE")
	return nil
}

// DiscoveryStart reports every registered member of the set as
// discovered, then ends the search.
func (s *Simulator) DiscoveryStart(key group.SetKey) error {
	s.count("DISCOVERY_START")
	var batch []reply
	s.mu.Lock()
	for _, addr := range s.order {
		p := s.devices[addr].profile
		if p.InSet && p.SetKey == key {
			batch = append(batch, csipEvent(csip.Event{Type: csip.EventMemberDiscovered, Key: key, Addr: addr}))
		}
	}
	s.mu.Unlock()
	batch = append(batch, csipEvent(csip.Event{Type: csip.EventDiscoveryTerminated, Key: key}))
	s.emit(batch...)
	return nil
}

// DiscoveryStop ends a search.
func (s *Simulator) DiscoveryStop(key group.SetKey) error {
	s.count("DISCOVERY_STOP")
	s.emit(csipEvent(csip.Event{Type: csip.EventDiscoveryTerminated, Key: key}))
	return nil
}

// Lock grants the set lock.
func (s *Simulator) Lock(key group.SetKey) error {
	s.count("LOCK")
	s.emit(csipEvent(csip.Event{Type: csip.EventLockChanged, Key: key, Locked: true}))
	return nil
}

// Unlock releases the set lock.
func (s *Simulator) Unlock(key group.SetKey) error {
	s.count("UNLOCK")
	s.emit(csipEvent(csip.Event{Type: csip.EventLockChanged, Key: key, Locked: false}))
	return nil
}

// perStream queues one batch built from the replies of every known
// stream in ids.
func (s *Simulator) perStream(ids []uint32, fn func(streamRef, uint32, Profile) []reply) {
	var batch []reply
	for _, id := range ids {
		ref, ok := s.stream(id)
		if !ok {
			s.debugLog("sim unknown stream", "stream", id)
			continue
		}
		d, err := s.device(ref.addr)
		if err != nil {
			continue
		}
		s.mu.Lock()
		p := d.profile
		s.mu.Unlock()
		batch = append(batch, fn(ref, id, p)...)
	}
	s.emit(batch...)
}

func endpointState(addr bdaddr.Addr, aseID uint8, role codec.Role, state device.ASEState) reply {
	return func(e service.ControllerEvents) { e.EndpointStateReported(addr, aseID, role, state) }
}

func completed(addr bdaddr.Addr, id uint32, op service.ASEOperation, status uint8) reply {
	return func(e service.ControllerEvents) { e.OperationCompleted(addr, id, op, status) }
}

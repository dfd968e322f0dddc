package service

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/leaudio/leaudio-go/pkg/bdaddr"
	"github.com/leaudio/leaudio-go/pkg/codec"
	"github.com/leaudio/leaudio-go/pkg/csip"
	"github.com/leaudio/leaudio-go/pkg/device"
	"github.com/leaudio/leaudio-go/pkg/log"
	"github.com/leaudio/leaudio-go/pkg/offload"
	"github.com/leaudio/leaudio-go/pkg/stream"
)

// ingest runs fn on the loop and returns at once, so a controller may
// report events from inside a request. Events arriving while the service
// is not running are dropped.
func (s *Service) ingest(name string, fn func() error) {
	err := s.enqueue(func() {
		if err := fn(); err != nil {
			s.debugLog("controller event not applied", "event", name, "error", err)
		}
	})
	if err != nil {
		s.debugLog("controller event dropped", "event", name, "error", err)
	}
}

// StackStateChanged forwards the controller's stack state to observers.
func (s *Service) StackStateChanged(enabled bool) {
	s.ingest("STACK_STATE", func() error {
		s.traceNotification(bdaddr.Addr{}, "STACK_STATE", 0, nil, fmt.Sprintf("enabled=%t", enabled))
		s.notify(func(cb Callbacks) {
			if cb.StackStateChanged != nil {
				cb.StackStateChanged(enabled)
			}
		})
		return nil
	})
}

// LinkStateChanged feeds a link state change to the device's machine.
// An unknown device is created in the default group.
func (s *Service) LinkStateChanged(addr bdaddr.Addr, state LinkState) {
	s.ingest("LINK_STATE", func() error {
		s.traceNotification(addr, "LINK_STATE", 0, nil, state.String())
		ev := evLinkDisconnected
		if state == LinkConnected {
			ev = evLinkConnected
		}
		return s.ensureMachine(addr).dispatch(input{event: ev})
	})
}

// CapabilityReported records a published capability record.
func (s *Service) CapabilityReported(addr bdaddr.Addr, c codec.Capability) {
	s.ingest("PAC", func() error {
		s.traceNotification(addr, "PAC", 0, nil, fmt.Sprintf("%s freq=%#04x", c.Role, c.Frequencies))
		d, err := s.registry.Device(addr)
		if err != nil {
			return err
		}
		return d.AddCapability(c)
	})
}

// LocationReported records a role's audio channel allocation.
func (s *Service) LocationReported(addr bdaddr.Addr, role codec.Role, allocation uint32) {
	s.ingest("AUDIO_LOCATION", func() error {
		s.traceNotification(addr, "AUDIO_LOCATION", 0, nil, fmt.Sprintf("%s %#08x", role, allocation))
		d, err := s.registry.Device(addr)
		if err != nil {
			return err
		}
		return d.SetAllocation(role, allocation)
	})
}

// AvailableContextsReported records the available context masks.
func (s *Service) AvailableContextsReported(addr bdaddr.Addr, sink, source uint16) {
	s.ingest("AVAILABLE_CONTEXTS", func() error {
		s.traceNotification(addr, "AVAILABLE_CONTEXTS", 0, nil, fmt.Sprintf("sink=%#04x source=%#04x", sink, source))
		d, err := s.registry.Device(addr)
		if err != nil {
			return err
		}
		if err := d.SetAvailableContexts(codec.RoleSink, sink); err != nil {
			return err
		}
		return d.SetAvailableContexts(codec.RoleSource, source)
	})
}

// SupportedContextsReported records the supported context masks.
func (s *Service) SupportedContextsReported(addr bdaddr.Addr, sink, source uint16) {
	s.ingest("SUPPORTED_CONTEXTS", func() error {
		s.traceNotification(addr, "SUPPORTED_CONTEXTS", 0, nil, fmt.Sprintf("sink=%#04x source=%#04x", sink, source))
		d, err := s.registry.Device(addr)
		if err != nil {
			return err
		}
		if err := d.SetSupportedContexts(codec.RoleSink, sink); err != nil {
			return err
		}
		return d.SetSupportedContexts(codec.RoleSource, source)
	})
}

// EndpointStateReported records an ASE state. Unknown endpoints are added.
func (s *Service) EndpointStateReported(addr bdaddr.Addr, aseID uint8, role codec.Role, state device.ASEState) {
	s.ingest("ASE_STATE", func() error {
		s.traceEndpoint(addr, aseID, state.String())
		d, err := s.registry.Device(addr)
		if err != nil {
			return err
		}
		_, err = d.UpdateEndpoint(aseID, role, state)
		return err
	})
}

// OperationCompleted maps an ASE operation result onto the device's
// machine.
func (s *Service) OperationCompleted(addr bdaddr.Addr, streamID uint32, op ASEOperation, status uint8) {
	s.ingest(op.String(), func() error {
		s.traceNotification(addr, "ASE_OP_COMPLETED", streamID, &status, op.String())
		in := input{streamID: streamID, status: status}
		switch op {
		case OpConfigCodec:
			in.event = evCodecConfigured
		case OpConfigQoS:
			in.event = evQoSConfigured
		case OpEnable:
			in.event = evEnabling
		case OpDisable:
			in.event = evDisabling
		case OpRelease:
			in.event = evReleasing
		case OpUpdateMetadata:
			return s.toAudio(streamID, AudioSink.MetadataUpdated)
		default:
			return fmt.Errorf("%w: operation %d", ErrNotSupported, op)
		}
		return s.deliver(addr, in)
	})
}

// StreamAdded records a stream created by the controller.
func (s *Service) StreamAdded(addr bdaddr.Addr, streamID uint32) {
	s.ingest("STREAM_ADDED", func() error {
		s.traceNotification(addr, "STREAM_ADDED", streamID, nil, "")
		return s.deliver(addr, input{event: evStreamAdded, streamID: streamID})
	})
}

// StreamRemoved drops a stream released by the controller.
func (s *Service) StreamRemoved(addr bdaddr.Addr, streamID uint32) {
	s.ingest("STREAM_REMOVED", func() error {
		s.traceNotification(addr, "STREAM_REMOVED", streamID, nil, "")
		return s.deliver(addr, input{event: evStreamRemoved, streamID: streamID})
	})
}

// StreamStarted marks a stream started. With offload enabled, audio is
// only brought up once every active endpoint of the group streams and
// the offload start was acknowledged.
func (s *Service) StreamStarted(streamID uint32) {
	s.ingest("STREAM_STARTED", func() error {
		st, err := s.streams.Get(streamID)
		if err != nil {
			return mapError(err)
		}
		s.traceNotification(st.Addr, "STREAM_STARTED", streamID, nil, "")

		d, err := s.registry.Device(st.Addr)
		if err != nil {
			return mapError(err)
		}
		ep, ok := d.EndpointByStream(streamID)
		if !ok {
			return fmt.Errorf("%w: endpoint for stream %d", ErrNotFound, streamID)
		}
		if _, err := s.streams.MarkStarted(streamID, ep.Codec); err != nil {
			return mapError(err)
		}

		if !s.config.OffloadEnabled {
			return s.deliver(st.Addr, input{event: evStreamStarted, streamID: streamID})
		}

		gid, ok := s.groupLookup(st.Addr)
		if !ok {
			return fmt.Errorf("%w: %s is not grouped", ErrNotFound, st.Addr)
		}
		ready, err := s.registry.CompletedByState(gid, device.ASEStreaming)
		if err != nil {
			return mapError(err)
		}
		if !ready {
			s.debugLog("group not streaming yet", "group", gid, "stream", streamID)
			return nil
		}
		cfg, err := s.offloadConfig(gid)
		if err != nil {
			return err
		}
		return s.deliver(st.Addr, input{event: evOffloadStart, offload: cfg})
	})
}

// StreamStopped stops audio for a stream and, with offload enabled,
// tears down the offload path.
func (s *Service) StreamStopped(streamID uint32) {
	s.ingest("STREAM_STOPPED", func() error {
		st, err := s.streams.Get(streamID)
		if err != nil {
			return mapError(err)
		}
		s.traceNotification(st.Addr, "STREAM_STOPPED", streamID, nil, "")

		var stop *input
		if s.config.OffloadEnabled {
			if gid, ok := s.groupLookup(st.Addr); ok {
				if cfg, err := s.offloadConfig(gid); err == nil {
					stop = &input{event: evOffloadStop, offload: cfg}
				}
			}
		}

		err = s.deliver(st.Addr, input{event: evStreamStopped, streamID: streamID})
		if stop != nil {
			addr := st.Addr
			s.later(func() {
				_ = s.deliver(addr, *stop)
			})
		}
		return err
	})
}

// StreamSuspended forwards a suspend to the audio subsystem.
func (s *Service) StreamSuspended(streamID uint32) {
	s.ingest("STREAM_SUSPENDED", func() error {
		return s.toAudio(streamID, AudioSink.StreamSuspended)
	})
}

// StreamResumed forwards a resume to the audio subsystem.
func (s *Service) StreamResumed(streamID uint32) {
	s.ingest("STREAM_RESUMED", func() error {
		return s.toAudio(streamID, AudioSink.StreamResumed)
	})
}

// VendorCommandCompleted resolves the offload request carrying id.
// Completions matching no outstanding request are ignored.
func (s *Service) VendorCommandCompleted(id uuid.UUID, status uint8) {
	s.ingest("VENDOR_COMMAND_COMPLETED", func() error {
		for addr, m := range s.machines {
			res, ok := m.offload.Complete(id, status == 0)
			if !ok {
				continue
			}
			step := log.OffloadCompleted
			if !res.Success {
				step = log.OffloadFailed
			}
			s.traceOffload(addr, res.Command, step)
			return m.dispatch(input{event: evOffloadDone, result: res})
		}
		s.traceOffload(bdaddr.Addr{}, offload.Command{ID: id}, log.OffloadIgnored)
		return nil
	})
}

// CSIPEvent applies a coordinated set event.
func (s *Service) CSIPEvent(ev csip.Event) {
	s.ingest("CSIP_"+ev.Type.String(), func() error {
		s.traceNotification(ev.Addr, "CSIP_"+ev.Type.String(), 0, nil, ev.Key.String())
		return s.coordinator.Handle(ev)
	})
}

func (s *Service) toAudio(streamID uint32, fn func(AudioSink, stream.Stream)) error {
	st, err := s.streams.Get(streamID)
	if err != nil {
		return mapError(err)
	}
	if s.audio != nil {
		fn(s.audio, st)
	}
	return nil
}

package service

import (
	"fmt"

	"github.com/leaudio/leaudio-go/pkg/bdaddr"
	"github.com/leaudio/leaudio-go/pkg/codec"
	"github.com/leaudio/leaudio-go/pkg/device"
	"github.com/leaudio/leaudio-go/pkg/log"
	"github.com/leaudio/leaudio-go/pkg/offload"
)

// machineEvent is an input to a device connection machine.
type machineEvent uint8

const (
	evConnect machineEvent = iota
	evDisconnect
	evLinkConnected
	evLinkDisconnected
	evConnectAudio
	evDisconnectAudio
	evStreamAdded
	evStreamRemoved
	evCodecConfigured
	evQoSConfigured
	evEnabling
	evDisabling
	evReleasing
	evStreamStarted
	evStreamStopped
	evOffloadStart
	evOffloadStop
	evOffloadDone
)

// String returns the event name.
func (e machineEvent) String() string {
	switch e {
	case evConnect:
		return "CONNECT"
	case evDisconnect:
		return "DISCONNECT"
	case evLinkConnected:
		return "LINK_CONNECTED"
	case evLinkDisconnected:
		return "LINK_DISCONNECTED"
	case evConnectAudio:
		return "CONNECT_AUDIO"
	case evDisconnectAudio:
		return "DISCONNECT_AUDIO"
	case evStreamAdded:
		return "STREAM_ADDED"
	case evStreamRemoved:
		return "STREAM_REMOVED"
	case evCodecConfigured:
		return "CODEC_CONFIGURED"
	case evQoSConfigured:
		return "QOS_CONFIGURED"
	case evEnabling:
		return "ENABLING"
	case evDisabling:
		return "DISABLING"
	case evReleasing:
		return "RELEASING"
	case evStreamStarted:
		return "STREAM_STARTED"
	case evStreamStopped:
		return "STREAM_STOPPED"
	case evOffloadStart:
		return "OFFLOAD_START"
	case evOffloadStop:
		return "OFFLOAD_STOP"
	case evOffloadDone:
		return "OFFLOAD_DONE"
	default:
		return "UNKNOWN"
	}
}

// input is one machine event with its arguments.
type input struct {
	event    machineEvent
	streamID uint32
	status   uint8
	context  codec.Context
	offload  offload.Config
	result   offload.Result
}

// machine is the connection state machine of one device. It is only
// touched from the service loop.
type machine struct {
	svc     *Service
	addr    bdaddr.Addr
	dev     *device.Device
	offload *offload.Controller
}

func newMachine(s *Service, d *device.Device) *machine {
	m := &machine{svc: s, addr: d.Addr(), dev: d}
	m.offload = offload.NewController(offload.ControllerConfig{
		Timeout:  s.config.OffloadTimeout,
		Builder:  s.config.OffloadBuilder,
		Send:     m.sendVendorCommand,
		OnExpire: m.offloadExpired,
		Logger:   s.logger,
	})
	return m
}

// dispatch feeds one event to the machine. Events the current state does
// not accept are discarded without side effects and reported as
// ErrInvalidState.
func (m *machine) dispatch(in input) error {
	state := m.dev.State()
	m.svc.debugLog("machine event", "addr", m.addr, "state", state, "event", in.event)

	var handled bool
	var err error
	switch state {
	case device.StateClosed:
		handled, err = m.closed(in)
	case device.StateOpening:
		handled, err = m.opening(in)
	case device.StateOpened:
		handled, err = m.opened(in)
	case device.StateStarted:
		handled, err = m.started(in)
	case device.StateClosing:
		handled, err = m.closing(in)
	}

	if !handled {
		m.svc.debugLog("machine event discarded", "addr", m.addr, "state", state, "event", in.event)
		return fmt.Errorf("%w: %s in %s", ErrInvalidState, in.event, state)
	}
	return err
}

func (m *machine) closed(in input) (bool, error) {
	switch in.event {
	case evConnect:
		return true, m.connect()
	case evLinkConnected:
		m.svc.notifyConnection(m.addr, LinkConnected)
		m.transition(device.StateOpening, "link connected")
		return true, nil
	}
	return false, nil
}

func (m *machine) opening(in input) (bool, error) {
	switch in.event {
	case evLinkDisconnected:
		m.transition(device.StateClosed, "link disconnected")
		return true, nil
	case evConnectAudio:
		return true, m.openAudio(in.context)
	case evDisconnect:
		return true, m.disconnect()
	}
	return false, nil
}

func (m *machine) opened(in input) (bool, error) {
	switch in.event {
	case evLinkDisconnected:
		m.transition(device.StateClosed, "link disconnected")
	case evStreamAdded:
		return true, m.svc.addStream(m.dev, in.streamID)
	case evStreamRemoved:
		return true, m.svc.removeStream(in.streamID)
	case evCodecConfigured:
		if in.status != 0 {
			m.operationFailed(in.streamID, OpConfigCodec, in.status)
			return true, nil
		}
		m.advance(in.streamID, device.OpQoS)
	case evQoSConfigured:
		if in.status != 0 {
			m.operationFailed(in.streamID, OpConfigQoS, in.status)
			return true, nil
		}
		m.advance(in.streamID, device.OpEnabling)
	case evEnabling:
		if in.status != 0 {
			m.operationFailed(in.streamID, OpEnable, in.status)
			return true, nil
		}
		m.transition(device.StateStarted, "enabling")
	case evDisconnect:
		return true, m.disconnect()
	default:
		return false, nil
	}
	return true, nil
}

func (m *machine) started(in input) (bool, error) {
	switch in.event {
	case evLinkDisconnected:
		m.transition(device.StateClosed, "link disconnected")
	case evStreamStarted:
		return true, m.startAudio(in.streamID)
	case evStreamStopped:
		m.stopAudio(in.streamID)
	case evEnabling:
		// The barrier already moved this device on; only a rejection
		// of the real completion is left to report.
		if in.status != 0 {
			m.operationFailed(in.streamID, OpEnable, in.status)
		}
	case evOffloadStart:
		m.requestOffload(in.offload, true)
	case evOffloadStop:
		m.requestOffload(in.offload, false)
	case evOffloadDone:
		if in.result.Start && in.result.Success {
			m.svc.groupStarted(m.groupID())
		}
	case evDisabling:
		m.removeStreams()
		m.transition(device.StateClosing, "disabling")
	case evReleasing:
		m.transition(device.StateClosed, "releasing")
	case evDisconnectAudio:
		return true, m.disable()
	case evDisconnect:
		return true, m.disconnect()
	default:
		return false, nil
	}
	return true, nil
}

func (m *machine) closing(in input) (bool, error) {
	switch in.event {
	case evLinkDisconnected:
		m.transition(device.StateClosed, "link disconnected")
	case evConnectAudio:
		return true, m.openAudio(in.context)
	case evReleasing:
		m.transition(device.StateClosed, "releasing")
	case evStreamAdded:
		return true, m.svc.addStream(m.dev, in.streamID)
	case evStreamRemoved:
		m.stopAudio(in.streamID)
		return true, m.svc.removeStream(in.streamID)
	case evStreamStopped:
		m.stopAudio(in.streamID)
	case evOffloadStop:
		m.requestOffload(in.offload, false)
	case evOffloadDone:
		// Audio is not brought up outside Started.
	case evDisconnect:
		return true, m.disconnect()
	default:
		return false, nil
	}
	return true, nil
}

// transition moves the machine to state to, running the exit hook of the
// old state and the enter hook of the new one.
func (m *machine) transition(to device.State, reason string) {
	from := m.dev.State()
	if from == to {
		return
	}

	m.exit(from)
	m.dev.SetState(to)
	m.svc.traceState(log.StateEntityDevice, m.addr, m.groupID(), from.String(), to.String(), reason)
	m.svc.debugLog("device state changed", "addr", m.addr, "from", from, "to", to, "reason", reason)
	m.enter(to)
}

func (m *machine) exit(from device.State) {
	if from == device.StateStarted && m.offload.State() == offload.StateAwaitingStart {
		m.offload.Reset()
	}
}

func (m *machine) enter(to device.State) {
	if to == device.StateClosed {
		m.release()
		m.svc.notifyConnection(m.addr, LinkDisconnected)
	}
}

// release returns the per-device session resources.
func (m *machine) release() {
	m.offload.Reset()
	for _, st := range m.svc.streams.ByDevice(m.addr) {
		if st.Started {
			m.stopAudio(st.ID)
		}
		_ = m.svc.removeStream(st.ID)
	}
	m.dev.DeactivateAll()
	m.freeCIS()
}

func (m *machine) groupID() int {
	g, _, err := m.svc.registry.GroupOf(m.addr)
	if err != nil {
		return -1
	}
	return g.ID()
}

func (m *machine) connect() error {
	m.svc.traceCommand(m.addr, -1, "CONNECT", nil, "")
	if err := m.svc.ctrl.Connect(m.addr); err != nil {
		m.svc.traceError(log.LayerController, m.addr, "connect", err)
		return fmt.Errorf("connect %s: %w", m.addr, err)
	}
	return nil
}

func (m *machine) disconnect() error {
	m.svc.traceCommand(m.addr, -1, "DISCONNECT", nil, "")
	if err := m.svc.ctrl.Disconnect(m.addr); err != nil {
		m.svc.traceError(log.LayerController, m.addr, "disconnect", err)
		return fmt.Errorf("disconnect %s: %w", m.addr, err)
	}
	return nil
}

// openAudio selects endpoints for ctx, hands their streams to the group
// and starts codec configuration.
func (m *machine) openAudio(ctx codec.Context) error {
	gid := m.groupID()
	if gid < 0 {
		return fmt.Errorf("%w: %s is not grouped", ErrNotFound, m.addr)
	}
	if err := m.addStreams(gid, ctx); err != nil {
		return err
	}
	// The group takes the new context only once this device accepted
	// it, since setting it also clears the barrier latch.
	if err := m.svc.registry.SetContext(gid, ctx); err != nil {
		return mapError(err)
	}

	m.dev.SetActiveOp(device.OpCodec)
	m.svc.request(m.addr, gid, "CONFIG_CODEC", activeStreamIDs(m.dev), m.svc.ctrl.RequestCodec)
	m.transition(device.StateOpened, "connect audio")
	return nil
}

// addStreams allocates the device's CIS id and a stream id per endpoint,
// then activates at most one endpoint per role that ctx needs and the
// device can carry.
func (m *machine) addStreams(gid int, ctx codec.Context) error {
	m.freeCIS()
	cisID, err := m.svc.cis.Alloc()
	if err != nil {
		return fmt.Errorf("%w: cis id for %s", ErrResourceExhausted, m.addr)
	}
	m.dev.SetCISID(cisID)

	caps := m.dev.Capabilities()
	added := 0
	for _, ep := range m.dev.Endpoints() {
		streamID := ep.StreamID
		if streamID == 0 {
			streamID, err = m.svc.ctrl.AllocateStream(gid, cisID, ep.ID, ep.Role)
			if err != nil {
				m.svc.traceError(log.LayerController, m.addr, "allocate stream", err)
				continue
			}
			_ = m.dev.SetStreamID(ep.ID, streamID)
		}

		if !codec.ActivatesRole(ctx, ep.Role) || m.dev.HasActiveRole(ep.Role) {
			continue
		}

		cfg, err := m.svc.negotiator.Negotiate(caps, ctx, ep.Role, m.dev.AvailableContexts(ep.Role))
		if err != nil {
			m.svc.debugLog("endpoint not configurable", "addr", m.addr, "ase", ep.ID, "error", err)
			continue
		}
		if alloc := m.dev.Allocation(ep.Role); alloc != 0 {
			cfg.Allocation = alloc
		}
		if err := m.dev.Activate(ep.ID, cfg); err != nil {
			continue
		}

		sc := StreamConfig{
			ID:       streamID,
			Addr:     m.addr,
			CISID:    cisID,
			ASEID:    ep.ID,
			Role:     ep.Role,
			Codec:    cfg,
			Contexts: ctx.Bit(),
		}
		m.svc.traceCommand(m.addr, gid, "GROUP_ADD_STREAM", []uint32{streamID}, cfg.Preset)
		if err := m.svc.ctrl.GroupAddStream(gid, sc); err != nil {
			m.svc.traceError(log.LayerController, m.addr, "group add stream", err)
		}
		added++
	}

	if added == 0 {
		m.freeCIS()
		return fmt.Errorf("%w: no endpoint of %s accepts %s", ErrNotSupported, m.addr, ctx)
	}
	return nil
}

// advance records that the endpoint carrying streamID finished the
// previous step and asks the group barrier whether op may be requested
// group-wide. Only the call that completes the barrier issues the request.
func (m *machine) advance(streamID uint32, op device.Op) {
	ep, ok := m.dev.EndpointByStream(streamID)
	if !ok || !ep.Active {
		m.svc.debugLog("completion for inactive stream", "addr", m.addr, "stream", streamID)
		return
	}
	_ = m.dev.SetOp(ep.ID, op)

	gid := m.groupID()
	latched, err := m.svc.registry.Advance(gid, op)
	if err != nil || !latched {
		return
	}
	snap, err := m.svc.registry.Snapshot(gid)
	if err != nil {
		return
	}
	m.svc.traceState(log.StateEntityGroup, bdaddr.Addr{}, gid, "", op.String(), "barrier")

	ids := snap.StreamIDs()
	switch op {
	case device.OpQoS:
		m.svc.request(m.addr, gid, "CONFIG_QOS", ids, m.svc.ctrl.RequestQoS)
	case device.OpEnabling:
		g, err := m.svc.registry.Group(gid)
		if err != nil {
			return
		}
		contexts := g.Context().Bit()
		m.svc.request(m.addr, gid, "ENABLE", ids, func(gid int, ids []uint32) error {
			return m.svc.ctrl.RequestEnable(gid, ids, contexts)
		})
		addr := m.addr
		m.svc.later(func() {
			_ = m.svc.deliver(addr, input{event: evEnabling})
		})
	}
}

func (m *machine) operationFailed(streamID uint32, op ASEOperation, status uint8) {
	m.svc.traceStatus(log.LayerController, m.addr, op.String(), status)
	addr := m.addr
	m.svc.notify(func(cb Callbacks) {
		if cb.ASEOperationFailed != nil {
			cb.ASEOperationFailed(addr, streamID, op, status)
		}
	})
}

// disable asks the controller to disable every active stream of the
// device's group.
func (m *machine) disable() error {
	gid := m.groupID()
	snap, err := m.svc.registry.Snapshot(gid)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	ids := snap.StreamIDs()
	if len(ids) == 0 {
		return fmt.Errorf("%w: no active stream in group %d", ErrInvalidState, gid)
	}
	m.svc.request(m.addr, gid, "DISABLE", ids, m.svc.ctrl.RequestDisable)
	return nil
}

// removeStreams drops the device's streams from its group and returns
// its CIS id.
func (m *machine) removeStreams() {
	gid := m.groupID()
	ids := m.dev.DeactivateAll()
	m.freeCIS()
	if len(ids) > 0 {
		m.svc.request(m.addr, gid, "GROUP_REMOVE_STREAMS", ids, m.svc.ctrl.GroupRemoveStreams)
	}
}

func (m *machine) startAudio(streamID uint32) error {
	st, err := m.svc.streams.Get(streamID)
	if err != nil {
		return fmt.Errorf("%w: stream %d", ErrNotFound, streamID)
	}
	m.svc.traceState(log.StateEntityEndpoint, m.addr, st.GroupID, "", "AUDIO_STARTED", fmt.Sprintf("stream %d", streamID))
	if m.svc.audio != nil {
		m.svc.audio.StreamStarted(st)
	}
	return nil
}

func (m *machine) stopAudio(streamID uint32) {
	st, err := m.svc.streams.MarkStopped(streamID)
	if err != nil {
		return
	}
	m.svc.traceState(log.StateEntityEndpoint, m.addr, st.GroupID, "", "AUDIO_STOPPED", fmt.Sprintf("stream %d", streamID))
	if m.svc.audio != nil {
		m.svc.audio.StreamStopped(st)
	}
}

func (m *machine) requestOffload(cfg offload.Config, start bool) {
	var sent bool
	var err error
	if start {
		sent, err = m.offload.RequestStart(cfg)
	} else {
		sent, err = m.offload.RequestStop(cfg)
	}
	if err != nil {
		m.svc.traceError(log.LayerOffload, m.addr, "offload request", err)
		return
	}
	if !sent {
		m.svc.debugLog("offload request already pending", "addr", m.addr, "start", start)
	}
}

func (m *machine) sendVendorCommand(cmd offload.Command) error {
	m.svc.traceOffload(m.addr, cmd, log.OffloadSent)
	return m.svc.ctrl.SendVendorCommand(cmd)
}

// offloadExpired runs on the timer goroutine and hands the expiry to
// the loop.
func (m *machine) offloadExpired(token uint64) {
	_ = m.svc.enqueue(func() {
		pending, _ := m.offload.Pending()
		if m.offload.Expire(token) {
			m.svc.traceOffload(m.addr, pending, log.OffloadTimedOut)
		}
	})
}

func (m *machine) freeCIS() {
	if id := m.dev.CISID(); id != device.NoCIS {
		_ = m.svc.cis.Free(id)
		m.dev.SetCISID(device.NoCIS)
	}
}

func activeStreamIDs(d *device.Device) []uint32 {
	var ids []uint32
	for _, ep := range d.ActiveEndpoints() {
		if ep.StreamID != 0 {
			ids = append(ids, ep.StreamID)
		}
	}
	return ids
}

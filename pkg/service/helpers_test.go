package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leaudio/leaudio-go/pkg/bdaddr"
	"github.com/leaudio/leaudio-go/pkg/codec"
	"github.com/leaudio/leaudio-go/pkg/device"
	"github.com/leaudio/leaudio-go/pkg/group"
	"github.com/leaudio/leaudio-go/pkg/log"
	"github.com/leaudio/leaudio-go/pkg/offload"
	"github.com/leaudio/leaudio-go/pkg/stream"
)

var (
	addrA = bdaddr.MustParse("00:11:22:33:44:01")
	addrB = bdaddr.MustParse("00:11:22:33:44:02")

	testSetKey = group.SetKey{0x01, 0x02, 0x03, 0x04}
)

// request is one recorded controller call.
type request struct {
	op       string
	groupID  int
	addr     bdaddr.Addr
	ids      []uint32
	contexts uint16
	stream   StreamConfig
}

// fakeController records every call and never calls back.
type fakeController struct {
	mu         sync.Mutex
	nextStream uint32
	requests   []request
	vendor     []offload.Command
	connectErr error
}

func newFakeController() *fakeController {
	return &fakeController{nextStream: 0x100}
}

func (f *fakeController) record(r request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r)
	return nil
}

func (f *fakeController) Connect(addr bdaddr.Addr) error {
	f.mu.Lock()
	err := f.connectErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.record(request{op: "CONNECT", addr: addr})
}

func (f *fakeController) Disconnect(addr bdaddr.Addr) error {
	return f.record(request{op: "DISCONNECT", addr: addr})
}

func (f *fakeController) AllocateStream(groupID, cisID int, aseID uint8, role codec.Role) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextStream++
	return f.nextStream, nil
}

func (f *fakeController) GroupAddStream(groupID int, cfg StreamConfig) error {
	return f.record(request{op: "GROUP_ADD_STREAM", groupID: groupID, addr: cfg.Addr, ids: []uint32{cfg.ID}, stream: cfg})
}

func (f *fakeController) GroupRemoveStreams(groupID int, ids []uint32) error {
	return f.record(request{op: "GROUP_REMOVE_STREAMS", groupID: groupID, ids: ids})
}

func (f *fakeController) RequestCodec(groupID int, ids []uint32) error {
	return f.record(request{op: "CONFIG_CODEC", groupID: groupID, ids: ids})
}

func (f *fakeController) RequestQoS(groupID int, ids []uint32) error {
	return f.record(request{op: "CONFIG_QOS", groupID: groupID, ids: ids})
}

func (f *fakeController) RequestEnable(groupID int, ids []uint32, contexts uint16) error {
	return f.record(request{op: "ENABLE", groupID: groupID, ids: ids, contexts: contexts})
}

func (f *fakeController) RequestDisable(groupID int, ids []uint32) error {
	return f.record(request{op: "DISABLE", groupID: groupID, ids: ids})
}

func (f *fakeController) SendVendorCommand(cmd offload.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vendor = append(f.vendor, cmd)
	return nil
}

func (f *fakeController) GroupCreate(groupID int, key group.SetKey) error {
	return f.record(request{op: "GROUP_CREATE", groupID: groupID})
}

func (f *fakeController) GroupDelete(groupID int) error {
	return f.record(request{op: "GROUP_DELETE", groupID: groupID})
}

func (f *fakeController) DiscoveryStart(key group.SetKey) error {
	return f.record(request{op: "DISCOVERY_START"})
}

func (f *fakeController) DiscoveryStop(key group.SetKey) error {
	return f.record(request{op: "DISCOVERY_STOP"})
}

func (f *fakeController) Lock(key group.SetKey) error {
	return f.record(request{op: "LOCK"})
}

func (f *fakeController) Unlock(key group.SetKey) error {
	return f.record(request{op: "UNLOCK"})
}

// find returns the recorded requests with op.
func (f *fakeController) find(op string) []request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []request
	for _, r := range f.requests {
		if r.op == op {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeController) vendorCommands() []offload.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]offload.Command, len(f.vendor))
	copy(out, f.vendor)
	return out
}

// fakeAudio records the streams handed to the audio subsystem.
type fakeAudio struct {
	mu      sync.Mutex
	started []stream.Stream
	stopped []stream.Stream
	other   []string
}

func (a *fakeAudio) StreamStarted(s stream.Stream) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.started = append(a.started, s)
}

func (a *fakeAudio) StreamStopped(s stream.Stream) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = append(a.stopped, s)
}

func (a *fakeAudio) StreamSuspended(s stream.Stream) { a.note("suspended") }
func (a *fakeAudio) StreamResumed(s stream.Stream)   { a.note("resumed") }
func (a *fakeAudio) MetadataUpdated(s stream.Stream) { a.note("metadata") }

func (a *fakeAudio) note(what string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.other = append(a.other, what)
}

func (a *fakeAudio) counts() (started, stopped int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.started), len(a.stopped)
}

func (a *fakeAudio) startedStreams() []stream.Stream {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]stream.Stream, len(a.started))
	copy(out, a.started)
	return out
}

// traceRecorder is a protocol logger kept in memory.
type traceRecorder struct {
	mu     sync.Mutex
	events []log.Event
}

func (r *traceRecorder) Log(e log.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *traceRecorder) offloadSteps() []log.OffloadStep {
	r.mu.Lock()
	defer r.mu.Unlock()
	var steps []log.OffloadStep
	for _, e := range r.events {
		if e.Offload != nil {
			steps = append(steps, e.Offload.Step)
		}
	}
	return steps
}

type fixture struct {
	svc   *Service
	ctrl  *fakeController
	audio *fakeAudio
	trace *traceRecorder
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()

	f := &fixture{
		ctrl:  newFakeController(),
		audio: &fakeAudio{},
		trace: &traceRecorder{},
	}
	cfg := DefaultConfig()
	cfg.ProtocolLogger = f.trace
	if mutate != nil {
		mutate(&cfg)
	}

	svc, err := NewService(cfg, f.ctrl, f.audio)
	require.NoError(t, err)
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() {
		_ = svc.Stop()
	})
	f.svc = svc
	return f
}

// flush waits until everything posted so far has run on the loop.
func (f *fixture) flush(t *testing.T) {
	t.Helper()
	require.NoError(t, f.svc.call(func() error { return nil }))
}

func voiceCapability(role codec.Role) codec.Capability {
	return codec.Capability{
		Role:            role,
		CodecID:         codec.IDLC3,
		Frequencies:     codec.FrequencyMask(codec.Freq8000, codec.Freq16000),
		Durations:       codec.DurationSupported10 | codec.DurationPreferred10,
		ChannelCounts:   0x01,
		MinOctets:       26,
		MaxOctets:       80,
		MaxFramesPerSDU: 1,
	}
}

// connectDevice brings addr up with a sink endpoint (ASE 1) and a source
// endpoint (ASE 2) supporting conversational and media audio.
func (f *fixture) connectDevice(t *testing.T, addr bdaddr.Addr) {
	t.Helper()

	contexts := codec.ContextConversational.Bit() | codec.ContextMedia.Bit()
	f.svc.LinkStateChanged(addr, LinkConnected)
	f.svc.CapabilityReported(addr, voiceCapability(codec.RoleSink))
	f.svc.CapabilityReported(addr, voiceCapability(codec.RoleSource))
	f.svc.SupportedContextsReported(addr, contexts, contexts)
	f.svc.AvailableContextsReported(addr, contexts, contexts)
	f.svc.EndpointStateReported(addr, 1, codec.RoleSink, device.ASEIdle)
	f.svc.EndpointStateReported(addr, 2, codec.RoleSource, device.ASEIdle)
	f.flush(t)

	st, err := f.svc.DeviceState(addr)
	require.NoError(t, err)
	require.Equal(t, device.StateOpening, st)
}

// activeStreams returns the stream ids of addr's active endpoints.
func (f *fixture) activeStreams(t *testing.T, addr bdaddr.Addr) []uint32 {
	t.Helper()
	d, err := f.svc.registry.Device(addr)
	require.NoError(t, err)
	return activeStreamIDs(d)
}

func (f *fixture) complete(addr bdaddr.Addr, op ASEOperation, ids ...uint32) {
	for _, id := range ids {
		f.svc.OperationCompleted(addr, id, op, 0)
	}
}

func (f *fixture) requireState(t *testing.T, addr bdaddr.Addr, want device.State) {
	t.Helper()
	f.flush(t)
	st, err := f.svc.DeviceState(addr)
	require.NoError(t, err)
	require.Equal(t, want, st)
}

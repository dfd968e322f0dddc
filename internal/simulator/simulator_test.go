package simulator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/leaudio/leaudio-go/pkg/bdaddr"
	"github.com/leaudio/leaudio-go/pkg/codec"
	"github.com/leaudio/leaudio-go/pkg/csip"
	"github.com/leaudio/leaudio-go/pkg/device"
	"github.com/leaudio/leaudio-go/pkg/group"
	"github.com/leaudio/leaudio-go/pkg/service"
	"github.com/leaudio/leaudio-go/pkg/stream"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

var (
	left  = bdaddr.MustParse("00:11:22:33:44:01")
	right = bdaddr.MustParse("00:11:22:33:44:02")
	sirk  = group.SetKey{0xA5, 0x01}
)

type audioCounter struct {
	started atomic.Int32
	stopped atomic.Int32
}

func (a *audioCounter) StreamStarted(stream.Stream)   { a.started.Inc() }
func (a *audioCounter) StreamStopped(stream.Stream)   { a.stopped.Inc() }
func (a *audioCounter) StreamSuspended(stream.Stream) {}
func (a *audioCounter) StreamResumed(stream.Stream)   {}
func (a *audioCounter) MetadataUpdated(stream.Stream) {}

type harness struct {
	sim   *Simulator
	svc   *service.Service
	audio *audioCounter
}

func newHarness(t *testing.T, simCfg Config, mutate func(*service.Config), profiles ...Profile) *harness {
	t.Helper()

	h := &harness{sim: New(simCfg), audio: &audioCounter{}}
	for _, p := range profiles {
		require.NoError(t, h.sim.Add(p))
	}

	cfg := service.DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	svc, err := service.NewService(cfg, h.sim, h.audio)
	require.NoError(t, err)
	h.svc = svc
	h.sim.Attach(svc)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.sim.Run(ctx)
	}()
	require.NoError(t, svc.Start(ctx))

	t.Cleanup(func() {
		_ = svc.Stop()
		cancel()
		<-done
	})
	return h
}

func (h *harness) waitState(t *testing.T, addr bdaddr.Addr, want device.State) {
	t.Helper()
	require.Eventually(t, func() bool {
		st, err := h.svc.DeviceState(addr)
		return err == nil && st == want
	}, waitFor, tick, "waiting for %s to reach %s", addr, want)
}

// connect brings addr up and waits until its endpoints are known.
func (h *harness) connect(t *testing.T, addr bdaddr.Addr, endpoints int) {
	t.Helper()
	require.NoError(t, h.svc.Connect(addr))
	h.waitState(t, addr, device.StateOpening)
	require.Eventually(t, func() bool {
		for _, info := range h.svc.Devices() {
			if info.Addr == addr {
				return len(info.Endpoints) == endpoints && info.Capabilities > 0
			}
		}
		return false
	}, waitFor, tick)
}

func TestRunRequiresAttach(t *testing.T) {
	err := New(Config{}).Run(context.Background())
	assert.ErrorIs(t, err, ErrNotAttached)
}

func TestAdd(t *testing.T) {
	sim := New(Config{})
	require.NoError(t, sim.Add(Profile{Addr: left}))
	assert.ErrorIs(t, sim.Add(Profile{Addr: left}), ErrDuplicate)
	assert.ErrorIs(t, sim.Add(Profile{Addr: right, SinkEndpoints: 6, SourceEndpoints: 3}), device.ErrEndpointTableFull)
	assert.ErrorIs(t, sim.Connect(right), ErrUnknownDevice)
}

func TestConversationalSession(t *testing.T) {
	h := newHarness(t, Config{}, nil, Profile{Addr: left})

	h.connect(t, left, 2)
	require.NoError(t, h.svc.ConnectAudio(left, codec.ContextConversational))
	h.waitState(t, left, device.StateStarted)
	require.Eventually(t, func() bool { return h.audio.started.Load() == 2 }, waitFor, tick)

	stats := h.sim.Stats()
	assert.Equal(t, 1, stats.Requests["CONFIG_CODEC"])
	assert.Equal(t, 1, stats.Requests["CONFIG_QOS"])
	assert.Equal(t, 1, stats.Requests["ENABLE"])
	assert.Equal(t, 2, stats.Streams)
	assert.EqualValues(t, 1, stats.Connected)

	require.NoError(t, h.svc.DisconnectAudio(left))
	h.waitState(t, left, device.StateClosed)
	require.Eventually(t, func() bool { return h.audio.stopped.Load() == 2 }, waitFor, tick)
	assert.Equal(t, 1, h.sim.Stats().Requests["GROUP_REMOVE_STREAMS"])
}

func TestMediaUsesSinkOnly(t *testing.T) {
	h := newHarness(t, Config{}, nil, Profile{Addr: left})

	h.connect(t, left, 2)
	require.NoError(t, h.svc.ConnectAudio(left, codec.ContextMedia))
	h.waitState(t, left, device.StateStarted)
	require.Eventually(t, func() bool { return h.audio.started.Load() == 1 }, waitFor, tick)
	assert.Equal(t, 1, h.sim.Stats().Requests["GROUP_ADD_STREAM"])
}

func TestCoordinatedSet(t *testing.T) {
	h := newHarness(t, Config{}, nil,
		Profile{Addr: left, InSet: true, SetKey: sirk, Rank: 1, SinkEndpoints: 1},
		Profile{Addr: right, InSet: true, SetKey: sirk, Rank: 2, SinkEndpoints: 1},
	)

	h.sim.DeclareSets()
	var gid int
	require.Eventually(t, func() bool {
		a, errA := h.svc.GroupID(left)
		b, errB := h.svc.GroupID(right)
		gid = a
		return errA == nil && errB == nil && a == b && a != group.DefaultID
	}, waitFor, tick)

	h.connect(t, left, 1)
	h.connect(t, right, 1)

	require.NoError(t, h.svc.GroupConnectAudio(gid, codec.ContextMedia))
	h.waitState(t, left, device.StateStarted)
	h.waitState(t, right, device.StateStarted)
	require.Eventually(t, func() bool { return h.audio.started.Load() == 2 }, waitFor, tick)

	stats := h.sim.Stats()
	assert.Equal(t, 1, stats.Requests["GROUP_CREATE"])
	assert.Equal(t, 2, stats.Requests["CONFIG_CODEC"])
	assert.Equal(t, 1, stats.Requests["CONFIG_QOS"])
	assert.Equal(t, 1, stats.Requests["ENABLE"])

	require.NoError(t, h.svc.GroupDisconnectAudio(gid))
	h.waitState(t, left, device.StateClosed)
	h.waitState(t, right, device.StateClosed)
	assert.Equal(t, 1, h.sim.Stats().Requests["DISABLE"])
}

func TestLockAndDiscovery(t *testing.T) {
	h := newHarness(t, Config{}, nil,
		Profile{Addr: left, InSet: true, SetKey: sirk},
		Profile{Addr: right, InSet: true, SetKey: sirk},
	)

	var locked, discovered, stopped atomic.Int32
	_, err := h.svc.RegisterCallbacks(service.Callbacks{
		GroupLocked:      func(int, csip.Status) { locked.Inc() },
		MemberDiscovered: func(int, bdaddr.Addr) { discovered.Inc() },
		DiscoveryStopped: func(int) { stopped.Inc() },
	})
	require.NoError(t, err)

	h.sim.DeclareSets()
	var gid int
	require.Eventually(t, func() bool {
		id, err := h.svc.GroupID(right)
		gid = id
		return err == nil && id != group.DefaultID
	}, waitFor, tick)

	require.NoError(t, h.svc.GroupLock(gid))
	require.NoError(t, h.svc.DiscoveryStart(gid))
	require.Eventually(t, func() bool {
		return locked.Load() == 1 && discovered.Load() == 2 && stopped.Load() == 1
	}, waitFor, tick)
}

func TestOffloadAcknowledged(t *testing.T) {
	h := newHarness(t, Config{Latency: time.Millisecond}, func(c *service.Config) {
		c.OffloadEnabled = true
	}, Profile{Addr: left})

	h.connect(t, left, 2)
	require.NoError(t, h.svc.ConnectAudio(left, codec.ContextConversational))
	require.Eventually(t, func() bool { return h.audio.started.Load() == 2 }, waitFor, tick)
	assert.EqualValues(t, 1, h.sim.Stats().VendorCommands)

	require.NoError(t, h.svc.DisconnectAudio(left))
	h.waitState(t, left, device.StateClosed)
	assert.GreaterOrEqual(t, h.sim.Stats().VendorCommands, uint32(2))
}

func TestOffloadDropped(t *testing.T) {
	h := newHarness(t, Config{DropVendor: true}, func(c *service.Config) {
		c.OffloadEnabled = true
		c.OffloadTimeout = 20 * time.Millisecond
	}, Profile{Addr: left})

	h.connect(t, left, 2)
	require.NoError(t, h.svc.ConnectAudio(left, codec.ContextConversational))
	h.waitState(t, left, device.StateStarted)
	require.Eventually(t, func() bool { return h.sim.Stats().VendorCommands == 1 }, waitFor, tick)

	time.Sleep(60 * time.Millisecond)
	assert.EqualValues(t, 0, h.audio.started.Load())
}

func TestCodecRejected(t *testing.T) {
	h := newHarness(t, Config{}, nil, Profile{Addr: left, CodecStatus: 0x07})

	var failed atomic.Int32
	_, err := h.svc.RegisterCallbacks(service.Callbacks{
		ASEOperationFailed: func(_ bdaddr.Addr, _ uint32, op service.ASEOperation, status uint8) {
			if op == service.OpConfigCodec && status == 0x07 {
				failed.Inc()
			}
		},
	})
	require.NoError(t, err)

	h.connect(t, left, 2)
	require.NoError(t, h.svc.ConnectAudio(left, codec.ContextConversational))
	require.Eventually(t, func() bool { return failed.Load() == 2 }, waitFor, tick)
	assert.Equal(t, 0, h.sim.Stats().Requests["CONFIG_QOS"])
	h.waitState(t, left, device.StateOpened)
}

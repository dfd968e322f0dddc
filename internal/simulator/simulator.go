// Package simulator provides an in-process controller that answers the
// service's requests with the notifications a set of well-behaved remote
// devices would produce.
//
// Replies are queued and delivered in order from the goroutine running
// Run, never from inside a Controller call.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/leaudio/leaudio-go/pkg/bdaddr"
	"github.com/leaudio/leaudio-go/pkg/codec"
	"github.com/leaudio/leaudio-go/pkg/csip"
	"github.com/leaudio/leaudio-go/pkg/device"
	"github.com/leaudio/leaudio-go/pkg/group"
	"github.com/leaudio/leaudio-go/pkg/service"
)

// Errors returned by the simulator.
var (
	ErrUnknownDevice = errors.New("unknown simulated device")
	ErrDuplicate     = errors.New("simulated device already exists")
	ErrNotAttached   = errors.New("simulator not attached")
)

// Profile describes one simulated remote device.
type Profile struct {
	Addr bdaddr.Addr

	// SetKey places the device in a coordinated set when InSet is true.
	SetKey group.SetKey
	InSet  bool
	Rank   uint8

	// Contexts is advertised as both supported and available for both
	// roles.
	Contexts uint16

	SinkEndpoints   int
	SourceEndpoints int

	// Capabilities defaults to DefaultCapabilities.
	Capabilities []codec.Capability

	// Allocation is reported per role when non-zero.
	Allocation [codec.RoleCount]uint32

	// CodecStatus is the result reported for codec configuration.
	CodecStatus uint8
}

// Config configures a Simulator.
type Config struct {
	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// Latency delays every reply batch.
	Latency time.Duration

	// VendorStatus is the status reported for vendor commands.
	VendorStatus uint8

	// DropVendor swallows vendor commands without completing them.
	DropVendor bool
}

// Stats counts the requests the simulator has served.
type Stats struct {
	Requests       map[string]int
	VendorCommands uint32
	Streams        int
	Connected      int32
}

type streamRef struct {
	addr  bdaddr.Addr
	aseID uint8
	role  codec.Role
}

type simDevice struct {
	profile   Profile
	connected bool
}

// Simulator implements service.Controller.
type Simulator struct {
	config Config
	logger *slog.Logger

	mu       sync.Mutex
	events   service.ControllerEvents
	devices  map[bdaddr.Addr]*simDevice
	order    []bdaddr.Addr
	streams  map[uint32]streamRef
	requests map[string]int
	pending  [][]func(service.ControllerEvents)
	wake     chan struct{}

	nextStream atomic.Uint32
	vendor     atomic.Uint32
	connected  atomic.Int32
}

var _ service.Controller = (*Simulator)(nil)

// New creates a simulator with no devices.
func New(config Config) *Simulator {
	return &Simulator{
		config:   config,
		logger:   config.Logger,
		devices:  make(map[bdaddr.Addr]*simDevice),
		streams:  make(map[uint32]streamRef),
		requests: make(map[string]int),
		wake:     make(chan struct{}, 1),
	}
}

// Attach sets the receiver of the simulated notifications. It must be
// called before Run.
func (s *Simulator) Attach(events service.ControllerEvents) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = events
}

// Add registers a device. Endpoint counts of zero default to one sink and
// one source endpoint.
func (s *Simulator) Add(p Profile) error {
	if p.SinkEndpoints == 0 && p.SourceEndpoints == 0 {
		p.SinkEndpoints, p.SourceEndpoints = 1, 1
	}
	if p.SinkEndpoints+p.SourceEndpoints > device.MaxEndpoints {
		return fmt.Errorf("%s: %w", p.Addr, device.ErrEndpointTableFull)
	}
	if len(p.Capabilities) == 0 {
		p.Capabilities = DefaultCapabilities()
	}
	if p.Contexts == 0 {
		p.Contexts = codec.ContextConversational.Bit() | codec.ContextMedia.Bit()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[p.Addr]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, p.Addr)
	}
	s.devices[p.Addr] = &simDevice{profile: p}
	s.order = append(s.order, p.Addr)
	return nil
}

// DeclareSets reports every coordinated set of the registered devices the
// way a controller does after bonding: set created, set size, then each
// member with its rank.
func (s *Simulator) DeclareSets() {
	s.mu.Lock()
	sets := make(map[group.SetKey][]Profile)
	var keys []group.SetKey
	for _, addr := range s.order {
		p := s.devices[addr].profile
		if !p.InSet {
			continue
		}
		if _, ok := sets[p.SetKey]; !ok {
			keys = append(keys, p.SetKey)
		}
		sets[p.SetKey] = append(sets[p.SetKey], p)
	}
	s.mu.Unlock()

	for _, key := range keys {
		members := sets[key]
		batch := []func(service.ControllerEvents){
			csipEvent(csip.Event{Type: csip.EventSetCreated, Key: key}),
			csipEvent(csip.Event{Type: csip.EventSetSize, Key: key, Size: uint8(len(members))}),
		}
		for _, p := range members {
			batch = append(batch,
				csipEvent(csip.Event{Type: csip.EventMemberAdded, Key: key, Addr: p.Addr}),
				csipEvent(csip.Event{Type: csip.EventMemberRank, Key: key, Addr: p.Addr, Rank: p.Rank}),
			)
		}
		s.emit(batch...)
	}
}

// Run delivers queued notifications until ctx is done.
func (s *Simulator) Run(ctx context.Context) error {
	s.mu.Lock()
	events := s.events
	s.mu.Unlock()
	if events == nil {
		return ErrNotAttached
	}

	for {
		batch, ok := s.next()
		if !ok {
			select {
			case <-ctx.Done():
				return nil
			case <-s.wake:
				continue
			}
		}

		if s.config.Latency > 0 {
			timer := time.NewTimer(s.config.Latency)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
		}
		for _, fn := range batch {
			fn(events)
		}
	}
}

// Stats returns the request counters.
func (s *Simulator) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	requests := make(map[string]int, len(s.requests))
	for k, v := range s.requests {
		requests[k] = v
	}
	return Stats{
		Requests:       requests,
		VendorCommands: s.vendor.Load(),
		Streams:        len(s.streams),
		Connected:      s.connected.Load(),
	}
}

func (s *Simulator) next() ([]func(service.ControllerEvents), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil, false
	}
	batch := s.pending[0]
	s.pending[0] = nil
	s.pending = s.pending[1:]
	return batch, true
}

// emit queues one reply batch.
func (s *Simulator) emit(batch ...func(service.ControllerEvents)) {
	if len(batch) == 0 {
		return
	}
	s.mu.Lock()
	s.pending = append(s.pending, batch)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Simulator) count(op string) {
	s.mu.Lock()
	s.requests[op]++
	s.mu.Unlock()
}

func (s *Simulator) device(addr bdaddr.Addr) (*simDevice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, addr)
	}
	return d, nil
}

func (s *Simulator) stream(id uint32) (streamRef, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, ok := s.streams[id]
	return ref, ok
}

func (s *Simulator) debugLog(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func csipEvent(ev csip.Event) func(service.ControllerEvents) {
	return func(e service.ControllerEvents) { e.CSIPEvent(ev) }
}

// DefaultCapabilities returns LC3 records for both roles covering the
// 8 to 48 kHz presets at 10 ms frames.
func DefaultCapabilities() []codec.Capability {
	caps := make([]codec.Capability, 0, codec.RoleCount)
	for role := codec.Role(0); role < codec.RoleCount; role++ {
		caps = append(caps, codec.Capability{
			Role:    role,
			CodecID: codec.IDLC3,
			Frequencies: codec.FrequencyMask(codec.Freq8000, codec.Freq16000,
				codec.Freq24000, codec.Freq32000, codec.Freq48000),
			Durations:       codec.DurationSupported10 | codec.DurationPreferred10,
			ChannelCounts:   0x01,
			MinOctets:       26,
			MaxOctets:       155,
			MaxFramesPerSDU: 1,
		})
	}
	return caps
}

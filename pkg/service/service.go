package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/leaudio/leaudio-go/pkg/bdaddr"
	"github.com/leaudio/leaudio-go/pkg/codec"
	"github.com/leaudio/leaudio-go/pkg/csip"
	"github.com/leaudio/leaudio-go/pkg/group"
	"github.com/leaudio/leaudio-go/pkg/indexalloc"
	"github.com/leaudio/leaudio-go/pkg/log"
	"github.com/leaudio/leaudio-go/pkg/observer"
	"github.com/leaudio/leaudio-go/pkg/stream"
)

// Service is the LE Audio client control plane. All registry mutations
// and machine transitions run on one loop goroutine; the exported API
// posts work to that loop and waits for its result.
type Service struct {
	mu    sync.RWMutex
	state ServiceState

	config Config
	logger *slog.Logger

	ctrl  Controller
	audio AudioSink

	registry    *group.Registry
	streams     *stream.Table
	cis         *indexalloc.Allocator
	negotiator  *codec.Negotiator
	coordinator *csip.Coordinator
	observers   *observer.Registry[Callbacks]

	// Loop-owned.
	machines map[bdaddr.Addr]*machine
	deferred []func()

	queue    chan func()
	events   *inbox
	notifier *notifier
	ctx      context.Context
	cancel   context.CancelFunc
	loopWg   sync.WaitGroup

	protocolLogger log.Logger
	sessionID      string
}

// NewService creates a service driving ctrl. audio may be nil.
func NewService(config Config, ctrl Controller, audio AudioSink) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if ctrl == nil {
		return nil, fmt.Errorf("%w: controller is required", ErrInvalidConfig)
	}

	negotiator, err := codec.NewNegotiator(config.Presets)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	s := &Service{
		state:          StateIdle,
		config:         config,
		logger:         config.Logger,
		ctrl:           ctrl,
		audio:          audio,
		registry:       group.NewRegistry(config.MaxGroups),
		streams:        stream.NewTable(),
		cis:            indexalloc.New(config.MaxCIS - 1),
		negotiator:     negotiator,
		observers:      observer.New[Callbacks](config.MaxObservers),
		machines:       make(map[bdaddr.Addr]*machine),
		protocolLogger: config.ProtocolLogger,
	}
	s.coordinator = csip.NewCoordinator(csip.Config{
		Registry:   s.registry,
		Controller: ctrl,
		Listener:   &csipListener{svc: s},
		Logger:     config.Logger,
	})
	return s, nil
}

// Start starts the service loop and the notifier.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle && s.state != StateStopped {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.state = StateStarting
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.queue = make(chan func(), s.config.QueueSize)
	s.events = newInbox()
	s.notifier = newNotifier()
	s.sessionID = uuid.NewString()
	s.mu.Unlock()

	s.loopWg.Add(1)
	go s.run(s.ctx, s.queue, s.events)
	go s.notifier.run()

	s.mu.Lock()
	s.state = StateRunning
	s.mu.Unlock()

	s.traceState(log.StateEntityService, bdaddr.Addr{}, -1, StateIdle.String(), StateRunning.String(), "start")
	s.debugLog("service started", "session", s.sessionID)
	s.notify(func(cb Callbacks) {
		if cb.StackStateChanged != nil {
			cb.StackStateChanged(true)
		}
	})
	return nil
}

// Stop stops the loop. Outstanding offload requests are abandoned and
// queued notifications are delivered before Stop returns.
func (s *Service) Stop() error {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.state = StateStopping
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.loopWg.Wait()

	if n := s.events.discard(); n > 0 {
		s.debugLog("controller events discarded on stop", "count", n)
	}
	for _, m := range s.machines {
		m.offload.Reset()
	}

	s.notify(func(cb Callbacks) {
		if cb.StackStateChanged != nil {
			cb.StackStateChanged(false)
		}
	})
	s.notifier.close()

	s.traceState(log.StateEntityService, bdaddr.Addr{}, -1, StateRunning.String(), StateStopped.String(), "stop")
	s.debugLog("service stopped", "session", s.sessionID)

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()
	return nil
}

// State returns the lifecycle state.
func (s *Service) State() ServiceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SessionID returns the id stamped on trace events of the current run.
func (s *Service) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

func (s *Service) run(ctx context.Context, queue <-chan func(), events *inbox) {
	defer s.loopWg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-events.ready:
			s.drain(events)
		case fn := <-queue:
			// Events reported before the request was taken run first.
			s.drain(events)
			fn()
			s.runDeferred()
		}
	}
}

// drain runs inbox work until the inbox stays empty, including events a
// controller reports while the batch runs.
func (s *Service) drain(events *inbox) {
	for {
		batch := events.take()
		if len(batch) == 0 {
			return
		}
		for _, fn := range batch {
			fn()
			s.runDeferred()
		}
	}
}

// runDeferred runs work scheduled by the loop for itself, in order.
func (s *Service) runDeferred() {
	for len(s.deferred) > 0 {
		fn := s.deferred[0]
		s.deferred = s.deferred[1:]
		fn()
	}
	s.deferred = nil
}

// later schedules fn to run on the loop after the current item. Only
// call it from the loop.
func (s *Service) later(fn func()) {
	s.deferred = append(s.deferred, fn)
}

// enqueue hands fn to the loop without waiting. Controller events and
// timer expiries use it so they never block on a full request queue.
func (s *Service) enqueue(fn func()) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateRunning {
		return ErrNotEnabled
	}
	s.events.push(fn)
	return nil
}

// post enqueues an API request for the loop, waiting while the request
// queue is full.
func (s *Service) post(fn func()) error {
	s.mu.RLock()
	if s.state != StateRunning {
		s.mu.RUnlock()
		return ErrNotEnabled
	}
	queue, ctx := s.queue, s.ctx
	s.mu.RUnlock()

	select {
	case queue <- fn:
		return nil
	case <-ctx.Done():
		return ErrNotEnabled
	}
}

// call runs fn on the loop and returns its result. It must not be used
// from the loop itself.
func (s *Service) call(fn func() error) error {
	s.mu.RLock()
	ctx := s.ctx
	s.mu.RUnlock()

	result := make(chan error, 1)
	if err := s.post(func() { result <- fn() }); err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ErrNotEnabled
	}
}

// notify queues fn for every registered callback set.
func (s *Service) notify(fn func(cb Callbacks)) {
	observers := s.observers.Snapshot()
	if len(observers) == 0 {
		return
	}
	s.notifier.push(func() {
		for _, cb := range observers {
			fn(cb)
		}
	})
}

func (s *Service) debugLog(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

// csipListener forwards coordinator notifications to observers and keeps
// per-device state consistent with membership. It runs on the loop.
type csipListener struct {
	svc *Service
}

func (l *csipListener) MemberDiscovered(groupID int, addr bdaddr.Addr) {
	l.svc.notify(func(cb Callbacks) {
		if cb.MemberDiscovered != nil {
			cb.MemberDiscovered(groupID, addr)
		}
	})
}

func (l *csipListener) MemberAdded(groupID int, addr bdaddr.Addr, created bool) {
	l.svc.traceState(log.StateEntityGroup, addr, groupID, "", "MEMBER", "added")
	l.svc.regroupStreams(addr)
	l.svc.notify(func(cb Callbacks) {
		if cb.MemberAdded != nil {
			cb.MemberAdded(groupID, addr)
		}
	})
}

func (l *csipListener) MemberRemoved(groupID int, addr bdaddr.Addr) {
	l.svc.traceState(log.StateEntityGroup, addr, groupID, "MEMBER", "", "removed")
	if _, _, err := l.svc.registry.GroupOf(addr); err != nil {
		l.svc.destroyDevice(addr)
	} else {
		l.svc.regroupStreams(addr)
	}
	l.svc.notify(func(cb Callbacks) {
		if cb.MemberRemoved != nil {
			cb.MemberRemoved(groupID, addr)
		}
	})
}

func (l *csipListener) DiscoveryStarted(groupID int) {
	l.svc.notify(func(cb Callbacks) {
		if cb.DiscoveryStarted != nil {
			cb.DiscoveryStarted(groupID)
		}
	})
}

func (l *csipListener) DiscoveryStopped(groupID int) {
	l.svc.notify(func(cb Callbacks) {
		if cb.DiscoveryStopped != nil {
			cb.DiscoveryStopped(groupID)
		}
	})
}

func (l *csipListener) LockChanged(groupID int, locked bool, status csip.Status) {
	l.svc.notify(func(cb Callbacks) {
		switch {
		case locked && cb.GroupLocked != nil:
			cb.GroupLocked(groupID, status)
		case !locked && cb.GroupUnlocked != nil:
			cb.GroupUnlocked(groupID, status)
		}
	})
}

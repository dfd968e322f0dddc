package offload

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout is how long a vendor command may stay outstanding.
const DefaultTimeout = 500 * time.Millisecond

// Controller errors.
var (
	ErrNoSender = errors.New("offload sender not configured")
)

// State is the handshake state of a controller.
type State uint8

const (
	// StateIdle means no vendor command is outstanding.
	StateIdle State = iota

	// StateAwaitingStart means a start command is outstanding.
	StateAwaitingStart

	// StateAwaitingStop means a stop command is outstanding.
	StateAwaitingStop
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateAwaitingStart:
		return "AWAITING_START"
	case StateAwaitingStop:
		return "AWAITING_STOP"
	default:
		return "UNKNOWN"
	}
}

// Result describes a resolved request.
type Result struct {
	// Start is true for a start request, false for stop.
	Start bool

	// Success is the vendor command outcome.
	Success bool

	// Command is the resolved command.
	Command Command
}

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	// Timeout bounds an outstanding request. Zero uses DefaultTimeout.
	Timeout time.Duration

	// Builder encodes vendor commands. Nil uses DefaultBuilder.
	Builder Builder

	// Send dispatches a vendor command. Required.
	Send func(Command) error

	// OnExpire is called from the timer goroutine when a request times
	// out. The owner passes the token back to Expire on its own goroutine.
	OnExpire func(token uint64)

	// Logger for debug output. Nil disables logging.
	Logger *slog.Logger
}

// Controller runs the offload handshake for one device.
type Controller struct {
	mu sync.Mutex

	state   State
	pending Command
	token   uint64
	timer   *time.Timer

	timeout  time.Duration
	builder  Builder
	send     func(Command) error
	onExpire func(uint64)
	logger   *slog.Logger
}

// NewController creates an idle controller.
func NewController(cfg ControllerConfig) *Controller {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Builder == nil {
		cfg.Builder = DefaultBuilder{}
	}
	return &Controller{
		state:    StateIdle,
		timeout:  cfg.Timeout,
		builder:  cfg.Builder,
		send:     cfg.Send,
		onExpire: cfg.OnExpire,
		logger:   cfg.Logger,
	}
}

// State returns the handshake state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pending returns the outstanding command, if any.
func (c *Controller) Pending() (Command, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending, c.state != StateIdle
}

// RequestStart dispatches a start command. It returns false without doing
// anything when a start is already outstanding.
func (c *Controller) RequestStart(cfg Config) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateAwaitingStart {
		c.debugLog("offload start already pending", "id", c.pending.ID)
		return false, nil
	}

	cmd, err := c.builder.BuildStart(cfg)
	if err != nil {
		return false, fmt.Errorf("build offload start: %w", err)
	}
	if err := c.dispatchLocked(StateAwaitingStart, cmd); err != nil {
		return false, err
	}
	return true, nil
}

// RequestStop dispatches a stop command. It returns false without doing
// anything when a stop is already outstanding. A pending start is
// abandoned.
func (c *Controller) RequestStop(cfg Config) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateAwaitingStop {
		c.debugLog("offload stop already pending", "id", c.pending.ID)
		return false, nil
	}

	cmd, err := c.builder.BuildStop(cfg)
	if err != nil {
		return false, fmt.Errorf("build offload stop: %w", err)
	}
	if c.state == StateAwaitingStart {
		c.debugLog("offload start abandoned by stop", "id", c.pending.ID)
	}
	if err := c.dispatchLocked(StateAwaitingStop, cmd); err != nil {
		return false, err
	}
	return true, nil
}

// Complete resolves the outstanding request if id matches it. The boolean
// is false for unknown or late completions.
func (c *Controller) Complete(id uuid.UUID, success bool) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateIdle || c.pending.ID != id {
		c.debugLog("offload completion ignored", "id", id, "state", c.state)
		return Result{}, false
	}

	res := Result{Start: c.state == StateAwaitingStart, Success: success, Command: c.pending}
	c.resetLocked()
	return res, true
}

// Expire abandons the outstanding request if token identifies it. It
// reports whether a request was abandoned.
func (c *Controller) Expire(token uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateIdle || token != c.token {
		return false
	}
	c.debugLog("offload request timed out", "id", c.pending.ID, "state", c.state)
	c.resetLocked()
	return true
}

// Reset abandons any outstanding request.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Controller) dispatchLocked(next State, cmd Command) error {
	if c.send == nil {
		return ErrNoSender
	}

	c.stopTimerLocked()
	c.token++
	c.state = next
	c.pending = cmd

	token := c.token
	c.timer = time.AfterFunc(c.timeout, func() {
		if c.onExpire != nil {
			c.onExpire(token)
		}
	})

	if err := c.send(cmd); err != nil {
		c.resetLocked()
		return fmt.Errorf("send offload command: %w", err)
	}
	c.debugLog("offload command sent", "id", cmd.ID, "state", next, "opcode", cmd.Opcode())
	return nil
}

func (c *Controller) resetLocked() {
	c.stopTimerLocked()
	c.state = StateIdle
	c.pending = Command{}
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) debugLog(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

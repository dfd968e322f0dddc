package csip

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/leaudio/leaudio-go/pkg/bdaddr"
	"github.com/leaudio/leaudio-go/pkg/group"
)

// Coordinator errors.
var (
	ErrUnknownSet     = errors.New("no group for set key")
	ErrNotCoordinated = errors.New("group is not a coordinated set")
)

// Config configures a Coordinator.
type Config struct {
	Registry   *group.Registry
	Controller Controller
	Listener   Listener

	// Logger for debug output. Nil disables logging.
	Logger *slog.Logger
}

// Coordinator applies coordinated set events to the group registry.
type Coordinator struct {
	registry *group.Registry
	ctrl     Controller
	listener Listener
	logger   *slog.Logger
}

// NewCoordinator creates a coordinator.
func NewCoordinator(cfg Config) *Coordinator {
	return &Coordinator{
		registry: cfg.Registry,
		ctrl:     cfg.Controller,
		listener: cfg.Listener,
		logger:   cfg.Logger,
	}
}

// CreateGroup creates a group for key and registers it with the
// controller. If the controller refuses, the group is deleted again.
func (c *Coordinator) CreateGroup(key group.SetKey) (int, error) {
	id, err := c.registry.Create(key)
	if err != nil {
		return 0, err
	}
	if err := c.ctrl.GroupCreate(id, key); err != nil {
		_, _, _ = c.registry.Delete(key)
		return 0, fmt.Errorf("controller group create: %w", err)
	}
	c.debugLog("group created", "group", id, "key", key)
	return id, nil
}

// DeleteGroup deletes the group for key. Members still in it return to
// the default group and are reported as removed.
func (c *Coordinator) DeleteGroup(key group.SetKey) error {
	id, moved, err := c.registry.Delete(key)
	if err != nil {
		return err
	}
	for _, addr := range moved {
		c.notifyRemoved(id, addr)
	}
	if err := c.ctrl.GroupDelete(id); err != nil {
		return fmt.Errorf("controller group delete: %w", err)
	}
	c.debugLog("group deleted", "group", id, "moved", len(moved))
	return nil
}

// AddMember places addr in a group. An unknown device is created there; a
// device in the default group is moved. A device already in another
// coordinated set is rejected.
func (c *Coordinator) AddMember(groupID int, addr bdaddr.Addr) error {
	g, err := c.registry.Group(groupID)
	if err != nil {
		return err
	}

	_, created := c.registry.EnsureDevice(addr)
	current, _, err := c.registry.GroupOf(addr)
	if err != nil {
		return err
	}

	switch {
	case current.ID() == g.ID():
		if !created {
			return nil
		}
	case current.IsDefault():
		if err := c.registry.MoveMember(group.DefaultID, groupID, addr); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %s in group %d", group.ErrAlreadyMember, addr, current.ID())
	}

	c.debugLog("member added", "group", groupID, "addr", addr, "created", created)
	if c.listener != nil {
		c.listener.MemberAdded(groupID, addr, created)
	}
	return nil
}

// RemoveMember detaches addr from a group.
func (c *Coordinator) RemoveMember(groupID int, addr bdaddr.Addr) error {
	if _, err := c.registry.RemoveMember(groupID, addr); err != nil {
		return err
	}
	c.notifyRemoved(groupID, addr)
	return nil
}

// DiscoveryStart asks the controller to search for further set members.
func (c *Coordinator) DiscoveryStart(groupID int) error {
	key, err := c.setKey(groupID)
	if err != nil {
		return err
	}
	if err := c.ctrl.DiscoveryStart(key); err != nil {
		return fmt.Errorf("controller discovery start: %w", err)
	}
	if c.listener != nil {
		c.listener.DiscoveryStarted(groupID)
	}
	return nil
}

// DiscoveryStop stops a member search. The stop is reported when the
// controller signals that discovery terminated.
func (c *Coordinator) DiscoveryStop(groupID int) error {
	key, err := c.setKey(groupID)
	if err != nil {
		return err
	}
	if err := c.ctrl.DiscoveryStop(key); err != nil {
		return fmt.Errorf("controller discovery stop: %w", err)
	}
	return nil
}

// Lock requests the set lock. The result arrives as EventLockChanged.
func (c *Coordinator) Lock(groupID int) error {
	key, err := c.setKey(groupID)
	if err != nil {
		return err
	}
	return c.ctrl.Lock(key)
}

// Unlock releases the set lock. The result arrives as EventLockChanged.
func (c *Coordinator) Unlock(groupID int) error {
	key, err := c.setKey(groupID)
	if err != nil {
		return err
	}
	return c.ctrl.Unlock(key)
}

// Handle applies a controller event.
func (c *Coordinator) Handle(ev Event) error {
	c.debugLog("csip event", "type", ev.Type, "key", ev.Key, "addr", ev.Addr)

	switch ev.Type {
	case EventSetCreated:
		if _, err := c.registry.GroupBySetKey(ev.Key); err == nil {
			return nil
		}
		_, err := c.CreateGroup(ev.Key)
		return err

	case EventSetSize:
		g, err := c.groupFor(ev.Key)
		if err != nil {
			return err
		}
		return c.registry.SetSize(g.ID(), ev.Size)

	case EventSetDeleted:
		return c.DeleteGroup(ev.Key)

	case EventLockChanged:
		g, err := c.groupFor(ev.Key)
		if err != nil {
			return err
		}
		if c.listener != nil {
			c.listener.LockChanged(g.ID(), ev.Locked, ev.Status)
		}
		return nil

	case EventMemberDiscovered:
		g, err := c.groupFor(ev.Key)
		if err != nil {
			return err
		}
		if c.listener != nil {
			c.listener.MemberDiscovered(g.ID(), ev.Addr)
		}
		return nil

	case EventMemberAdded:
		g, err := c.groupFor(ev.Key)
		if err != nil {
			return err
		}
		return c.AddMember(g.ID(), ev.Addr)

	case EventMemberRemoved:
		g, err := c.groupFor(ev.Key)
		if err != nil {
			return err
		}
		return c.RemoveMember(g.ID(), ev.Addr)

	case EventMemberRank:
		d, err := c.registry.Device(ev.Addr)
		if err != nil {
			return err
		}
		d.SetRank(ev.Rank)
		return nil

	case EventDiscoveryTerminated:
		g, err := c.groupFor(ev.Key)
		if err != nil {
			return err
		}
		if c.listener != nil {
			c.listener.DiscoveryStopped(g.ID())
		}
		return nil

	case EventSIRK, EventMemberLockChanged, EventOrderedAccess:
		return nil

	default:
		return fmt.Errorf("unknown csip event %d", ev.Type)
	}
}

func (c *Coordinator) groupFor(key group.SetKey) (*group.Group, error) {
	g, err := c.registry.GroupBySetKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSet, key)
	}
	return g, nil
}

func (c *Coordinator) setKey(groupID int) (group.SetKey, error) {
	g, err := c.registry.Group(groupID)
	if err != nil {
		return group.SetKey{}, err
	}
	key, ok := g.SetKey()
	if !ok {
		return group.SetKey{}, ErrNotCoordinated
	}
	return key, nil
}

func (c *Coordinator) notifyRemoved(groupID int, addr bdaddr.Addr) {
	c.debugLog("member removed", "group", groupID, "addr", addr)
	if c.listener != nil {
		c.listener.MemberRemoved(groupID, addr)
	}
}

func (c *Coordinator) debugLog(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

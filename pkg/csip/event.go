package csip

import (
	"github.com/leaudio/leaudio-go/pkg/bdaddr"
	"github.com/leaudio/leaudio-go/pkg/group"
)

// EventType identifies a coordinated set event.
type EventType uint8

const (
	EventSIRK EventType = iota
	EventSetCreated
	EventSetSize
	EventSetDeleted
	EventLockChanged
	EventMemberDiscovered
	EventMemberAdded
	EventMemberRemoved
	EventMemberRank
	EventMemberLockChanged
	EventOrderedAccess
	EventDiscoveryTerminated
)

// String returns the event name.
func (t EventType) String() string {
	switch t {
	case EventSIRK:
		return "SIRK"
	case EventSetCreated:
		return "SET_CREATED"
	case EventSetSize:
		return "SET_SIZE"
	case EventSetDeleted:
		return "SET_DELETED"
	case EventLockChanged:
		return "LOCK_CHANGED"
	case EventMemberDiscovered:
		return "MEMBER_DISCOVERED"
	case EventMemberAdded:
		return "MEMBER_ADDED"
	case EventMemberRemoved:
		return "MEMBER_REMOVED"
	case EventMemberRank:
		return "MEMBER_RANK"
	case EventMemberLockChanged:
		return "MEMBER_LOCK_CHANGED"
	case EventOrderedAccess:
		return "ORDERED_ACCESS"
	case EventDiscoveryTerminated:
		return "DISCOVERY_TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// Status is a controller result code. Zero is success.
type Status uint8

// StatusSuccess is the success result code.
const StatusSuccess Status = 0

// OK reports whether s is success.
func (s Status) OK() bool {
	return s == StatusSuccess
}

// Event is a coordinated set notification from the controller.
type Event struct {
	Type   EventType
	Key    group.SetKey
	Addr   bdaddr.Addr
	Size   uint8
	Rank   uint8
	Locked bool
	Status Status
}

// Controller is the part of the controller interface used for sets.
type Controller interface {
	GroupCreate(groupID int, key group.SetKey) error
	GroupDelete(groupID int) error
	DiscoveryStart(key group.SetKey) error
	DiscoveryStop(key group.SetKey) error
	Lock(key group.SetKey) error
	Unlock(key group.SetKey) error
}

// Listener receives the coordinator's notifications.
type Listener interface {
	MemberDiscovered(groupID int, addr bdaddr.Addr)
	MemberAdded(groupID int, addr bdaddr.Addr, created bool)
	MemberRemoved(groupID int, addr bdaddr.Addr)
	DiscoveryStarted(groupID int)
	DiscoveryStopped(groupID int)
	LockChanged(groupID int, locked bool, status Status)
}

package service

import (
	"github.com/google/uuid"

	"github.com/leaudio/leaudio-go/pkg/bdaddr"
	"github.com/leaudio/leaudio-go/pkg/codec"
	"github.com/leaudio/leaudio-go/pkg/csip"
	"github.com/leaudio/leaudio-go/pkg/device"
	"github.com/leaudio/leaudio-go/pkg/offload"
	"github.com/leaudio/leaudio-go/pkg/stream"
)

// StreamConfig describes a stream handed to the controller for a group.
type StreamConfig struct {
	ID       uint32
	Addr     bdaddr.Addr
	CISID    int
	ASEID    uint8
	Role     codec.Role
	Codec    codec.Config
	Contexts uint16
}

// Controller is the lower protocol layer. Every method is called from the
// service loop and must not call back into the service synchronously;
// results are reported later through ControllerEvents.
type Controller interface {
	csip.Controller

	Connect(addr bdaddr.Addr) error
	Disconnect(addr bdaddr.Addr) error

	// AllocateStream returns the controller's stream id for an endpoint.
	AllocateStream(groupID, cisID int, aseID uint8, role codec.Role) (uint32, error)

	GroupAddStream(groupID int, cfg StreamConfig) error
	GroupRemoveStreams(groupID int, streamIDs []uint32) error

	RequestCodec(groupID int, streamIDs []uint32) error
	RequestQoS(groupID int, streamIDs []uint32) error
	RequestEnable(groupID int, streamIDs []uint32, contexts uint16) error
	RequestDisable(groupID int, streamIDs []uint32) error

	SendVendorCommand(cmd offload.Command) error
}

// ControllerEvents is how the controller reports back. The Service
// implements it; every method only enqueues work for the service loop.
type ControllerEvents interface {
	StackStateChanged(enabled bool)
	LinkStateChanged(addr bdaddr.Addr, state LinkState)

	CapabilityReported(addr bdaddr.Addr, c codec.Capability)
	LocationReported(addr bdaddr.Addr, role codec.Role, allocation uint32)
	AvailableContextsReported(addr bdaddr.Addr, sink, source uint16)
	SupportedContextsReported(addr bdaddr.Addr, sink, source uint16)

	EndpointStateReported(addr bdaddr.Addr, aseID uint8, role codec.Role, state device.ASEState)
	OperationCompleted(addr bdaddr.Addr, streamID uint32, op ASEOperation, status uint8)

	StreamAdded(addr bdaddr.Addr, streamID uint32)
	StreamRemoved(addr bdaddr.Addr, streamID uint32)
	StreamStarted(streamID uint32)
	StreamStopped(streamID uint32)
	StreamSuspended(streamID uint32)
	StreamResumed(streamID uint32)

	VendorCommandCompleted(id uuid.UUID, status uint8)

	CSIPEvent(ev csip.Event)
}

// AudioSink is the audio I/O subsystem. It is called from the service
// loop and must return quickly.
type AudioSink interface {
	StreamStarted(s stream.Stream)
	StreamStopped(s stream.Stream)
	StreamSuspended(s stream.Stream)
	StreamResumed(s stream.Stream)
	MetadataUpdated(s stream.Stream)
}

// Callbacks is one observer registration. Nil fields are skipped.
// Callbacks run on a dedicated notifier goroutine in the order the
// service produced them.
type Callbacks struct {
	StackStateChanged      func(enabled bool)
	ConnectionStateChanged func(addr bdaddr.Addr, state LinkState)

	MemberDiscovered func(groupID int, addr bdaddr.Addr)
	MemberAdded      func(groupID int, addr bdaddr.Addr)
	MemberRemoved    func(groupID int, addr bdaddr.Addr)
	DiscoveryStarted func(groupID int)
	DiscoveryStopped func(groupID int)
	GroupLocked      func(groupID int, status csip.Status)
	GroupUnlocked    func(groupID int, status csip.Status)

	ASEOperationFailed func(addr bdaddr.Addr, streamID uint32, op ASEOperation, status uint8)
}

var (
	_ ControllerEvents = (*Service)(nil)
	_ csip.Listener    = (*csipListener)(nil)
)

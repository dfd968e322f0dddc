package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/leaudio/leaudio-go/pkg/bdaddr"
	"github.com/leaudio/leaudio-go/pkg/log"
	"github.com/leaudio/leaudio-go/pkg/offload"
)

// event builds a trace event. A zero addr and a negative groupID are
// left out.
func (s *Service) event(dir log.Direction, layer log.Layer, cat log.Category, addr bdaddr.Addr, groupID int) log.Event {
	e := log.Event{
		Timestamp: time.Now(),
		SessionID: s.sessionID,
		Direction: dir,
		Layer:     layer,
		Category:  cat,
	}
	if !addr.IsZero() {
		e.Address = addr.String()
	}
	if groupID >= 0 {
		e = e.WithGroup(groupID)
	}
	return e
}

func (s *Service) trace(e log.Event) {
	if s.protocolLogger != nil {
		s.protocolLogger.Log(e)
	}
}

// traceCommand records a request to the controller.
func (s *Service) traceCommand(addr bdaddr.Addr, groupID int, op string, streamIDs []uint32, detail string) {
	if s.protocolLogger == nil {
		return
	}
	e := s.event(log.DirectionOut, log.LayerController, log.CategoryCommand, addr, groupID)
	e.Command = &log.CommandEvent{Operation: op, Detail: detail}
	if len(streamIDs) == 1 {
		id := streamIDs[0]
		e.Command.StreamID = &id
	} else if len(streamIDs) > 1 && detail == "" {
		e.Command.Detail = formatStreamIDs(streamIDs)
	}
	s.trace(e)
}

// traceNotification records an event reported by the controller.
func (s *Service) traceNotification(addr bdaddr.Addr, typ string, streamID uint32, status *uint8, detail string) {
	if s.protocolLogger == nil {
		return
	}
	e := s.event(log.DirectionIn, log.LayerController, log.CategoryEvent, addr, -1)
	e.Notification = &log.NotificationEvent{Type: typ, Status: status, Detail: detail}
	if streamID != 0 {
		e.Notification.StreamID = &streamID
	}
	s.trace(e)
}

// traceEndpoint records an endpoint state report.
func (s *Service) traceEndpoint(addr bdaddr.Addr, aseID uint8, state string) {
	if s.protocolLogger == nil {
		return
	}
	e := s.event(log.DirectionIn, log.LayerController, log.CategoryEvent, addr, -1)
	e.Notification = &log.NotificationEvent{Type: "ASE_STATE", EndpointID: &aseID, Detail: state}
	s.trace(e)
}

func (s *Service) traceState(entity log.StateEntity, addr bdaddr.Addr, groupID int, oldState, newState, reason string) {
	if s.protocolLogger == nil {
		return
	}
	e := s.event(log.DirectionIn, log.LayerService, log.CategoryState, addr, groupID)
	e.StateChange = &log.StateChangeEvent{
		Entity:   entity,
		OldState: oldState,
		NewState: newState,
		Reason:   reason,
	}
	s.trace(e)
}

func (s *Service) traceOffload(addr bdaddr.Addr, cmd offload.Command, step log.OffloadStep) {
	if s.protocolLogger == nil {
		return
	}
	dir := log.DirectionIn
	if step == log.OffloadSent {
		dir = log.DirectionOut
	}
	e := s.event(dir, log.LayerOffload, log.CategoryOffload, addr, -1)
	e.Offload = &log.OffloadEvent{
		CommandID: cmd.ID.String(),
		Start:     cmd.Start,
		Step:      step,
	}
	if step == log.OffloadSent {
		e.Offload.OGF = cmd.OGF
		e.Offload.OCF = cmd.OCF
		e.Offload.Params = cmd.Params
	}
	s.trace(e)
}

func (s *Service) traceError(layer log.Layer, addr bdaddr.Addr, context string, err error) {
	s.debugLog("error", "context", context, "addr", addr, "error", err)
	if s.protocolLogger == nil {
		return
	}
	e := s.event(log.DirectionIn, layer, log.CategoryError, addr, -1)
	e.Error = &log.ErrorEventData{Layer: layer, Message: err.Error(), Context: context}
	s.trace(e)
}

func (s *Service) traceStatus(layer log.Layer, addr bdaddr.Addr, context string, status uint8) {
	if s.protocolLogger == nil {
		return
	}
	code := int(status)
	e := s.event(log.DirectionIn, layer, log.CategoryError, addr, -1)
	e.Error = &log.ErrorEventData{Layer: layer, Message: "operation failed", Code: &code, Context: context}
	s.trace(e)
}

func formatStreamIDs(ids []uint32) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return "streams=" + strings.Join(parts, ",")
}

package codec

import (
	"strconv"
	"strings"
)

// Role is the direction of an audio stream endpoint as seen from the
// remote device.
type Role uint8

const (
	// RoleSink is an endpoint that renders audio (host to device).
	RoleSink Role = 0
	// RoleSource is an endpoint that captures audio (device to host).
	RoleSource Role = 1
)

// RoleCount is the number of roles.
const RoleCount = 2

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleSink:
		return "SINK"
	case RoleSource:
		return "SOURCE"
	default:
		return "UNKNOWN"
	}
}

// Context is an LE Audio usage context identifier.
type Context uint8

const (
	ContextUnspecified Context = iota
	ContextConversational
	ContextMedia
	ContextGame
	ContextInstructional
	ContextVoiceAssistants
	ContextLive
	ContextSoundEffects
	ContextNotifications
	ContextRingtone
	ContextAlerts
	ContextEmergencyAlarm
)

// ContextCount is the number of defined usage contexts.
const ContextCount = 12

// Bit returns the context's bit in a context-type bitmask.
func (c Context) Bit() uint16 {
	return 1 << uint16(c)
}

// Valid reports whether c names a defined context.
func (c Context) Valid() bool {
	return c < ContextCount
}

var contextNames = [ContextCount]string{
	"UNSPECIFIED",
	"CONVERSATIONAL",
	"MEDIA",
	"GAME",
	"INSTRUCTIONAL",
	"VOICE_ASSISTANTS",
	"LIVE",
	"SOUND_EFFECTS",
	"NOTIFICATIONS",
	"RINGTONE",
	"ALERTS",
	"EMERGENCY_ALARM",
}

// String returns the context name.
func (c Context) String() string {
	if !c.Valid() {
		return "UNKNOWN"
	}
	return contextNames[c]
}

// ParseContext resolves a context by name (case-insensitive) or number.
func ParseContext(s string) (Context, bool) {
	for i, name := range contextNames {
		if strings.EqualFold(name, s) {
			return Context(i), true
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n >= ContextCount {
		return 0, false
	}
	return Context(n), true
}

// ActivatesRole reports whether an endpoint of the given role takes part in
// a session for ctx. Conversational, game and live sessions use both
// directions. Voice assistants only capture. Every other context except
// UNSPECIFIED only renders.
func ActivatesRole(ctx Context, role Role) bool {
	switch ctx {
	case ContextUnspecified:
		return false
	case ContextConversational, ContextGame, ContextLive:
		return true
	case ContextVoiceAssistants:
		return role == RoleSource
	default:
		if !ctx.Valid() {
			return false
		}
		return role == RoleSink
	}
}

// ContextValid reports whether a device whose role advertises the given
// supported and available context bitmasks accepts ctx. A context the
// device does not list as supported is still accepted when the device
// makes UNSPECIFIED both supported and available.
func ContextValid(ctx Context, supported, available uint16) bool {
	bit := ctx.Bit()
	if available&supported&bit != 0 {
		return true
	}
	unspecified := ContextUnspecified.Bit()
	return supported&bit == 0 && available&supported&unspecified != 0
}

package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActivatesRole(t *testing.T) {
	tests := []struct {
		ctx    Context
		sink   bool
		source bool
	}{
		{ContextUnspecified, false, false},
		{ContextConversational, true, true},
		{ContextMedia, true, false},
		{ContextGame, true, true},
		{ContextLive, true, true},
		{ContextVoiceAssistants, false, true},
		{ContextAlerts, true, false},
		{Context(20), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.ctx.String(), func(t *testing.T) {
			assert.Equal(t, tt.sink, ActivatesRole(tt.ctx, RoleSink))
			assert.Equal(t, tt.source, ActivatesRole(tt.ctx, RoleSource))
		})
	}
}

func TestContextValid(t *testing.T) {
	conv := ContextConversational.Bit()
	unspec := ContextUnspecified.Bit()

	assert.True(t, ContextValid(ContextConversational, conv, conv))
	assert.False(t, ContextValid(ContextConversational, conv, 0))
	assert.False(t, ContextValid(ContextConversational, 0, 0))

	// Not listed as supported, but UNSPECIFIED is supported and available.
	assert.True(t, ContextValid(ContextConversational, unspec, unspec))
	// Listed as supported but not available: UNSPECIFIED does not rescue it.
	assert.False(t, ContextValid(ContextConversational, conv|unspec, unspec))
}

func TestParseContext(t *testing.T) {
	c, ok := ParseContext("media")
	assert.True(t, ok)
	assert.Equal(t, ContextMedia, c)

	c, ok = ParseContext("1")
	assert.True(t, ok)
	assert.Equal(t, ContextConversational, c)

	_, ok = ParseContext("12")
	assert.False(t, ok)
	_, ok = ParseContext("podcast")
	assert.False(t, ok)
}

package device

import (
	"testing"

	"github.com/leaudio/leaudio-go/pkg/bdaddr"
	"github.com/leaudio/leaudio-go/pkg/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAddr = bdaddr.MustParse("11:22:33:44:55:66")

func TestNewDevice(t *testing.T) {
	d := New(testAddr)

	assert.Equal(t, testAddr, d.Addr())
	assert.Equal(t, StateClosed, d.State())
	assert.Equal(t, NoCIS, d.CISID())
	assert.Empty(t, d.Endpoints())
}

func TestSetState(t *testing.T) {
	d := New(testAddr)

	old := d.SetState(StateOpening)
	assert.Equal(t, StateClosed, old)
	assert.Equal(t, StateOpening, d.State())
	assert.True(t, d.State().Connected())
}

func TestUpdateEndpoint(t *testing.T) {
	t.Run("AppendThenUpdate", func(t *testing.T) {
		d := New(testAddr)

		added, err := d.UpdateEndpoint(1, codec.RoleSink, ASEIdle)
		require.NoError(t, err)
		assert.True(t, added)

		added, err = d.UpdateEndpoint(1, codec.RoleSink, ASECodecConfigured)
		require.NoError(t, err)
		assert.False(t, added)

		ep, ok := d.Endpoint(1)
		require.True(t, ok)
		assert.Equal(t, ASECodecConfigured, ep.State)
		assert.Len(t, d.Endpoints(), 1)
	})

	t.Run("Bounded", func(t *testing.T) {
		d := New(testAddr)
		for i := 0; i < MaxEndpoints; i++ {
			_, err := d.UpdateEndpoint(uint8(i+1), codec.RoleSink, ASEIdle)
			require.NoError(t, err)
		}
		_, err := d.UpdateEndpoint(99, codec.RoleSink, ASEIdle)
		assert.ErrorIs(t, err, ErrEndpointTableFull)
	})

	t.Run("InvalidRole", func(t *testing.T) {
		d := New(testAddr)
		_, err := d.UpdateEndpoint(1, codec.Role(7), ASEIdle)
		assert.ErrorIs(t, err, ErrInvalidRole)
	})
}

func TestActivation(t *testing.T) {
	d := New(testAddr)
	_, _ = d.UpdateEndpoint(1, codec.RoleSink, ASEIdle)
	_, _ = d.UpdateEndpoint(2, codec.RoleSource, ASEIdle)

	cfg := codec.Config{CodecID: codec.IDLC3, Frequency: codec.Freq16000, Octets: 40}
	require.NoError(t, d.SetStreamID(1, 10))
	require.NoError(t, d.Activate(1, cfg))
	require.NoError(t, d.SetOp(1, OpQoS))

	assert.True(t, d.HasActiveRole(codec.RoleSink))
	assert.False(t, d.HasActiveRole(codec.RoleSource))

	active := d.ActiveEndpoints()
	require.Len(t, active, 1)
	assert.Equal(t, OpQoS, active[0].Op)
	assert.Equal(t, cfg, active[0].Codec)

	ep, ok := d.EndpointByStream(10)
	require.True(t, ok)
	assert.Equal(t, uint8(1), ep.ID)

	d.SetActiveOp(OpEnabling)
	ep, _ = d.Endpoint(1)
	assert.Equal(t, OpEnabling, ep.Op)
	ep, _ = d.Endpoint(2)
	assert.Equal(t, OpNone, ep.Op, "inactive endpoints keep their op")

	ids := d.DeactivateAll()
	assert.Equal(t, []uint32{10}, ids)
	assert.Empty(t, d.ActiveEndpoints())

	assert.ErrorIs(t, d.Activate(9, cfg), ErrEndpointNotFound)
	assert.ErrorIs(t, d.SetOp(9, OpCodec), ErrEndpointNotFound)
}

func TestContextsAndCapabilities(t *testing.T) {
	d := New(testAddr)

	require.NoError(t, d.SetSupportedContexts(codec.RoleSink, 0x0006))
	require.NoError(t, d.SetAvailableContexts(codec.RoleSource, 0x0002))
	require.NoError(t, d.SetAllocation(codec.RoleSink, 0x03))
	assert.ErrorIs(t, d.SetSupportedContexts(codec.Role(3), 1), ErrInvalidRole)

	assert.Equal(t, uint16(0x0006), d.SupportedContexts(codec.RoleSink))
	assert.Equal(t, uint16(0x0002), d.AvailableContexts(codec.RoleSource))
	assert.Equal(t, uint32(0x03), d.Allocation(codec.RoleSink))

	require.NoError(t, d.AddCapability(codec.Capability{Role: codec.RoleSink, CodecID: codec.IDLC3}))
	caps := d.Capabilities()
	require.Len(t, caps, 1)

	// Returned slices are copies.
	caps[0].MaxOctets = 500
	assert.Equal(t, uint16(0), d.Capabilities()[0].MaxOctets)

	info := d.Info()
	assert.Equal(t, 1, info.Capabilities)
	assert.Equal(t, uint16(0x0006), info.SupportedContexts[codec.RoleSink])
}

package stream

import (
	"testing"

	"github.com/leaudio/leaudio-go/pkg/bdaddr"
	"github.com/leaudio/leaudio-go/pkg/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	addrA = bdaddr.MustParse("AA:00:00:00:00:01")
	addrB = bdaddr.MustParse("AA:00:00:00:00:02")
)

func lookupIn(groups map[bdaddr.Addr]int) GroupLookup {
	return func(addr bdaddr.Addr) (int, bool) {
		id, ok := groups[addr]
		return id, ok
	}
}

func TestAdd(t *testing.T) {
	lookup := lookupIn(map[bdaddr.Addr]int{addrA: 2})

	t.Run("Grouped", func(t *testing.T) {
		tbl := NewTable()
		s, err := tbl.Add(7, addrA, codec.RoleSource, lookup)
		require.NoError(t, err)
		assert.Equal(t, 2, s.GroupID)
		assert.True(t, s.IsSource())
		assert.False(t, s.Started)
	})

	t.Run("UngroupedDropped", func(t *testing.T) {
		tbl := NewTable()
		_, err := tbl.Add(7, addrB, codec.RoleSink, lookup)
		assert.ErrorIs(t, err, ErrDeviceNotFound)
		assert.Equal(t, 0, tbl.Len())
	})

	t.Run("Duplicate", func(t *testing.T) {
		tbl := NewTable()
		_, err := tbl.Add(7, addrA, codec.RoleSink, lookup)
		require.NoError(t, err)
		_, err = tbl.Add(7, addrA, codec.RoleSink, lookup)
		assert.ErrorIs(t, err, ErrExists)
	})
}

func TestAddRemoveRoundTrip(t *testing.T) {
	tbl := NewTable()
	lookup := lookupIn(map[bdaddr.Addr]int{addrA: 0})
	_, err := tbl.Add(1, addrA, codec.RoleSink, lookup)
	require.NoError(t, err)
	before := tbl.All()

	_, err = tbl.Add(2, addrA, codec.RoleSink, lookup)
	require.NoError(t, err)
	_, err = tbl.Remove(2)
	require.NoError(t, err)

	assert.Equal(t, before, tbl.All())

	_, err = tbl.Remove(2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStartStop(t *testing.T) {
	tbl := NewTable()
	lookup := lookupIn(map[bdaddr.Addr]int{addrA: 1, addrB: 1})
	_, _ = tbl.Add(1, addrA, codec.RoleSink, lookup)
	_, _ = tbl.Add(2, addrB, codec.RoleSink, lookup)

	cfg := codec.Config{CodecID: codec.IDLC3, Frequency: codec.Freq16000, Octets: 40}
	s, err := tbl.MarkStarted(1, cfg)
	require.NoError(t, err)
	assert.True(t, s.Started)
	assert.Equal(t, cfg, s.Codec)

	assert.Len(t, tbl.ByGroup(1), 2)
	assert.Len(t, tbl.ByDevice(addrA), 1)

	s, err = tbl.MarkStopped(1)
	require.NoError(t, err)
	assert.False(t, s.Started)
	assert.True(t, s.Codec.IsZero())

	_, err = tbl.MarkStarted(99, cfg)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, tbl.SetGroup(2, 3))
	got, _ := tbl.Get(2)
	assert.Equal(t, 3, got.GroupID)
	assert.ErrorIs(t, tbl.SetGroup(99, 3), ErrNotFound)
}

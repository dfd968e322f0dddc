package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leaudio/leaudio-go/pkg/bdaddr"
	"github.com/leaudio/leaudio-go/pkg/codec"
	"github.com/leaudio/leaudio-go/pkg/group"
	"github.com/leaudio/leaudio-go/pkg/service"
)

const sample = `
log:
  level: debug
  trace: /tmp/session.lalog
limits:
  max_groups: 4
  max_cis: 8
offload:
  enabled: true
  timeout: 250ms
presets:
  voice: ["8_2", "16_2"]
devices:
  - addr: "00:11:22:33:44:01"
    set_key: "000102030405060708090a0b0c0d0e0f"
    rank: 1
    contexts: [conversational, MEDIA]
  - addr: "00:11:22:33:44:02"
    sink_endpoints: 2
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)

	level, err := f.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
	assert.Equal(t, "/tmp/session.lalog", f.Log.Trace)
	assert.Equal(t, 250*time.Millisecond, f.Offload.Timeout)

	require.Len(t, f.Devices, 2)
	first := f.Devices[0]
	assert.Equal(t, bdaddr.MustParse("00:11:22:33:44:01"), first.Addr)

	key, ok, err := first.Key()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, group.SetKey{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}, key)

	mask, err := first.ContextMask()
	require.NoError(t, err)
	assert.Equal(t, codec.ContextConversational.Bit()|codec.ContextMedia.Bit(), mask)

	sink, source := f.Devices[1].Endpoints()
	assert.Equal(t, 2, sink)
	assert.Equal(t, 0, source)

	_, ok, err = f.Devices[1].Key()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"level", "log:\n  level: loud\n", ErrInvalidLevel},
		{"context", "devices:\n  - addr: \"00:11:22:33:44:01\"\n    contexts: [podcast]\n", ErrInvalidContext},
		{"duplicate", "devices:\n  - addr: \"00:11:22:33:44:01\"\n  - addr: \"00:11:22:33:44:01\"\n", ErrDuplicateAddr},
		{"set key", "devices:\n  - addr: \"00:11:22:33:44:01\"\n    set_key: \"abcd\"\n", group.ErrInvalidSetKey},
		{"preset", "presets:\n  media: [\"99_9\"]\n", codec.ErrUnknownPreset},
		{"address", "devices:\n  - addr: \"nope\"\n", bdaddr.ErrInvalidAddress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestApply(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)

	cfg := service.DefaultConfig()
	f.Apply(&cfg)

	assert.Equal(t, 4, cfg.MaxGroups)
	assert.Equal(t, 8, cfg.MaxCIS)
	assert.Equal(t, service.DefaultQueueSize, cfg.QueueSize)
	assert.True(t, cfg.OffloadEnabled)
	assert.Equal(t, 250*time.Millisecond, cfg.OffloadTimeout)
	assert.Equal(t, []string{"8_2", "16_2"}, cfg.Presets.Voice)
	assert.Equal(t, codec.DefaultPresetOrder().Media, cfg.Presets.Media)
	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, f.Devices, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

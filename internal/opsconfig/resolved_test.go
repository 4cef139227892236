package opsconfig

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_DefaultsMatchEngineBuiltins(t *testing.T) {
	t.Parallel()

	r, err := resolve(DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, defaultCompressWorkers, r.CompressWorkers)
	assert.Equal(t, int64(800*1024), r.MaxBytes)
	assert.Equal(t, int64(50*1024), r.MaxTolerance)
	assert.Equal(t, 100*time.Millisecond, r.DebounceWindow)
	assert.Equal(t, int64(10*1024*1024*1024), r.LowStorageThreshold)
	assert.Equal(t, int64(0), r.BandwidthLimit)
}

func TestResolve_RejectsBadDuration(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Watcher.DebounceWindow = "not-a-duration"

	_, err := resolve(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "debounce_window")
}

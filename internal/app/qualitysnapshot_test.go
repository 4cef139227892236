package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumosnap/synccore/internal/catalog"
	"github.com/lumosnap/synccore/internal/opsconfig"
)

func openTestStore(t *testing.T) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(context.Background(), filepath.Join(t.TempDir(), "catalog.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func TestCheckQualitySnapshot_FirstRunReportsNoChange(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)
	ops := &opsconfig.Resolved{MaxLongEdge: 2048, QualityStart: 86, QualityMin: 80, QualityStep: 2}

	changed, err := checkQualitySnapshot(ctx, store, ops, nil)
	require.NoError(t, err)
	assert.False(t, changed)

	saved, err := store.GetConfigSnapshot(ctx, configSnapshotKey)
	require.NoError(t, err)
	assert.Equal(t, ops.QualitySnapshot(), saved)
}

func TestCheckQualitySnapshot_DetectsChangeAcrossRuns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)

	first := &opsconfig.Resolved{MaxLongEdge: 2048, QualityStart: 86, QualityMin: 80, QualityStep: 2}
	changed, err := checkQualitySnapshot(ctx, store, first, nil)
	require.NoError(t, err)
	assert.False(t, changed)

	second := &opsconfig.Resolved{MaxLongEdge: 1600, QualityStart: 86, QualityMin: 80, QualityStep: 2}
	changed, err = checkQualitySnapshot(ctx, store, second, nil)
	require.NoError(t, err)
	assert.True(t, changed)

	saved, err := store.GetConfigSnapshot(ctx, configSnapshotKey)
	require.NoError(t, err)
	assert.Equal(t, second.QualitySnapshot(), saved)
}

func TestCheckQualitySnapshot_NoChangeWhenSnapshotIsIdentical(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)
	ops := &opsconfig.Resolved{MaxLongEdge: 2048, QualityStart: 86, QualityMin: 80, QualityStep: 2}

	_, err := checkQualitySnapshot(ctx, store, ops, nil)
	require.NoError(t, err)

	changed, err := checkQualitySnapshot(ctx, store, ops, nil)
	require.NoError(t, err)
	assert.False(t, changed)
}

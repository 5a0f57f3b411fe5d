// Copyright (C) 2026 tablelog contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package logstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deltakit/tablelog/pkg/lognaming"
)

// A linear log with no checkpoint.
func TestBuild_LinearLog(t *testing.T) {
	b := newFakeBackend()
	b.putCommit("t", 0, assignID(testTableID))
	for v := int64(1); v <= 5; v++ {
		b.putCommit("t", v)
	}

	seg, err := newBuilder(b).Build(context.Background(), "t", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), seg.Version)
	assert.False(t, seg.HasCheckpoint)
	assert.Len(t, seg.Deltas, 6)
	assert.Equal(t, int64(0), seg.Deltas[0].Version)
	assert.Equal(t, int64(5), seg.Deltas[5].Version)
	assert.Equal(t, commitTime(5), seg.LastCommitTimestamp)
}

// A single-part checkpoint partway through the log.
func TestBuild_WithCheckpoint(t *testing.T) {
	b := newFakeBackend()
	for v := int64(0); v <= 10; v++ {
		b.putCommit("t", v)
	}
	b.putCheckpoint("t", 7, testTableID)

	seg, err := newBuilder(b).Build(context.Background(), "t", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(10), seg.Version)
	require.True(t, seg.HasCheckpoint)
	assert.Equal(t, int64(7), seg.CheckpointVersion)
	require.Len(t, seg.Deltas, 3)
	assert.Equal(t, []int64{8, 9, 10}, versionsOf(seg.Deltas))
}

// A complete multi-part checkpoint.
func TestBuild_MultiPartCheckpoint(t *testing.T) {
	b := newFakeBackend()
	for v := int64(0); v <= 5; v++ {
		b.putCommit("t", v)
	}
	b.putMultiPartCheckpoint("t", 3, testTableID, 2)

	seg, err := newBuilder(b).Build(context.Background(), "t", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), seg.Version)
	assert.Equal(t, int64(3), seg.CheckpointVersion)
	assert.Len(t, seg.Checkpoint, 2)
	assert.Equal(t, []int64{4, 5}, versionsOf(seg.Deltas))
}

// A missing checkpoint part triggers fallback recovery. With the full
// delta chain from version 0 still intact, the no-prior-checkpoint branch
// recovers a checkpoint-less segment; once an earlier complete checkpoint
// exists, the fallback prefers that instead.
func TestBuild_MissingPartFallback(t *testing.T) {
	b := newFakeBackend()
	for v := int64(0); v <= 5; v++ {
		b.putCommit("t", v)
	}
	b.putMultiPartCheckpoint("t", 3, testTableID, 2)
	b.delete("t", lognaming.MultiPartCheckpointName(3, 2, 2))
	b.putHint("t", 3, 2)

	seg, err := newBuilder(b).Build(context.Background(), "t", i64(3), nil)
	require.NoError(t, err)
	assert.False(t, seg.HasCheckpoint)
	assert.Equal(t, []int64{0, 1, 2, 3, 4, 5}, versionsOf(seg.Deltas))
	assert.Equal(t, int64(5), seg.Version)

	// Add an earlier complete checkpoint: fallback should now prefer it
	// over a full replay from 0.
	b.putCheckpoint("t", 1, testTableID)
	seg, err = newBuilder(b).Build(context.Background(), "t", i64(3), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seg.CheckpointVersion)
	assert.Equal(t, []int64{2, 3, 4, 5}, versionsOf(seg.Deltas))
	assert.Equal(t, int64(5), seg.Version)
}

// TestBuild_MissingPartNoFallback verifies the genuine MissingCheckpointParts
// failure mode: the checkpoint is incomplete, no earlier checkpoint exists,
// and the delta chain from 0 is also broken (commits GC'd past the
// checkpoint), so no fallback segment can be constructed.
func TestBuild_MissingPartNoFallback(t *testing.T) {
	b := newFakeBackend()
	for v := int64(3); v <= 5; v++ {
		b.putCommit("t", v)
	}
	b.putMultiPartCheckpoint("t", 3, testTableID, 2)
	b.delete("t", lognaming.MultiPartCheckpointName(3, 2, 2))
	b.putHint("t", 3, 2)

	_, err := newBuilder(b).Build(context.Background(), "t", i64(3), nil)
	require.Error(t, err)
	assert.IsType(t, &MissingCheckpointPartsError{}, err)
}

// A gap in the delta chain surfaces MissingDeltaFile at the missing
// version.
func TestBuild_GapInLog(t *testing.T) {
	b := newFakeBackend()
	b.putCommit("t", 0, assignID(testTableID))
	b.putCommit("t", 1)
	b.putCommit("t", 3)

	_, err := newBuilder(b).Build(context.Background(), "t", nil, nil)
	require.Error(t, err)
	mdErr, ok := err.(*MissingDeltaFileError)
	require.True(t, ok)
	assert.Equal(t, int64(2), mdErr.Version)
}

// A stale hint pointing into a recreated/truncated directory retries as
// if no hint had been supplied.
func TestBuild_StaleHintRecreatedDirectory(t *testing.T) {
	b := newFakeBackend()
	b.putCommit("t", 0, assignID(testTableID2))
	b.putCommit("t", 1)
	b.putCommit("t", 2)

	// Hint claims a checkpoint at 50 that no longer exists anywhere in
	// the (recreated) listing.
	seg, err := newBuilder(b).Build(context.Background(), "t", i64(50), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), seg.Version)
	assert.False(t, seg.HasCheckpoint)
}

func TestBuild_EmptyDirectoryNoHint(t *testing.T) {
	b := newFakeBackend()
	// The hint file exists but is not itself a listed log file, so the
	// filtered listing is empty even though the directory is not.
	b.putHint("t", 0, 0)

	_, err := newBuilder(b).Build(context.Background(), "t", nil, nil)
	require.Error(t, err)
	assert.IsType(t, &EmptyDirectoryError{}, err)
}

func TestBuild_OnlyIncompleteCheckpointIsIllegalState(t *testing.T) {
	b := newFakeBackend()
	b.putMultiPartCheckpoint("t", 3, testTableID, 2)
	b.delete("t", lognaming.MultiPartCheckpointName(3, 2, 2))

	_, err := newBuilder(b).Build(context.Background(), "t", nil, nil)
	require.Error(t, err)
	assert.IsType(t, &IllegalLogStateError{}, err)
}

func TestBuild_NonContiguousVersionsWithCeiling(t *testing.T) {
	b := newFakeBackend()
	b.putCommit("t", 0, assignID(testTableID))
	b.putCommit("t", 1)
	// versionToLoad asks for 3, but no delta for 3 exists: the retained
	// chain is contiguous yet falls short of the requested ceiling.
	_, err := newBuilder(b).Build(context.Background(), "t", nil, i64(3))
	require.Error(t, err)
	assert.IsType(t, &NonContiguousVersionsError{}, err)
}

func versionsOf(files []LogFile) []int64 {
	out := make([]int64, len(files))
	for i, f := range files {
		out[i] = f.Version
	}
	return out
}

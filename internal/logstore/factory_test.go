// Copyright (C) 2026 tablelog contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package logstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotFactory_CreateSnapshot_PlainLog(t *testing.T) {
	b := newFakeBackend()
	b.putCommit("t", 0, assignID(testTableID))
	b.putCommit("t", 1)

	builder := newBuilder(b)
	seg, err := builder.Build(context.Background(), "t", nil, nil)
	require.NoError(t, err)

	factory := NewSnapshotFactory(b, builder, 2)
	snap, err := factory.CreateSnapshot(context.Background(), seg)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Version)
	assert.Equal(t, testTableID, snap.TableID().String())
}

func TestSnapshotFactory_CreateSnapshot_CorruptCheckpoint(t *testing.T) {
	b := newFakeBackend()
	b.putCommit("t", 0, assignID(testTableID))
	b.putCorruptCheckpoint("t", 3)
	b.putCommit("t", 4)

	builder := newBuilder(b)
	seg, err := builder.Build(context.Background(), "t", nil, nil)
	require.NoError(t, err)
	require.True(t, seg.HasCheckpoint)

	factory := NewSnapshotFactory(b, builder, 2)
	_, err = factory.CreateSnapshot(context.Background(), seg)
	require.Error(t, err)
	assert.IsType(t, &CheckpointCorruptionError{}, err)
}

// CreateWithRetry recovers from a corrupt checkpoint by falling back to
// an earlier, valid one and replaying forward from there.
func TestSnapshotFactory_CreateWithRetry_RecoversFromCorruption(t *testing.T) {
	b := newFakeBackend()
	b.putCheckpoint("t", 1, testTableID)
	b.putCommit("t", 2)
	b.putCommit("t", 3)
	b.putCorruptCheckpoint("t", 3) // checkpoint at 3 wins selection but can't be decoded
	b.putCommit("t", 4)

	builder := newBuilder(b)
	seg, err := builder.Build(context.Background(), "t", nil, nil)
	require.NoError(t, err)
	require.Equal(t, int64(3), seg.CheckpointVersion)

	factory := NewSnapshotFactory(b, builder, 2)
	snap, err := factory.CreateWithRetry(context.Background(), seg)
	require.NoError(t, err)
	assert.Equal(t, int64(4), snap.Version)
	assert.Equal(t, int64(1), snap.LogSegment.CheckpointVersion, "retry should have fallen back to the checkpoint at 1")
}

func TestSnapshotFactory_CreateWithRetry_ExhaustsToFirstError(t *testing.T) {
	b := newFakeBackend()
	b.putCorruptCheckpoint("t", 3)
	b.putCommit("t", 4)

	builder := newBuilder(b)
	seg, err := builder.Build(context.Background(), "t", nil, nil)
	require.NoError(t, err)

	factory := NewSnapshotFactory(b, builder, 2)
	_, err = factory.CreateWithRetry(context.Background(), seg)
	require.Error(t, err)
	assert.IsType(t, &CheckpointCorruptionError{}, err)
}

// A retention timestamp recorded in the checkpoint must survive into the
// materialized Snapshot.
func TestSnapshotFactory_CarriesCheckpointRetentionTimestamp(t *testing.T) {
	retention := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	b := newFakeBackend()
	b.putCheckpointWithRetention("t", 2, testTableID, retention)
	b.putCommit("t", 3)

	builder := newBuilder(b)
	seg, err := builder.Build(context.Background(), "t", nil, nil)
	require.NoError(t, err)

	factory := NewSnapshotFactory(b, builder, 2)
	snap, err := factory.CreateSnapshot(context.Background(), seg)
	require.NoError(t, err)
	assert.True(t, snap.MinFileRetentionTimestamp.Equal(retention))

	// A checkpoint-less log has no retention record to carry.
	b2 := newFakeBackend()
	b2.putCommit("t", 0, assignID(testTableID))
	builder2 := newBuilder(b2)
	seg2, err := builder2.Build(context.Background(), "t", nil, nil)
	require.NoError(t, err)
	snap2, err := NewSnapshotFactory(b2, builder2, 2).CreateSnapshot(context.Background(), seg2)
	require.NoError(t, err)
	assert.True(t, snap2.MinFileRetentionTimestamp.IsZero())
}

func TestSnapshotFactory_CreateSnapshot_CorruptCommit(t *testing.T) {
	b := newFakeBackend()
	b.putCommit("t", 0, assignID(testTableID))
	b.putCorruptCommit("t", 1)

	builder := newBuilder(b)
	seg, err := builder.Build(context.Background(), "t", nil, nil)
	require.NoError(t, err)

	factory := NewSnapshotFactory(b, builder, 2)
	_, err = factory.CreateSnapshot(context.Background(), seg)
	require.Error(t, err)
	assert.IsType(t, &CommitCorruptionError{}, err)
}

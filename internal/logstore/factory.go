// Copyright (C) 2026 tablelog contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package logstore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/deltakit/tablelog/pkg/schema"
	"github.com/deltakit/tablelog/pkg/storage"
)

// SnapshotFactory materializes a LogSegment into a Snapshot by replaying
// its checkpoint (if any) and deltas, and retries with an earlier,
// equivalent segment when the selected checkpoint turns out to be corrupt.
type SnapshotFactory struct {
	backend    storage.Backend
	builder    *LogSegmentBuilder
	maxRetries int
}

func NewSnapshotFactory(backend storage.Backend, builder *LogSegmentBuilder, maxRetries int) *SnapshotFactory {
	if maxRetries <= 0 {
		maxRetries = 2
	}
	return &SnapshotFactory{backend: backend, builder: builder, maxRetries: maxRetries}
}

// CreateSnapshot replays segment's checkpoint and deltas and folds them
// into a Snapshot, with no retry behavior of its own.
func (f *SnapshotFactory) CreateSnapshot(ctx context.Context, segment LogSegment) (Snapshot, error) {
	var content CheckpointContent

	if segment.HasCheckpoint {
		parts := make([][]byte, 0, len(segment.Checkpoint))
		for _, cf := range segment.Checkpoint {
			data, err := f.backend.ReadFile(ctx, cf.Path)
			if err != nil {
				return Snapshot{}, err
			}
			parts = append(parts, data)
		}
		c, err := DecodeCheckpoint(parts)
		if err != nil {
			return Snapshot{}, &CheckpointCorruptionError{Version: segment.CheckpointVersion, Err: err}
		}
		content = c
	} else {
		content.Metadata = schema.TableMetadata{
			Properties:           map[string]string{},
			PartitionExpressions: map[string]json.RawMessage{},
		}
	}

	mb := schema.NewMetadataBuilder(content.Metadata, content.Protocol)
	for _, df := range segment.Deltas {
		data, err := f.backend.ReadFile(ctx, df.Path)
		if err != nil {
			return Snapshot{}, err
		}
		actions, err := DecodeCommit(data)
		if err != nil {
			return Snapshot{}, &CommitCorruptionError{Version: df.Version, Err: err}
		}
		for _, a := range actions {
			mb.Apply(a)
		}
	}
	finalMeta, finalProtocol := mb.Build()

	return Snapshot{
		Version:                   segment.Version,
		LogSegment:                segment,
		Metadata:                  finalMeta,
		Protocol:                  finalProtocol,
		MinFileRetentionTimestamp: content.MinFileRetentionTimestamp,
		Checksum:                  content.Checksum,
	}, nil
}

// CreateWithRetry wraps CreateSnapshot with fallback recovery: on a
// CheckpointCorruptionError, fall back to an earlier complete checkpoint
// (via buildWithExclusiveCeiling) and retry, up to maxRetries times,
// surfacing the first error encountered if recovery is exhausted.
func (f *SnapshotFactory) CreateWithRetry(ctx context.Context, segment LogSegment) (Snapshot, error) {
	var firstErr error
	current := segment

	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		snap, err := f.CreateSnapshot(ctx, current)
		if err == nil {
			return snap, nil
		}
		if firstErr == nil {
			firstErr = err
		}

		var corrupt *CheckpointCorruptionError
		if !errors.As(err, &corrupt) || !current.HasCheckpoint || attempt == f.maxRetries {
			return Snapshot{}, firstErr
		}

		recovered, found, buildErr := f.builder.buildWithExclusiveCeiling(ctx, current.LogPath, current.Version, current.CheckpointVersion)
		if buildErr != nil || !found {
			return Snapshot{}, firstErr
		}
		current = recovered
	}
	return Snapshot{}, firstErr
}

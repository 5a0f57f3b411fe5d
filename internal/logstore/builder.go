// Copyright (C) 2026 tablelog contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package logstore

import (
	"context"
	"math"
	"time"
)

var zeroTime time.Time

// LogSegmentBuilder produces the ordered set of files (a LogSegment)
// needed to materialize a version: given an optional starting-checkpoint
// hint and an optional version ceiling, it lists the directory, selects
// the newest usable checkpoint, and verifies the delta chain above it.
type LogSegmentBuilder struct {
	reader   *LogDirectoryReader
	selector *CheckpointSelector
}

func NewLogSegmentBuilder(reader *LogDirectoryReader) *LogSegmentBuilder {
	return &LogSegmentBuilder{
		reader:   reader,
		selector: NewCheckpointSelector(reader),
	}
}

// Build is the public entry point. startCheckpointHint and versionToLoad
// are both optional (nil means "absent").
func (b *LogSegmentBuilder) Build(ctx context.Context, logPath string, startCheckpointHint *int64, versionToLoad *int64) (LogSegment, error) {
	startVersion := int64(0)
	if startCheckpointHint != nil {
		startVersion = *startCheckpointHint
	}

	files, err := b.reader.ListFrom(ctx, logPath, startVersion)
	if err != nil {
		return LogSegment{}, err
	}
	if versionToLoad != nil {
		files = truncateToVersion(files, *versionToLoad)
	}

	if len(files) == 0 {
		if startCheckpointHint == nil {
			return LogSegment{}, &EmptyDirectoryError{LogPath: logPath}
		}
		// Stale singleton hint pointing past a recreated/truncated
		// directory: retry as if no hint had been given.
		return b.Build(ctx, logPath, nil, versionToLoad)
	}

	var checkpoints, deltas []LogFile
	for _, f := range files {
		if f.IsCheckpoint() {
			checkpoints = append(checkpoints, f)
		} else if f.IsDelta() {
			deltas = append(deltas, f)
		}
	}

	upperBound := MaxCheckpointInstance
	if versionToLoad != nil {
		upperBound = CheckpointInstance{Version: *versionToLoad, NumParts: math.MaxInt32}
	}
	newCheckpoint, found := b.selector.LatestComplete(checkpoints, upperBound)

	if !found && startCheckpointHint != nil {
		snapshotVersion, ok := targetVersion(versionToLoad, deltas)
		if !ok {
			return LogSegment{}, &MissingCheckpointPartsError{Version: *startCheckpointHint}
		}
		seg, recovered, err := b.buildWithExclusiveCeiling(ctx, logPath, snapshotVersion, *startCheckpointHint)
		if err != nil {
			return LogSegment{}, err
		}
		if !recovered {
			return LogSegment{}, &MissingCheckpointPartsError{Version: *startCheckpointHint}
		}
		return seg, nil
	}

	c := int64(-1)
	var checkpointFiles []LogFile
	if found {
		c = newCheckpoint.Version
		checkpointFiles = FilesForInstance(checkpoints, newCheckpoint)
	}

	var retained []LogFile
	for _, d := range deltas {
		if d.Version > c {
			retained = append(retained, d)
		}
	}

	if err := verifyContiguous(retained, c+1); err != nil {
		return LogSegment{}, err
	}

	if len(retained) == 0 && !found {
		// The listing was non-empty, yet it held no delta and no complete
		// checkpoint: only incomplete checkpoints.
		return LogSegment{}, &IllegalLogStateError{LogPath: logPath, Reason: "no usable deltas or complete checkpoint in listing"}
	}

	finalVersion := c
	var lastCommitTimestamp = zeroTime
	if len(retained) > 0 {
		last := retained[len(retained)-1]
		finalVersion = last.Version
		lastCommitTimestamp = last.ModTime
	}

	if versionToLoad != nil && finalVersion != *versionToLoad {
		return LogSegment{}, &NonContiguousVersionsError{LogPath: logPath}
	}

	return LogSegment{
		LogPath:             logPath,
		Version:             finalVersion,
		Deltas:              retained,
		Checkpoint:          checkpointFiles,
		CheckpointVersion:   c,
		HasCheckpoint:       found,
		LastCommitTimestamp: lastCommitTimestamp,
	}, nil
}

// buildWithExclusiveCeiling recovers when the checkpoint named by a hint
// has disappeared or is unreadable. maxExclusiveCkpt is the
// version the missing checkpoint claimed; the result must use a
// checkpoint strictly below it.
func (b *LogSegmentBuilder) buildWithExclusiveCeiling(ctx context.Context, logPath string, snapshotVersion int64, maxExclusiveCkpt int64) (LogSegment, bool, error) {
	if snapshotVersion < maxExclusiveCkpt {
		return LogSegment{}, false, nil
	}

	searchBound := snapshotVersion
	if maxExclusiveCkpt-1 < searchBound {
		searchBound = maxExclusiveCkpt - 1
	}

	if searchBound >= 0 {
		prevInst, prevFiles, ok, err := b.selector.FindLastCompleteBefore(ctx, logPath, searchBound)
		if err != nil {
			return LogSegment{}, false, err
		}
		if ok {
			deltaFiles, err := b.reader.ListFrom(ctx, logPath, prevInst.Version+1)
			if err != nil {
				return LogSegment{}, false, err
			}
			deltaFiles = truncateToVersion(deltaFiles, snapshotVersion)
			deltas := onlyDeltas(deltaFiles)

			if verifyContiguous(deltas, prevInst.Version+1) != nil {
				return LogSegment{}, false, nil
			}
			// prevInst.Version < snapshotVersion always holds here, so the
			// chain must be non-empty and end exactly at snapshotVersion.
			if len(deltas) == 0 || deltas[len(deltas)-1].Version != snapshotVersion {
				return LogSegment{}, false, nil
			}
			return LogSegment{
				LogPath:             logPath,
				Version:             snapshotVersion,
				Deltas:              deltas,
				Checkpoint:          prevFiles,
				CheckpointVersion:   prevInst.Version,
				HasCheckpoint:       true,
				LastCommitTimestamp: deltas[len(deltas)-1].ModTime,
			}, true, nil
		}
	}

	// No prior checkpoint: require a full, valid chain from 0.
	allFiles, err := b.reader.ListFrom(ctx, logPath, 0)
	if err != nil {
		return LogSegment{}, false, err
	}
	allFiles = truncateToVersion(allFiles, snapshotVersion)
	deltas := onlyDeltas(allFiles)

	if verifyContiguous(deltas, 0) != nil {
		return LogSegment{}, false, nil
	}
	if len(deltas) == 0 || deltas[len(deltas)-1].Version != snapshotVersion {
		return LogSegment{}, false, nil
	}

	return LogSegment{
		LogPath:             logPath,
		Version:             snapshotVersion,
		Deltas:              deltas,
		LastCommitTimestamp: deltas[len(deltas)-1].ModTime,
	}, true, nil
}

func truncateToVersion(files []LogFile, ceiling int64) []LogFile {
	out := make([]LogFile, 0, len(files))
	for _, f := range files {
		if f.Version <= ceiling {
			out = append(out, f)
		}
	}
	return out
}

func onlyDeltas(files []LogFile) []LogFile {
	var out []LogFile
	for _, f := range files {
		if f.IsDelta() {
			out = append(out, f)
		}
	}
	return out
}

// verifyContiguous checks that deltas (already sorted ascending) form the
// strict consecutive run starting at `start`, with no gaps.
func verifyContiguous(deltas []LogFile, start int64) error {
	expected := start
	for _, d := range deltas {
		if d.Version != expected {
			return &MissingDeltaFileError{Version: expected}
		}
		expected++
	}
	return nil
}

// targetVersion resolves the snapshotVersion the fallback must rebuild:
// the requested ceiling if one was given, otherwise the last listed delta.
func targetVersion(versionToLoad *int64, deltas []LogFile) (int64, bool) {
	if versionToLoad != nil {
		return *versionToLoad, true
	}
	if len(deltas) > 0 {
		return deltas[len(deltas)-1].Version, true
	}
	return 0, false
}

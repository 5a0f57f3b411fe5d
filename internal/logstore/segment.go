// Copyright (C) 2026 tablelog contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package logstore

import "time"

// LogSegment is the immutable reconstruction unit produced by
// LogSegmentBuilder: the ordered set of files needed to materialize one
// version of a table.
type LogSegment struct {
	LogPath string
	Version int64

	// Deltas holds commit files (c+1 .. Version), or (0 .. Version) when
	// Checkpoint is empty, ascending by version.
	Deltas []LogFile

	// Checkpoint holds the one or more files making up the selected
	// checkpoint, or nil if none was used.
	Checkpoint []LogFile

	// CheckpointVersion is meaningful only when HasCheckpoint is true
	// (Build leaves it at -1 when no checkpoint was used).
	CheckpointVersion int64
	HasCheckpoint     bool

	// LastCommitTimestamp is the ModTime of the delta file for Version,
	// never of a checkpoint file.
	LastCommitTimestamp time.Time
}

// Equal is the freshness check the snapshot cache keys on: two segments
// are equal iff (logPath, version, lastCommitTimestamp) match.
func (s LogSegment) Equal(other LogSegment) bool {
	return s.LogPath == other.LogPath &&
		s.Version == other.Version &&
		s.LastCommitTimestamp.Equal(other.LastCommitTimestamp)
}

// Copyright (C) 2026 tablelog contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package logstore

import "fmt"

// EmptyDirectoryError is raised when a log directory exists but is empty
// and no starting-checkpoint hint was supplied to interpret that as "not
// created yet".
type EmptyDirectoryError struct {
	LogPath string
}

func (e *EmptyDirectoryError) Error() string {
	return fmt.Sprintf("logstore: %s is empty", e.LogPath)
}

// MissingDeltaFileError reports a broken contiguity at Version.
type MissingDeltaFileError struct {
	Version int64
}

func (e *MissingDeltaFileError) Error() string {
	return fmt.Sprintf("logstore: missing delta file for version %d", e.Version)
}

// NonContiguousVersionsError reports a delta chain that is contiguous but
// does not end at the requested versionToLoad. A gap inside the chain is
// reported as MissingDeltaFileError instead.
type NonContiguousVersionsError struct {
	LogPath string
}

func (e *NonContiguousVersionsError) Error() string {
	return fmt.Sprintf("logstore: non-contiguous delta versions in %s", e.LogPath)
}

// MissingCheckpointPartsError reports a multi-part checkpoint with missing
// shards and no usable fallback.
type MissingCheckpointPartsError struct {
	Version    int64
	NumParts   int
	PartsFound int
}

func (e *MissingCheckpointPartsError) Error() string {
	if e.NumParts > 0 {
		return fmt.Sprintf("logstore: checkpoint at version %d has %d/%d parts", e.Version, e.PartsFound, e.NumParts)
	}
	return fmt.Sprintf("logstore: checkpoint at version %d is missing parts and no earlier checkpoint exists", e.Version)
}

// IllegalLogStateError guards an unreachable-state assertion: the listing
// was non-empty, yet it held no delta file and no complete checkpoint.
type IllegalLogStateError struct {
	LogPath string
	Reason  string
}

func (e *IllegalLogStateError) Error() string {
	return fmt.Sprintf("logstore: illegal log state in %s: %s", e.LogPath, e.Reason)
}

// CheckpointCorruptionError is raised while materializing a Snapshot (not
// while listing) when a selected checkpoint's content cannot be decoded.
type CheckpointCorruptionError struct {
	Version int64
	Err     error
}

func (e *CheckpointCorruptionError) Error() string {
	return fmt.Sprintf("logstore: checkpoint at version %d is corrupt: %v", e.Version, e.Err)
}

func (e *CheckpointCorruptionError) Unwrap() error { return e.Err }

// CommitCorruptionError is raised while materializing a Snapshot when a
// delta file's content cannot be decoded. Unlike CheckpointCorruption,
// there is no retry path for it: an earlier checkpoint still requires
// replaying the same broken delta, so it is surfaced directly.
type CommitCorruptionError struct {
	Version int64
	Err     error
}

func (e *CommitCorruptionError) Error() string {
	return fmt.Sprintf("logstore: commit at version %d is corrupt: %v", e.Version, e.Err)
}

func (e *CommitCorruptionError) Unwrap() error { return e.Err }

// CancelledError surfaces an interrupted updateLock acquisition.
type CancelledError struct {
	Err error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("logstore: cancelled: %v", e.Err)
}

func (e *CancelledError) Unwrap() error { return e.Err }

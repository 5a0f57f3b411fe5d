// Copyright (C) 2026 tablelog contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package logstore implements the snapshot management core: reading a log
// directory's commit and checkpoint files, selecting the files needed to
// reconstruct a version (LogSegment), materializing that into a Snapshot,
// and caching/refreshing that Snapshot in the face of concurrent writers.
package logstore

import (
	"time"

	"github.com/deltakit/tablelog/pkg/lognaming"
)

// LogFile is one classified entry of a log directory: a commit, a
// checkpoint (whole or one part of a multi-part set), or the
// _last_checkpoint hint.
type LogFile struct {
	Path    string
	ModTime time.Time
	Length  int64

	Kind    lognaming.Kind
	Version int64
	Part    int
	Total   int
}

// kindOrder fixes the within-version listing order: a checkpoint
// for version v is listed before the commit for version v. The parts of
// a multi-part checkpoint share one kind-order and are not ordered among
// themselves.
func kindOrder(k lognaming.Kind) int {
	switch k {
	case lognaming.SingleCheckpoint, lognaming.MultiPartCheckpoint:
		return 0
	case lognaming.DeltaCommit:
		return 1
	default:
		return 2
	}
}

// Less orders two LogFiles by (version, kind-order) ascending, as required
// by the LogDirectoryReader contract.
func (f LogFile) Less(other LogFile) bool {
	if f.Version != other.Version {
		return f.Version < other.Version
	}
	return kindOrder(f.Kind) < kindOrder(other.Kind)
}

func (f LogFile) IsCheckpoint() bool {
	return f.Kind == lognaming.SingleCheckpoint || f.Kind == lognaming.MultiPartCheckpoint
}

func (f LogFile) IsDelta() bool {
	return f.Kind == lognaming.DeltaCommit
}

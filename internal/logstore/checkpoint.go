// Copyright (C) 2026 tablelog contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package logstore

import (
	"context"
	"math"
)

// CheckpointInstance identifies a (possibly multi-part) checkpoint by
// version and, for multi-part checkpoints, the number of parts it is
// supposed to have.
type CheckpointInstance struct {
	Version  int64
	NumParts int // 0 means "single-part"
}

// MaxCheckpointInstance is the synthetic unbounded upper bound used by
// LatestComplete when no versionToLoad ceiling applies.
var MaxCheckpointInstance = CheckpointInstance{Version: math.MaxInt64, NumParts: math.MaxInt32}

// Compare orders CheckpointInstances by version ascending, then by
// NumParts ascending (absent/0 NumParts sorts below any present value).
func (c CheckpointInstance) Compare(other CheckpointInstance) int {
	if c.Version != other.Version {
		if c.Version < other.Version {
			return -1
		}
		return 1
	}
	if c.NumParts == other.NumParts {
		return 0
	}
	if c.NumParts < other.NumParts {
		return -1
	}
	return 1
}

func (c CheckpointInstance) LessEq(other CheckpointInstance) bool {
	return c.Compare(other) <= 0
}

// CheckpointSelector picks the latest complete checkpoint not exceeding a
// version bound, and supports scanning backward for fallback recovery.
type CheckpointSelector struct {
	reader *LogDirectoryReader
}

func NewCheckpointSelector(reader *LogDirectoryReader) *CheckpointSelector {
	return &CheckpointSelector{reader: reader}
}

// instancesFromFiles groups checkpoint LogFiles into CheckpointInstances
// and reports, per instance, how many of its declared parts are present.
func instancesFromFiles(files []LogFile) map[CheckpointInstance]map[int]bool {
	out := map[CheckpointInstance]map[int]bool{}
	for _, f := range files {
		if !f.IsCheckpoint() {
			continue
		}
		var inst CheckpointInstance
		var part int
		if f.Total > 0 {
			inst = CheckpointInstance{Version: f.Version, NumParts: f.Total}
			part = f.Part
		} else {
			inst = CheckpointInstance{Version: f.Version, NumParts: 0}
			part = 1
		}
		parts, ok := out[inst]
		if !ok {
			parts = map[int]bool{}
			out[inst] = parts
		}
		parts[part] = true
	}
	return out
}

// isComplete reports whether every part named by inst is present.
func isComplete(inst CheckpointInstance, parts map[int]bool) bool {
	total := inst.NumParts
	if total == 0 {
		total = 1
	}
	for p := 1; p <= total; p++ {
		if !parts[p] {
			return false
		}
	}
	return true
}

// LatestComplete returns the maximum complete checkpoint instance among
// candidates with value <= upperBound, or false if none is complete.
func (s *CheckpointSelector) LatestComplete(candidates []LogFile, upperBound CheckpointInstance) (CheckpointInstance, bool) {
	byInstance := instancesFromFiles(candidates)

	var best CheckpointInstance
	found := false
	for inst, parts := range byInstance {
		if !inst.LessEq(upperBound) {
			continue
		}
		if !isComplete(inst, parts) {
			continue
		}
		if !found || best.Compare(inst) < 0 {
			best = inst
			found = true
		}
	}
	return best, found
}

// FilesForInstance returns the (whole or multi-part) checkpoint files that
// make up inst.
func FilesForInstance(files []LogFile, inst CheckpointInstance) []LogFile {
	var out []LogFile
	for _, f := range files {
		if !f.IsCheckpoint() || f.Version != inst.Version {
			continue
		}
		if inst.NumParts == 0 && f.Total == 0 {
			out = append(out, f)
		} else if inst.NumParts > 0 && f.Total == inst.NumParts {
			out = append(out, f)
		}
	}
	return out
}

// FindLastCompleteBefore lists the whole directory from version 0 and
// returns the latest complete checkpoint instance at or below upperBound.
// The LastCheckpointHint is not consulted, here or by the callers.
func (s *CheckpointSelector) FindLastCompleteBefore(ctx context.Context, logPath string, upperBound int64) (CheckpointInstance, []LogFile, bool, error) {
	if upperBound < 0 {
		return CheckpointInstance{}, nil, false, nil
	}

	files, err := s.reader.ListFrom(ctx, logPath, 0)
	if err != nil {
		return CheckpointInstance{}, nil, false, err
	}

	var checkpoints []LogFile
	for _, f := range files {
		if f.IsCheckpoint() && f.Version <= upperBound {
			checkpoints = append(checkpoints, f)
		}
	}

	inst, ok := s.LatestComplete(checkpoints, CheckpointInstance{Version: upperBound, NumParts: math.MaxInt32})
	if !ok {
		return CheckpointInstance{}, nil, false, nil
	}
	return inst, FilesForInstance(checkpoints, inst), true, nil
}

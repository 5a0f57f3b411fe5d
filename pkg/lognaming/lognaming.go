// Copyright (C) 2026 tablelog contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package lognaming implements the log file naming scheme: 20-digit
// zero-padded commit and checkpoint filenames plus the hint file name. It
// has no dependency on how files are listed or read, so both pkg/storage
// (which only needs to compare encoded version prefixes) and the log
// segment builder (which needs full classification) can share it without
// an import cycle.
package lognaming

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	versionDigits = 20
	partDigits    = 10
)

// Kind classifies one log directory entry.
type Kind int

const (
	Unknown Kind = iota
	DeltaCommit
	SingleCheckpoint
	MultiPartCheckpoint
	LastCheckpointHintFile
)

const HintFileName = "_last_checkpoint"

// EncodeVersion renders v as the 20-digit zero-padded decimal used in every
// commit/checkpoint filename.
func EncodeVersion(v int64) string {
	return fmt.Sprintf("%0*d", versionDigits, v)
}

// CommitName returns "NNNN....json" for version v.
func CommitName(v int64) string {
	return EncodeVersion(v) + ".json"
}

// CheckpointName returns "NNNN....checkpoint.parquet" for version v.
func CheckpointName(v int64) string {
	return EncodeVersion(v) + ".checkpoint.parquet"
}

// MultiPartCheckpointName returns "NNNN....checkpoint.PPPP....TTTT....parquet"
// for version v, 1-indexed part out of total.
func MultiPartCheckpointName(v int64, part, total int) string {
	return fmt.Sprintf("%s.checkpoint.%0*d.%0*d.parquet",
		EncodeVersion(v), partDigits, part, partDigits, total)
}

// Parsed is the decoded identity of one log file name.
type Parsed struct {
	Kind    Kind
	Version int64
	Part    int // 1-indexed, only for MultiPartCheckpoint
	Total   int // only for MultiPartCheckpoint
}

// Parse classifies a log filename, ignoring any directory component.
// Returns ok=false for any name that isn't one of the four recognized
// shapes; the caller (LogDirectoryReader) is responsible for skipping
// those.
func Parse(name string) (Parsed, bool) {
	base := filepath.Base(name)
	if base == HintFileName {
		return Parsed{Kind: LastCheckpointHintFile}, true
	}

	if len(base) < versionDigits {
		return Parsed{}, false
	}

	versionStr := base[:versionDigits]
	version, err := strconv.ParseInt(versionStr, 10, 64)
	if err != nil {
		return Parsed{}, false
	}
	rest := base[versionDigits:]

	switch {
	case rest == ".json":
		return Parsed{Kind: DeltaCommit, Version: version}, true
	case rest == ".checkpoint.parquet":
		return Parsed{Kind: SingleCheckpoint, Version: version}, true
	case strings.HasPrefix(rest, ".checkpoint.") && strings.HasSuffix(rest, ".parquet"):
		mid := strings.TrimSuffix(strings.TrimPrefix(rest, ".checkpoint."), ".parquet")
		fields := strings.Split(mid, ".")
		if len(fields) != 2 {
			return Parsed{}, false
		}
		part, err1 := strconv.Atoi(fields[0])
		total, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil || part < 1 || total < part {
			return Parsed{}, false
		}
		return Parsed{Kind: MultiPartCheckpoint, Version: version, Part: part, Total: total}, true
	default:
		return Parsed{}, false
	}
}

// CompareByEncodedVersion reports whether filename name's leading encoded
// version is >= startVersion, used by storage backends that can cheaply
// compare filenames without fully parsing them (e.g. an S3 ListObjectsV2
// StartAfter cursor).
func CompareByEncodedVersion(name string, startVersion int64) bool {
	base := filepath.Base(name)
	if len(base) < versionDigits {
		return true // non-log files are never excluded here; the reader filters them
	}
	return base[:versionDigits] >= EncodeVersion(startVersion)
}

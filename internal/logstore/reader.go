// Copyright (C) 2026 tablelog contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package logstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/deltakit/tablelog/pkg/lognaming"
	"github.com/deltakit/tablelog/pkg/lrucache"
	"github.com/deltakit/tablelog/pkg/storage"
)

// listingCacheTTL bounds how long a directory listing is reused across
// getSnapshotAt lookups; it exists only to avoid re-listing a directory
// multiple times within the same burst of point-in-time reads, never to
// paper over staleness for update().
const listingCacheTTL = 2 * time.Second

// LogDirectoryReader lists log files starting at a given version, filtered
// to recognized log files and with zero-length checkpoint files dropped
// (they are half-written and would be silently misread downstream).
//
// Caching is opt-in and deliberately scoped: SnapshotCache keeps a
// non-caching reader for updateInternal/getSnapshotAtInit, where
// correctness requires every call to observe the directory's actual
// current state, and a separate caching reader for GetSnapshotAt, where
// a burst of point-in-time lookups against the same historical version
// can share one listing.
type LogDirectoryReader struct {
	backend storage.Backend
	cache   *lrucache.Cache // nil disables caching
}

// NewLogDirectoryReader returns a reader with no listing cache: every call
// goes straight to the backend. Use this for any path where Update's
// synchronous-freshness guarantee matters.
func NewLogDirectoryReader(backend storage.Backend) *LogDirectoryReader {
	return &LogDirectoryReader{backend: backend}
}

// NewCachingLogDirectoryReader returns a reader that reuses a listing
// across calls with the same (logPath, startVersion) key for up to
// listingCacheTTL. Only safe for callers that tolerate that staleness
// window, i.e. GetSnapshotAt's point-in-time reads.
func NewCachingLogDirectoryReader(backend storage.Backend) *LogDirectoryReader {
	return &LogDirectoryReader{
		backend: backend,
		// Small budget: this only holds filenames+sizes for one table's
		// recent listings, never file content.
		cache: lrucache.New(1 * 1024 * 1024),
	}
}

// ListFrom returns every recognized log file under logPath with version >=
// startVersion, ascending by (version, kind-order).
func (r *LogDirectoryReader) ListFrom(ctx context.Context, logPath string, startVersion int64) ([]LogFile, error) {
	if r.cache == nil {
		return r.listUncached(ctx, logPath, startVersion)
	}

	key := fmt.Sprintf("%s@%d", logPath, startVersion)

	cached := r.cache.Get(key, func() (interface{}, time.Duration, int) {
		files, err := r.listUncached(ctx, logPath, startVersion)
		if err != nil {
			// Never cache an error: the next call should retry listing,
			// not replay a FileNotFound that may no longer be true.
			return listResult{err: err}, 0, 0
		}
		return listResult{files: files}, listingCacheTTL, len(files)
	})

	res := cached.(listResult)
	return res.files, res.err
}

type listResult struct {
	files []LogFile
	err   error
}

func (r *LogDirectoryReader) listUncached(ctx context.Context, logPath string, startVersion int64) ([]LogFile, error) {
	raw, err := r.backend.ListFrom(ctx, logPath, startVersion)
	if err != nil {
		return nil, err
	}

	out := make([]LogFile, 0, len(raw))
	for _, fs := range raw {
		parsed, ok := lognaming.Parse(fs.Path)
		if !ok {
			continue // not a recognized log file
		}
		if parsed.Kind == lognaming.LastCheckpointHintFile {
			continue // surfaced separately via ReadLastCheckpointHint
		}
		if (parsed.Kind == lognaming.SingleCheckpoint || parsed.Kind == lognaming.MultiPartCheckpoint) && fs.Length == 0 {
			continue // half-written checkpoint
		}
		if parsed.Version < startVersion {
			continue
		}
		out = append(out, LogFile{
			Path:    fs.Path,
			ModTime: fs.ModTime,
			Length:  fs.Length,
			Kind:    parsed.Kind,
			Version: parsed.Version,
			Part:    parsed.Part,
			Total:   parsed.Total,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out, nil
}

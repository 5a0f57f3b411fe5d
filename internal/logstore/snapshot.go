// Copyright (C) 2026 tablelog contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package logstore

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/deltakit/tablelog/pkg/schema"
)

// Snapshot is the immutable materialized table state derived from a
// LogSegment. Once published it is never mutated; a new Snapshot entirely
// replaces it.
type Snapshot struct {
	Version    int64
	LogSegment LogSegment
	Metadata   schema.TableMetadata
	Protocol   schema.Protocol

	// MinFileRetentionTimestamp is carried from the checkpoint the
	// snapshot was built on: the writer-recorded lower bound on
	// removed-file tombstones a reader must still consider. Zero when no
	// checkpoint recorded one. Log cleanup itself is a writer concern,
	// never performed here.
	MinFileRetentionTimestamp time.Time

	Checksum *schema.Checksum
}

// TableID is a convenience accessor used by the identity-stability check
// in SnapshotCache.updateInternal.
func (s Snapshot) TableID() uuid.UUID {
	return s.Metadata.TableID
}

// InitialSnapshot builds the sentinel snapshot for a directory with no
// materialized log: version -1, freshly minted identity, empty metadata.
func InitialSnapshot(logPath string) Snapshot {
	return Snapshot{
		Version: -1,
		LogSegment: LogSegment{
			LogPath: logPath,
			Version: -1,
		},
		Metadata: schema.TableMetadata{
			TableID:              schema.NewTableID(),
			Properties:           map[string]string{},
			PartitionExpressions: map[string]json.RawMessage{},
		},
	}
}

// Copyright (C) 2026 tablelog contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package schema holds the table-level data model that a Snapshot carries:
// metadata, protocol, and the tagged action log that produces them. It does
// not know about files or versions; those live in the logstore package.
package schema

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TableMetadata is the stable, replayed-to-date description of a table.
// TableID is assigned once at table creation and must not change across
// commits to the same physical directory; a change is the signal a
// directory was deleted and recreated (see logstore.Observer).
type TableMetadata struct {
	TableID     uuid.UUID
	Name        string
	Description string
	SchemaJSON  json.RawMessage
	Properties  map[string]string
	CreatedAt   time.Time

	// PartitionExpressions is produced by the generated-columns utility
	// that sits above the snapshot core (schema validation, expression
	// extraction, partition-filter synthesis; out of scope here). The
	// snapshot core never interprets these values, only carries them.
	PartitionExpressions map[string]json.RawMessage
}

// Protocol names the minimum reader/writer feature levels required to
// interpret the table correctly.
type Protocol struct {
	MinReaderVersion int32
	MinWriterVersion int32
	ReaderFeatures   []string
	WriterFeatures   []string
}

// Checksum is an optional, opaque per-version consistency record (e.g. file
// count / total size) some writers emit alongside a commit. Nil when the
// writer didn't produce one; the core never requires it to be present.
type Checksum struct {
	NumFiles  int64
	TotalSize int64
}

// NewTableID mints a fresh table identity, used when materializing an
// InitialSnapshot or a directory that was recreated from scratch.
func NewTableID() uuid.UUID {
	return uuid.New()
}

// ParseTableID parses a tableId read back from checkpoint/commit content.
// Unlike mustParseUUID (used while folding an AssignID action, where a
// malformed id must not abort replay), a malformed id read from a
// checkpoint is treated as checkpoint corruption by the caller.
func ParseTableID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("schema: parse tableId: %w", err)
	}
	return id, nil
}

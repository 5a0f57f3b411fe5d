// Copyright (C) 2026 tablelog contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package logstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/deltakit/tablelog/pkg/schema"
)

// The real on-disk checkpoint encoding is Parquet, which this module never
// writes and does not interpret beyond the metadata envelope. This file
// defines the JSON stand-in payload SnapshotFactory reads so that
// contiguity checking, checkpoint selection, fallback recovery and
// identity tracking can be exercised end-to-end without a Parquet
// dependency.

type commitPayload struct {
	Actions []wireAction `json:"actions"`
}

type wireAction struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

var actionKindNames = map[schema.ActionKind]string{
	schema.AssignID:                "assignId",
	schema.UpgradeFormatVersion:    "upgradeFormatVersion",
	schema.AddSchema:               "addSchema",
	schema.SetCurrentSchema:        "setCurrentSchema",
	schema.AddPartitionSpec:        "addPartitionSpec",
	schema.SetDefaultPartitionSpec: "setDefaultPartitionSpec",
	schema.AddSortOrder:            "addSortOrder",
	schema.SetDefaultSortOrder:     "setDefaultSortOrder",
	schema.AddSnapshot:             "addSnapshot",
	schema.RemoveSnapshot:          "removeSnapshot",
	schema.SetRef:                  "setRef",
	schema.RemoveRef:               "removeRef",
	schema.SetProperties:           "setProperties",
	schema.RemoveProperties:        "removeProperties",
	schema.SetLocation:             "setLocation",
}

var actionKindByName = func() map[string]schema.ActionKind {
	out := make(map[string]schema.ActionKind, len(actionKindNames))
	for k, v := range actionKindNames {
		out[v] = k
	}
	return out
}()

// EncodeCommit renders an ordered action sequence as a DeltaCommit file's
// bytes. Exercised by tests building log-directory fixtures.
func EncodeCommit(actions []schema.Action) ([]byte, error) {
	payload := commitPayload{Actions: make([]wireAction, 0, len(actions))}
	for _, a := range actions {
		name, ok := actionKindNames[a.Kind]
		if !ok {
			return nil, fmt.Errorf("logstore: encode commit: unknown action kind %d", a.Kind)
		}
		data, err := json.Marshal(actionData(a))
		if err != nil {
			return nil, fmt.Errorf("logstore: encode commit: action %s: %w", name, err)
		}
		payload.Actions = append(payload.Actions, wireAction{Kind: name, Data: data})
	}
	return json.MarshalIndent(payload, "", "  ")
}

// DecodeCommit parses a DeltaCommit file's bytes back into its ordered
// action sequence. A malformed payload is reported as a plain decode
// error; SnapshotFactory.CreateSnapshot wraps it in a
// CommitCorruptionError.
func DecodeCommit(data []byte) ([]schema.Action, error) {
	var payload commitPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("logstore: decode commit: %w", err)
	}

	actions := make([]schema.Action, 0, len(payload.Actions))
	for _, wa := range payload.Actions {
		kind, ok := actionKindByName[wa.Kind]
		if !ok {
			return nil, fmt.Errorf("logstore: decode commit: unknown action kind %q", wa.Kind)
		}
		a := schema.Action{Kind: kind}
		if err := unmarshalActionData(&a, wa.Data); err != nil {
			return nil, fmt.Errorf("logstore: decode commit: action %q: %w", wa.Kind, err)
		}
		actions = append(actions, a)
	}
	return actions, nil
}

func actionData(a schema.Action) interface{} {
	switch a.Kind {
	case schema.AssignID:
		return a.AssignID
	case schema.UpgradeFormatVersion:
		return a.UpgradeFormatVersion
	case schema.AddSchema:
		return a.AddSchema
	case schema.SetCurrentSchema:
		return a.SetCurrentSchema
	case schema.AddPartitionSpec:
		return a.AddPartitionSpec
	case schema.SetDefaultPartitionSpec:
		return a.SetDefaultPartitionSpec
	case schema.AddSortOrder:
		return a.AddSortOrder
	case schema.SetDefaultSortOrder:
		return a.SetDefaultSortOrder
	case schema.AddSnapshot:
		return a.AddSnapshot
	case schema.RemoveSnapshot:
		return a.RemoveSnapshot
	case schema.SetRef:
		return a.SetRef
	case schema.RemoveRef:
		return a.RemoveRef
	case schema.SetProperties:
		return a.SetProperties
	case schema.RemoveProperties:
		return a.RemoveProperties
	case schema.SetLocation:
		return a.SetLocation
	default:
		return struct{}{}
	}
}

func unmarshalActionData(a *schema.Action, data json.RawMessage) error {
	switch a.Kind {
	case schema.AssignID:
		a.AssignID = new(schema.AssignIDAction)
		return json.Unmarshal(data, a.AssignID)
	case schema.UpgradeFormatVersion:
		a.UpgradeFormatVersion = new(schema.UpgradeFormatVersionAction)
		return json.Unmarshal(data, a.UpgradeFormatVersion)
	case schema.AddSchema:
		a.AddSchema = new(schema.AddSchemaAction)
		return json.Unmarshal(data, a.AddSchema)
	case schema.SetCurrentSchema:
		a.SetCurrentSchema = new(schema.SetCurrentSchemaAction)
		return json.Unmarshal(data, a.SetCurrentSchema)
	case schema.AddPartitionSpec:
		a.AddPartitionSpec = new(schema.AddPartitionSpecAction)
		return json.Unmarshal(data, a.AddPartitionSpec)
	case schema.SetDefaultPartitionSpec:
		a.SetDefaultPartitionSpec = new(schema.SetDefaultPartitionSpecAction)
		return json.Unmarshal(data, a.SetDefaultPartitionSpec)
	case schema.AddSortOrder:
		a.AddSortOrder = new(schema.AddSortOrderAction)
		return json.Unmarshal(data, a.AddSortOrder)
	case schema.SetDefaultSortOrder:
		a.SetDefaultSortOrder = new(schema.SetDefaultSortOrderAction)
		return json.Unmarshal(data, a.SetDefaultSortOrder)
	case schema.AddSnapshot:
		a.AddSnapshot = new(schema.AddSnapshotAction)
		return json.Unmarshal(data, a.AddSnapshot)
	case schema.RemoveSnapshot:
		a.RemoveSnapshot = new(schema.RemoveSnapshotAction)
		return json.Unmarshal(data, a.RemoveSnapshot)
	case schema.SetRef:
		a.SetRef = new(schema.SetRefAction)
		return json.Unmarshal(data, a.SetRef)
	case schema.RemoveRef:
		a.RemoveRef = new(schema.RemoveRefAction)
		return json.Unmarshal(data, a.RemoveRef)
	case schema.SetProperties:
		a.SetProperties = new(schema.SetPropertiesAction)
		return json.Unmarshal(data, a.SetProperties)
	case schema.RemoveProperties:
		a.RemoveProperties = new(schema.RemovePropertiesAction)
		return json.Unmarshal(data, a.RemoveProperties)
	case schema.SetLocation:
		a.SetLocation = new(schema.SetLocationAction)
		return json.Unmarshal(data, a.SetLocation)
	default:
		return fmt.Errorf("unhandled action kind %d", a.Kind)
	}
}

// checkpointPayload is one (whole, or one part of a multi-part)
// checkpoint file's decoded content: the folded metadata/protocol state
// plus a file-count checksum. DecodeCheckpoint rejects parts that disagree
// on tableId and takes the rest of metadata/protocol from the first part
// without comparing it; checksums are summed across parts.
type checkpointPayload struct {
	Metadata checkpointMetadata  `json:"metadata"`
	Protocol checkpointProtocol  `json:"protocol"`
	Checksum *checkpointChecksum `json:"checksum,omitempty"`

	// MinFileRetentionTimestamp is the writer-recorded lower bound on
	// removed-file tombstones a reader must still consider. Absent when
	// the writer never ran retention.
	MinFileRetentionTimestamp *time.Time `json:"minFileRetentionTimestamp,omitempty"`
}

type checkpointMetadata struct {
	TableID              string                     `json:"tableId"`
	Name                 string                     `json:"name,omitempty"`
	Description          string                     `json:"description,omitempty"`
	SchemaJSON           json.RawMessage            `json:"schemaJson,omitempty"`
	Properties           map[string]string          `json:"properties,omitempty"`
	CreatedAt            time.Time                  `json:"createdAt,omitempty"`
	PartitionExpressions map[string]json.RawMessage `json:"partitionExpressions,omitempty"`
}

type checkpointProtocol struct {
	MinReaderVersion int32    `json:"minReaderVersion"`
	MinWriterVersion int32    `json:"minWriterVersion"`
	ReaderFeatures   []string `json:"readerFeatures,omitempty"`
	WriterFeatures   []string `json:"writerFeatures,omitempty"`
}

type checkpointChecksum struct {
	NumFiles  int64 `json:"numFiles"`
	TotalSize int64 `json:"totalSize"`
}

// CheckpointContent is the folded result of decoding a checkpoint's parts:
// what a checkpoint contributes to a Snapshot before deltas are replayed
// on top.
type CheckpointContent struct {
	Metadata schema.TableMetadata
	Protocol schema.Protocol
	Checksum *schema.Checksum

	// MinFileRetentionTimestamp stays zero when the writer never
	// recorded one.
	MinFileRetentionTimestamp time.Time
}

// EncodeCheckpoint renders a single-part checkpoint's bytes. Multi-part
// fixtures are built by calling this once per part with the same
// metadata/protocol and a partial checksum.
func EncodeCheckpoint(content CheckpointContent) ([]byte, error) {
	meta, protocol := content.Metadata, content.Protocol
	payload := checkpointPayload{
		Metadata: checkpointMetadata{
			TableID:              meta.TableID.String(),
			Name:                 meta.Name,
			Description:          meta.Description,
			SchemaJSON:           meta.SchemaJSON,
			Properties:           meta.Properties,
			CreatedAt:            meta.CreatedAt,
			PartitionExpressions: meta.PartitionExpressions,
		},
		Protocol: checkpointProtocol{
			MinReaderVersion: protocol.MinReaderVersion,
			MinWriterVersion: protocol.MinWriterVersion,
			ReaderFeatures:   protocol.ReaderFeatures,
			WriterFeatures:   protocol.WriterFeatures,
		},
	}
	if content.Checksum != nil {
		payload.Checksum = &checkpointChecksum{NumFiles: content.Checksum.NumFiles, TotalSize: content.Checksum.TotalSize}
	}
	if !content.MinFileRetentionTimestamp.IsZero() {
		t := content.MinFileRetentionTimestamp
		payload.MinFileRetentionTimestamp = &t
	}
	return json.MarshalIndent(payload, "", "  ")
}

// DecodeCheckpoint merges one or more checkpoint part payloads (already
// read from disk by the caller) into a CheckpointContent. A decode or
// cross-part tableId mismatch is reported as an error, which
// SnapshotFactory.CreateSnapshot wraps in a CheckpointCorruptionError.
func DecodeCheckpoint(parts [][]byte) (CheckpointContent, error) {
	var content CheckpointContent
	var checksum schema.Checksum
	haveChecksum := false

	for i, raw := range parts {
		var payload checkpointPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return content, fmt.Errorf("logstore: decode checkpoint part %d: %w", i, err)
		}
		id, err := schema.ParseTableID(payload.Metadata.TableID)
		if err != nil {
			return content, fmt.Errorf("logstore: decode checkpoint part %d: tableId: %w", i, err)
		}

		partMeta := schema.TableMetadata{
			TableID:              id,
			Name:                 payload.Metadata.Name,
			Description:          payload.Metadata.Description,
			SchemaJSON:           payload.Metadata.SchemaJSON,
			Properties:           payload.Metadata.Properties,
			CreatedAt:            payload.Metadata.CreatedAt,
			PartitionExpressions: payload.Metadata.PartitionExpressions,
		}
		partProtocol := schema.Protocol{
			MinReaderVersion: payload.Protocol.MinReaderVersion,
			MinWriterVersion: payload.Protocol.MinWriterVersion,
			ReaderFeatures:   payload.Protocol.ReaderFeatures,
			WriterFeatures:   payload.Protocol.WriterFeatures,
		}

		if i == 0 {
			content.Metadata, content.Protocol = partMeta, partProtocol
		} else if partMeta.TableID != content.Metadata.TableID {
			return content, fmt.Errorf("logstore: decode checkpoint: part %d disagrees on tableId", i)
		}

		if payload.Checksum != nil {
			haveChecksum = true
			checksum.NumFiles += payload.Checksum.NumFiles
			checksum.TotalSize += payload.Checksum.TotalSize
		}
		if payload.MinFileRetentionTimestamp != nil && payload.MinFileRetentionTimestamp.After(content.MinFileRetentionTimestamp) {
			content.MinFileRetentionTimestamp = *payload.MinFileRetentionTimestamp
		}
	}

	if haveChecksum {
		content.Checksum = &checksum
	}
	return content, nil
}

// Copyright (C) 2026 tablelog contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package logstore

import (
	"bytes"
	"context"
	"encoding/json"
	"path"
	"strconv"

	"github.com/deltakit/tablelog/pkg/log"
	"github.com/deltakit/tablelog/pkg/lognaming"
	"github.com/deltakit/tablelog/pkg/schema"
	"github.com/deltakit/tablelog/pkg/storage"
)

// LastCheckpointHint is the decoded advisory _last_checkpoint file: a hint
// at the most recently finalized checkpoint, never trusted on its own. A
// missing or stale hint only changes which version the backward scan
// starts from, never the correctness of the result.
type LastCheckpointHint struct {
	Version int64 `json:"version"`
	Size    int64 `json:"size"`
	Parts   int   `json:"parts,omitempty"`
}

// Instance converts the hint into the CheckpointInstance it names.
func (h LastCheckpointHint) Instance() CheckpointInstance {
	return CheckpointInstance{Version: h.Version, NumParts: h.Parts}
}

// ReadLastCheckpointHint reads and decodes the _last_checkpoint file under
// logPath. A missing hint file is reported via the bool return, not an
// error: callers fall back to a full backward scan.
//
// Some Delta-style writers emit a bare integer instead of a JSON object
// for this file; both shapes are accepted.
func ReadLastCheckpointHint(ctx context.Context, backend storage.Backend, logPath string) (LastCheckpointHint, bool, error) {
	raw, err := backend.ReadFile(ctx, path.Join(logPath, lognaming.HintFileName))
	if err != nil {
		if _, ok := err.(*storage.NotFoundError); ok {
			return LastCheckpointHint{}, false, nil
		}
		return LastCheckpointHint{}, false, err
	}

	trimmed := bytes.TrimSpace(raw)
	if n, convErr := strconv.ParseInt(string(trimmed), 10, 64); convErr == nil {
		return LastCheckpointHint{Version: n}, true, nil
	}

	// A hint the reader can't make sense of is ignored, not surfaced: the
	// file is advisory and a full backward scan gives the same answer.
	if err := schema.Validate(schema.LastCheckpointHint, bytes.NewReader(trimmed)); err != nil {
		log.Warnf("ignoring malformed %s under %s: %v", lognaming.HintFileName, logPath, err)
		return LastCheckpointHint{}, false, nil
	}

	var hint LastCheckpointHint
	if err := json.Unmarshal(trimmed, &hint); err != nil {
		log.Warnf("ignoring malformed %s under %s: %v", lognaming.HintFileName, logPath, err)
		return LastCheckpointHint{}, false, nil
	}
	return hint, true, nil
}

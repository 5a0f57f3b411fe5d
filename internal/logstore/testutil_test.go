// Copyright (C) 2026 tablelog contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package logstore

import (
	"context"
	"encoding/json"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deltakit/tablelog/pkg/lognaming"
	"github.com/deltakit/tablelog/pkg/schema"
	"github.com/deltakit/tablelog/pkg/storage"
)

// fakeBackend is an in-memory storage.Backend used to build log-directory
// fixtures without touching the filesystem. Deletions are explicit, which
// is what lets the fallback/recovery tests model a checkpoint part
// disappearing out from under a running reader.
type fakeBackend struct {
	mu    sync.Mutex
	files map[string]map[string]fakeFile // logPath -> filename -> content
}

type fakeFile struct {
	data    []byte
	modTime time.Time
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{files: map[string]map[string]fakeFile{}}
}

func (b *fakeBackend) Init(json.RawMessage) error { return nil }
func (b *fakeBackend) Info() string               { return "fake://" }

func (b *fakeBackend) ListFrom(ctx context.Context, logPath string, startVersion int64) ([]storage.FileStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	m, ok := b.files[logPath]
	if !ok {
		return nil, &storage.NotFoundError{Path: logPath}
	}

	out := make([]storage.FileStatus, 0, len(m))
	for name, f := range m {
		if !lognaming.CompareByEncodedVersion(name, startVersion) {
			continue
		}
		out = append(out, storage.FileStatus{
			Path:    path.Join(logPath, name),
			ModTime: f.modTime,
			Length:  int64(len(f.data)),
		})
	}
	sort.Slice(out, func(i, j int) bool { return path.Base(out[i].Path) < path.Base(out[j].Path) })
	return out, nil
}

func (b *fakeBackend) ReadFile(ctx context.Context, p string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	dir := path.Dir(p)
	name := path.Base(p)
	m, ok := b.files[dir]
	if !ok {
		return nil, &storage.NotFoundError{Path: p}
	}
	f, ok := m[name]
	if !ok {
		return nil, &storage.NotFoundError{Path: p}
	}
	return f.data, nil
}

func (b *fakeBackend) deleteDir(logPath string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.files, logPath)
}

func (b *fakeBackend) delete(logPath, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := b.files[logPath]; ok {
		delete(m, name)
	}
}

func (b *fakeBackend) putRaw(logPath, name string, data []byte, modTime time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.files[logPath]
	if !ok {
		m = map[string]fakeFile{}
		b.files[logPath] = m
	}
	m[name] = fakeFile{data: data, modTime: modTime}
}

// base is a fixed reference time so fixtures never depend on wall-clock
// time; version v's commit lands at base.Add(v * time.Second).
var base = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func commitTime(v int64) time.Time {
	return base.Add(time.Duration(v) * time.Second)
}

// putCommit writes a minimal valid commit for version v. The first commit
// in a fixture should carry assignID so replay has a tableId; later ones
// can be empty-action commits.
func (b *fakeBackend) putCommit(logPath string, v int64, actions ...schema.Action) {
	data, err := EncodeCommit(actions)
	if err != nil {
		panic(err)
	}
	b.putRaw(logPath, lognaming.CommitName(v), data, commitTime(v))
}

func (b *fakeBackend) putCorruptCommit(logPath string, v int64) {
	b.putRaw(logPath, lognaming.CommitName(v), []byte("not json"), commitTime(v))
}

// putCheckpoint writes a complete single-part checkpoint at version v.
func (b *fakeBackend) putCheckpoint(logPath string, v int64, tableID string) {
	b.putCheckpointContent(logPath, v, checkpointContentFor(tableID))
}

// putCheckpointWithRetention is putCheckpoint with a writer-recorded
// minFileRetentionTimestamp.
func (b *fakeBackend) putCheckpointWithRetention(logPath string, v int64, tableID string, retention time.Time) {
	content := checkpointContentFor(tableID)
	content.MinFileRetentionTimestamp = retention
	b.putCheckpointContent(logPath, v, content)
}

func (b *fakeBackend) putCheckpointContent(logPath string, v int64, content CheckpointContent) {
	data, err := EncodeCheckpoint(content)
	if err != nil {
		panic(err)
	}
	b.putRaw(logPath, lognaming.CheckpointName(v), data, commitTime(v))
}

func checkpointContentFor(tableID string) CheckpointContent {
	return CheckpointContent{
		Metadata: schema.TableMetadata{TableID: mustParseUUID(tableID), Properties: map[string]string{}},
		Protocol: schema.Protocol{MinReaderVersion: 1, MinWriterVersion: 2},
	}
}

func (b *fakeBackend) putCorruptCheckpoint(logPath string, v int64) {
	b.putRaw(logPath, lognaming.CheckpointName(v), []byte("not json"), commitTime(v))
}

// putMultiPartCheckpoint writes all `total` parts of a multi-part
// checkpoint at version v.
func (b *fakeBackend) putMultiPartCheckpoint(logPath string, v int64, tableID string, total int) {
	for p := 1; p <= total; p++ {
		data, err := EncodeCheckpoint(checkpointContentFor(tableID))
		if err != nil {
			panic(err)
		}
		b.putRaw(logPath, lognaming.MultiPartCheckpointName(v, p, total), data, commitTime(v))
	}
}

func (b *fakeBackend) putHint(logPath string, version int64, parts int) {
	h := LastCheckpointHint{Version: version, Size: 1, Parts: parts}
	data, err := json.Marshal(h)
	if err != nil {
		panic(err)
	}
	b.putRaw(logPath, lognaming.HintFileName, data, commitTime(version))
}

func mustParseUUID(s string) uuid.UUID {
	id, err := schema.ParseTableID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func assignID(id string) schema.Action {
	return schema.Action{Kind: schema.AssignID, AssignID: &schema.AssignIDAction{TableID: id}}
}

const testTableID = "11111111-1111-1111-1111-111111111111"
const testTableID2 = "22222222-2222-2222-2222-222222222222"

func newBuilder(b *fakeBackend) *LogSegmentBuilder {
	return NewLogSegmentBuilder(NewLogDirectoryReader(b))
}

func i64(v int64) *int64 { return &v }

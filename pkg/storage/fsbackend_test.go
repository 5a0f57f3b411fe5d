// Copyright (C) 2026 tablelog contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package storage_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deltakit/tablelog/pkg/storage"
)

func TestFsBackendListFromFiltersAndSorts(t *testing.T) {
	root := t.TempDir()
	logDir := filepath.Join(root, "_delta_log")
	require.NoError(t, os.MkdirAll(logDir, 0o755))

	for _, name := range []string{
		"00000000000000000000.json",
		"00000000000000000001.json",
		"00000000000000000002.checkpoint.parquet",
		"not-a-log-file.txt",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(logDir, name), []byte("x"), 0o644))
	}
	// Zero-length checkpoint must still be listed by the backend; filtering
	// it out is the LogDirectoryReader's job, not the backend's.
	require.NoError(t, os.WriteFile(filepath.Join(logDir, "00000000000000000003.checkpoint.parquet"), nil, 0o644))

	cfg, err := json.Marshal(map[string]string{"kind": "file", "path": root})
	require.NoError(t, err)

	backend, err := storage.New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "file://"+root, backend.Info())

	// Non-log names are listed too; filtering them is also the reader's job.
	entries, err := backend.ListFrom(context.Background(), "_delta_log", 0)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	assert.Equal(t, "00000000000000000000.json", filepath.Base(entries[0].Path))
	assert.Equal(t, "00000000000000000003.checkpoint.parquet", filepath.Base(entries[3].Path))
	assert.Equal(t, "not-a-log-file.txt", filepath.Base(entries[4].Path))
}

func TestFsBackendListFromMissingDirectory(t *testing.T) {
	root := t.TempDir()
	cfg, err := json.Marshal(map[string]string{"kind": "file", "path": root})
	require.NoError(t, err)

	backend, err := storage.New(cfg)
	require.NoError(t, err)

	_, err = backend.ListFrom(context.Background(), "_delta_log", 0)
	require.Error(t, err)
	var notFound *storage.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestFsBackendReadFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "hello.txt"), []byte("hi"), 0o644))

	cfg, err := json.Marshal(map[string]string{"kind": "file", "path": root})
	require.NoError(t, err)
	backend, err := storage.New(cfg)
	require.NoError(t, err)

	data, err := backend.ReadFile(context.Background(), "hello.txt")
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))

	_, err = backend.ReadFile(context.Background(), "missing.txt")
	var notFound *storage.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

// Copyright (C) 2026 tablelog contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package storage is the pluggable directory-listing backend the
// LogDirectoryReader is built on. A Backend is selected by the "kind"
// field of a raw JSON config blob: "file" for the local filesystem, "s3"
// for an S3-compatible object store.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// FileStatus is one directory entry: path, modification time, byte
// length.
type FileStatus struct {
	Path    string
	ModTime time.Time
	Length  int64
}

// NotFoundError is raised when the directory named by logPath does not
// exist at all (as opposed to existing and being empty).
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("storage: directory not found: %s", e.Path)
}

// Backend lists the contents of a log directory from a given version
// onward. Implementations must return a listing that is internally
// consistent for one call (a single point-in-time view) but need not be
// consistent across repeated calls: files may appear or vanish between
// calls, which is exactly the condition LogSegmentBuilder is built to
// tolerate.
type Backend interface {
	// Init configures the backend from a raw JSON blob (the "storage"
	// object of the program config). Called once before any ListFrom.
	Init(rawConfig json.RawMessage) error

	// ListFrom returns every entry under logPath whose encoded filename
	// names a version >= startVersion, sorted by name ascending. Returns
	// a *NotFoundError if logPath itself does not exist.
	ListFrom(ctx context.Context, logPath string, startVersion int64) ([]FileStatus, error)

	// ReadFile returns the full contents of a single file below logPath,
	// used for small, whole-file reads (the _last_checkpoint hint; probing
	// a checkpoint for corruption). It is not meant for streaming parquet
	// content, which stays outside this core's scope.
	ReadFile(ctx context.Context, path string) ([]byte, error)

	Info() string
}

// New constructs a Backend from a raw JSON config blob, dispatching on its
// "kind" field.
func New(rawConfig json.RawMessage) (Backend, error) {
	var cfg struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(rawConfig, &cfg); err != nil {
		return nil, fmt.Errorf("storage: unmarshal kind: %w", err)
	}

	var b Backend
	switch cfg.Kind {
	case "file", "":
		b = &FsBackend{}
	case "s3":
		b = &S3Backend{}
	default:
		return nil, fmt.Errorf("storage: unknown backend kind %q", cfg.Kind)
	}

	if err := b.Init(rawConfig); err != nil {
		return nil, err
	}
	return b, nil
}

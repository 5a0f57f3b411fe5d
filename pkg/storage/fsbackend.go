// Copyright (C) 2026 tablelog contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/deltakit/tablelog/pkg/lognaming"
)

// FsBackend lists a log directory straight off the local filesystem:
// os.ReadDir + os.Stat, no caching of its own (the reader layer owns
// that).
type FsBackend struct {
	root string
}

type fsBackendConfig struct {
	Path string `json:"path"`
}

func (b *FsBackend) Init(rawConfig json.RawMessage) error {
	var cfg struct {
		Storage fsBackendConfig `json:"storage"`
	}
	if err := json.Unmarshal(rawConfig, &cfg); err != nil {
		return fmt.Errorf("fsbackend: unmarshal config: %w", err)
	}
	if cfg.Storage.Path == "" {
		// Also accept a bare {"kind":"file","path":"..."} blob without
		// the wrapping "storage" object.
		var flat fsBackendConfig
		if err := json.Unmarshal(rawConfig, &flat); err != nil {
			return fmt.Errorf("fsbackend: unmarshal config: %w", err)
		}
		cfg.Storage = flat
	}
	if cfg.Storage.Path == "" {
		return fmt.Errorf("fsbackend: empty path")
	}
	b.root = cfg.Storage.Path
	return nil
}

func (b *FsBackend) Info() string {
	return fmt.Sprintf("file://%s", b.root)
}

func (b *FsBackend) ListFrom(ctx context.Context, logPath string, startVersion int64) ([]FileStatus, error) {
	dir := filepath.Join(b.root, logPath)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &NotFoundError{Path: dir}
		}
		return nil, fmt.Errorf("fsbackend: read dir %s: %w", dir, err)
	}

	out := make([]FileStatus, 0, len(entries))
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		if !lognaming.CompareByEncodedVersion(de.Name(), startVersion) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				// Vanished between ReadDir and Stat: the directory is
				// externally mutable, this is not an error.
				continue
			}
			return nil, fmt.Errorf("fsbackend: stat %s: %w", de.Name(), err)
		}
		out = append(out, FileStatus{
			// Path is root-relative (logPath/name), matching the convention
			// ReadFile expects (and the one lasthint.go already uses when it
			// builds a path directly), not the full filesystem path, which
			// would double up b.root once ReadFile joins it back on.
			Path:    filepath.Join(logPath, de.Name()),
			ModTime: info.ModTime(),
			Length:  info.Size(),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return filepath.Base(out[i].Path) < filepath.Base(out[j].Path)
	})
	return out, nil
}

func (b *FsBackend) ReadFile(ctx context.Context, path string) ([]byte, error) {
	full := filepath.Join(b.root, path)
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &NotFoundError{Path: full}
		}
		return nil, fmt.Errorf("fsbackend: read file %s: %w", full, err)
	}
	return data, nil
}

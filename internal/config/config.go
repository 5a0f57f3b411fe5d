// Copyright (C) 2026 tablelog contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads the process-wide configuration for the snapshot
// core: which storage backend to talk to and the two recognized tuning
// keys from the specification (snapshot.loading.maxRetries and
// async.update.stalenessTimeLimit).
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/deltakit/tablelog/pkg/log"
	"github.com/deltakit/tablelog/pkg/schema"
)

type StorageConfig struct {
	Kind     string `json:"kind"` // "file" | "s3"
	Path     string `json:"path,omitempty"`
	Bucket   string `json:"bucket,omitempty"`
	Region   string `json:"region,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
}

type snapshotLoadingConfig struct {
	MaxRetries int `json:"maxRetries"`
}

type snapshotConfig struct {
	Loading snapshotLoadingConfig `json:"loading"`
}

type asyncUpdateConfig struct {
	StalenessTimeLimitMs int64 `json:"stalenessTimeLimit"`
	PoolSize             int   `json:"poolSize"`
}

type asyncConfig struct {
	Update asyncUpdateConfig `json:"update"`
}

// ProgramConfig is the decoded shape of the on-disk config file: grouped
// keys live in nested objects (storage, snapshot.loading, async.update).
type ProgramConfig struct {
	Storage  StorageConfig  `json:"storage"`
	Snapshot snapshotConfig `json:"snapshot"`
	Async    asyncConfig    `json:"async"`
	Validate bool           `json:"validate"`
}

// Keys holds process-wide defaults; Init overwrites it from a config file if
// one is present. The two tuning keys start from their documented defaults,
// never from bare zero values.
var Keys = ProgramConfig{
	Storage: StorageConfig{Kind: "file", Path: "./var/_delta_log"},
	Snapshot: snapshotConfig{
		Loading: snapshotLoadingConfig{MaxRetries: 2},
	},
	Async: asyncConfig{
		Update: asyncUpdateConfig{StalenessTimeLimitMs: 30_000, PoolSize: 8},
	},
}

// Init reads flagConfigFile, validates it against the embedded config
// schema and decodes it over Keys. A missing file is not an error: Keys
// keeps its defaults, mirroring internal/config.Init's tolerance of an
// absent config.json in development.
func Init(flagConfigFile string) error {
	raw, err := os.ReadFile(flagConfigFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := schema.Validate(schema.Config, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("config: validate: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&Keys); err != nil {
		return fmt.Errorf("config: decode: %w", err)
	}

	if Keys.Storage.Kind == "" {
		log.Warn("config: storage.kind not set, defaulting to \"file\"")
		Keys.Storage.Kind = "file"
	}

	return nil
}

// MaxRetries returns the configured SnapshotFactory retry budget.
func (c ProgramConfig) MaxRetries() int {
	if c.Snapshot.Loading.MaxRetries <= 0 {
		return 2
	}
	return c.Snapshot.Loading.MaxRetries
}

// StalenessTimeLimit returns the configured async.update.stalenessTimeLimit
// as a time.Duration. Zero forces every update() call onto the sync path.
func (c ProgramConfig) StalenessTimeLimit() time.Duration {
	return time.Duration(c.Async.Update.StalenessTimeLimitMs) * time.Millisecond
}

// AsyncPoolSize returns the configured async executor pool size.
func (c ProgramConfig) AsyncPoolSize() int {
	if c.Async.Update.PoolSize <= 0 {
		return 8
	}
	return c.Async.Update.PoolSize
}

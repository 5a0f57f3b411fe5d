// Copyright (C) 2026 tablelog contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/deltakit/tablelog/internal/config"
	"github.com/deltakit/tablelog/internal/logstore"
	"github.com/deltakit/tablelog/internal/refresher"
	"github.com/deltakit/tablelog/pkg/log"
	"github.com/deltakit/tablelog/pkg/metrics"
	"github.com/deltakit/tablelog/pkg/storage"
)

func main() {
	var flagConfigFile, flagLogPath, flagLogLevel string
	var flagVersion int64
	var flagWatch bool

	flag.StringVar(&flagConfigFile, "config", "./config.json", "Overwrite the default options by those specified in `config.json`")
	flag.StringVar(&flagLogPath, "log-path", "", "Table's log directory, relative to storage.path in config (empty means storage.path itself is the log directory)")
	flag.StringVar(&flagLogLevel, "loglevel", "info", "One of debug, info, warn, err")
	flag.Int64Var(&flagVersion, "version", -1, "Version to materialize; -1 means the latest available")
	flag.BoolVar(&flagWatch, "watch", false, "Keep running, refreshing the cache periodically and on filesystem events")
	flag.Parse()

	log.SetLevel(flagLogLevel)

	if err := config.Init(flagConfigFile); err != nil {
		log.Fatalf("loading config: %s", err.Error())
	}

	logPath := flagLogPath

	rawStorage, err := json.Marshal(config.Keys.Storage)
	if err != nil {
		log.Fatalf("marshaling storage config: %s", err.Error())
	}
	backend, err := storage.New(rawStorage)
	if err != nil {
		log.Fatalf("initializing storage backend: %s", err.Error())
	}
	log.Infof("using storage backend: %s", backend.Info())

	sink := metrics.Sink(metrics.Noop{})
	if reg := prometheus.DefaultRegisterer; reg != nil {
		sink = metrics.NewPrometheus(reg)
	}

	ctx := context.Background()
	cache, err := logstore.NewSnapshotCache(ctx, logPath, backend, logstore.CacheConfig{
		MaxRetries:         config.Keys.MaxRetries(),
		StalenessTimeLimit: config.Keys.StalenessTimeLimit(),
		AsyncPoolSize:      config.Keys.AsyncPoolSize(),
		Metrics:            sink,
	})
	if err != nil {
		log.Fatalf("building initial snapshot for %s: %s", logPath, err.Error())
	}
	defer cache.Close()

	var snap logstore.Snapshot
	if flagVersion < 0 {
		snap = cache.Snapshot()
	} else {
		snap, err = cache.GetSnapshotAt(ctx, flagVersion, nil)
		if err != nil {
			log.Fatalf("materializing version %d: %s", flagVersion, err.Error())
		}
	}
	printSnapshot(snap)

	if !flagWatch {
		return
	}

	r, err := refresher.New()
	if err != nil {
		log.Fatalf("starting refresher: %s", err.Error())
	}
	if err := r.RegisterPeriodic(cache, logPath, config.Keys.StalenessTimeLimit()); err != nil {
		log.Fatalf("registering periodic refresh: %s", err.Error())
	}
	if err := r.WatchDirectory(cache, filepath.Join(config.Keys.Storage.Path, logPath)); err != nil {
		log.Warnf("watching %s: %s (falling back to periodic-only refresh)", logPath, err.Error())
	}
	r.Start()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-sigs:
			if err := r.Shutdown(); err != nil {
				log.Warnf("refresher shutdown: %s", err.Error())
			}
			return
		case <-ticker.C:
			printSnapshot(cache.Snapshot())
		}
	}
}

func printSnapshot(s logstore.Snapshot) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(struct {
		Version    int64  `json:"version"`
		TableID    string `json:"tableId"`
		NumDeltas  int    `json:"numDeltas"`
		Checkpoint int64  `json:"checkpointVersion,omitempty"`
	}{
		Version:    s.Version,
		TableID:    s.TableID().String(),
		NumDeltas:  len(s.LogSegment.Deltas),
		Checkpoint: s.LogSegment.CheckpointVersion,
	})
}

// Copyright (C) 2026 tablelog contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package refresher drives SnapshotCache.Update from two outside triggers:
// a periodic gocron job and, optionally, an fsnotify watch on the log
// directory so a concurrent writer's commit is picked up without waiting
// for the next tick.
// Both triggers only ever call Update(ctx, true): staleness is acceptable
// by construction here, since a sync caller can always force a fresh read
// through GetSnapshotAt or a direct Update(ctx, false).
package refresher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"github.com/deltakit/tablelog/internal/logstore"
	"github.com/deltakit/tablelog/pkg/log"
)

type registration struct {
	cache   *logstore.SnapshotCache
	logPath string
}

// Refresher owns one process-wide gocron scheduler and one fsnotify
// watcher, shared across every registered table.
type Refresher struct {
	scheduler gocron.Scheduler
	watcher   *fsnotify.Watcher

	mu    sync.Mutex
	byDir map[string]*registration
}

// New creates a Refresher. The scheduler is not started until Start is
// called, but the fsnotify event loop runs immediately so watched
// directories added before Start are not missed.
func New() (*Refresher, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	r := &Refresher{
		scheduler: s,
		watcher:   w,
		byDir:     make(map[string]*registration),
	}
	go r.watchLoop()
	return r, nil
}

// RegisterPeriodic schedules cache to receive an async Update every
// interval. interval <= 0 disables the periodic trigger for this cache
// (useful when only the reactive fsnotify trigger is wanted).
func (r *Refresher) RegisterPeriodic(cache *logstore.SnapshotCache, logPath string, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	_, err := r.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			if _, err := cache.Update(ctx, true); err != nil {
				log.Warnf("refresher: periodic update of %s failed: %v", logPath, err)
			}
		}),
	)
	return err
}

// WatchDirectory arranges for filesystem events under logPath to trigger
// an async Update of cache. Safe to call for several tables sharing one
// Refresher.
func (r *Refresher) WatchDirectory(cache *logstore.SnapshotCache, logPath string) error {
	abs, err := filepath.Abs(logPath)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.byDir[abs] = &registration{cache: cache, logPath: logPath}
	r.mu.Unlock()

	return r.watcher.Add(abs)
}

func (r *Refresher) watchLoop() {
	for {
		select {
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			log.Errorf("refresher: watch error: %v", err)
		case e, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			r.dispatch(e)
		}
	}
}

func (r *Refresher) dispatch(e fsnotify.Event) {
	dir := filepath.Dir(e.Name)

	r.mu.Lock()
	reg, found := r.byDir[dir]
	r.mu.Unlock()
	if !found {
		return
	}

	if _, err := reg.cache.Update(context.Background(), true); err != nil {
		log.Warnf("refresher: reactive update of %s failed: %v", reg.logPath, err)
	}
}

// Start begins running scheduled periodic jobs.
func (r *Refresher) Start() {
	r.scheduler.Start()
}

// Shutdown stops the scheduler and closes the filesystem watcher.
func (r *Refresher) Shutdown() error {
	if err := r.watcher.Close(); err != nil {
		return err
	}
	return r.scheduler.Shutdown()
}

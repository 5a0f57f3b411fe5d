// Copyright (C) 2026 tablelog contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics defines the Sink interface the snapshot core emits
// observations through, plus a Prometheus-backed implementation and a
// no-op default. Hosts with their own telemetry implement Sink instead of
// adopting either.
package metrics

import "time"

// Sink receives point observations from the snapshot core. Every method
// must be safe to call under SnapshotCache.updateLock and must never block
// meaningfully; a slow sink would otherwise throttle table refreshes.
type Sink interface {
	SnapshotBuilt(version int64, dur time.Duration, usedCheckpoint bool)
	AsyncUpdateStarted()
	AsyncUpdateFinished(dur time.Duration, err error)
	TableIdentityChanged(logPath string)
}

// Noop discards every observation; it is the default Sink so that a cache
// built without metrics configured never has to nil-check.
type Noop struct{}

func (Noop) SnapshotBuilt(int64, time.Duration, bool) {}
func (Noop) AsyncUpdateStarted()                      {}
func (Noop) AsyncUpdateFinished(time.Duration, error) {}
func (Noop) TableIdentityChanged(string)              {}

var _ Sink = Noop{}

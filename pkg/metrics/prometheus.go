// Copyright (C) 2026 tablelog contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus is a Sink that records snapshot-building activity as
// standard counters/histograms, registered against the Registerer passed
// to NewPrometheus (usually prometheus.DefaultRegisterer).
type Prometheus struct {
	buildsTotal       *prometheus.CounterVec
	buildDuration     prometheus.Histogram
	asyncUpdatesTotal *prometheus.CounterVec
	asyncUpdateDur    prometheus.Histogram
	identityChanges   prometheus.Counter
}

func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		buildsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tablelog",
			Subsystem: "snapshot",
			Name:      "builds_total",
			Help:      "Number of LogSegments materialized into a Snapshot, labeled by whether a checkpoint was used.",
		}, []string{"used_checkpoint"}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tablelog",
			Subsystem: "snapshot",
			Name:      "build_duration_seconds",
			Help:      "Wall time spent materializing a Snapshot from a LogSegment.",
			Buckets:   prometheus.DefBuckets,
		}),
		asyncUpdatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tablelog",
			Subsystem: "snapshot",
			Name:      "async_updates_total",
			Help:      "Number of asynchronous cache refreshes, labeled by outcome.",
		}, []string{"outcome"}),
		asyncUpdateDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tablelog",
			Subsystem: "snapshot",
			Name:      "async_update_duration_seconds",
			Help:      "Wall time spent in an asynchronous cache refresh.",
			Buckets:   prometheus.DefBuckets,
		}),
		identityChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tablelog",
			Subsystem: "snapshot",
			Name:      "table_identity_changes_total",
			Help:      "Number of times a refresh observed the tableId change underneath an existing cache.",
		}),
	}

	reg.MustRegister(p.buildsTotal, p.buildDuration, p.asyncUpdatesTotal, p.asyncUpdateDur, p.identityChanges)
	return p
}

func (p *Prometheus) SnapshotBuilt(_ int64, dur time.Duration, usedCheckpoint bool) {
	label := "false"
	if usedCheckpoint {
		label = "true"
	}
	p.buildsTotal.WithLabelValues(label).Inc()
	p.buildDuration.Observe(dur.Seconds())
}

func (p *Prometheus) AsyncUpdateStarted() {}

func (p *Prometheus) AsyncUpdateFinished(dur time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	p.asyncUpdatesTotal.WithLabelValues(outcome).Inc()
	p.asyncUpdateDur.Observe(dur.Seconds())
}

func (p *Prometheus) TableIdentityChanged(_ string) {
	p.identityChanges.Inc()
}

var _ Sink = (*Prometheus)(nil)

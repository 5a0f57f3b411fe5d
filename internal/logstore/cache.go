// Copyright (C) 2026 tablelog contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package logstore

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/google/uuid"

	"github.com/deltakit/tablelog/pkg/log"
	"github.com/deltakit/tablelog/pkg/metrics"
	"github.com/deltakit/tablelog/pkg/storage"
)

// Observer receives non-fatal observations emitted while refreshing a
// cache, currently only a tableId change across a directory recreation.
// The cache holds observers as non-owning back references: it notifies
// them, it never manages their lifetime.
type Observer interface {
	TableIdentityChanged(logPath string, oldID, newID uuid.UUID)
}

// AsyncExecutor runs refresh work off the caller's goroutine. The
// process-wide default is lazily initialized; tests inject their own to
// avoid cross-test shared state.
type AsyncExecutor interface {
	Submit(fn func())
}

// workerPool is a bounded, named goroutine pool: a fixed number of
// long-lived workers drain a job channel, daemon-style, with no teardown
// required during normal operation.
type workerPool struct {
	jobs chan func()
}

func newWorkerPool(size int) *workerPool {
	if size <= 0 {
		size = 8
	}
	p := &workerPool{jobs: make(chan func(), size*4)}
	for i := 0; i < size; i++ {
		go p.run()
	}
	return p
}

func (p *workerPool) run() {
	for fn := range p.jobs {
		fn()
	}
}

// Submit enqueues fn. If the pool's queue is full, fn runs on its own
// goroutine rather than blocking the submitter; the async cache-refresh
// path must never block a caller.
func (p *workerPool) Submit(fn func()) {
	select {
	case p.jobs <- fn:
	default:
		go fn()
	}
}

var (
	defaultExecutor     AsyncExecutor
	defaultExecutorOnce sync.Once
)

// DefaultAsyncExecutor returns the process-wide async executor, creating
// it with poolSize workers on first use.
func DefaultAsyncExecutor(poolSize int) AsyncExecutor {
	defaultExecutorOnce.Do(func() {
		defaultExecutor = newWorkerPool(poolSize)
	})
	return defaultExecutor
}

// CacheConfig bundles the tunables SnapshotCache needs, independent of
// internal/config so the package stays importable from a test without
// the config loader.
type CacheConfig struct {
	MaxRetries         int
	StalenessTimeLimit time.Duration
	AsyncPoolSize      int
	Metrics            metrics.Sink
	Executor           AsyncExecutor
}

// SnapshotCache holds the current Snapshot, arbitrates synchronous and
// asynchronous refreshes, and serves point-in-time reads.
type SnapshotCache struct {
	logPath string
	backend storage.Backend

	// reader/builder serve Init and Update: they never cache a listing,
	// so a sync refresh always observes the directory's actual current
	// state.
	reader  *LogDirectoryReader
	builder *LogSegmentBuilder
	factory *SnapshotFactory

	// pitBuilder/pitFactory serve GetSnapshotAt: the reader behind them
	// may reuse a listing across a burst of point-in-time lookups.
	pitBuilder  *LogSegmentBuilder
	pitSelector *CheckpointSelector
	pitFactory  *SnapshotFactory

	current          atomic.Pointer[Snapshot]
	lastUpdateMillis atomic.Int64

	// updateLock is a channel-based mutex so acquisition can be
	// interrupted by ctx cancellation rather than blocking forever.
	updateLock chan struct{}

	asyncGroup     singleflight.Group
	stalenessLimit time.Duration
	executor       AsyncExecutor
	metrics        metrics.Sink

	// asyncCtx is cancelled by Close; background refreshes run under it,
	// so a shutting-down host interrupts them at the next I/O call and
	// the current snapshot is left unchanged.
	asyncCtx    context.Context
	asyncCancel context.CancelFunc

	obsMu     sync.Mutex
	observers []Observer
}

// NewSnapshotCache performs getSnapshotAtInit: read the LastCheckpointHint,
// build and materialize the initial Snapshot (or an InitialSnapshot if no
// log directory exists yet).
func NewSnapshotCache(ctx context.Context, logPath string, backend storage.Backend, cfg CacheConfig) (*SnapshotCache, error) {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Noop{}
	}
	executor := cfg.Executor
	if executor == nil {
		executor = DefaultAsyncExecutor(cfg.AsyncPoolSize)
	}

	reader := NewLogDirectoryReader(backend)
	builder := NewLogSegmentBuilder(reader)
	factory := NewSnapshotFactory(backend, builder, cfg.MaxRetries)

	pitReader := NewCachingLogDirectoryReader(backend)
	pitBuilder := NewLogSegmentBuilder(pitReader)
	pitFactory := NewSnapshotFactory(backend, pitBuilder, cfg.MaxRetries)

	asyncCtx, asyncCancel := context.WithCancel(context.Background())
	c := &SnapshotCache{
		logPath:        logPath,
		backend:        backend,
		reader:         reader,
		builder:        builder,
		factory:        factory,
		pitBuilder:     pitBuilder,
		pitSelector:    NewCheckpointSelector(pitReader),
		pitFactory:     pitFactory,
		updateLock:     make(chan struct{}, 1),
		stalenessLimit: cfg.StalenessTimeLimit,
		executor:       executor,
		metrics:        cfg.Metrics,
		asyncCtx:       asyncCtx,
		asyncCancel:    asyncCancel,
	}
	c.lastUpdateMillis.Store(-1)

	snap, err := c.buildInitial(ctx)
	if err != nil {
		return nil, err
	}
	c.publish(snap)
	c.lastUpdateMillis.Store(time.Now().UnixMilli())
	return c, nil
}

func (c *SnapshotCache) buildInitial(ctx context.Context) (Snapshot, error) {
	var hint *int64
	h, ok, err := ReadLastCheckpointHint(ctx, c.backend, c.logPath)
	if err != nil {
		return Snapshot{}, err
	}
	if ok {
		v := h.Version
		hint = &v
	}

	segment, err := c.builder.Build(ctx, c.logPath, hint, nil)
	if err != nil {
		if _, notFound := err.(*storage.NotFoundError); notFound {
			return InitialSnapshot(c.logPath), nil
		}
		return Snapshot{}, err
	}

	// Replay-level failures (including a listed file vanishing before it
	// was read) surface as-is; only a missing directory degrades to the
	// InitialSnapshot above.
	return c.buildSnapshot(ctx, segment)
}

func (c *SnapshotCache) buildSnapshot(ctx context.Context, segment LogSegment) (Snapshot, error) {
	return c.buildSnapshotWith(ctx, c.factory, segment)
}

func (c *SnapshotCache) buildSnapshotWith(ctx context.Context, factory *SnapshotFactory, segment LogSegment) (Snapshot, error) {
	start := time.Now()
	snap, err := factory.CreateWithRetry(ctx, segment)
	if err == nil {
		c.metrics.SnapshotBuilt(snap.Version, time.Since(start), segment.HasCheckpoint)
	}
	return snap, err
}

func (c *SnapshotCache) publish(s Snapshot) {
	c.current.Store(&s)
}

// Snapshot returns the currently published Snapshot without refreshing.
func (c *SnapshotCache) Snapshot() Snapshot {
	return *c.current.Load()
}

func (c *SnapshotCache) isStale() bool {
	if c.stalenessLimit == 0 {
		return true
	}
	last := c.lastUpdateMillis.Load()
	if last < 0 {
		return true
	}
	return time.Since(time.UnixMilli(last)) >= c.stalenessLimit
}

func (c *SnapshotCache) lock(ctx context.Context) error {
	select {
	case c.updateLock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return &CancelledError{Err: ctx.Err()}
	}
}

func (c *SnapshotCache) tryLock() bool {
	select {
	case c.updateLock <- struct{}{}:
		return true
	default:
		return false
	}
}

func (c *SnapshotCache) unlock() {
	<-c.updateLock
}

// Update refreshes the cache. When stalenessAcceptable
// is true and the cache is not yet stale, the refresh (if any) runs in
// the background and the current Snapshot is returned immediately.
func (c *SnapshotCache) Update(ctx context.Context, stalenessAcceptable bool) (Snapshot, error) {
	doAsync := stalenessAcceptable && !c.isStale()
	if !doAsync {
		if err := c.lock(ctx); err != nil {
			return Snapshot{}, err
		}
		defer c.unlock()
		if err := c.updateInternal(ctx, false); err != nil {
			return Snapshot{}, err
		}
		return c.Snapshot(), nil
	}

	c.kickoffAsync()
	return c.Snapshot(), nil
}

// kickoffAsync hands the refresh work to the bounded executor (never
// spawning its own goroutine, so an injected test executor stays in
// control of when the work actually runs) and uses singleflight to
// coalesce concurrent callers onto a single in-flight refresh. The
// decision to kick off a new task is intentionally non-atomic with the
// lock check inside tryUpdate; a duplicate kick-off just finds the lock
// held.
func (c *SnapshotCache) kickoffAsync() {
	c.executor.Submit(func() {
		c.asyncGroup.Do(c.logPath, func() (interface{}, error) {
			c.tryUpdate(c.asyncCtx)
			return nil, nil
		})
	})
}

// Close interrupts any in-flight background refresh and stops new async
// work from making progress. Synchronous calls remain usable; Close only
// tears down the background side.
func (c *SnapshotCache) Close() {
	c.asyncCancel()
}

func (c *SnapshotCache) tryUpdate(ctx context.Context) {
	if ctx.Err() != nil {
		return // cache was closed before the task got to run
	}
	if !c.tryLock() {
		return // another updater (sync or async) is active
	}
	defer c.unlock()

	start := time.Now()
	c.metrics.AsyncUpdateStarted()
	err := c.updateInternal(ctx, true)
	c.metrics.AsyncUpdateFinished(time.Since(start), err)
	if err != nil {
		log.Errorf("logstore: async update of %s failed: %v", c.logPath, err)
	}
}

// updateInternal requires the caller to hold updateLock.
func (c *SnapshotCache) updateInternal(ctx context.Context, async bool) error {
	current := c.Snapshot()

	var hint *int64
	if current.LogSegment.HasCheckpoint {
		v := current.LogSegment.CheckpointVersion
		hint = &v
	}

	newSegment, err := c.builder.Build(ctx, c.logPath, hint, nil)
	if err != nil {
		if _, notFound := err.(*storage.NotFoundError); notFound {
			c.publish(InitialSnapshot(c.logPath))
			c.lastUpdateMillis.Store(time.Now().UnixMilli())
			return nil
		}
		return err
	}

	if newSegment.Equal(current.LogSegment) {
		// Fast path: nothing changed, no rebuild needed.
		c.lastUpdateMillis.Store(time.Now().UnixMilli())
		return nil
	}

	newSnap, err := c.buildSnapshot(ctx, newSegment)
	if err != nil {
		// A NotFound here means a listed file vanished before it could be
		// read: a replay failure, not a deleted directory. Surface it;
		// the next update re-lists and sees the directory's real state.
		return err
	}

	if current.Version >= 0 && current.TableID() != newSnap.TableID() {
		c.notifyIdentityChanged(current.TableID(), newSnap.TableID())
	}

	c.publish(newSnap)
	c.lastUpdateMillis.Store(time.Now().UnixMilli())
	return nil
}

// GetSnapshotAt returns a Snapshot for version without mutating cache
// state. checkpointHint, if provided and at or before version, seeds the
// search; otherwise the cache finds the latest complete checkpoint before
// version itself.
func (c *SnapshotCache) GetSnapshotAt(ctx context.Context, version int64, checkpointHint *int64) (Snapshot, error) {
	current := c.Snapshot()
	if current.Version == version {
		return current, nil
	}

	hint := checkpointHint
	if hint == nil || *hint > version {
		inst, _, found, err := c.pitSelector.FindLastCompleteBefore(ctx, c.logPath, version)
		if err != nil {
			return Snapshot{}, err
		}
		if found {
			v := inst.Version
			hint = &v
		} else {
			hint = nil
		}
	}

	seg, err := c.pitBuilder.Build(ctx, c.logPath, hint, &version)
	if err != nil {
		return Snapshot{}, err
	}
	return c.buildSnapshotWith(ctx, c.pitFactory, seg)
}

// AddObserver registers o to receive future TableIdentityChanged
// notifications.
func (c *SnapshotCache) AddObserver(o Observer) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.observers = append(c.observers, o)
}

func (c *SnapshotCache) notifyIdentityChanged(oldID, newID uuid.UUID) {
	c.metrics.TableIdentityChanged(c.logPath)
	log.Warnf("table identity changed at %s: %s", c.logPath, log.Fields("old", oldID, "new", newID))

	c.obsMu.Lock()
	observers := append([]Observer(nil), c.observers...)
	c.obsMu.Unlock()

	for _, o := range observers {
		o.TableIdentityChanged(c.logPath, oldID, newID)
	}
}

package navigator

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/udisondev/navgo/internal/config"
)

// UpdaterOption is a functional option for AsyncNavMeshUpdater.
type UpdaterOption func(*AsyncNavMeshUpdater)

// WithTileBuilder replaces the default WalkableSurfaceBuilder.
func WithTileBuilder(b TileBuilder) UpdaterOption {
	return func(u *AsyncNavMeshUpdater) {
		u.builder = b
	}
}

// WithTileStore enables the persistent tile cache.
func WithTileStore(s TileStore) UpdaterOption {
	return func(u *AsyncNavMeshUpdater) {
		u.store = s
	}
}

// WithDebugWriter replaces the default FileDebugWriter.
func WithDebugWriter(w DebugWriter) UpdaterOption {
	return func(u *AsyncNavMeshUpdater) {
		u.debugWriter = w
	}
}

// UpdaterStats is a point-in-time view of the updater.
type UpdaterStats struct {
	Jobs      int // queued, not yet dequeued
	Pushed    int // (agent, tile) pairs marked pending
	InFlight  int
	Processed uint64
	Failed    uint64
	Statuses  [StatusReplaced + 1]uint64 // by UpdateNavMeshStatus
}

// AsyncNavMeshUpdater rebuilds navigation mesh tiles on a background goroutine.
//
// The job queue, the pending set and the wake/done signals share mu, so a
// post can never be missed by the worker and Wait can never miss the moment
// the queue drains. The player tile and the first job start time each have
// their own mutex as they are touched every frame.
type AsyncNavMeshUpdater struct {
	settings          config.Navigator
	recastMeshManager *TileCachedRecastMeshManager
	builder           TileBuilder
	store             TileStore
	debugWriter       DebugWriter

	ctx        context.Context // cancelled after the worker exits
	cancel     context.CancelFunc
	shouldStop atomic.Bool
	stopCh     chan struct{}
	closeOnce  sync.Once
	wg         sync.WaitGroup

	mu       sync.Mutex
	done     *sync.Cond
	hasJob   chan struct{} // one slot, sent to under mu
	jobs     jobQueue
	pushed   map[AgentHalfExtents]map[TilePosition]struct{}
	inFlight int
	seq      uint64
	stopped  bool

	playerTileMu sync.Mutex
	playerTile   TilePosition

	firstStartMu sync.Mutex
	firstStart   time.Time

	processed atomic.Uint64
	failed    atomic.Uint64
	statuses  [StatusReplaced + 1]atomic.Uint64
}

// NewAsyncNavMeshUpdater creates the updater and starts its worker.
// Close must be called to stop the worker.
func NewAsyncNavMeshUpdater(settings config.Navigator, recastMeshManager *TileCachedRecastMeshManager, opts ...UpdaterOption) *AsyncNavMeshUpdater {
	u := newAsyncNavMeshUpdater(settings, recastMeshManager, opts...)
	u.wg.Add(1)
	go u.process()
	return u
}

func newAsyncNavMeshUpdater(settings config.Navigator, recastMeshManager *TileCachedRecastMeshManager, opts ...UpdaterOption) *AsyncNavMeshUpdater {
	ctx, cancel := context.WithCancel(context.Background())
	u := &AsyncNavMeshUpdater{
		settings:          settings,
		recastMeshManager: recastMeshManager,
		builder:           WalkableSurfaceBuilder{},
		debugWriter:       FileDebugWriter{},
		ctx:               ctx,
		cancel:            cancel,
		stopCh:            make(chan struct{}),
		hasJob:            make(chan struct{}, 1),
		pushed:            make(map[AgentHalfExtents]map[TilePosition]struct{}),
	}
	u.done = sync.NewCond(&u.mu)
	for _, opt := range opts {
		if opt != nil {
			opt(u)
		}
	}
	return u
}

// Post records playerTile as the reference point and queues a rebuild of
// every changed tile not already pending for this agent.
func (u *AsyncNavMeshUpdater) Post(agent AgentHalfExtents, item *SharedNavMeshCacheItem, playerTile TilePosition, changedTiles []TilePosition) {
	slog.Debug("post navmesh jobs", "playerTile", playerTile, "tiles", len(changedTiles))

	u.setPlayerTile(playerTile)

	if len(changedTiles) == 0 {
		return
	}

	tiles := slices.Clone(changedTiles)
	slices.SortFunc(tiles, compareTiles)

	u.mu.Lock()
	defer u.mu.Unlock()

	if u.stopped {
		return
	}

	pushed, ok := u.pushed[agent]
	if !ok {
		pushed = make(map[TilePosition]struct{})
		u.pushed[agent] = pushed
	}

	for _, tile := range tiles {
		if _, ok := pushed[tile]; ok {
			continue
		}
		pushed[tile] = struct{}{}
		u.seq++
		heap.Push(&u.jobs, &Job{
			Agent:            agent,
			NavMeshCacheItem: item,
			ChangedTile:      tile,
			Priority:         makePriority(tile, playerTile),
			seq:              u.seq,
		})
	}

	if len(pushed) == 0 {
		delete(u.pushed, agent)
	}

	slog.Debug("posted navmesh jobs", "jobs", u.jobs.Len())

	select {
	case u.hasJob <- struct{}{}:
	default:
	}
}

// Wait blocks until no job is queued or being processed, or the updater is closed.
func (u *AsyncNavMeshUpdater) Wait() {
	u.mu.Lock()
	defer u.mu.Unlock()
	for !u.stopped && (u.jobs.Len() > 0 || u.inFlight > 0) {
		u.done.Wait()
	}
}

// Close stops the worker. Queued jobs are discarded; the job being processed
// runs to completion before Close returns. Safe to call more than once.
func (u *AsyncNavMeshUpdater) Close() {
	u.closeOnce.Do(func() {
		u.shouldStop.Store(true)

		u.mu.Lock()
		discarded := u.jobs.Len()
		u.jobs = nil
		clear(u.pushed)
		u.stopped = true
		u.done.Broadcast()
		u.mu.Unlock()

		close(u.stopCh)
		u.wg.Wait()
		u.cancel()

		slog.Debug("navmesh updater closed", "discardedJobs", discarded)
	})
}

// Stats returns current queue sizes and counters.
func (u *AsyncNavMeshUpdater) Stats() UpdaterStats {
	u.mu.Lock()
	stats := UpdaterStats{
		Jobs:     u.jobs.Len(),
		InFlight: u.inFlight,
	}
	for _, tiles := range u.pushed {
		stats.Pushed += len(tiles)
	}
	u.mu.Unlock()

	stats.Processed = u.processed.Load()
	stats.Failed = u.failed.Load()
	for i := range u.statuses {
		stats.Statuses[i] = u.statuses[i].Load()
	}
	return stats
}

// PlayerTile returns the last reference tile recorded by Post.
func (u *AsyncNavMeshUpdater) PlayerTile() TilePosition {
	return u.getPlayerTile()
}

func (u *AsyncNavMeshUpdater) process() {
	defer u.wg.Done()

	slog.Debug("start process navmesh jobs")

	timer := time.NewTimer(u.settings.Updater.JobWaitTimeout)
	defer timer.Stop()

	for !u.shouldStop.Load() {
		if job, ok := u.getNextJob(timer); ok {
			u.runJob(job)
		}
	}

	slog.Debug("stop process navmesh jobs")
}

func (u *AsyncNavMeshUpdater) getNextJob(timer *time.Timer) (*Job, bool) {
	u.mu.Lock()
	if u.jobs.Len() == 0 && !u.stopped {
		u.mu.Unlock()
		timer.Reset(u.settings.Updater.JobWaitTimeout)
		select {
		case <-u.hasJob:
		case <-u.stopCh:
		case <-timer.C:
		}
		u.mu.Lock()
	}

	if u.jobs.Len() == 0 || u.stopped {
		if u.inFlight == 0 {
			u.done.Broadcast()
		}
		u.mu.Unlock()
		u.resetFirstStart()
		return nil, false
	}

	slog.Debug("got navmesh jobs", "jobs", u.jobs.Len())

	job := heap.Pop(&u.jobs).(*Job)
	if pushed, ok := u.pushed[job.Agent]; ok {
		delete(pushed, job.ChangedTile)
		if len(pushed) == 0 {
			delete(u.pushed, job.Agent)
		}
	}
	u.inFlight++
	u.mu.Unlock()

	return job, true
}

// runJob processes a job and always releases its in-flight slot.
// A panicking builder is logged like a failed one and the worker carries on.
func (u *AsyncNavMeshUpdater) runJob(job *Job) {
	defer func() {
		if r := recover(); r != nil {
			u.failed.Add(1)
			slog.Error("panic while processing navmesh update job",
				"agent", job.Agent,
				"tile", job.ChangedTile,
				"panic", fmt.Sprint(r))
		}

		u.mu.Lock()
		u.inFlight--
		if u.jobs.Len() == 0 && u.inFlight == 0 {
			u.done.Broadcast()
		}
		u.mu.Unlock()
	}()

	u.processJob(job)
}

func (u *AsyncNavMeshUpdater) processJob(job *Job) {
	slog.Debug("process navmesh job", "agent", job.Agent, "tile", job.ChangedTile)

	start := time.Now()
	u.setFirstStart(start)

	recastMesh := u.recastMeshManager.GetMesh(job.ChangedTile)
	playerTile := u.getPlayerTile()

	status, err := UpdateNavMesh(u.ctx, job.Agent, recastMesh, job.ChangedTile, playerTile,
		u.settings.Recast, u.builder, u.store, job.NavMeshCacheItem)

	finish := time.Now()

	if err != nil {
		u.failed.Add(1)
		slog.Error("navmesh update job failed",
			"agent", job.Agent,
			"tile", job.ChangedTile,
			"err", err)
		return
	}

	u.processed.Add(1)
	u.statuses[status].Add(1)

	u.writeDebugFiles(job, recastMesh)

	var generation, revision uint64
	job.NavMeshCacheItem.Read(func(it *NavMeshCacheItem) {
		generation = it.Generation
		revision = it.NavMeshRevision
	})

	slog.Debug("navmesh cache updated",
		"agent", job.Agent,
		"tile", job.ChangedTile,
		"status", status,
		"generation", generation,
		"revision", revision,
		"time", finish.Sub(start),
		"total_time", finish.Sub(u.getFirstStart()))
}

func (u *AsyncNavMeshUpdater) writeDebugFiles(job *Job, recastMesh *RecastMesh) {
	d := u.settings.Debug
	if !d.EnableWriteRecastMeshToFile && !d.EnableWriteNavMeshToFile {
		return
	}

	var recastMeshRevision, navMeshRevision string
	if d.EnableRecastMeshFileNameRevision || d.EnableNavMeshFileNameRevision {
		revision := "." + strconv.FormatInt(time.Now().UnixNano(), 10)
		if d.EnableRecastMeshFileNameRevision {
			recastMeshRevision = revision
		}
		if d.EnableNavMeshFileNameRevision {
			navMeshRevision = revision
		}
	}

	if recastMesh != nil && d.EnableWriteRecastMeshToFile {
		if err := u.debugWriter.WriteRecastMesh(recastMesh, d.RecastMeshPathPrefix, recastMeshRevision); err != nil {
			slog.Warn("writing recast mesh debug file failed", "tile", job.ChangedTile, "err", err)
		}
	}
	if d.EnableWriteNavMeshToFile {
		var err error
		job.NavMeshCacheItem.Read(func(it *NavMeshCacheItem) {
			err = u.debugWriter.WriteNavMesh(it.NavMesh, d.NavMeshPathPrefix, navMeshRevision)
		})
		if err != nil {
			slog.Warn("writing navmesh debug file failed", "tile", job.ChangedTile, "err", err)
		}
	}
}

func (u *AsyncNavMeshUpdater) getPlayerTile() TilePosition {
	u.playerTileMu.Lock()
	defer u.playerTileMu.Unlock()
	return u.playerTile
}

func (u *AsyncNavMeshUpdater) setPlayerTile(tile TilePosition) {
	u.playerTileMu.Lock()
	defer u.playerTileMu.Unlock()
	u.playerTile = tile
}

func (u *AsyncNavMeshUpdater) getFirstStart() time.Time {
	u.firstStartMu.Lock()
	defer u.firstStartMu.Unlock()
	return u.firstStart
}

func (u *AsyncNavMeshUpdater) setFirstStart(t time.Time) {
	u.firstStartMu.Lock()
	defer u.firstStartMu.Unlock()
	if u.firstStart.IsZero() {
		u.firstStart = t
	}
}

func (u *AsyncNavMeshUpdater) resetFirstStart() {
	u.firstStartMu.Lock()
	defer u.firstStartMu.Unlock()
	u.firstStart = time.Time{}
}

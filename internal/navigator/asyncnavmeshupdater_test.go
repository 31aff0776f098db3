package navigator

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/navgo/internal/config"
)

// recordingBuilder records the order tiles are built in.
type recordingBuilder struct {
	mu    sync.Mutex
	tiles []TilePosition
	fn    func(TilePosition) error
}

func (b *recordingBuilder) BuildTile(agent AgentHalfExtents, mesh *RecastMesh, s config.RecastSettings) (*TileData, error) {
	b.mu.Lock()
	b.tiles = append(b.tiles, mesh.Tile())
	fn := b.fn
	b.mu.Unlock()
	if fn != nil {
		if err := fn(mesh.Tile()); err != nil {
			return nil, err
		}
	}
	return WalkableSurfaceBuilder{}.BuildTile(agent, mesh, s)
}

func (b *recordingBuilder) built() []TilePosition {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]TilePosition(nil), b.tiles...)
}

func managerWithFloors(t *testing.T, tiles ...TilePosition) *TileCachedRecastMeshManager {
	t.Helper()
	m := newManager()
	for i, tile := range tiles {
		require.True(t, m.AddObject(ObjectID(i+1), newFloor(), floorAt(tile), AreaGround))
	}
	return m
}

func TestAsyncNavMeshUpdater_JobsOrderedByDistanceToPlayer(t *testing.T) {
	u := newAsyncNavMeshUpdater(testSettings(), newManager())
	defer u.Close()
	item := NewSharedNavMeshCacheItem(1)
	timer := time.NewTimer(time.Millisecond)
	defer timer.Stop()

	u.Post(testAgent, item, TilePosition{5, 5}, []TilePosition{{0, 0}, {6, 6}})

	job, ok := u.getNextJob(timer)
	require.True(t, ok)
	assert.Equal(t, TilePosition{6, 6}, job.ChangedTile)
	assert.Equal(t, JobPriority{PlayerDistance: 2, OriginDistance: 12}, job.Priority)

	job, ok = u.getNextJob(timer)
	require.True(t, ok)
	assert.Equal(t, TilePosition{0, 0}, job.ChangedTile)

	_, ok = u.getNextJob(timer)
	assert.False(t, ok)
}

func TestAsyncNavMeshUpdater_EqualPriorityKeepsPostOrder(t *testing.T) {
	u := newAsyncNavMeshUpdater(testSettings(), newManager())
	defer u.Close()
	item := NewSharedNavMeshCacheItem(1)
	timer := time.NewTimer(time.Millisecond)
	defer timer.Stop()

	u.Post(testAgent, item, TilePosition{0, 0}, []TilePosition{{1, 0}})
	u.Post(testAgent, item, TilePosition{0, 0}, []TilePosition{{0, 1}})

	first, ok := u.getNextJob(timer)
	require.True(t, ok)
	second, ok := u.getNextJob(timer)
	require.True(t, ok)
	assert.Equal(t, TilePosition{1, 0}, first.ChangedTile)
	assert.Equal(t, TilePosition{0, 1}, second.ChangedTile)
}

func TestAsyncNavMeshUpdater_PendingTilesAreNotQueuedTwice(t *testing.T) {
	u := newAsyncNavMeshUpdater(testSettings(), newManager())
	defer u.Close()
	item := NewSharedNavMeshCacheItem(1)
	timer := time.NewTimer(time.Millisecond)
	defer timer.Stop()

	u.Post(testAgent, item, TilePosition{0, 0}, []TilePosition{{0, 0}, {1, 0}, {0, 0}})
	u.Post(testAgent, item, TilePosition{0, 0}, []TilePosition{{1, 0}})

	stats := u.Stats()
	assert.Equal(t, 2, stats.Jobs)
	assert.Equal(t, 2, stats.Pushed)

	// another agent size has its own pending set
	u.Post(AgentHalfExtents{1, 1, 1}, NewSharedNavMeshCacheItem(2), TilePosition{0, 0}, []TilePosition{{1, 0}})
	assert.Equal(t, 3, u.Stats().Jobs)

	job, ok := u.getNextJob(timer)
	require.True(t, ok)
	assert.Equal(t, TilePosition{0, 0}, job.ChangedTile)

	// dequeued tiles can be posted again
	u.Post(testAgent, item, TilePosition{0, 0}, []TilePosition{{0, 0}})
	stats = u.Stats()
	assert.Equal(t, 3, stats.Jobs)
	assert.Equal(t, 1, stats.InFlight)
}

func TestAsyncNavMeshUpdater_EmptyPostUpdatesPlayerTile(t *testing.T) {
	u := newAsyncNavMeshUpdater(testSettings(), newManager())
	defer u.Close()

	u.Post(testAgent, NewSharedNavMeshCacheItem(1), TilePosition{3, -2}, nil)
	assert.Equal(t, TilePosition{3, -2}, u.PlayerTile())
	assert.Zero(t, u.Stats().Jobs)
}

func TestAsyncNavMeshUpdater_PostAfterCloseIsIgnored(t *testing.T) {
	u := NewAsyncNavMeshUpdater(testSettings(), newManager())
	u.Close()
	u.Close()

	u.Post(testAgent, NewSharedNavMeshCacheItem(1), TilePosition{0, 0}, []TilePosition{{0, 0}})
	assert.Zero(t, u.Stats().Jobs)
	u.Wait()
}

func TestAsyncNavMeshUpdater_BuildsPostedTiles(t *testing.T) {
	tiles := []TilePosition{{0, 0}, {6, 6}}
	builder := &recordingBuilder{}
	u := NewAsyncNavMeshUpdater(testSettings(), managerWithFloors(t, tiles...), WithTileBuilder(builder))
	defer u.Close()
	item := NewSharedNavMeshCacheItem(1)

	u.Post(testAgent, item, TilePosition{5, 5}, tiles)
	u.Wait()

	assert.Equal(t, []TilePosition{{6, 6}, {0, 0}}, builder.built())
	assert.True(t, item.HasTile(TilePosition{0, 0}))
	assert.True(t, item.HasTile(TilePosition{6, 6}))
	assert.Equal(t, uint64(3), item.Generation())

	stats := u.Stats()
	assert.Equal(t, uint64(2), stats.Processed)
	assert.Equal(t, uint64(2), stats.Statuses[StatusAdd])
	assert.Zero(t, stats.Jobs)
	assert.Zero(t, stats.InFlight)
	assert.Zero(t, stats.Pushed)
}

func TestAsyncNavMeshUpdater_RemovesTileWithoutGeometry(t *testing.T) {
	m := managerWithFloors(t, TilePosition{0, 0})
	u := NewAsyncNavMeshUpdater(testSettings(), m)
	defer u.Close()
	item := NewSharedNavMeshCacheItem(1)

	u.Post(testAgent, item, TilePosition{0, 0}, []TilePosition{{0, 0}})
	u.Wait()
	require.True(t, item.HasTile(TilePosition{0, 0}))

	_, ok := m.RemoveObject(1)
	require.True(t, ok)
	u.Post(testAgent, item, TilePosition{0, 0}, []TilePosition{{0, 0}})
	u.Wait()

	assert.False(t, item.HasTile(TilePosition{0, 0}))
	assert.Equal(t, uint64(1), u.Stats().Statuses[StatusRemoved])
}

func TestAsyncNavMeshUpdater_FailingJobsDoNotStopTheWorker(t *testing.T) {
	tests := []struct {
		name string
		fail func(TilePosition) error
	}{
		{
			name: "error",
			fail: func(p TilePosition) error {
				if p == (TilePosition{0, 0}) {
					return errors.New("bake failed")
				}
				return nil
			},
		},
		{
			name: "panic",
			fail: func(p TilePosition) error {
				if p == (TilePosition{0, 0}) {
					panic("bake crashed")
				}
				return nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builder := &recordingBuilder{fn: tt.fail}
			tiles := []TilePosition{{0, 0}, {2, 0}}
			u := NewAsyncNavMeshUpdater(testSettings(), managerWithFloors(t, tiles...), WithTileBuilder(builder))
			defer u.Close()
			item := NewSharedNavMeshCacheItem(1)

			u.Post(testAgent, item, TilePosition{0, 0}, tiles)
			u.Wait()

			assert.False(t, item.HasTile(TilePosition{0, 0}))
			assert.True(t, item.HasTile(TilePosition{2, 0}))

			stats := u.Stats()
			assert.Equal(t, uint64(1), stats.Failed)
			assert.Equal(t, uint64(1), stats.Processed)
			assert.Zero(t, stats.InFlight)
		})
	}
}

func TestAsyncNavMeshUpdater_CloseDiscardsQueuedJobs(t *testing.T) {
	tiles := []TilePosition{{0, 0}, {2, 0}, {4, 0}}
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	builder := TileBuilderFunc(func(AgentHalfExtents, *RecastMesh, config.RecastSettings) (*TileData, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil, nil
	})

	u := NewAsyncNavMeshUpdater(testSettings(), managerWithFloors(t, tiles...), WithTileBuilder(builder))
	u.Post(testAgent, NewSharedNavMeshCacheItem(1), TilePosition{0, 0}, tiles)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not pick up a job")
	}

	closed := make(chan struct{})
	go func() {
		u.Close()
		close(closed)
	}()

	require.Eventually(t, func() bool {
		return u.Stats().Jobs == 0
	}, 5*time.Second, time.Millisecond)

	select {
	case <-closed:
		t.Fatal("Close returned while a job was running")
	case <-time.After(10 * time.Millisecond):
	}

	close(release)

	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}

	stats := u.Stats()
	assert.Equal(t, uint64(1), stats.Processed)
	assert.Zero(t, stats.Pushed)
	assert.Zero(t, stats.InFlight)
}

func TestAsyncNavMeshUpdater_WaitWithoutJobs(t *testing.T) {
	u := NewAsyncNavMeshUpdater(testSettings(), newManager())
	defer u.Close()

	done := make(chan struct{})
	go func() {
		u.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Wait blocked without jobs")
	}
}

func TestAsyncNavMeshUpdater_CloseReleasesWaiters(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	builder := TileBuilderFunc(func(AgentHalfExtents, *RecastMesh, config.RecastSettings) (*TileData, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil, nil
	})
	tiles := []TilePosition{{0, 0}, {2, 0}}
	u := NewAsyncNavMeshUpdater(testSettings(), managerWithFloors(t, tiles...), WithTileBuilder(builder))
	u.Post(testAgent, NewSharedNavMeshCacheItem(1), TilePosition{0, 0}, tiles)
	<-started

	waited := make(chan struct{})
	go func() {
		u.Wait()
		close(waited)
	}()

	go u.Close()

	select {
	case <-waited:
	case <-time.After(5 * time.Second):
		t.Fatal("Wait was not released by Close")
	}
	close(release)
}

package db

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/navgo/internal/collision"
	"github.com/udisondev/navgo/internal/config"
	"github.com/udisondev/navgo/internal/navigator"
	"github.com/udisondev/navgo/internal/testutil"
)

func testTile(x, y int32) *navigator.TileData {
	return &navigator.TileData{
		X:        x,
		Y:        y,
		Vertices: []mgl32.Vec3{{0, 0, 1}, {16, 0, 1}, {16, 16, 1}},
		Polys:    []navigator.Poly{{Vertices: []uint16{0, 1, 2}, Area: navigator.AreaGround}},
	}
}

func testKey(x, y int32, digest byte) navigator.TileKey {
	key := navigator.TileKey{
		Agent: navigator.AgentHalfExtents{0.3, 0.3, 0.9},
		Tile:  navigator.TilePosition{X: x, Y: y},
	}
	key.Digest[0] = digest
	return key
}

func TestTileRepository(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	repo := NewTileRepository(pool)

	t.Run("miss", func(t *testing.T) {
		ctx := testutil.ContextWithTimeout(t, 10*time.Second)
		data, found, err := repo.FindTile(ctx, testKey(100, 100, 1))
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, data)
	})

	t.Run("save then find", func(t *testing.T) {
		ctx := testutil.ContextWithTimeout(t, 10*time.Second)
		key := testKey(1, -2, 1)
		want := testTile(1, -2)

		require.NoError(t, repo.SaveTile(ctx, key, want))

		got, found, err := repo.FindTile(ctx, key)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, want, got)
	})

	t.Run("digest is part of the key", func(t *testing.T) {
		ctx := testutil.ContextWithTimeout(t, 10*time.Second)
		require.NoError(t, repo.SaveTile(ctx, testKey(2, 2, 1), testTile(2, 2)))

		_, found, err := repo.FindTile(ctx, testKey(2, 2, 2))
		require.NoError(t, err)
		assert.False(t, found)

		other := testKey(2, 2, 1)
		other.Agent = navigator.AgentHalfExtents{1, 1, 1}
		_, found, err = repo.FindTile(ctx, other)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("save replaces", func(t *testing.T) {
		ctx := testutil.ContextWithTimeout(t, 10*time.Second)
		key := testKey(3, 3, 1)
		before, err := repo.Count(ctx)
		require.NoError(t, err)

		require.NoError(t, repo.SaveTile(ctx, key, testTile(3, 3)))
		updated := testTile(3, 3)
		updated.Polys[0].Area = navigator.AreaWater
		require.NoError(t, repo.SaveTile(ctx, key, updated))

		after, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, before+1, after)

		got, found, err := repo.FindTile(ctx, key)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, navigator.AreaWater, got.Polys[0].Area)
	})

	t.Run("delete unused", func(t *testing.T) {
		ctx := testutil.ContextWithTimeout(t, 10*time.Second)
		require.NoError(t, repo.SaveTile(ctx, testKey(4, 4, 1), testTile(4, 4)))

		removed, err := repo.DeleteUnusedSince(ctx, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		assert.Zero(t, removed)

		removed, err = repo.DeleteUnusedSince(ctx, time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Positive(t, removed)

		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestTileRepositoryBehindUpdateNavMesh(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := testutil.ContextWithTimeout(t, 10*time.Second)
	repo := NewTileRepository(pool)

	s := config.DefaultRecastSettings()
	manager := navigator.NewTileCachedRecastMeshManager(s)
	tile := navigator.TilePosition{X: 0, Y: 0}
	floor := collision.NewBox(mgl32.Vec3{4, 4, 0.5})
	require.True(t, manager.AddObject(1, floor, collision.Translation(mgl32.Vec3{8, 8, 0}), navigator.AreaGround))
	mesh := manager.GetMesh(tile)
	agent := navigator.AgentHalfExtents{0.3, 0.3, 0.9}

	calls := 0
	builder := navigator.TileBuilderFunc(func(a navigator.AgentHalfExtents, m *navigator.RecastMesh, s config.RecastSettings) (*navigator.TileData, error) {
		calls++
		return navigator.WalkableSurfaceBuilder{}.BuildTile(a, m, s)
	})

	for range 2 {
		item := navigator.NewSharedNavMeshCacheItem(1)
		status, err := navigator.UpdateNavMesh(ctx, agent, mesh, tile, tile, s, builder, repo, item)
		require.NoError(t, err)
		assert.Equal(t, navigator.StatusAdd, status)
		assert.True(t, item.HasTile(tile))
	}
	assert.Equal(t, 1, calls, "second bake served from the database")

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

package navigator

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/udisondev/navgo/internal/config"
)

// UpdateNavMeshStatus is the outcome of applying a tile build.
type UpdateNavMeshStatus uint8

const (
	StatusIgnore UpdateNavMeshStatus = iota
	StatusRemoved
	StatusAdd
	StatusReplaced
)

func (s UpdateNavMeshStatus) String() string {
	switch s {
	case StatusIgnore:
		return "ignore"
	case StatusRemoved:
		return "removed"
	case StatusAdd:
		return "add"
	case StatusReplaced:
		return "replaced"
	default:
		return "unknown"
	}
}

// TileKey identifies baked tile data by everything the bake depends on.
type TileKey struct {
	Agent  AgentHalfExtents
	Tile   TilePosition
	Digest [DigestSize]byte
}

// TileStore is a persistent cache of baked tiles.
type TileStore interface {
	FindTile(ctx context.Context, key TileKey) (*TileData, bool, error)
	SaveTile(ctx context.Context, key TileKey, data *TileData) error
}

// shouldAddTile limits the mesh to roughly maxTilesNumber tiles around the player.
func shouldAddTile(changedTile, playerTile TilePosition, maxTilesNumber int) bool {
	distance := float64(manhattan(changedTile, playerTile))
	expectedTilesCount := math.Ceil(math.Pi * distance * distance)
	return expectedTilesCount*3 <= float64(maxTilesNumber)*4
}

// UpdateNavMesh rebuilds changedTile of the item's navigation mesh from
// recastMesh and applies the result in place.
//
// An absent or empty recastMesh, or a tile too far from the player, removes
// the tile. A build error leaves the mesh untouched. store may be nil.
func UpdateNavMesh(
	ctx context.Context,
	agent AgentHalfExtents,
	recastMesh *RecastMesh,
	changedTile, playerTile TilePosition,
	s config.RecastSettings,
	builder TileBuilder,
	store TileStore,
	item *SharedNavMeshCacheItem,
) (UpdateNavMeshStatus, error) {
	if recastMesh.IsEmpty() || !shouldAddTile(changedTile, playerTile, s.MaxTilesNumber) {
		return removeTile(item, changedTile), nil
	}

	data, err := makeTileData(ctx, agent, recastMesh, s, builder, store)
	if err != nil {
		return StatusIgnore, fmt.Errorf("building tile %s: %w", changedTile, err)
	}
	if data == nil {
		return removeTile(item, changedTile), nil
	}
	return replaceTile(item, data), nil
}

func makeTileData(ctx context.Context, agent AgentHalfExtents, recastMesh *RecastMesh, s config.RecastSettings, builder TileBuilder, store TileStore) (*TileData, error) {
	if store == nil {
		return builder.BuildTile(agent, recastMesh, s)
	}

	key := TileKey{
		Agent:  agent,
		Tile:   recastMesh.Tile(),
		Digest: recastMesh.Digest(agent, s),
	}

	data, found, err := store.FindTile(ctx, key)
	if err != nil {
		slog.Warn("navmesh tile lookup failed", "tile", key.Tile, "err", err)
	} else if found {
		return data, nil
	}

	data, err = builder.BuildTile(agent, recastMesh, s)
	if err != nil || data == nil {
		return data, err
	}

	if err := store.SaveTile(ctx, key, data); err != nil {
		slog.Warn("navmesh tile save failed", "tile", key.Tile, "err", err)
	}
	return data, nil
}

func removeTile(item *SharedNavMeshCacheItem, tile TilePosition) UpdateNavMeshStatus {
	status := StatusIgnore
	item.Update(func(it *NavMeshCacheItem) {
		if it.NavMesh.RemoveTile(tile) {
			it.NavMeshRevision++
			status = StatusRemoved
		}
	})
	return status
}

func replaceTile(item *SharedNavMeshCacheItem, data *TileData) UpdateNavMeshStatus {
	status := StatusAdd
	item.Update(func(it *NavMeshCacheItem) {
		if it.NavMesh.AddTile(data) {
			it.NavMeshRevision++
			status = StatusReplaced
		} else {
			it.Generation++
		}
	})
	return status
}

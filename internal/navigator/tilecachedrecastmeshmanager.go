package navigator

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/udisondev/navgo/internal/collision"
	"github.com/udisondev/navgo/internal/config"
)

// TileCachedRecastMeshManager tracks which tiles every object occupies and
// routes object changes to the affected TileGeometryCache entries.
//
// Locking: tilesMu guards only the structure of the tile map; each tile
// guards its own content. GetMesh and HasTile can therefore run from any
// goroutine while the simulation mutates other tiles. Object and water
// occupancy are guarded by occupancyMu; mutations are expected to come from
// one producer goroutine.
type TileCachedRecastMeshManager struct {
	settings config.RecastSettings

	tilesMu sync.Mutex
	tiles   map[TilePosition]*TileGeometryCache

	occupancyMu  sync.Mutex
	objectsTiles map[ObjectID]map[TilePosition]struct{}
	waterTiles   map[CellPosition][]TilePosition

	revision atomic.Uint64
}

// NewTileCachedRecastMeshManager creates an empty manager.
func NewTileCachedRecastMeshManager(s config.RecastSettings) *TileCachedRecastMeshManager {
	return &TileCachedRecastMeshManager{
		settings:     s,
		tiles:        make(map[TilePosition]*TileGeometryCache),
		objectsTiles: make(map[ObjectID]map[TilePosition]struct{}),
		waterTiles:   make(map[CellPosition][]TilePosition),
	}
}

// Settings returns the recast settings the manager was created with.
func (m *TileCachedRecastMeshManager) Settings() config.RecastSettings {
	return m.settings
}

// AddObject registers an object in every tile it overlaps.
// Returns false if the id is already tracked or the shape covers no tile.
func (m *TileCachedRecastMeshManager) AddObject(id ObjectID, shape collision.Shape, transform collision.Transform, areaType AreaType) bool {
	m.occupancyMu.Lock()
	defer m.occupancyMu.Unlock()

	if _, ok := m.objectsTiles[id]; ok {
		return false
	}

	tilesPositions := make(map[TilePosition]struct{})
	GetTilesPositions(shape.AABB(transform), m.settings, func(p TilePosition) {
		if m.addTile(id, shape, transform, areaType, p) {
			tilesPositions[p] = struct{}{}
		}
	})

	if len(tilesPositions) == 0 {
		return false
	}
	m.objectsTiles[id] = tilesPositions
	m.revision.Add(1)
	return true
}

// UpdateObject recomputes the tiles an object overlaps. Tiles kept by the
// object are updated, new tiles get the object added, abandoned tiles get it
// removed. onChangedTile is called once for every tile whose content
// effectively changed. Returns false for untracked ids or when nothing changed.
func (m *TileCachedRecastMeshManager) UpdateObject(id ObjectID, shape collision.Shape, transform collision.Transform, areaType AreaType, onChangedTile func(TilePosition)) bool {
	m.occupancyMu.Lock()
	defer m.occupancyMu.Unlock()

	currentTiles, ok := m.objectsTiles[id]
	if !ok {
		return false
	}

	changed := false
	newTiles := make(map[TilePosition]struct{}, len(currentTiles))
	GetTilesPositions(shape.AABB(transform), m.settings, func(p TilePosition) {
		if _, ok := currentTiles[p]; ok {
			newTiles[p] = struct{}{}
			if m.updateTile(id, transform, areaType, p) {
				onChangedTile(p)
				changed = true
			}
		} else if m.addTile(id, shape, transform, areaType, p) {
			newTiles[p] = struct{}{}
			onChangedTile(p)
			changed = true
		}
	})

	for _, p := range sortedTiles(currentTiles) {
		if _, ok := newTiles[p]; ok {
			continue
		}
		if _, removed := m.removeTile(id, p); removed {
			onChangedTile(p)
			changed = true
		}
	}

	m.objectsTiles[id] = newTiles
	if changed {
		m.revision.Add(1)
	}
	return changed
}

// RemoveObject removes an object from every tile it occupies.
// Returns false if the id is not tracked.
func (m *TileCachedRecastMeshManager) RemoveObject(id ObjectID) (RemovedRecastMeshObject, bool) {
	m.occupancyMu.Lock()
	defer m.occupancyMu.Unlock()

	tilesPositions, ok := m.objectsTiles[id]
	if !ok {
		return RemovedRecastMeshObject{}, false
	}
	delete(m.objectsTiles, id)

	var result RemovedRecastMeshObject
	found := false
	for _, p := range sortedTiles(tilesPositions) {
		removed, ok := m.removeTile(id, p)
		if ok && !found {
			result = removed
			found = true
		}
	}
	if found {
		m.revision.Add(1)
	}
	return result, found
}

// AddWater registers static water of a world cell. A cell size of
// InfiniteWaterCellSize adds the water to every existing tile.
func (m *TileCachedRecastMeshManager) AddWater(cell CellPosition, cellSize int, transform collision.Transform) bool {
	m.occupancyMu.Lock()
	defer m.occupancyMu.Unlock()

	tilesPositions := m.waterTiles[cell]
	result := false

	if cellSize == InfiniteWaterCellSize {
		m.tilesMu.Lock()
		for p, tile := range m.tiles {
			if tile.AddWater(cell, cellSize, transform) {
				tilesPositions = append(tilesPositions, p)
				result = true
			}
		}
		m.tilesMu.Unlock()
	} else {
		GetWaterTilesPositions(cellSize, transform, m.settings, func(p TilePosition) {
			if m.getOrCreateTile(p).AddWater(cell, cellSize, transform) {
				tilesPositions = append(tilesPositions, p)
				result = true
			}
		})
	}

	if len(tilesPositions) > 0 {
		m.waterTiles[cell] = tilesPositions
	}
	if result {
		m.revision.Add(1)
	}
	return result
}

// RemoveWater removes water of a world cell from every tile it was added to.
func (m *TileCachedRecastMeshManager) RemoveWater(cell CellPosition) (Water, bool) {
	m.occupancyMu.Lock()
	defer m.occupancyMu.Unlock()

	tilesPositions, ok := m.waterTiles[cell]
	if !ok {
		return Water{}, false
	}
	delete(m.waterTiles, cell)

	var result Water
	found := false

	m.tilesMu.Lock()
	for _, p := range tilesPositions {
		tile, ok := m.tiles[p]
		if !ok {
			continue
		}
		removed, ok := tile.RemoveWater(cell)
		if tile.IsEmpty() {
			delete(m.tiles, p)
		}
		if ok && !found {
			result = removed
			found = true
		}
	}
	m.tilesMu.Unlock()

	if found {
		m.revision.Add(1)
	}
	return result, found
}

// GetMesh returns the current geometry snapshot of a tile, or nil if the
// tile has no geometry.
func (m *TileCachedRecastMeshManager) GetMesh(tile TilePosition) *RecastMesh {
	m.tilesMu.Lock()
	cache, ok := m.tiles[tile]
	m.tilesMu.Unlock()
	if !ok {
		return nil
	}
	return cache.Mesh()
}

// HasTile reports whether the tile has any geometry.
func (m *TileCachedRecastMeshManager) HasTile(tile TilePosition) bool {
	m.tilesMu.Lock()
	defer m.tilesMu.Unlock()
	_, ok := m.tiles[tile]
	return ok
}

// ForEachTilePosition calls fn for every tile with geometry, in lexicographic
// order. fn must not call back into the manager.
func (m *TileCachedRecastMeshManager) ForEachTilePosition(fn func(TilePosition)) {
	m.tilesMu.Lock()
	positions := make([]TilePosition, 0, len(m.tiles))
	for p := range m.tiles {
		positions = append(positions, p)
	}
	m.tilesMu.Unlock()

	slices.SortFunc(positions, compareTiles)
	for _, p := range positions {
		fn(p)
	}
}

// TilesCount returns the number of tiles with geometry.
func (m *TileCachedRecastMeshManager) TilesCount() int {
	m.tilesMu.Lock()
	defer m.tilesMu.Unlock()
	return len(m.tiles)
}

// ObjectTiles returns the tiles an object currently occupies.
func (m *TileCachedRecastMeshManager) ObjectTiles(id ObjectID) ([]TilePosition, bool) {
	m.occupancyMu.Lock()
	defer m.occupancyMu.Unlock()
	tiles, ok := m.objectsTiles[id]
	if !ok {
		return nil, false
	}
	return sortedTiles(tiles), true
}

// WaterTiles returns the tiles the water of a cell was added to.
func (m *TileCachedRecastMeshManager) WaterTiles(cell CellPosition) ([]TilePosition, bool) {
	m.occupancyMu.Lock()
	defer m.occupancyMu.Unlock()
	tiles, ok := m.waterTiles[cell]
	if !ok {
		return nil, false
	}
	return slices.Clone(tiles), true
}

// Revision returns a counter bumped once per effective geometry change.
func (m *TileCachedRecastMeshManager) Revision() uint64 {
	return m.revision.Load()
}

func (m *TileCachedRecastMeshManager) getOrCreateTile(p TilePosition) *TileGeometryCache {
	m.tilesMu.Lock()
	defer m.tilesMu.Unlock()
	tile, ok := m.tiles[p]
	if !ok {
		tile = NewTileGeometryCache(m.settings, p)
		m.tiles[p] = tile
	}
	return tile
}

func (m *TileCachedRecastMeshManager) addTile(id ObjectID, shape collision.Shape, transform collision.Transform, areaType AreaType, p TilePosition) bool {
	return m.getOrCreateTile(p).AddObject(id, shape, transform, areaType)
}

func (m *TileCachedRecastMeshManager) updateTile(id ObjectID, transform collision.Transform, areaType AreaType, p TilePosition) bool {
	m.tilesMu.Lock()
	tile, ok := m.tiles[p]
	m.tilesMu.Unlock()
	return ok && tile.UpdateObject(id, transform, areaType)
}

func (m *TileCachedRecastMeshManager) removeTile(id ObjectID, p TilePosition) (RemovedRecastMeshObject, bool) {
	m.tilesMu.Lock()
	defer m.tilesMu.Unlock()
	tile, ok := m.tiles[p]
	if !ok {
		return RemovedRecastMeshObject{}, false
	}
	removed, ok := tile.RemoveObject(id)
	if tile.IsEmpty() {
		delete(m.tiles, p)
	}
	return removed, ok
}

func compareTiles(a, b TilePosition) int {
	if a.Less(b) {
		return -1
	}
	if b.Less(a) {
		return 1
	}
	return 0
}

func sortedTiles(set map[TilePosition]struct{}) []TilePosition {
	out := make([]TilePosition, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	slices.SortFunc(out, compareTiles)
	return out
}

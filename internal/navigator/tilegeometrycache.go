package navigator

import (
	"cmp"
	"slices"
	"sync"

	"github.com/udisondev/navgo/internal/collision"
	"github.com/udisondev/navgo/internal/config"
)

// TileGeometryCache holds the collision objects and water contributing to a
// single tile. All methods are safe for concurrent use; the tile is guarded
// by its own mutex so unrelated tiles never contend.
//
// Every effective change bumps the revision and drops the cached snapshot.
type TileGeometryCache struct {
	tile   TilePosition
	bounds collision.AABB

	mu       sync.Mutex
	objects  map[ObjectID]*RecastMeshObject
	water    map[CellPosition]Water
	revision uint64
	cached   *RecastMesh
}

// NewTileGeometryCache creates an empty cache for tile.
func NewTileGeometryCache(s config.RecastSettings, tile TilePosition) *TileGeometryCache {
	return &TileGeometryCache{
		tile:    tile,
		bounds:  GetRealTileBounds(s, tile),
		objects: make(map[ObjectID]*RecastMeshObject),
		water:   make(map[CellPosition]Water),
	}
}

// Tile returns the tile position.
func (c *TileGeometryCache) Tile() TilePosition {
	return c.tile
}

// AddObject registers an object. Returns false if the id is already present.
func (c *TileGeometryCache) AddObject(id ObjectID, shape collision.Shape, transform collision.Transform, areaType AreaType) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.objects[id]; ok {
		return false
	}
	object := NewRecastMeshObject(shape, transform, areaType)
	c.objects[id] = &object
	c.bumpLocked()
	return true
}

// UpdateObject refreshes a registered object and reports whether its
// geometry changed. Unknown ids report no change.
func (c *TileGeometryCache) UpdateObject(id ObjectID, transform collision.Transform, areaType AreaType) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	object, ok := c.objects[id]
	if !ok {
		return false
	}
	if !object.Update(transform, areaType) {
		return false
	}
	c.bumpLocked()
	return true
}

// RemoveObject unregisters an object and returns what was removed.
func (c *TileGeometryCache) RemoveObject(id ObjectID) (RemovedRecastMeshObject, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	object, ok := c.objects[id]
	if !ok {
		return RemovedRecastMeshObject{}, false
	}
	delete(c.objects, id)
	c.bumpLocked()
	return RemovedRecastMeshObject{
		Shape:     object.Shape(),
		Transform: object.Transform(),
		AreaType:  object.AreaType(),
	}, true
}

// AddWater registers water for a cell. Returns false if the cell already has water here.
func (c *TileGeometryCache) AddWater(cell CellPosition, cellSize int, transform collision.Transform) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.water[cell]; ok {
		return false
	}
	c.water[cell] = Water{CellSize: cellSize, Transform: transform}
	c.bumpLocked()
	return true
}

// RemoveWater unregisters the water of a cell.
func (c *TileGeometryCache) RemoveWater(cell CellPosition) (Water, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	water, ok := c.water[cell]
	if !ok {
		return Water{}, false
	}
	delete(c.water, cell)
	c.bumpLocked()
	return water, true
}

// Mesh returns a snapshot of the tile geometry. The snapshot is rebuilt
// only after the tile changed.
func (c *TileGeometryCache) Mesh() *RecastMesh {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached == nil {
		c.cached = c.buildLocked()
	}
	return c.cached
}

// Revision returns the number of effective changes applied to the tile.
func (c *TileGeometryCache) Revision() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.revision
}

// IsEmpty reports whether the tile has neither objects nor water.
func (c *TileGeometryCache) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.objects) == 0 && len(c.water) == 0
}

func (c *TileGeometryCache) bumpLocked() {
	c.revision++
	c.cached = nil
}

func (c *TileGeometryCache) buildLocked() *RecastMesh {
	objects := make([]RecastMeshObjectView, 0, len(c.objects))
	for id, o := range c.objects {
		objects = append(objects, RecastMeshObjectView{
			ID:        id,
			Shape:     o.Shape(),
			Transform: o.Transform(),
			AreaType:  o.AreaType(),
		})
	}
	slices.SortFunc(objects, func(a, b RecastMeshObjectView) int {
		return cmp.Compare(a.ID, b.ID)
	})

	water := make([]WaterView, 0, len(c.water))
	for cell, w := range c.water {
		water = append(water, WaterView{Cell: cell, Water: w})
	}
	slices.SortFunc(water, func(a, b WaterView) int {
		if a.Cell.X != b.Cell.X {
			return cmp.Compare(a.Cell.X, b.Cell.X)
		}
		return cmp.Compare(a.Cell.Y, b.Cell.Y)
	})

	return newRecastMesh(c.tile, c.revision, c.bounds, objects, water)
}

package navigator

import (
	"slices"

	"github.com/go-gl/mathgl/mgl32"
)

// Poly is a navigable convex polygon of a tile.
type Poly struct {
	Vertices []uint16 `msgpack:"v"`
	Area     AreaType `msgpack:"a"`
}

// TileData is the baked navigation data of one tile.
type TileData struct {
	X        int32        `msgpack:"x"`
	Y        int32        `msgpack:"y"`
	Vertices []mgl32.Vec3 `msgpack:"verts"`
	Polys    []Poly       `msgpack:"polys"`
}

// Position returns the tile the data belongs to.
func (d *TileData) Position() TilePosition {
	return TilePosition{X: d.X, Y: d.Y}
}

// NavMesh is a tiled navigation mesh for one agent size.
// Not safe for concurrent use on its own; access it through SharedNavMeshCacheItem.
type NavMesh struct {
	tiles map[TilePosition]*TileData
}

// NewNavMesh creates an empty navigation mesh.
func NewNavMesh() *NavMesh {
	return &NavMesh{tiles: make(map[TilePosition]*TileData)}
}

// AddTile stores tile data, replacing existing data for the same tile.
// Returns true if the tile was replaced.
func (n *NavMesh) AddTile(data *TileData) bool {
	p := data.Position()
	_, existed := n.tiles[p]
	n.tiles[p] = data
	return existed
}

// RemoveTile removes a tile. Returns false if there was nothing to remove.
func (n *NavMesh) RemoveTile(p TilePosition) bool {
	if _, ok := n.tiles[p]; !ok {
		return false
	}
	delete(n.tiles, p)
	return true
}

// Tile returns the data of a tile.
func (n *NavMesh) Tile(p TilePosition) (*TileData, bool) {
	data, ok := n.tiles[p]
	return data, ok
}

// HasTile reports whether a tile is present.
func (n *NavMesh) HasTile(p TilePosition) bool {
	_, ok := n.tiles[p]
	return ok
}

// TileCount returns the number of tiles.
func (n *NavMesh) TileCount() int {
	return len(n.tiles)
}

// ForEachTile calls fn for every tile in lexicographic order.
func (n *NavMesh) ForEachTile(fn func(*TileData)) {
	positions := make([]TilePosition, 0, len(n.tiles))
	for p := range n.tiles {
		positions = append(positions, p)
	}
	slices.SortFunc(positions, compareTiles)
	for _, p := range positions {
		fn(n.tiles[p])
	}
}

package navigator

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/udisondev/navgo/internal/collision"
)

// RecastMeshObjectView is one object as captured by a RecastMesh snapshot.
type RecastMeshObjectView struct {
	ID        ObjectID
	Shape     collision.Shape
	Transform collision.Transform
	AreaType  AreaType
}

// Water is a static water body registered for a world cell.
type Water struct {
	CellSize  int
	Transform collision.Transform
}

// WaterView is a water body as captured by a RecastMesh snapshot.
type WaterView struct {
	Cell CellPosition
	Water
}

// RecastMesh is an immutable snapshot of the geometry contributing to one tile.
// It is shared between goroutines and must not be modified.
type RecastMesh struct {
	tile     TilePosition
	revision uint64
	bounds   collision.AABB

	objects []RecastMeshObjectView
	water   []WaterView

	vertices  []mgl32.Vec3
	indices   []int32
	areaTypes []AreaType
}

// newRecastMesh flattens objects into a triangle soup restricted to the
// tile bounds. Objects and water must already be in a stable order.
func newRecastMesh(tile TilePosition, revision uint64, bounds collision.AABB, objects []RecastMeshObjectView, water []WaterView) *RecastMesh {
	m := &RecastMesh{
		tile:     tile,
		revision: revision,
		bounds:   bounds,
		objects:  objects,
		water:    water,
	}
	for _, o := range objects {
		o.Shape.Triangles(o.Transform, func(a, b, c mgl32.Vec3) {
			tri := collision.EmptyAABB().Extend(a).Extend(b).Extend(c)
			if !tri.Overlaps2D(bounds) {
				return
			}
			base := int32(len(m.vertices))
			m.vertices = append(m.vertices, a, b, c)
			m.indices = append(m.indices, base, base+1, base+2)
			m.areaTypes = append(m.areaTypes, o.AreaType)
		})
	}
	return m
}

// Tile returns the tile the snapshot was taken for.
func (m *RecastMesh) Tile() TilePosition {
	return m.tile
}

// Revision returns the tile revision at snapshot time.
func (m *RecastMesh) Revision() uint64 {
	return m.revision
}

// Bounds returns the border-inflated tile bounds the geometry was clipped to.
func (m *RecastMesh) Bounds() collision.AABB {
	return m.bounds
}

// Objects returns the objects registered to the tile, ordered by id.
func (m *RecastMesh) Objects() []RecastMeshObjectView {
	return m.objects
}

// Water returns water bodies registered to the tile, ordered by cell.
func (m *RecastMesh) Water() []WaterView {
	return m.water
}

// Vertices returns triangle vertices in world space.
func (m *RecastMesh) Vertices() []mgl32.Vec3 {
	return m.vertices
}

// Indices returns triangle vertex indices, three per triangle.
func (m *RecastMesh) Indices() []int32 {
	return m.indices
}

// AreaTypes returns one area type per triangle.
func (m *RecastMesh) AreaTypes() []AreaType {
	return m.areaTypes
}

// TrianglesCount returns the number of triangles.
func (m *RecastMesh) TrianglesCount() int {
	return len(m.areaTypes)
}

// IsEmpty reports whether the tile has nothing to build a mesh from.
func (m *RecastMesh) IsEmpty() bool {
	return m == nil || (len(m.areaTypes) == 0 && len(m.water) == 0)
}

// HasObject reports whether the snapshot contains the object.
func (m *RecastMesh) HasObject(id ObjectID) bool {
	for _, o := range m.objects {
		if o.ID == id {
			return true
		}
	}
	return false
}

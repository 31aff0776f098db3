package navigator

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/udisondev/navgo/internal/collision"
	"github.com/udisondev/navgo/internal/config"
)

// TileBuilder bakes the navigation data of one tile from its geometry.
// Implementations must be pure: the same input yields the same output and
// nothing shared is modified. A nil result without error means the tile has
// nothing navigable.
type TileBuilder interface {
	BuildTile(agent AgentHalfExtents, mesh *RecastMesh, s config.RecastSettings) (*TileData, error)
}

// TileBuilderFunc adapts a function to TileBuilder.
type TileBuilderFunc func(agent AgentHalfExtents, mesh *RecastMesh, s config.RecastSettings) (*TileData, error)

// BuildTile implements TileBuilder.
func (f TileBuilderFunc) BuildTile(agent AgentHalfExtents, mesh *RecastMesh, s config.RecastSettings) (*TileData, error) {
	return f(agent, mesh, s)
}

// WalkableSurfaceBuilder turns upward facing triangles inside the tile into
// polygons and covers water with flat quads. It is a lightweight stand-in
// for a voxel based baker: no erosion by agent radius, no region merging.
type WalkableSurfaceBuilder struct{}

// BuildTile implements TileBuilder.
func (WalkableSurfaceBuilder) BuildTile(agent AgentHalfExtents, mesh *RecastMesh, s config.RecastSettings) (*TileData, error) {
	if mesh.IsEmpty() {
		return nil, nil
	}

	tile := mesh.Tile()
	inner := GetTileBounds(s, tile)
	minUp := float32(math.Cos(float64(mgl32.DegToRad(s.MaxSlope))))

	b := tileDataBuilder{
		data:  &TileData{X: tile.X, Y: tile.Y},
		index: make(map[mgl32.Vec3]uint16),
	}

	verts := mesh.Vertices()
	indices := mesh.Indices()
	for i, area := range mesh.AreaTypes() {
		if area == AreaNull {
			continue
		}
		a := verts[indices[i*3]]
		c1 := verts[indices[i*3+1]]
		c2 := verts[indices[i*3+2]]

		n := c1.Sub(a).Cross(c2.Sub(a))
		if n.Len() == 0 || n.Normalize().Z() < minUp {
			continue
		}
		center := a.Add(c1).Add(c2).Mul(1.0 / 3)
		if !containsXY(inner, center) {
			continue
		}
		if err := b.addPoly(area, a, c1, c2); err != nil {
			return nil, err
		}
	}

	for _, w := range mesh.Water() {
		bounds := inner
		if w.CellSize != InfiniteWaterCellSize {
			bounds = intersectXY(inner, waterAABB(w.CellSize, w.Transform))
		}
		if bounds.Min.X() >= bounds.Max.X() || bounds.Min.Y() >= bounds.Max.Y() {
			continue
		}
		z := w.Transform.Origin.Z()
		p0 := mgl32.Vec3{bounds.Min.X(), bounds.Min.Y(), z}
		p1 := mgl32.Vec3{bounds.Max.X(), bounds.Min.Y(), z}
		p2 := mgl32.Vec3{bounds.Max.X(), bounds.Max.Y(), z}
		p3 := mgl32.Vec3{bounds.Min.X(), bounds.Max.Y(), z}
		if err := b.addPoly(AreaWater, p0, p1, p2, p3); err != nil {
			return nil, err
		}
	}

	if len(b.data.Polys) == 0 {
		return nil, nil
	}
	return b.data, nil
}

type tileDataBuilder struct {
	data  *TileData
	index map[mgl32.Vec3]uint16
}

func (b *tileDataBuilder) addPoly(area AreaType, points ...mgl32.Vec3) error {
	poly := Poly{Vertices: make([]uint16, 0, len(points)), Area: area}
	for _, p := range points {
		idx, ok := b.index[p]
		if !ok {
			if len(b.data.Vertices) > math.MaxUint16 {
				return fmt.Errorf("tile %d_%d exceeds %d vertices", b.data.X, b.data.Y, math.MaxUint16+1)
			}
			idx = uint16(len(b.data.Vertices))
			b.index[p] = idx
			b.data.Vertices = append(b.data.Vertices, p)
		}
		poly.Vertices = append(poly.Vertices, idx)
	}
	b.data.Polys = append(b.data.Polys, poly)
	return nil
}

func containsXY(b collision.AABB, p mgl32.Vec3) bool {
	return p.X() >= b.Min.X() && p.X() < b.Max.X() && p.Y() >= b.Min.Y() && p.Y() < b.Max.Y()
}

func intersectXY(a, b collision.AABB) collision.AABB {
	return collision.AABB{
		Min: mgl32.Vec3{max(a.Min.X(), b.Min.X()), max(a.Min.Y(), b.Min.Y()), a.Min.Z()},
		Max: mgl32.Vec3{min(a.Max.X(), b.Max.X()), min(a.Max.Y(), b.Max.Y()), a.Max.Z()},
	}
}

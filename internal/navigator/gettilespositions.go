package navigator

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/udisondev/navgo/internal/collision"
	"github.com/udisondev/navgo/internal/config"
)

// GetTilesPositions calls fn for every tile overlapped by aabb once it is
// inflated by the border. Order is X-major then Y, so identical input always
// yields an identical sequence.
func GetTilesPositions(aabb collision.AABB, s config.RecastSettings, fn func(TilePosition)) {
	if aabb.IsEmpty() {
		return
	}
	size := float64(GetTileSize(s))
	inflated := aabb.Inflate(GetBorderSize(s))

	minX := int32(math.Floor(float64(inflated.Min.X()) / size))
	minY := int32(math.Floor(float64(inflated.Min.Y()) / size))
	maxX := int32(math.Floor(float64(inflated.Max.X()) / size))
	maxY := int32(math.Floor(float64(inflated.Max.Y()) / size))

	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			fn(TilePosition{X: x, Y: y})
		}
	}
}

// TilesOverlapping returns the tiles a shape placed by transform contributes
// geometry to.
func TilesOverlapping(shape collision.Shape, transform collision.Transform, s config.RecastSettings) []TilePosition {
	var out []TilePosition
	GetTilesPositions(shape.AABB(transform), s, func(p TilePosition) {
		out = append(out, p)
	})
	return out
}

// waterAABB returns the bounds of a square water cell centered at the
// transform origin.
func waterAABB(cellSize int, transform collision.Transform) collision.AABB {
	half := float32(cellSize) / 2
	o := transform.Origin
	return collision.AABB{
		Min: mgl32.Vec3{o.X() - half, o.Y() - half, o.Z()},
		Max: mgl32.Vec3{o.X() + half, o.Y() + half, o.Z()},
	}
}

// GetWaterTilesPositions calls fn for every tile a finite water cell overlaps.
func GetWaterTilesPositions(cellSize int, transform collision.Transform, s config.RecastSettings, fn func(TilePosition)) {
	GetTilesPositions(waterAABB(cellSize, transform), s, fn)
}

package navigator

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/udisondev/navgo/internal/collision"
	"github.com/udisondev/navgo/internal/config"
)

// InfiniteWaterCellSize marks a water body covering the whole world.
const InfiniteWaterCellSize = math.MaxInt32

// GetTileSize returns the tile side length in world units.
func GetTileSize(s config.RecastSettings) float32 {
	return float32(s.TileSize) * s.CellSize
}

// GetBorderSize returns the border added around tiles in world units.
func GetBorderSize(s config.RecastSettings) float32 {
	return float32(s.BorderSize) * s.CellSize
}

// GetTilePosition returns the tile containing the world position.
func GetTilePosition(s config.RecastSettings, pos mgl32.Vec3) TilePosition {
	size := GetTileSize(s)
	return TilePosition{
		X: int32(math.Floor(float64(pos.X() / size))),
		Y: int32(math.Floor(float64(pos.Y() / size))),
	}
}

// GetTileBounds returns the X/Y bounds of a tile without border.
func GetTileBounds(s config.RecastSettings, tile TilePosition) collision.AABB {
	size := GetTileSize(s)
	inf := float32(math.Inf(1))
	return collision.AABB{
		Min: mgl32.Vec3{float32(tile.X) * size, float32(tile.Y) * size, -inf},
		Max: mgl32.Vec3{float32(tile.X+1) * size, float32(tile.Y+1) * size, inf},
	}
}

// GetRealTileBounds returns the tile bounds inflated by the border,
// i.e. the region whose geometry a tile build sees.
func GetRealTileBounds(s config.RecastSettings, tile TilePosition) collision.AABB {
	return GetTileBounds(s, tile).Inflate(GetBorderSize(s))
}

// Package navigator maintains navigation meshes for a world whose collision
// geometry keeps changing.
//
// Collision objects are registered in a tiled geometry cache
// (TileCachedRecastMeshManager). Every change reports the tiles it touched;
// those tiles are posted to an AsyncNavMeshUpdater which rebuilds them on a
// background goroutine, nearest to the player first, into a shared
// NavMeshCacheItem per agent size. Navigator ties the two together for the
// simulation loop.
package navigator

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// TilePosition is a cell of the navigation tile grid on the X/Y plane.
type TilePosition struct {
	X, Y int32
}

// Less orders tile positions lexicographically.
func (p TilePosition) Less(o TilePosition) bool {
	if p.X != o.X {
		return p.X < o.X
	}
	return p.Y < o.Y
}

// String returns a filename safe representation "x_y".
func (p TilePosition) String() string {
	return fmt.Sprintf("%d_%d", p.X, p.Y)
}

// manhattan returns the Manhattan distance between two tiles.
func manhattan(a, b TilePosition) int {
	return abs(int(a.X)-int(b.X)) + abs(int(a.Y)-int(b.Y))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// CellPosition identifies a world cell owning a water body.
type CellPosition struct {
	X, Y int32
}

// ObjectID identifies a dynamic collision object. Never reused while tracked.
type ObjectID uint64

// AgentHalfExtents is the collision half size of an agent class.
// Each distinct value gets its own navigation mesh.
type AgentHalfExtents = mgl32.Vec3

// AreaType classifies navigable surface.
type AreaType uint8

const (
	AreaNull     AreaType = 0
	AreaWater    AreaType = 1
	AreaDoor     AreaType = 2
	AreaPathgrid AreaType = 3
	AreaGround   AreaType = 63
)

func (a AreaType) String() string {
	switch a {
	case AreaNull:
		return "null"
	case AreaWater:
		return "water"
	case AreaDoor:
		return "door"
	case AreaPathgrid:
		return "pathgrid"
	case AreaGround:
		return "ground"
	default:
		return fmt.Sprintf("area(%d)", uint8(a))
	}
}

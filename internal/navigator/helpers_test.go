package navigator

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/udisondev/navgo/internal/collision"
	"github.com/udisondev/navgo/internal/config"
)

// testSettings uses 16×16 tiles with a 4 unit border.
func testSettings() config.Navigator {
	s := config.DefaultNavigator()
	s.Updater.JobWaitTimeout = 2 * time.Millisecond
	return s
}

// tileCenter returns the world position of the middle of a tile at height z.
func tileCenter(tile TilePosition, z float32) mgl32.Vec3 {
	size := GetTileSize(config.DefaultRecastSettings())
	return mgl32.Vec3{(float32(tile.X) + 0.5) * size, (float32(tile.Y) + 0.5) * size, z}
}

// floorAt returns a flat walkable box transform centered in a tile.
func floorAt(tile TilePosition) collision.Transform {
	return collision.Translation(tileCenter(tile, 0))
}

func newFloor() *collision.Box {
	return collision.NewBox(mgl32.Vec3{1, 2, 3})
}

package sim

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/udisondev/navgo/internal/collision"
	"github.com/udisondev/navgo/internal/config"
	"github.com/udisondev/navgo/internal/navigator"
)

// Object ids of the static scene. Dynamic objects start at firstDynamicID.
const (
	groundID navigator.ObjectID = iota + 1
	wallsID
	firstDynamicID navigator.ObjectID = 100
)

// Scene is the populated world.
type Scene struct {
	Player      *Player
	Controllers []Controller
	Crates      []*Crate
	Doors       []*Door
}

// Populate fills world with a square ground of s.WorldTiles tiles per side,
// a ring of walls, a pond, doors and s.Objects crates placed from s.Seed.
// Identical settings always yield an identical scene.
func Populate(world World, recast config.RecastSettings, s config.SimSettings) *Scene {
	tileSize := navigator.GetTileSize(recast)
	extent := tileSize * float32(s.WorldTiles)
	center := mgl32.Vec3{extent / 2, extent / 2, 0}

	world.AddObject(groundID, groundMesh(s.WorldTiles, tileSize), collision.Identity(), navigator.AreaGround)
	world.AddObject(wallsID, wallsMesh(extent), collision.Identity(), navigator.AreaNull)

	pond := collision.Translation(mgl32.Vec3{tileSize, tileSize, -0.5})
	world.AddWater(navigator.CellPosition{X: 0, Y: 0}, int(tileSize), pond)

	scene := &Scene{
		Player: NewPlayer(center, extent/3, 0.5),
	}
	scene.Controllers = append(scene.Controllers, scene.Player)

	id := firstDynamicID
	for i := range 4 {
		// one door in the middle of every quadrant
		x := float32(i%2)*extent/2 + extent/4
		y := float32(i/2)*extent/2 + extent/4
		door := NewDoor(world, id, mgl32.Vec3{x, y, 0}, 2, time.Duration(2+i)*time.Second)
		scene.Doors = append(scene.Doors, door)
		scene.Controllers = append(scene.Controllers, door)
		id++
	}

	rng := rand.New(rand.NewPCG(uint64(s.Seed), uint64(s.Seed)^0x9e3779b97f4a7c15))
	for range s.Objects {
		from := mgl32.Vec3{rng.Float32() * extent, rng.Float32() * extent, 0.5}
		to := mgl32.Vec3{rng.Float32() * extent, rng.Float32() * extent, 0.5}
		period := time.Duration(2+rng.IntN(8)) * time.Second
		crate := NewCrate(world, id, mgl32.Vec3{0.5, 0.5, 0.5}, from, to, period)
		scene.Crates = append(scene.Crates, crate)
		scene.Controllers = append(scene.Controllers, crate)
		id++
	}

	slog.Info("scene populated",
		"world_tiles", s.WorldTiles,
		"doors", len(scene.Doors),
		"crates", len(scene.Crates))

	return scene
}

// groundMesh builds a flat plane with two triangles per tile.
func groundMesh(tiles int, tileSize float32) *collision.TriangleMesh {
	n := tiles + 1
	vertices := make([]mgl32.Vec3, 0, n*n)
	for y := range n {
		for x := range n {
			vertices = append(vertices, mgl32.Vec3{float32(x) * tileSize, float32(y) * tileSize, 0})
		}
	}

	indices := make([]int32, 0, tiles*tiles*6)
	for y := range tiles {
		for x := range tiles {
			a := int32(y*n + x)
			b := a + 1
			c := a + int32(n)
			d := c + 1
			indices = append(indices, a, b, d, a, d, c)
		}
	}
	return collision.NewTriangleMesh(vertices, indices)
}

// wallsMesh builds four vertical walls around the ground.
func wallsMesh(extent float32) *collision.TriangleMesh {
	const height = 3
	corners := []mgl32.Vec3{{0, 0, 0}, {extent, 0, 0}, {extent, extent, 0}, {0, extent, 0}}

	var vertices []mgl32.Vec3
	var indices []int32
	for i, a := range corners {
		b := corners[(i+1)%len(corners)]
		base := int32(len(vertices))
		vertices = append(vertices, a, b, b.Add(mgl32.Vec3{0, 0, height}), a.Add(mgl32.Vec3{0, 0, height}))
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	return collision.NewTriangleMesh(vertices, indices)
}

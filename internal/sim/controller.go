// Package sim drives a small deterministic world for the navigator: a ground
// plane, walls, water, doors that swing and crates that slide, plus a player
// walking in a circle. It exists to exercise the navigation mesh pipeline
// the way a game frame loop would.
package sim

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/udisondev/navgo/internal/collision"
	"github.com/udisondev/navgo/internal/navigator"
)

// Controller advances one simulated entity by a fixed frame time.
type Controller interface {
	Tick(elapsed time.Duration)
}

// World is the part of the navigator the simulation mutates.
type World interface {
	AddObject(id navigator.ObjectID, shape collision.Shape, transform collision.Transform, areaType navigator.AreaType) bool
	UpdateObject(id navigator.ObjectID, shape collision.Shape, transform collision.Transform, areaType navigator.AreaType) bool
	AddWater(cell navigator.CellPosition, cellSize int, transform collision.Transform) bool
	Update(playerPosition mgl32.Vec3)
}

var _ World = (*navigator.Navigator)(nil)

// Crate slides back and forth between two points.
type Crate struct {
	world  World
	id     navigator.ObjectID
	shape  *collision.Box
	from   mgl32.Vec3
	to     mgl32.Vec3
	period time.Duration
	t      time.Duration
}

// NewCrate creates a crate at from and registers it in the world.
func NewCrate(world World, id navigator.ObjectID, halfExtents, from, to mgl32.Vec3, period time.Duration) *Crate {
	if period <= 0 {
		period = time.Second
	}
	c := &Crate{
		world:  world,
		id:     id,
		shape:  collision.NewBox(halfExtents),
		from:   from,
		to:     to,
		period: period,
	}
	world.AddObject(id, c.shape, collision.Translation(from), navigator.AreaGround)
	return c
}

// Position returns the current crate center.
func (c *Crate) Position() mgl32.Vec3 {
	// triangle wave 0 → 1 → 0 over one period
	phase := float32(c.t%c.period) / float32(c.period)
	k := 2 * phase
	if k > 1 {
		k = 2 - k
	}
	return c.from.Add(c.to.Sub(c.from).Mul(k))
}

// Tick implements Controller.
func (c *Crate) Tick(elapsed time.Duration) {
	c.t += elapsed
	c.world.UpdateObject(c.id, c.shape, collision.Translation(c.Position()), navigator.AreaGround)
}

// Door is a compound object whose panel swings open and closed.
type Door struct {
	world     World
	id        navigator.ObjectID
	shape     *collision.Compound
	transform collision.Transform
	closed    collision.Transform
	opened    collision.Transform
	period    time.Duration
	t         time.Duration
	open      bool
}

// NewDoor creates a closed door at origin and registers it in the world.
// The panel swings around the hinge every period.
func NewDoor(world World, id navigator.ObjectID, origin mgl32.Vec3, width float32, period time.Duration) *Door {
	if period <= 0 {
		period = time.Second
	}
	half := width / 2
	panel := collision.NewBox(mgl32.Vec3{half, 0.1, 1.5})

	d := &Door{
		world:     world,
		id:        id,
		shape:     collision.NewCompound(),
		transform: collision.Translation(origin),
		closed:    collision.Translation(mgl32.Vec3{half, 0, 1.5}),
		period:    period,
	}
	// rotated 90 degrees around the hinge at the local origin
	d.opened = collision.NewTransform(
		mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1}),
		mgl32.Vec3{0, half, 1.5},
	)
	d.shape.AddChild(d.closed, panel)
	world.AddObject(id, d.shape, d.transform, navigator.AreaDoor)
	return d
}

// Open reports whether the door is open.
func (d *Door) Open() bool {
	return d.open
}

// Tick implements Controller.
func (d *Door) Tick(elapsed time.Duration) {
	d.t += elapsed
	open := (d.t/d.period)%2 == 1
	if open == d.open {
		return
	}
	d.open = open
	if open {
		d.shape.UpdateChildTransform(0, d.opened)
	} else {
		d.shape.UpdateChildTransform(0, d.closed)
	}
	d.world.UpdateObject(d.id, d.shape, d.transform, navigator.AreaDoor)
}

// Player walks a circle around center.
type Player struct {
	center mgl32.Vec3
	radius float32
	speed  float32 // radians per second
	t      time.Duration
}

// NewPlayer creates a player walking a circle.
func NewPlayer(center mgl32.Vec3, radius, speed float32) *Player {
	return &Player{center: center, radius: radius, speed: speed}
}

// Tick implements Controller.
func (p *Player) Tick(elapsed time.Duration) {
	p.t += elapsed
}

// Position returns the player position.
func (p *Player) Position() mgl32.Vec3 {
	angle := p.speed * float32(p.t.Seconds())
	return p.center.Add(mgl32.Vec3{
		p.radius * float32(math.Cos(float64(angle))),
		p.radius * float32(math.Sin(float64(angle))),
		0,
	})
}

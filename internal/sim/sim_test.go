package sim

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/udisondev/navgo/internal/collision"
	"github.com/udisondev/navgo/internal/config"
	"github.com/udisondev/navgo/internal/navigator"
	"github.com/udisondev/navgo/internal/testutil"
)

type fakeWorld struct {
	mu        sync.Mutex
	objects   map[navigator.ObjectID]collision.Transform
	areas     map[navigator.ObjectID]navigator.AreaType
	updates   map[navigator.ObjectID]int
	water     int
	positions []mgl32.Vec3
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		objects: make(map[navigator.ObjectID]collision.Transform),
		areas:   make(map[navigator.ObjectID]navigator.AreaType),
		updates: make(map[navigator.ObjectID]int),
	}
}

func (w *fakeWorld) AddObject(id navigator.ObjectID, _ collision.Shape, transform collision.Transform, areaType navigator.AreaType) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.objects[id] = transform
	w.areas[id] = areaType
	return true
}

func (w *fakeWorld) UpdateObject(id navigator.ObjectID, _ collision.Shape, transform collision.Transform, _ navigator.AreaType) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.objects[id] = transform
	w.updates[id]++
	return true
}

func (w *fakeWorld) AddWater(navigator.CellPosition, int, collision.Transform) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.water++
	return true
}

func (w *fakeWorld) Update(playerPosition mgl32.Vec3) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.positions = append(w.positions, playerPosition)
}

func TestCrate_SlidesBackAndForth(t *testing.T) {
	w := newFakeWorld()
	from := mgl32.Vec3{0, 0, 0}
	to := mgl32.Vec3{10, 0, 0}
	crate := NewCrate(w, 7, mgl32.Vec3{1, 1, 1}, from, to, 2*time.Second)

	if got := w.objects[7]; got != collision.Translation(from) {
		t.Fatalf("initial transform = %v, want translation to %v", got, from)
	}

	crate.Tick(time.Second)
	if got := crate.Position(); got != to {
		t.Errorf("Position() after half period = %v, want %v", got, to)
	}
	if got := w.objects[7]; got != collision.Translation(to) {
		t.Errorf("world transform after half period = %v, want %v", got, to)
	}

	crate.Tick(time.Second)
	if got := crate.Position(); got != from {
		t.Errorf("Position() after full period = %v, want %v", got, from)
	}
	if w.updates[7] != 2 {
		t.Errorf("updates = %d, want 2", w.updates[7])
	}
}

func TestDoor_Swings(t *testing.T) {
	w := newFakeWorld()
	door := NewDoor(w, 3, mgl32.Vec3{5, 5, 0}, 2, time.Second)

	if w.areas[3] != navigator.AreaDoor {
		t.Fatalf("door area = %v, want %v", w.areas[3], navigator.AreaDoor)
	}

	door.Tick(500 * time.Millisecond)
	if door.Open() || w.updates[3] != 0 {
		t.Fatalf("door changed before its period: open=%v updates=%d", door.Open(), w.updates[3])
	}

	door.Tick(500 * time.Millisecond)
	if !door.Open() {
		t.Fatal("door should be open after one period")
	}
	if w.updates[3] != 1 {
		t.Errorf("updates = %d, want 1", w.updates[3])
	}
	if got := door.shape.ChildTransform(0); got != door.opened {
		t.Errorf("child transform = %v, want opened %v", got, door.opened)
	}

	door.Tick(time.Second)
	if door.Open() {
		t.Error("door should be closed after two periods")
	}
	if got := door.shape.ChildTransform(0); got != door.closed {
		t.Errorf("child transform = %v, want closed %v", got, door.closed)
	}
	if w.updates[3] != 2 {
		t.Errorf("updates = %d, want 2", w.updates[3])
	}
}

func TestPlayer_WalksCircle(t *testing.T) {
	p := NewPlayer(mgl32.Vec3{10, 10, 0}, 5, 1)
	if got := p.Position(); got != (mgl32.Vec3{15, 10, 0}) {
		t.Errorf("Position() at start = %v, want {15 10 0}", got)
	}

	p.Tick(time.Second)
	got := p.Position()
	if d := got.Sub(mgl32.Vec3{10, 10, 0}).Len(); d < 4.999 || d > 5.001 {
		t.Errorf("distance from center = %v, want 5", d)
	}
}

func TestPopulate(t *testing.T) {
	s := config.DefaultNavigator().Sim
	s.Objects = 5

	w := newFakeWorld()
	scene := Populate(w, config.DefaultRecastSettings(), s)

	if len(scene.Crates) != 5 {
		t.Errorf("crates = %d, want 5", len(scene.Crates))
	}
	if len(scene.Doors) != 4 {
		t.Errorf("doors = %d, want 4", len(scene.Doors))
	}
	// ground + walls + doors + crates
	if want := 2 + 4 + 5; len(w.objects) != want {
		t.Errorf("objects = %d, want %d", len(w.objects), want)
	}
	if w.areas[wallsID] != navigator.AreaNull {
		t.Errorf("walls area = %v, want null", w.areas[wallsID])
	}
	if w.water != 1 {
		t.Errorf("water bodies = %d, want 1", w.water)
	}
	if len(scene.Controllers) != 1+4+5 {
		t.Errorf("controllers = %d, want %d", len(scene.Controllers), 1+4+5)
	}
}

func TestPopulate_IsDeterministic(t *testing.T) {
	s := config.DefaultNavigator().Sim

	first := Populate(newFakeWorld(), config.DefaultRecastSettings(), s)
	second := Populate(newFakeWorld(), config.DefaultRecastSettings(), s)

	for i := range first.Crates {
		if first.Crates[i].from != second.Crates[i].from || first.Crates[i].to != second.Crates[i].to {
			t.Fatalf("crate %d differs between runs with the same seed", i)
		}
	}

	s.Seed++
	third := Populate(newFakeWorld(), config.DefaultRecastSettings(), s)
	if first.Crates[0].from == third.Crates[0].from {
		t.Error("a different seed should move the crates")
	}
}

func TestGroundMesh(t *testing.T) {
	mesh := groundMesh(2, 16)
	if len(mesh.Vertices) != 9 {
		t.Errorf("vertices = %d, want 9", len(mesh.Vertices))
	}
	if len(mesh.Indices) != 2*2*6 {
		t.Errorf("indices = %d, want 24", len(mesh.Indices))
	}

	box := mesh.AABB(collision.Identity())
	if box.Max != (mgl32.Vec3{32, 32, 0}) {
		t.Errorf("AABB max = %v, want {32 32 0}", box.Max)
	}
}

func TestTickManager_Tick(t *testing.T) {
	w := newFakeWorld()
	scene := &Scene{Player: NewPlayer(mgl32.Vec3{0, 0, 0}, 1, 0)}
	scene.Controllers = append(scene.Controllers, scene.Player)
	mgr := NewTickManager(w, scene, 50*time.Millisecond)

	crate := NewCrate(w, 1, mgl32.Vec3{1, 1, 1}, mgl32.Vec3{}, mgl32.Vec3{1, 0, 0}, time.Second)
	mgr.Register(crate)

	mgr.Tick()
	mgr.Tick()

	if mgr.Ticks() != 2 {
		t.Errorf("Ticks() = %d, want 2", mgr.Ticks())
	}
	if len(w.positions) != 2 {
		t.Fatalf("world updates = %d, want 2", len(w.positions))
	}
	if w.positions[0] != (mgl32.Vec3{1, 0, 0}) {
		t.Errorf("player position = %v, want {1 0 0}", w.positions[0])
	}
	if w.updates[1] != 2 {
		t.Errorf("crate updates = %d, want 2", w.updates[1])
	}
}

func TestTickManager_Start(t *testing.T) {
	w := newFakeWorld()
	scene := &Scene{Player: NewPlayer(mgl32.Vec3{}, 1, 1)}
	mgr := NewTickManager(w, scene, time.Millisecond)

	t.Run("stop", func(t *testing.T) {
		done := make(chan error, 1)
		go func() { done <- mgr.Start(context.Background()) }()

		deadline := time.Now().Add(5 * time.Second)
		for mgr.Ticks() < 3 && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		mgr.Stop()
		mgr.Stop()

		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Start() after Stop() = %v, want nil", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Start() did not return after Stop()")
		}
		if mgr.Ticks() < 3 {
			t.Errorf("Ticks() = %d, want at least 3", mgr.Ticks())
		}
	})

	t.Run("context canceled", func(t *testing.T) {
		mgr := NewTickManager(w, scene, time.Millisecond)
		ctx, cancel := testutil.ContextWithCancel(t)
		cancel()
		if err := mgr.Start(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("Start() = %v, want context.Canceled", err)
		}
	})
}

func TestScene_BuildsNavMesh(t *testing.T) {
	settings := config.DefaultNavigator()
	settings.Updater.JobWaitTimeout = 2 * time.Millisecond
	settings.Sim.WorldTiles = 2
	settings.Sim.Objects = 2

	nav := navigator.NewNavigator(settings)
	defer nav.Close()
	agent := navigator.AgentHalfExtents{0.3, 0.3, 0.9}
	nav.AddAgent(agent)

	scene := Populate(nav, settings.Recast, settings.Sim)
	mgr := NewTickManager(nav, scene, settings.Sim.TickInterval)
	for range 10 {
		mgr.Tick()
	}
	nav.Wait()

	item, ok := nav.NavMesh(agent)
	if !ok {
		t.Fatal("agent navmesh missing")
	}
	var tiles int
	item.Read(func(it *navigator.NavMeshCacheItem) {
		tiles = it.NavMesh.TileCount()
	})
	if tiles == 0 {
		t.Error("expected navmesh tiles after simulating the scene")
	}
	if stats := nav.Stats(); stats.Processed == 0 {
		t.Errorf("processed = %d, want > 0", stats.Processed)
	}
}

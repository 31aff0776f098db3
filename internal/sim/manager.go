package sim

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// TickManager runs the simulation frame loop: every tick advances all
// controllers by the tick interval and reports the player position to the world.
type TickManager struct {
	world    World
	player   *Player
	interval time.Duration
	mu       sync.Mutex // serializes ticks with Register
	controls []Controller
	ticks    atomic.Uint64
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewTickManager creates a tick manager for scene.
func NewTickManager(world World, scene *Scene, interval time.Duration) *TickManager {
	m := &TickManager{
		world:    world,
		player:   scene.Player,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
	for _, c := range scene.Controllers {
		m.Register(c)
	}
	return m
}

// Register adds a controller ticked from the next frame on.
func (m *TickManager) Register(c Controller) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.controls = append(m.controls, c)
}

// Start runs the tick loop (blocks until context is canceled or Stop is called).
func (m *TickManager) Start(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	slog.Info("sim tick manager started", "interval", m.interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("sim tick manager stopping", "ticks", m.Ticks())
			return ctx.Err()

		case <-m.stopCh:
			slog.Info("sim tick manager stopped", "ticks", m.Ticks())
			return nil

		case <-ticker.C:
			m.Tick()
		}
	}
}

// Stop stops the tick loop. Safe to call more than once.
func (m *TickManager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
}

// Tick advances the simulation by one frame.
func (m *TickManager) Tick() {
	m.mu.Lock()
	for _, c := range m.controls {
		c.Tick(m.interval)
	}
	m.mu.Unlock()

	if m.player != nil {
		m.world.Update(m.player.Position())
	}

	n := m.ticks.Add(1)
	if n%100 == 0 {
		slog.Debug("sim tick", "ticks", n)
	}
}

// Ticks returns the number of frames simulated.
func (m *TickManager) Ticks() uint64 {
	return m.ticks.Load()
}

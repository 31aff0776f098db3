package navigator

import (
	"log/slog"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/udisondev/navgo/internal/collision"
	"github.com/udisondev/navgo/internal/config"
)

// Navigator is the simulation facing entry point. It owns the tile geometry
// cache and the updater, keeps one navigation mesh per registered agent size
// and turns geometry edits into rebuild jobs on Update.
//
// Mutating methods and Update are meant to be called from the simulation
// goroutine. NavMesh results may be read from anywhere.
type Navigator struct {
	settings          config.Navigator
	recastMeshManager *TileCachedRecastMeshManager
	updater           *AsyncNavMeshUpdater

	mu         sync.Mutex
	agents     map[AgentHalfExtents]*agentState
	generation uint64
}

type agentState struct {
	refs           int
	cache          *SharedNavMeshCacheItem
	changedTiles   map[TilePosition]struct{}
	lastRevision   uint64
	lastPlayerTile TilePosition
	hasPlayerTile  bool
}

// NewNavigator creates a navigator and starts its updater.
func NewNavigator(settings config.Navigator, opts ...UpdaterOption) *Navigator {
	manager := NewTileCachedRecastMeshManager(settings.Recast)
	return &Navigator{
		settings:          settings,
		recastMeshManager: manager,
		updater:           NewAsyncNavMeshUpdater(settings, manager, opts...),
		agents:            make(map[AgentHalfExtents]*agentState),
	}
}

// AddAgent registers an agent size. Agents are reference counted; the mesh
// is kept until every AddAgent is matched by RemoveAgent.
func (n *Navigator) AddAgent(agent AgentHalfExtents) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if state, ok := n.agents[agent]; ok {
		state.refs++
		return
	}
	n.generation++
	n.agents[agent] = &agentState{
		refs:         1,
		cache:        NewSharedNavMeshCacheItem(n.generation),
		changedTiles: make(map[TilePosition]struct{}),
	}
	slog.Debug("navigator agent added", "agent", agent, "generation", n.generation)
}

// RemoveAgent drops one reference to an agent size. Returns false for unknown agents.
func (n *Navigator) RemoveAgent(agent AgentHalfExtents) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	state, ok := n.agents[agent]
	if !ok {
		return false
	}
	state.refs--
	if state.refs == 0 {
		delete(n.agents, agent)
		slog.Debug("navigator agent removed", "agent", agent)
	}
	return true
}

// AddObject registers a collision object.
func (n *Navigator) AddObject(id ObjectID, shape collision.Shape, transform collision.Transform, areaType AreaType) bool {
	if !n.recastMeshManager.AddObject(id, shape, transform, areaType) {
		return false
	}
	tiles, _ := n.recastMeshManager.ObjectTiles(id)
	n.addChangedTiles(tiles)
	return true
}

// UpdateObject moves or reshapes a registered object.
func (n *Navigator) UpdateObject(id ObjectID, shape collision.Shape, transform collision.Transform, areaType AreaType) bool {
	var changed []TilePosition
	result := n.recastMeshManager.UpdateObject(id, shape, transform, areaType, func(p TilePosition) {
		changed = append(changed, p)
	})
	n.addChangedTiles(changed)
	return result
}

// RemoveObject unregisters a collision object.
func (n *Navigator) RemoveObject(id ObjectID) bool {
	tiles, ok := n.recastMeshManager.ObjectTiles(id)
	if !ok {
		return false
	}
	if _, ok := n.recastMeshManager.RemoveObject(id); !ok {
		return false
	}
	n.addChangedTiles(tiles)
	return true
}

// AddWater registers static water of a world cell.
func (n *Navigator) AddWater(cell CellPosition, cellSize int, transform collision.Transform) bool {
	if !n.recastMeshManager.AddWater(cell, cellSize, transform) {
		return false
	}
	tiles, _ := n.recastMeshManager.WaterTiles(cell)
	n.addChangedTiles(tiles)
	return true
}

// RemoveWater unregisters the water of a world cell.
func (n *Navigator) RemoveWater(cell CellPosition) bool {
	tiles, ok := n.recastMeshManager.WaterTiles(cell)
	if !ok {
		return false
	}
	if _, ok := n.recastMeshManager.RemoveWater(cell); !ok {
		return false
	}
	n.addChangedTiles(tiles)
	return true
}

// Update posts rebuild jobs for every agent: tiles changed since the last
// call, plus tiles entering or leaving the max tiles radius when the player
// moved to another tile.
func (n *Navigator) Update(playerPosition mgl32.Vec3) {
	playerTile := GetTilePosition(n.settings.Recast, playerPosition)
	revision := n.recastMeshManager.Revision()

	n.mu.Lock()
	defer n.mu.Unlock()

	for agent, state := range n.agents {
		if state.hasPlayerTile && state.lastPlayerTile == playerTile &&
			state.lastRevision >= revision && len(state.changedTiles) == 0 {
			// still notify the updater about the reference point
			n.updater.Post(agent, state.cache, playerTile, nil)
			continue
		}
		state.lastRevision = revision
		state.lastPlayerTile = playerTile
		state.hasPlayerTile = true

		tilesToPost := make([]TilePosition, 0, len(state.changedTiles))
		for p := range state.changedTiles {
			tilesToPost = append(tilesToPost, p)
		}

		n.recastMeshManager.ForEachTilePosition(func(p TilePosition) {
			if _, ok := state.changedTiles[p]; ok {
				return
			}
			shouldAdd := shouldAddTile(p, playerTile, n.settings.Recast.MaxTilesNumber)
			present := state.cache.HasTile(p)
			if shouldAdd != present {
				tilesToPost = append(tilesToPost, p)
			}
		})

		n.updater.Post(agent, state.cache, playerTile, tilesToPost)
		clear(state.changedTiles)
	}
}

// Wait blocks until all posted jobs are processed.
func (n *Navigator) Wait() {
	n.updater.Wait()
}

// NavMesh returns the navigation mesh of an agent size.
func (n *Navigator) NavMesh(agent AgentHalfExtents) (*SharedNavMeshCacheItem, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	state, ok := n.agents[agent]
	if !ok {
		return nil, false
	}
	return state.cache, true
}

// RecastMeshManager exposes the tile geometry cache.
func (n *Navigator) RecastMeshManager() *TileCachedRecastMeshManager {
	return n.recastMeshManager
}

// Stats returns the updater statistics.
func (n *Navigator) Stats() UpdaterStats {
	return n.updater.Stats()
}

// Close stops the updater. Pending jobs are discarded.
func (n *Navigator) Close() {
	n.updater.Close()
}

func (n *Navigator) addChangedTiles(tiles []TilePosition) {
	if len(tiles) == 0 {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, state := range n.agents {
		for _, p := range tiles {
			state.changedTiles[p] = struct{}{}
		}
	}
}

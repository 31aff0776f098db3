package navigator

import "sync"

// NavMeshCacheItem is the navigation mesh of one agent size together with
// its version counters.
//
// Generation changes when the mesh gets a new structure (a tile appears);
// consumers should drop anything derived from it. NavMeshRevision changes on
// in-place refreshes (a tile is rebuilt or dropped).
type NavMeshCacheItem struct {
	NavMesh         *NavMesh
	Generation      uint64
	NavMeshRevision uint64
}

// SharedNavMeshCacheItem guards a NavMeshCacheItem shared between the
// updater and pathfinding consumers.
type SharedNavMeshCacheItem struct {
	mu   sync.RWMutex
	item NavMeshCacheItem
}

// NewSharedNavMeshCacheItem creates an item holding an empty mesh.
func NewSharedNavMeshCacheItem(generation uint64) *SharedNavMeshCacheItem {
	return &SharedNavMeshCacheItem{
		item: NavMeshCacheItem{
			NavMesh:    NewNavMesh(),
			Generation: generation,
		},
	}
}

// Update runs fn with exclusive access.
func (s *SharedNavMeshCacheItem) Update(fn func(*NavMeshCacheItem)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.item)
}

// Read runs fn with shared access. fn must not modify the item.
func (s *SharedNavMeshCacheItem) Read(fn func(*NavMeshCacheItem)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&s.item)
}

// Generation returns the current generation.
func (s *SharedNavMeshCacheItem) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.item.Generation
}

// Revision returns the current nav mesh revision.
func (s *SharedNavMeshCacheItem) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.item.NavMeshRevision
}

// HasTile reports whether the mesh contains a tile.
func (s *SharedNavMeshCacheItem) HasTile(p TilePosition) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.item.NavMesh.HasTile(p)
}

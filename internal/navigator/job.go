package navigator

// JobPriority orders jobs: closer to the player first, then closer to the
// grid origin. Computed once when the job is queued.
type JobPriority struct {
	PlayerDistance int
	OriginDistance int
}

func makePriority(changedTile, playerTile TilePosition) JobPriority {
	return JobPriority{
		PlayerDistance: manhattan(changedTile, playerTile),
		OriginDistance: manhattan(changedTile, TilePosition{}),
	}
}

func (p JobPriority) less(o JobPriority) bool {
	if p.PlayerDistance != o.PlayerDistance {
		return p.PlayerDistance < o.PlayerDistance
	}
	return p.OriginDistance < o.OriginDistance
}

// Job is a pending rebuild of one tile for one agent size.
type Job struct {
	Agent            AgentHalfExtents
	NavMeshCacheItem *SharedNavMeshCacheItem
	ChangedTile      TilePosition
	Priority         JobPriority

	seq uint64 // FIFO among equal priorities
}

// jobQueue implements container/heap (min-heap by priority).
type jobQueue []*Job

func (q jobQueue) Len() int { return len(q) }
func (q jobQueue) Less(i, j int) bool {
	if q[i].Priority != q[j].Priority {
		return q[i].Priority.less(q[j].Priority)
	}
	return q[i].seq < q[j].seq
}
func (q jobQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *jobQueue) Push(x any)   { *q = append(*q, x.(*Job)) }
func (q *jobQueue) Pop() any {
	old := *q
	n := len(old)
	job := old[n-1]
	old[n-1] = nil // GC
	*q = old[:n-1]
	return job
}

package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/navgo/internal/navigator"
)

// TileRepository implements navigator.TileStore backed by PostgreSQL.
// Tile data is stored msgpack encoded; rows are keyed by agent size, tile
// position and the digest of the geometry the tile was baked from.
type TileRepository struct {
	pool *pgxpool.Pool
}

// Compile-time check.
var _ navigator.TileStore = (*TileRepository)(nil)

// NewTileRepository creates a new tile repository.
func NewTileRepository(pool *pgxpool.Pool) *TileRepository {
	return &TileRepository{pool: pool}
}

// FindTile returns the baked tile for key and marks it as used.
// Returns nil, false, nil if there is no such tile.
func (r *TileRepository) FindTile(ctx context.Context, key navigator.TileKey) (*navigator.TileData, bool, error) {
	var blob []byte
	err := r.pool.QueryRow(ctx,
		`UPDATE navmesh_tiles SET used_at = now()
		 WHERE agent_x = $1 AND agent_y = $2 AND agent_z = $3
		   AND tile_x = $4 AND tile_y = $5 AND digest = $6
		 RETURNING data`,
		key.Agent.X(), key.Agent.Y(), key.Agent.Z(),
		key.Tile.X, key.Tile.Y, key.Digest[:],
	).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying navmesh tile %s: %w", key.Tile, err)
	}

	data, err := navigator.DecodeTileData(blob)
	if err != nil {
		return nil, false, fmt.Errorf("navmesh tile %s: %w", key.Tile, err)
	}
	return data, true, nil
}

// SaveTile stores the baked tile for key, replacing an existing row.
func (r *TileRepository) SaveTile(ctx context.Context, key navigator.TileKey, data *navigator.TileData) error {
	blob, err := navigator.EncodeTileData(data)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO navmesh_tiles (agent_x, agent_y, agent_z, tile_x, tile_y, digest, data)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (agent_x, agent_y, agent_z, tile_x, tile_y, digest)
		 DO UPDATE SET data = EXCLUDED.data, used_at = now()`,
		key.Agent.X(), key.Agent.Y(), key.Agent.Z(),
		key.Tile.X, key.Tile.Y, key.Digest[:], blob,
	)
	if err != nil {
		return fmt.Errorf("saving navmesh tile %s: %w", key.Tile, err)
	}
	return nil
}

// DeleteUnusedSince removes tiles not read or written since before.
// Returns the number of removed rows.
func (r *TileRepository) DeleteUnusedSince(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM navmesh_tiles WHERE used_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("deleting unused navmesh tiles: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Count returns the number of stored tiles.
func (r *TileRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM navmesh_tiles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting navmesh tiles: %w", err)
	}
	return n, nil
}

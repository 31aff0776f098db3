package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Navigator holds all configuration for the navigation mesh pipeline.
type Navigator struct {
	LogLevel string `yaml:"log_level"` // debug, info, warn, error

	Recast  RecastSettings  `yaml:"recast"`
	Updater UpdaterSettings `yaml:"updater"`
	Debug   DebugSettings   `yaml:"debug"`
	Sim     SimSettings     `yaml:"sim"`

	// Persistent tile cache
	NavMeshDB NavMeshDBSettings `yaml:"navmeshdb"`
	Database  DatabaseConfig    `yaml:"database"`
}

// RecastSettings describes the tile grid and the geometry fed to mesh baking.
type RecastSettings struct {
	CellSize       float32 `yaml:"cell_size"`   // world units per voxel on X/Y
	CellHeight     float32 `yaml:"cell_height"` // world units per voxel on Z
	TileSize       int     `yaml:"tile_size"`   // cells per tile side
	BorderSize     int     `yaml:"border_size"` // cells of neighbour geometry seen by a tile
	MaxSlope       float32 `yaml:"max_slope"`   // degrees
	MaxTilesNumber int     `yaml:"max_tiles_number"`
}

// UpdaterSettings tunes the background job worker.
type UpdaterSettings struct {
	JobWaitTimeout time.Duration `yaml:"job_wait_timeout"` // bounded worker wait (default: 10ms)
}

// DebugSettings controls debug dumps written by the worker.
type DebugSettings struct {
	EnableWriteRecastMeshToFile      bool   `yaml:"enable_write_recast_mesh_to_file"`
	EnableWriteNavMeshToFile         bool   `yaml:"enable_write_nav_mesh_to_file"`
	RecastMeshPathPrefix             string `yaml:"recast_mesh_path_prefix"`
	NavMeshPathPrefix                string `yaml:"nav_mesh_path_prefix"`
	EnableRecastMeshFileNameRevision bool   `yaml:"enable_recast_mesh_file_name_revision"`
	EnableNavMeshFileNameRevision    bool   `yaml:"enable_nav_mesh_file_name_revision"`
}

// SimSettings drives the navsim scene.
type SimSettings struct {
	Duration     time.Duration `yaml:"duration"`      // 0 runs until interrupted
	TickInterval time.Duration `yaml:"tick_interval"` // simulation frame time
	Objects      int           `yaml:"objects"`       // moving crates
	WorldTiles   int           `yaml:"world_tiles"`   // scene extent in tiles per side
	Seed         int64         `yaml:"seed"`
}

// NavMeshDBSettings toggles the PostgreSQL backed tile cache.
type NavMeshDBSettings struct {
	Enabled      bool          `yaml:"enabled"`
	MaxUnusedAge time.Duration `yaml:"max_unused_age"` // prune tiles unused for longer on startup, 0 keeps all
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// DefaultRecastSettings returns a 16×16 world unit tile grid with a 4 unit border.
func DefaultRecastSettings() RecastSettings {
	return RecastSettings{
		CellSize:       0.25,
		CellHeight:     0.2,
		TileSize:       64,
		BorderSize:     16,
		MaxSlope:       49,
		MaxTilesNumber: 512,
	}
}

// DefaultNavigator returns Navigator config with sensible defaults.
func DefaultNavigator() Navigator {
	return Navigator{
		LogLevel: "info",
		Recast:   DefaultRecastSettings(),
		Updater: UpdaterSettings{
			JobWaitTimeout: 10 * time.Millisecond,
		},
		Debug: DebugSettings{
			RecastMeshPathPrefix: "recastmesh_",
			NavMeshPathPrefix:    "navmesh_",
		},
		Sim: SimSettings{
			Duration:     10 * time.Second,
			TickInterval: 50 * time.Millisecond,
			Objects:      32,
			WorldTiles:   8,
			Seed:         1,
		},
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "navgo",
			Password: "navgo",
			DBName:   "navgo",
			SSLMode:  "disable",
		},
	}
}

// Validate checks values the pipeline cannot work with.
func (n Navigator) Validate() error {
	if n.Recast.CellSize <= 0 {
		return fmt.Errorf("recast.cell_size must be positive, got %v", n.Recast.CellSize)
	}
	if n.Recast.TileSize <= 0 {
		return fmt.Errorf("recast.tile_size must be positive, got %d", n.Recast.TileSize)
	}
	if n.Recast.BorderSize < 0 {
		return fmt.Errorf("recast.border_size must not be negative, got %d", n.Recast.BorderSize)
	}
	if n.Recast.MaxTilesNumber <= 0 {
		return fmt.Errorf("recast.max_tiles_number must be positive, got %d", n.Recast.MaxTilesNumber)
	}
	if n.Updater.JobWaitTimeout <= 0 {
		return fmt.Errorf("updater.job_wait_timeout must be positive, got %v", n.Updater.JobWaitTimeout)
	}
	if n.Sim.Duration < 0 {
		return fmt.Errorf("sim.duration must not be negative, got %v", n.Sim.Duration)
	}
	if n.Sim.TickInterval <= 0 {
		return fmt.Errorf("sim.tick_interval must be positive, got %v", n.Sim.TickInterval)
	}
	if n.Sim.WorldTiles <= 0 {
		return fmt.Errorf("sim.world_tiles must be positive, got %d", n.Sim.WorldTiles)
	}
	return nil
}

// LoadNavigator loads navigator config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadNavigator(path string) (Navigator, error) {
	cfg := DefaultNavigator()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

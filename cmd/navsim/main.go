package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/navgo/internal/config"
	"github.com/udisondev/navgo/internal/db"
	"github.com/udisondev/navgo/internal/navigator"
	"github.com/udisondev/navgo/internal/sim"
)

const ConfigPath = "config/navsim.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := ConfigPath
	if p := os.Getenv("NAVGO_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadNavigator(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))

	slog.Info("navsim starting",
		"log_level", cfg.LogLevel,
		"tile_size", navigator.GetTileSize(cfg.Recast),
		"max_tiles", cfg.Recast.MaxTilesNumber,
		"navmeshdb", cfg.NavMeshDB.Enabled)

	var opts []navigator.UpdaterOption
	if cfg.NavMeshDB.Enabled {
		database, err := db.New(ctx, cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()
		slog.Info("database connected")

		if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		slog.Info("database migrations applied")

		tiles := database.Tiles()
		if cfg.NavMeshDB.MaxUnusedAge > 0 {
			removed, err := tiles.DeleteUnusedSince(ctx, time.Now().Add(-cfg.NavMeshDB.MaxUnusedAge))
			if err != nil {
				return fmt.Errorf("pruning navmesh tiles: %w", err)
			}
			slog.Info("navmesh tiles pruned", "removed", removed)
		}
		opts = append(opts, navigator.WithTileStore(tiles))
	}

	nav := navigator.NewNavigator(cfg, opts...)
	defer nav.Close()

	agent := navigator.AgentHalfExtents{0.3, 0.3, 0.9}
	nav.AddAgent(agent)

	scene := sim.Populate(nav, cfg.Recast, cfg.Sim)
	tickMgr := sim.NewTickManager(nav, scene, cfg.Sim.TickInterval)

	simCtx := ctx
	if cfg.Sim.Duration > 0 {
		var cancel context.CancelFunc
		simCtx, cancel = context.WithTimeout(ctx, cfg.Sim.Duration)
		defer cancel()
	}

	g, gctx := errgroup.WithContext(simCtx)

	g.Go(func() error {
		slog.Info("starting sim tick manager", "interval", cfg.Sim.TickInterval, "duration", cfg.Sim.Duration)
		if err := tickMgr.Start(gctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("sim tick manager: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				logStats(nav, agent, tickMgr.Ticks())
			}
		}
	})

	if err := g.Wait(); err != nil {
		return err
	}

	if ctx.Err() == nil {
		slog.Info("waiting for navmesh jobs")
		nav.Wait()
	}
	logStats(nav, agent, tickMgr.Ticks())

	slog.Info("navsim stopped")
	return nil
}

func logStats(nav *navigator.Navigator, agent navigator.AgentHalfExtents, ticks uint64) {
	stats := nav.Stats()

	var tiles int
	var generation, revision uint64
	if item, ok := nav.NavMesh(agent); ok {
		item.Read(func(it *navigator.NavMeshCacheItem) {
			tiles = it.NavMesh.TileCount()
			generation = it.Generation
			revision = it.NavMeshRevision
		})
	}

	slog.Info("navmesh stats",
		"ticks", ticks,
		"tiles", tiles,
		"generation", generation,
		"revision", revision,
		"jobs", stats.Jobs,
		"pushed", stats.Pushed,
		"processed", stats.Processed,
		"failed", stats.Failed,
		"added", stats.Statuses[navigator.StatusAdd],
		"replaced", stats.Statuses[navigator.StatusReplaced],
		"removed", stats.Statuses[navigator.StatusRemoved])
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

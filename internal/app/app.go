package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/game"
	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/mapgrid"
	servernet "github.com/BritishAmericqn/trespasser-backend-sub006/internal/net"
	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/observability"
	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/server"
	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/sim"
	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/telemetry"
	"github.com/BritishAmericqn/trespasser-backend-sub006/logging"
	loggingSinks "github.com/BritishAmericqn/trespasser-backend-sub006/logging/sinks"
	"github.com/BritishAmericqn/trespasser-backend-sub006/weapons/catalog"
)

// Run wires the full backend and serves until ctx is cancelled or the
// listener fails. Shutdown drains HTTP first, then stops every room, then
// flushes the log router.
func Run(ctx context.Context, cfg Config) error {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}

	fallbackLogger := log.Default()
	if provider, ok := telemetryLogger.(interface{ StandardLogger() *log.Logger }); ok {
		if candidate := provider.StandardLogger(); candidate != nil {
			fallbackLogger = candidate
		}
	}

	logConfig := logging.DefaultConfig()
	if cfg.LogSeverity != "" {
		if severity, ok := logging.ParseSeverity(cfg.LogSeverity); ok {
			logConfig.MinimumSeverity = severity
		} else {
			telemetryLogger.Printf("invalid TRESPASSER_LOG_SEVERITY=%q", cfg.LogSeverity)
		}
	}

	namedSinks := []logging.NamedSink{
		{Name: "console", Sink: loggingSinks.NewConsoleSink(os.Stdout, logConfig.Console)},
	}
	if cfg.LogJSONPath != "" {
		file, err := os.OpenFile(cfg.LogJSONPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer file.Close()
		namedSinks = append(namedSinks, logging.NamedSink{
			Name: "json",
			Sink: loggingSinks.NewJSON(file, logConfig.JSON.FlushInterval),
		})
		logConfig.EnabledSinks = append(logConfig.EnabledSinks, "json")
	}

	router, err := logging.NewRouter(logConfig, logging.SystemClock{}, fallbackLogger, namedSinks)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	layout, err := loadLayout(cfg.MapPath)
	if err != nil {
		return err
	}
	tuning, err := loadWeaponTuning(cfg.WeaponsPath)
	if err != nil {
		return err
	}

	worldCfg := game.DefaultConfig()
	worldCfg.TickRate = cfg.TickRate
	worldCfg.MaxPlayers = cfg.MaxPlayers
	worldCfg.FriendlyFire = cfg.FriendlyFire
	worldCfg.WeaponTuning = tuning
	if cfg.Seed != "" {
		worldCfg.Seed = cfg.Seed
	}
	if cfg.RespawnDelay > 0 {
		worldCfg.RespawnDelay = cfg.RespawnDelay
	}
	if cfg.HeartbeatTimeout != 0 {
		worldCfg.HeartbeatTimeout = cfg.HeartbeatTimeout
	}

	metrics := &logging.Metrics{}
	manager := server.NewManager(server.ManagerConfig{
		World: worldCfg,
		Loop: sim.Config{
			TickRate:       cfg.TickRate,
			BroadcastEvery: cfg.BroadcastEvery,
		},
		Layout:   layout,
		MaxRooms: cfg.MaxRooms,
	}, server.Deps{
		Logger:    telemetryLogger,
		Metrics:   telemetry.WrapMetrics(metrics),
		Publisher: router,
		Clock:     logging.SystemClock{},
	})
	defer manager.Shutdown("shutdown")

	handler := servernet.NewHTTPHandler(manager, servernet.HTTPHandlerConfig{
		ClientDir: cfg.ClientDir,
		Logger:    telemetryLogger,
		Publisher: router,
		Telemetry: func() map[string]uint64 {
			snapshot := metrics.Snapshot()
			if snapshot == nil {
				snapshot = make(map[string]uint64, 2)
			}
			stats := router.Stats()
			snapshot["log_events_total"] = stats.EventsTotal
			snapshot["log_dropped_total"] = stats.DroppedTotal
			return snapshot
		},
		Observability: observability.Config{EnablePprofTrace: cfg.EnablePprofTrace},
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: handler}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	telemetryLogger.Printf("server listening on %s", srv.Addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			telemetryLogger.Printf("http shutdown: %v", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	}
}

// loadLayout reads the arena from a PNG map when one is configured and
// falls back to the built-in grid otherwise.
func loadLayout(path string) (game.Layout, error) {
	if path == "" {
		return mapgrid.DefaultGrid().Layout(), nil
	}
	grid, err := mapgrid.LoadFile(path)
	if err != nil {
		return game.Layout{}, fmt.Errorf("load map %s: %w", path, err)
	}
	return grid.Layout(), nil
}

// loadWeaponTuning resolves the designer balance overlay. The default
// locations may be absent on a fresh checkout; an explicitly configured path
// must exist.
func loadWeaponTuning(path string) ([]game.WeaponSpec, error) {
	if path == "" {
		resolver, err := catalog.Load(catalog.DefaultPaths()...)
		if err != nil {
			return nil, fmt.Errorf("load weapon tuning: %w", err)
		}
		return resolver.Specs(), nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("load weapon tuning %s: %w", path, err)
	}
	resolver, err := catalog.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load weapon tuning %s: %w", path, err)
	}
	return resolver.Specs(), nil
}

// Package daemon wires configuration, the consolidation engine, the journal,
// the viewer gateway and scheduled maintenance into one long-running service.
package daemon

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fadhlan/unilog/internal/config"
	"github.com/fadhlan/unilog/internal/logger"
	"github.com/fadhlan/unilog/internal/observability"
	"github.com/fadhlan/unilog/pkg/consolidate"
	"github.com/fadhlan/unilog/pkg/gateway"
	"github.com/fadhlan/unilog/pkg/journal"
	"github.com/fadhlan/unilog/pkg/maintenance"
)

// Daemon represents the unilog daemon service
type Daemon struct {
	config *config.Config
	logger *logger.Logger
	zlog   zerolog.Logger

	engine      *consolidate.Engine
	journal     *journal.Journal
	gateway     *gateway.Server
	maintenance *maintenance.Service
	lifecycle   *LifecycleManager

	startTime time.Time
	running   bool
	mu        sync.RWMutex
}

// Status describes the daemon state for callers and the viewer.
type Status struct {
	Running bool              `json:"running"`
	PID     int               `json:"pid"`
	Uptime  time.Duration     `json:"uptime"`
	Stats   consolidate.Stats `json:"stats"`
}

// New creates a new daemon instance
func New(cfg *config.Config, log *logger.Logger) (*Daemon, error) {
	observability.EnsureRegistered()

	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	canonicalID, err := uuid.Parse(cfg.CanonicalID)
	if err != nil {
		return nil, fmt.Errorf("invalid canonical identifier: %w", err)
	}

	d := &Daemon{
		config: cfg,
		logger: log,
		zlog:   log.GetZerolog(),
	}

	if cfg.Journal.Enabled {
		j, err := journal.Open(cfg.Journal.Path, d.zlog)
		if err != nil {
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		d.journal = j
		d.zlog.Info().Str("path", cfg.Journal.Path).Msg("Journal initialized")
	}

	engineCfg := consolidate.Config{
		Dir:          cfg.WatchDir,
		CanonicalID:  canonicalID,
		PollInterval: time.Duration(cfg.PollIntervalMs) * time.Millisecond,
		WatchEvents:  cfg.WatchEvents,
		OnMigrated:   d.onMigrated,
		Logger:       log.With().Str("component", "consolidate").Logger(),
	}
	if d.journal != nil {
		engineCfg.Journal = d.journal
	}

	engine, err := consolidate.New(engineCfg)
	if err != nil {
		d.closeJournal()
		return nil, fmt.Errorf("failed to create consolidation engine: %w", err)
	}
	d.engine = engine
	d.zlog.Info().Msg("Consolidation engine initialized")

	if cfg.Gateway.Enabled {
		gatewayCfg := gateway.Config{
			Port:   cfg.Gateway.Port,
			Engine: engine,
			Logger: log.With().Str("component", "gateway").Logger(),
		}
		if d.journal != nil {
			gatewayCfg.Journal = d.journal
		}

		gw, err := gateway.NewServer(gatewayCfg)
		if err != nil {
			d.closeJournal()
			return nil, fmt.Errorf("failed to create gateway: %w", err)
		}
		d.gateway = gw
		d.zlog.Info().Int("port", cfg.Gateway.Port).Msg("Viewer gateway initialized")
	}

	if cfg.Maintenance.Enabled {
		svc, err := maintenance.New(maintenance.Config{
			Schedule: cfg.Maintenance.Schedule,
			Sweeper:  engine,
			Store:    engine.Store(),
			Logger:   log.With().Str("component", "maintenance").Logger(),
		})
		if err != nil {
			d.closeJournal()
			return nil, fmt.Errorf("failed to create maintenance service: %w", err)
		}
		d.maintenance = svc
		d.zlog.Info().Str("schedule", cfg.Maintenance.Schedule).Msg("Maintenance service initialized")
	}

	d.lifecycle = NewLifecycleManager(d)

	return d, nil
}

// onMigrated pushes completed migrations to connected viewers.
func (d *Daemon) onMigrated(ev consolidate.MigrationEvent) {
	if d.gateway != nil {
		d.gateway.Broadcast("migration.completed", ev)
	}
}

func (d *Daemon) closeJournal() {
	if d.journal != nil {
		if err := d.journal.Close(); err != nil {
			d.zlog.Warn().Err(err).Msg("Failed to close journal")
		}
	}
}

// Start starts all daemon services
func (d *Daemon) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("daemon already running")
	}

	if err := d.lifecycle.Start(); err != nil {
		return fmt.Errorf("failed to start lifecycle manager: %w", err)
	}

	if err := d.engine.Start(); err != nil {
		d.unwindLifecycle()
		return fmt.Errorf("failed to start consolidation engine: %w", err)
	}

	if d.gateway != nil {
		if err := d.gateway.Start(); err != nil {
			_ = d.engine.Stop()
			d.unwindLifecycle()
			return fmt.Errorf("failed to start gateway: %w", err)
		}
	}

	if d.maintenance != nil {
		if err := d.maintenance.Start(); err != nil {
			if d.gateway != nil {
				_ = d.gateway.Stop()
			}
			_ = d.engine.Stop()
			d.unwindLifecycle()
			return fmt.Errorf("failed to start maintenance service: %w", err)
		}
	}

	d.startTime = time.Now()
	d.running = true

	d.zlog.Info().
		Str("watch_dir", d.config.WatchDir).
		Str("canonical_id", d.config.CanonicalID).
		Msg("Daemon started")

	return nil
}

// unwindLifecycle removes the PID file after a partial startup so the next
// start attempt is not refused as a duplicate instance.
func (d *Daemon) unwindLifecycle() {
	if err := d.lifecycle.Stop(); err != nil {
		d.zlog.Warn().Err(err).Msg("Failed to unwind lifecycle manager")
	}
}

// Stop stops all daemon services in reverse start order
func (d *Daemon) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}

	if d.maintenance != nil {
		d.maintenance.Stop()
	}

	if d.gateway != nil {
		if err := d.gateway.Stop(); err != nil {
			d.zlog.Warn().Err(err).Msg("Failed to stop gateway cleanly")
		}
	}

	if err := d.engine.Stop(); err != nil {
		d.zlog.Warn().Err(err).Msg("Failed to stop engine cleanly")
	}

	d.closeJournal()

	if err := d.lifecycle.Stop(); err != nil {
		d.zlog.Warn().Err(err).Msg("Failed to stop lifecycle manager cleanly")
	}

	d.running = false
	d.zlog.Info().Msg("Daemon stopped")

	return nil
}

// Run starts the daemon and blocks until SIGINT or SIGTERM
func (d *Daemon) Run() error {
	if err := d.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	d.zlog.Info().Str("signal", sig.String()).Msg("Shutdown signal received")

	return d.Stop()
}

// Status returns the current daemon status
func (d *Daemon) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := Status{
		Running: d.running,
		PID:     os.Getpid(),
		Stats:   d.engine.Stats(),
	}
	if d.running {
		status.Uptime = time.Since(d.startTime)
	}

	return status
}

// Engine returns the consolidation engine
func (d *Daemon) Engine() *consolidate.Engine {
	return d.engine
}

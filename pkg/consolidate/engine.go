package consolidate

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fadhlan/unilog/internal/observability"
	"github.com/fadhlan/unilog/pkg/canonical"
	"github.com/fadhlan/unilog/pkg/classify"
	"github.com/fadhlan/unilog/pkg/record"
)

// DefaultPollInterval is the watch-loop tick used when none is configured.
const DefaultPollInterval = 100 * time.Millisecond

// MigrationEvent describes one completed stray migration.
type MigrationEvent struct {
	StrayName   string        `json:"stray_name"`
	Lines       int           `json:"lines"`
	Rewritten   int           `json:"rewritten"`
	Passthrough int           `json:"passthrough"`
	Duration    time.Duration `json:"duration_ns"`
	MigratedAt  time.Time     `json:"migrated_at"`
}

// Journal persists migration history. Implementations must tolerate
// concurrent calls from the watch loop.
type Journal interface {
	RecordMigration(ev MigrationEvent) error
}

// Config holds consolidation engine configuration.
type Config struct {
	// Dir is the watched directory. Must exist and be readable/writable.
	Dir string

	// CanonicalID designates the canonical session for the engine lifetime.
	CanonicalID uuid.UUID

	// PollInterval is the watch-loop tick. Defaults to DefaultPollInterval.
	PollInterval time.Duration

	// WatchEvents enables an fsnotify trigger that wakes the sweep as soon
	// as a file appears, ahead of the next tick. Polling remains the
	// correctness backstop either way.
	WatchEvents bool

	// Journal, when set, receives one entry per completed migration.
	Journal Journal

	// OnMigrated, when set, is invoked after each completed migration.
	OnMigrated func(MigrationEvent)

	Logger zerolog.Logger
}

// Engine watches a directory for stray session-log files and folds them into
// the canonical file. See Migrate for the per-file contract.
type Engine struct {
	dir          string
	canonicalID  uuid.UUID
	pollInterval time.Duration
	watchEvents  bool
	journal      Journal
	onMigrated   func(MigrationEvent)
	logger       zerolog.Logger

	store *canonical.Store
	stats *statsCollector

	mu      sync.Mutex
	running bool
	done    chan struct{}
	kick    chan struct{}
	watcher *fsWatcher
	wg      sync.WaitGroup
}

// New creates a consolidation engine. Construction fails synchronously on an
// invalid directory or canonical identifier; every runtime error after this
// point is contained per cycle.
func New(cfg Config) (*Engine, error) {
	observability.EnsureRegistered()

	if cfg.Dir == "" {
		return nil, fmt.Errorf("watched directory is required")
	}
	if cfg.CanonicalID == uuid.Nil {
		return nil, fmt.Errorf("canonical identifier is required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	store, err := canonical.NewStore(cfg.Dir, cfg.CanonicalID)
	if err != nil {
		return nil, err
	}

	return &Engine{
		dir:          cfg.Dir,
		canonicalID:  cfg.CanonicalID,
		pollInterval: cfg.PollInterval,
		watchEvents:  cfg.WatchEvents,
		journal:      cfg.Journal,
		onMigrated:   cfg.OnMigrated,
		logger:       cfg.Logger,
		store:        store,
		stats:        newStatsCollector(),
	}, nil
}

// Store returns the canonical-file store the engine appends to.
func (e *Engine) Store() *canonical.Store {
	return e.store
}

// Start begins continuous detection. Calling Start on a running engine is a
// no-op.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		e.logger.Debug().Msg("Consolidation engine already running")
		return nil
	}

	e.done = make(chan struct{})
	e.kick = make(chan struct{}, 1)

	if e.watchEvents {
		watcher, err := newFSWatcher(e.dir, e.canonicalID, e.kick, e.logger)
		if err != nil {
			// Event delivery is an optimization; polling still meets the
			// detection-latency bound.
			e.logger.Warn().Err(err).Msg("Filesystem events unavailable, polling only")
		} else {
			e.watcher = watcher
		}
	}

	e.running = true
	e.wg.Add(1)
	go e.watchLoop(e.done, e.kick)

	e.logger.Info().
		Str("dir", e.dir).
		Str("canonical_id", e.canonicalID.String()).
		Dur("poll_interval", e.pollInterval).
		Bool("events", e.watcher != nil).
		Msg("Consolidation engine started")

	return nil
}

// Stop halts continuous detection after the in-flight cycle completes. A
// migration is never aborted mid-way. Calling Stop on a stopped engine is a
// no-op.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = false
	close(e.done)
	watcher := e.watcher
	e.watcher = nil
	e.mu.Unlock()

	if watcher != nil {
		watcher.stop()
	}
	e.wg.Wait()

	e.logger.Info().Msg("Consolidation engine stopped")
	return nil
}

// IsRunning reports whether the watch loop is active.
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Stats returns a snapshot of consolidation counters. Safe to call
// concurrently with migrations, and after Stop.
func (e *Engine) Stats() Stats {
	return e.stats.snapshot()
}

// SweepNow runs one detection cycle synchronously: classify the directory,
// then migrate each stray in filename order. A directory read failure fails
// the whole cycle; a single migration failure is logged and the sweep moves
// on to the next stray.
func (e *Engine) SweepNow() error {
	start := time.Now()

	listing, err := classify.Partition(e.dir, e.canonicalID)
	if err != nil {
		return err
	}

	for _, stray := range listing.Strays {
		if err := e.Migrate(stray); err != nil {
			e.logger.Error().
				Err(err).
				Str("stray", filepath.Base(stray)).
				Msg("Migration failed, stray left for retry")
		}
	}

	observability.RecordCycle(time.Since(start), len(listing.Strays))

	return nil
}

// Migrate folds one stray file into the canonical file: read it whole,
// rewrite the session identifier of every decodable line, append everything
// as a single durable write, then delete the stray. A stray that vanished
// before the read is an expected race and is skipped silently; an append
// failure returns the error and leaves the stray on disk so a later cycle
// can retry.
func (e *Engine) Migrate(strayPath string) error {
	strayName := filepath.Base(strayPath)
	start := time.Now()

	e.stats.recordEncounter(strayName)
	observability.RecordStrayEncounter()

	data, err := os.ReadFile(strayPath)
	if err != nil {
		// Vanished or unreadable: the writer or a prior cycle raced ahead.
		e.stats.recordSkip()
		observability.RecordSkippedRace()
		e.logger.Debug().
			Err(err).
			Str("stray", strayName).
			Msg("Stray unreadable, skipping attempt")
		return nil
	}

	lines, passthrough := e.rewriteLines(data, strayName)

	if err := e.store.AppendLines(lines); err != nil {
		// Do not delete a stray whose content was not durably merged.
		observability.RecordMigrateError()
		return fmt.Errorf("failed to merge %s: %w", strayName, err)
	}

	if err := os.Remove(strayPath); err != nil && !os.IsNotExist(err) {
		observability.RecordMigrateError()
		return fmt.Errorf("failed to remove %s: %w", strayName, err)
	}

	duration := time.Since(start)
	e.stats.recordCorrection(len(lines), passthrough)
	observability.RecordCorrection(duration, len(lines), passthrough)

	ev := MigrationEvent{
		StrayName:   strayName,
		Lines:       len(lines),
		Rewritten:   len(lines) - passthrough,
		Passthrough: passthrough,
		Duration:    duration,
		MigratedAt:  time.Now(),
	}

	if e.journal != nil {
		if err := e.journal.RecordMigration(ev); err != nil {
			e.logger.Warn().Err(err).Str("stray", strayName).Msg("Failed to journal migration")
		}
	}
	if e.onMigrated != nil {
		e.onMigrated(ev)
	}

	e.logger.Info().
		Str("stray", strayName).
		Int("lines", ev.Lines).
		Int("passthrough", ev.Passthrough).
		Dur("duration", duration).
		Msg("Stray migrated")

	return nil
}

// rewriteLines rewrites the session identifier of every decodable line and
// passes the rest through verbatim, preserving file order. Blank lines are
// data too and go through unchanged; only the trailing newline terminator is
// not a line.
func (e *Engine) rewriteLines(data []byte, strayName string) ([][]byte, int) {
	canonicalID := e.canonicalID.String()

	lines := bytes.Split(data, []byte("\n"))
	if len(lines) > 0 && len(lines[len(lines)-1]) == 0 {
		lines = lines[:len(lines)-1]
	}

	var out [][]byte
	passthrough := 0

	for lineNum, line := range lines {
		rec, err := record.Decode(line)
		if err != nil {
			// Total data is preserved: the line goes through unchanged.
			passthrough++
			out = append(out, line)
			e.logger.Debug().
				Str("stray", strayName).
				Int("line", lineNum+1).
				Msg("Undecodable line passed through verbatim")
			continue
		}

		rewritten, err := rec.WithSessionID(canonicalID)
		if err != nil {
			passthrough++
			out = append(out, line)
			continue
		}
		out = append(out, rewritten.Encode())
	}

	return out, passthrough
}

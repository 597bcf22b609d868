// Package journal persists the history of stray-file migrations so external
// viewers can show corrections across restarts.
package journal

import (
	"database/sql"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/fadhlan/unilog/internal/observability"
	"github.com/fadhlan/unilog/pkg/consolidate"
)

// Entry is one recorded migration.
type Entry struct {
	ID          string    `json:"id"`
	StrayName   string    `json:"stray_name"`
	Lines       int       `json:"lines"`
	Rewritten   int       `json:"rewritten"`
	Passthrough int       `json:"passthrough"`
	MigratedAt  time.Time `json:"migrated_at"`
}

// Journal is a sqlite-backed migration log. It implements
// consolidate.Journal.
type Journal struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open opens (or creates) the journal database at dbPath.
func Open(dbPath string, logger zerolog.Logger) (*Journal, error) {
	observability.EnsureRegistered()

	if dbPath == "" {
		return nil, fmt.Errorf("journal database path is required")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	// WAL mode keeps writers from blocking the viewer's reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	j := &Journal{db: db, logger: logger}

	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info().Str("path", dbPath).Msg("Journal opened")
	return j, nil
}

func (j *Journal) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS migrations (
			id TEXT PRIMARY KEY,
			stray_name TEXT NOT NULL,
			lines INTEGER NOT NULL,
			rewritten INTEGER NOT NULL,
			passthrough INTEGER NOT NULL,
			migrated_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_migrations_migrated_at ON migrations(migrated_at);
		CREATE INDEX IF NOT EXISTS idx_migrations_stray_name ON migrations(stray_name);
	`

	_, err := j.db.Exec(schema)
	return err
}

// RecordMigration stores one migration event.
func (j *Journal) RecordMigration(ev consolidate.MigrationEvent) error {
	start := time.Now()
	defer func() {
		observability.RecordJournalWrite(time.Since(start))
	}()

	id, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("failed to generate entry id: %w", err)
	}

	_, err = j.db.Exec(
		`INSERT INTO migrations (id, stray_name, lines, rewritten, passthrough, migrated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, ev.StrayName, ev.Lines, ev.Rewritten, ev.Passthrough, ev.MigratedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	j.logger.Debug().
		Str("id", id).
		Str("stray", ev.StrayName).
		Msg("Migration journaled")

	return nil
}

// Recent returns the most recent entries, newest first.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := j.db.Query(
		`SELECT id, stray_name, lines, rewritten, passthrough, migrated_at
		 FROM migrations
		 ORDER BY migrated_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var migratedAt int64
		if err := rows.Scan(&e.ID, &e.StrayName, &e.Lines, &e.Rewritten, &e.Passthrough, &migratedAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal row: %w", err)
		}
		e.MigratedAt = time.UnixMilli(migratedAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read journal rows: %w", err)
	}

	return entries, nil
}

// CountMigrations returns the total number of journaled migrations.
func (j *Journal) CountMigrations() (int, error) {
	var count int
	if err := j.db.QueryRow(`SELECT COUNT(*) FROM migrations`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count migrations: %w", err)
	}
	return count, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

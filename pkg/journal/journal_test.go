package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fadhlan/unilog/pkg/consolidate"
)

func setupTestJournal(t *testing.T) (*Journal, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(dbPath, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j, dbPath
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("", zerolog.Nop())
	assert.Error(t, err)
}

func TestJournal_RecordAndRecent(t *testing.T) {
	j, _ := setupTestJournal(t)

	base := time.Now().Truncate(time.Millisecond)
	for i := 0; i < 3; i++ {
		err := j.RecordMigration(consolidate.MigrationEvent{
			StrayName:   "stray-" + string(rune('a'+i)) + ".jsonl",
			Lines:       i + 1,
			Rewritten:   i + 1,
			Passthrough: 0,
			MigratedAt:  base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	entries, err := j.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Newest first.
	assert.Equal(t, "stray-c.jsonl", entries[0].StrayName)
	assert.Equal(t, "stray-a.jsonl", entries[2].StrayName)
	assert.Equal(t, 3, entries[0].Lines)
	assert.NotEmpty(t, entries[0].ID)

	count, err := j.CountMigrations()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestJournal_RecentLimit(t *testing.T) {
	j, _ := setupTestJournal(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, j.RecordMigration(consolidate.MigrationEvent{
			StrayName:  "s.jsonl",
			MigratedAt: time.Now(),
		}))
	}

	entries, err := j.Recent(2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestJournal_SurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(dbPath, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, j.RecordMigration(consolidate.MigrationEvent{
		StrayName:  "persisted.jsonl",
		Lines:      7,
		MigratedAt: time.Now(),
	}))
	require.NoError(t, j.Close())

	reopened, err := Open(dbPath, zerolog.Nop())
	require.NoError(t, err)
	defer reopened.Close()

	entries, err := reopened.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "persisted.jsonl", entries[0].StrayName)
	assert.Equal(t, 7, entries[0].Lines)
}

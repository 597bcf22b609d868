package classify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, nil, 0600))
	return path
}

func TestParseID(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{"valid", id.String() + ".jsonl", true},
		{"wrong extension", id.String() + ".json", false},
		{"no extension", id.String(), false},
		{"not a uuid", "notes.jsonl", false},
		{"empty stem", ".jsonl", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, ok := ParseID(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, id, parsed)
			}
		})
	}
}

func TestPartition(t *testing.T) {
	dir := t.TempDir()
	canonical := uuid.New()
	strayA := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	strayB := uuid.MustParse("00000000-0000-0000-0000-00000000000b")

	canonicalPath := touch(t, dir, FileName(canonical))
	// Create out of lexicographic order to exercise the sort.
	strayBPath := touch(t, dir, FileName(strayB))
	strayAPath := touch(t, dir, FileName(strayA))
	touch(t, dir, "notes.jsonl")
	touch(t, dir, "unrelated.txt")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0700))

	listing, err := Partition(dir, canonical)
	require.NoError(t, err)

	assert.Equal(t, canonicalPath, listing.Canonical)
	assert.Equal(t, []string{strayAPath, strayBPath}, listing.Strays)
}

func TestPartition_NoCanonical(t *testing.T) {
	dir := t.TempDir()
	stray := uuid.New()
	touch(t, dir, FileName(stray))

	listing, err := Partition(dir, uuid.New())
	require.NoError(t, err)

	assert.Empty(t, listing.Canonical)
	assert.Len(t, listing.Strays, 1)
}

func TestPartition_MissingDir(t *testing.T) {
	_, err := Partition(filepath.Join(t.TempDir(), "missing"), uuid.New())
	assert.Error(t, err)
}

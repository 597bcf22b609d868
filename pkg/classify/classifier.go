package classify

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Extension is the fixed suffix of session-log files.
const Extension = ".jsonl"

// Listing is a point-in-time partition of a watched directory.
type Listing struct {
	// Canonical is the full path of the canonical file, or "" when it does
	// not exist yet.
	Canonical string

	// Strays holds full paths of session-log files whose identifier differs
	// from the canonical one, sorted lexicographically by filename so that
	// repeated runs over the same input are order-stable.
	Strays []string
}

// FileName returns the session-log filename for an identifier.
func FileName(id uuid.UUID) string {
	return id.String() + Extension
}

// ParseID extracts the session identifier encoded in a filename. It returns
// false for anything that does not follow the <uuid>.jsonl convention.
func ParseID(name string) (uuid.UUID, bool) {
	if !strings.HasSuffix(name, Extension) {
		return uuid.UUID{}, false
	}
	id, err := uuid.Parse(strings.TrimSuffix(name, Extension))
	if err != nil {
		return uuid.UUID{}, false
	}
	return id, true
}

// Partition lists dir and splits session-log files into canonical and stray.
// Files that do not match the naming convention are ignored.
func Partition(dir string, canonicalID uuid.UUID) (Listing, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Listing{}, fmt.Errorf("failed to read watched directory: %w", err)
	}

	var listing Listing
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		id, ok := ParseID(name)
		if !ok {
			continue
		}

		path := filepath.Join(dir, name)
		if id == canonicalID {
			listing.Canonical = path
			continue
		}
		listing.Strays = append(listing.Strays, path)
	}

	sort.Strings(listing.Strays)

	return listing, nil
}

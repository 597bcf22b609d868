package canonical

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fadhlan/unilog/pkg/classify"
	"github.com/fadhlan/unilog/pkg/record"
)

// maxLineSize bounds a single record line when scanning the canonical file.
const maxLineSize = 4 * 1024 * 1024

// Store owns write access to the canonical session-log file. The file is
// created lazily on first append and never deleted.
type Store struct {
	path string
	id   uuid.UUID
	mu   sync.Mutex
}

// NewStore creates a store for the canonical file of id inside dir. The
// directory must already exist; the file itself may not.
func NewStore(dir string, id uuid.UUID) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watched directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watched directory is not a directory: %s", dir)
	}
	if id == uuid.Nil {
		return nil, fmt.Errorf("canonical identifier cannot be nil")
	}

	return &Store{
		path: filepath.Join(dir, classify.FileName(id)),
		id:   id,
	}, nil
}

// Path returns the canonical file path.
func (s *Store) Path() string {
	return s.path
}

// ID returns the canonical session identifier.
func (s *Store) ID() uuid.UUID {
	return s.id
}

// AppendLines appends the given lines to the canonical file as a single
// newline-terminated write, then syncs to disk. Either all lines are durably
// committed or the error leaves the file untouched beyond what the OS
// guarantees per write call.
func (s *Store) AppendLines(lines [][]byte) error {
	if len(lines) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open canonical file: %w", err)
	}
	defer file.Close()

	buf := make([]byte, 0, batchSize(lines))
	for _, line := range lines {
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}

	if _, err := file.Write(buf); err != nil {
		return fmt.Errorf("failed to append to canonical file: %w", err)
	}

	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to sync canonical file: %w", err)
	}

	return nil
}

func batchSize(lines [][]byte) int {
	n := 0
	for _, line := range lines {
		n += len(line) + 1
	}
	return n
}

// Count returns the number of lines currently in the canonical file. A
// missing file counts as zero.
func (s *Store) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to open canonical file: %w", err)
	}
	defer file.Close()

	count := 0
	scanner := newLineScanner(file)
	for scanner.Scan() {
		count++
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("failed to read canonical file: %w", err)
	}

	return count, nil
}

// Load reads the canonical file and decodes each line. Malformed lines are
// skipped and reported via the second return value.
func (s *Store) Load() ([]record.Record, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load()
}

func (s *Store) load() ([]record.Record, int, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("failed to open canonical file: %w", err)
	}
	defer file.Close()

	var records []record.Record
	malformed := 0
	lineNum := 0

	scanner := newLineScanner(file)
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		rec, err := record.Decode(line)
		if err != nil {
			malformed++
			log.Warn().
				Str("path", s.path).
				Int("line", lineNum).
				Err(err).
				Msg("Failed to parse canonical line, skipping")
			continue
		}

		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read canonical file: %w", err)
	}

	return records, malformed, nil
}

// Repair rewrites the canonical file keeping only decodable lines, replacing
// it atomically via a temp file. It returns the number of dropped lines.
func (s *Store) Repair() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, malformed, err := s.load()
	if err != nil {
		return 0, err
	}
	if malformed == 0 {
		return 0, nil
	}

	tempPath := s.path + ".tmp"

	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}

	for _, rec := range records {
		if _, err := file.Write(append(rec.Encode(), '\n')); err != nil {
			file.Close()
			os.Remove(tempPath)
			return 0, fmt.Errorf("failed to write temp file: %w", err)
		}
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return 0, fmt.Errorf("failed to sync temp file: %w", err)
	}
	file.Close()

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return 0, fmt.Errorf("failed to replace canonical file: %w", err)
	}

	log.Info().
		Str("path", s.path).
		Int("dropped", malformed).
		Msg("Canonical file repaired")

	return malformed, nil
}

func newLineScanner(file *os.File) *bufio.Scanner {
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	return scanner
}

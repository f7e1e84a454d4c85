package index

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/renameio"
)

// currentVersion is the on-disk schema version. Version 0 is the legacy
// flat format: a bare JSON array of records with no envelope.
const currentVersion = 1

type indexFile struct {
	Version int      `json:"version"`
	Records []Record `json:"records"`
}

// Store is an ordered record set keyed by file path. Iteration order is
// insertion order, which is also the tie-breaking order used by search.
// A Store is not safe for concurrent writers; the caller serializes runs.
type Store struct {
	path    string
	records []Record
	byPath  map[string]int
}

// New returns an empty store that persists to the given path.
func New(path string) *Store {
	return &Store{
		path:   path,
		byPath: make(map[string]int),
	}
}

// Load reads the store from disk. A missing file yields an empty store and
// no error. A corrupt or unparsable file also yields a usable empty store,
// but the parse error is returned so the caller can warn; the index can
// always be rebuilt.
func Load(path string) (*Store, error) {
	s := New(path)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("failed to read index file: %w", err)
	}

	records, err := decodeRecords(data)
	if err != nil {
		return s, fmt.Errorf("failed to parse index file: %w", err)
	}
	for _, r := range records {
		s.Upsert(r)
	}
	return s, nil
}

// decodeRecords handles both the current envelope format and the legacy
// bare-array format, upgrading the latter on load.
func decodeRecords(data []byte) ([]Record, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var records []Record
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, err
		}
		return records, nil
	}

	var file indexFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if file.Version > currentVersion {
		return nil, fmt.Errorf("unsupported index version %d", file.Version)
	}
	return file.Records, nil
}

// Len returns the number of records in the store.
func (s *Store) Len() int {
	return len(s.records)
}

// Records returns the records in insertion order. The returned slice is the
// store's backing array; callers must not mutate it.
func (s *Store) Records() []Record {
	return s.records
}

// Get returns the record for the given file path.
func (s *Store) Get(path string) (Record, bool) {
	i, ok := s.byPath[path]
	if !ok {
		return Record{}, false
	}
	return s.records[i], true
}

// Upsert replaces any existing record with the same file path. Partial
// fields are never merged; a re-extraction always produces a complete record.
func (s *Store) Upsert(r Record) {
	if i, ok := s.byPath[r.FilePath]; ok {
		s.records[i] = r
		return
	}
	s.byPath[r.FilePath] = len(s.records)
	s.records = append(s.records, r)
}

// Remove deletes the record for the given path, preserving the order of the
// remaining records. Returns true if a record was removed.
func (s *Store) Remove(path string) bool {
	i, ok := s.byPath[path]
	if !ok {
		return false
	}
	s.records = append(s.records[:i], s.records[i+1:]...)
	delete(s.byPath, path)
	for j := i; j < len(s.records); j++ {
		s.byPath[s.records[j].FilePath] = j
	}
	return true
}

// Prune removes every record whose file path fails the existence check and
// deletes the thumbnail each pruned record owns. Returns the number of
// records removed.
func (s *Store) Prune(exists func(path string) bool) int {
	kept := s.records[:0]
	removed := 0
	for _, r := range s.records {
		if exists(r.FilePath) {
			kept = append(kept, r)
			continue
		}
		removed++
		if r.ThumbnailPath != "" {
			// Thumbnail ownership is 1:1 with the record.
			_ = os.Remove(r.ThumbnailPath)
		}
	}
	s.records = kept
	s.byPath = make(map[string]int, len(kept))
	for i, r := range kept {
		s.byPath[r.FilePath] = i
	}
	return removed
}

// Persist atomically writes the full record set back to disk. The previous
// file stays untouched if the write fails.
func (s *Store) Persist() error {
	data, err := json.MarshalIndent(indexFile{
		Version: currentVersion,
		Records: s.records,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	if err := renameio.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write index file: %w", err)
	}
	return nil
}

// Path returns the file the store persists to.
func (s *Store) Path() string {
	return s.path
}

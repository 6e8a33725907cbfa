package uploads

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no upload exists for an id.
var ErrNotFound = errors.New("uploads: not found")

// Record is one uploaded identifier list, normalized and deduplicated.
type Record struct {
	IMEIList   []string  `json:"imei_list"`
	Filename   string    `json:"filename"`
	UploadTime time.Time `json:"upload_time"`
}

// Store keeps upload records as JSON files under a scratch directory, one
// file per upload id. Uploads are working state, not durable data; Clear
// wipes the directory.
type Store struct {
	dir string
}

// NewStore creates the scratch directory if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("uploads: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("uploads: creating directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save persists a new record and returns its generated id.
func (s *Store) Save(record Record) (string, error) {
	id := uuid.NewString()
	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("uploads: encoding record: %w", err)
	}
	if err := os.WriteFile(s.path(id), data, 0o644); err != nil {
		return "", fmt.Errorf("uploads: writing record: %w", err)
	}
	return id, nil
}

// Get loads the record for id.
func (s *Store) Get(id string) (Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Record{}, ErrNotFound
	}
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("uploads: reading record: %w", err)
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return Record{}, fmt.Errorf("uploads: decoding record: %w", err)
	}
	return record, nil
}

// Delete removes the record for id. Deleting a missing record is not an
// error.
func (s *Store) Delete(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("uploads: deleting record: %w", err)
	}
	return nil
}

// CleanupAll removes every stored upload and reports how many were deleted.
// Called at shutdown so stale identifier lists do not outlive the process.
func (s *Store) CleanupAll() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("uploads: listing directory: %w", err)
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			return removed, fmt.Errorf("uploads: deleting record: %w", err)
		}
		removed++
	}
	return removed, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

package monitor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Store persists the processed-event set between monitor runs.
type Store interface {
	Load() (*ProcessedSet, error)
	Save(*ProcessedSet) error
}

// FileStore keeps the processed set in a small JSON file.
type FileStore struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewFileStore creates a store at path. A missing file reads as an empty
// set; the parent directory is created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

type storeFile struct {
	EventIDs    []string  `json:"event_ids"`
	LastUpdated time.Time `json:"last_updated"`
}

// Load reads the processed set from disk.
func (f *FileStore) Load() (*ProcessedSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewProcessedSet(), nil
		}
		return nil, errors.Wrap(err, "read processed events")
	}
	if len(data) == 0 {
		return NewProcessedSet(), nil
	}

	var file storeFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "unmarshal processed events")
	}
	return NewProcessedSet(file.EventIDs...), nil
}

// Save writes the processed set to disk.
func (f *FileStore) Save(set *ProcessedSet) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if dir := filepath.Dir(f.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create state dir")
		}
	}

	data, err := json.MarshalIndent(storeFile{
		EventIDs:    set.IDs(),
		LastUpdated: f.now().UTC(),
	}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal processed events")
	}
	return errors.Wrap(os.WriteFile(f.path, data, 0o644), "write processed events")
}

package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ImageAsset describes a generated marketing image.
type ImageAsset struct {
	Caption string `json:"caption"`
	Prompt  string `json:"prompt"`
	Path    string `json:"image_path"`
	Model   string `json:"model"`
}

// ContentRecord is the final output of one pipeline run. It is created once
// per run and mutated exactly once afterward, when the LinkedIn post is
// published.
type ContentRecord struct {
	ID        string     `json:"id"`
	Topic     string     `json:"topic"`
	Research  string     `json:"research"`
	Blog      string     `json:"blog"`
	Image     ImageAsset `json:"images"`
	LinkedIn  string     `json:"linkedin"`
	Published bool       `json:"linkedin_posted"`
	CreatedAt time.Time  `json:"created_at"`
}

// HistoryStore persists completed runs as a single JSON array capped at a
// fixed number of entries, oldest evicted first. Every append rewrites the
// whole file through a temp-file rename so a crash mid-write cannot corrupt
// the previous history.
type HistoryStore struct {
	path string
	max  int
	mu   sync.Mutex
}

// NewHistoryStore creates a store writing to path, keeping at most max
// records.
func NewHistoryStore(path string, max int) (*HistoryStore, error) {
	if max <= 0 {
		return nil, fmt.Errorf("history cap must be > 0, got %d", max)
	}
	return &HistoryStore{path: path, max: max}, nil
}

// Load reads the persisted history. A missing file yields an empty log.
func (s *HistoryStore) Load() ([]ContentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *HistoryStore) load() ([]ContentRecord, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	var records []ContentRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding history: %w", err)
	}
	return records, nil
}

// Append adds a record, evicts the oldest entries beyond the cap and
// persists the truncated log. It returns the log as stored, most recent at
// the tail.
func (s *HistoryStore) Append(record ContentRecord) ([]ContentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}
	records = append(records, record)
	if len(records) > s.max {
		records = records[len(records)-s.max:]
	}
	if err := s.save(records); err != nil {
		return nil, err
	}
	return records, nil
}

// MarkPublished flips the publish flag on the stored record with the given
// id and persists the updated log.
func (s *HistoryStore) MarkPublished(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	found := false
	for i := range records {
		if records[i].ID == id {
			records[i].Published = true
			found = true
		}
	}
	if !found {
		return fmt.Errorf("no history record with id %s", id)
	}
	return s.save(records)
}

func (s *HistoryStore) save(records []ContentRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp, err := os.CreateTemp(dir, ".history-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

package progress

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Record is the persisted playback position for one chapter.
type Record struct {
	BookID      string    `json:"bookId"`
	ChapterID   string    `json:"chapterId"`
	PositionSec float64   `json:"positionSec"`
	DurationSec float64   `json:"durationSec,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Completed   bool      `json:"completed"`
}

// Store is the durable key-value store for progress records, keyed by
// (bookID, chapterID).
type Store interface {
	Get(bookID, chapterID string) (Record, bool, error)
	Set(rec Record) error
}

// FileStore keeps all records in a single JSON file, rewritten
// atomically on every update.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func recordKey(bookID, chapterID string) string {
	return bookID + "/" + chapterID
}

func (s *FileStore) Get(bookID, chapterID string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return Record{}, false, err
	}

	rec, ok := records[recordKey(bookID, chapterID)]
	return rec, ok, nil
}

func (s *FileStore) Set(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}

	records[recordKey(rec.BookID, rec.ChapterID)] = rec
	return s.save(records)
}

func (s *FileStore) load() (map[string]Record, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read progress file: %w", err)
	}

	records := map[string]Record{}
	if len(data) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse progress file: %w", err)
	}
	return records, nil
}

func (s *FileStore) save(records map[string]Record) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create progress directory: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode progress records: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write progress file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace progress file: %w", err)
	}
	return nil
}

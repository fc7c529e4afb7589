// Package history persists scored practice attempts as append-only JSON
// lines in a local file. One record per attempt keeps the format trivially
// greppable and safe to append to from repeated CLI runs.
package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/interloq/interloq/pkg/scoring"
)

// Record is a single scored attempt written to the file store. It carries
// scores only, not the attempt transcript; the log is a progress record,
// not a session archive.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	UnitID    string    `json:"unit_id"`
	Language  string    `json:"language"`
	Overall   int       `json:"overall"`

	// Source records how the pronunciation half was produced
	// ("assessment" or "heuristic"). Empty when no pronunciation
	// score was available.
	Source scoring.Source `json:"source,omitempty"`

	Accuracy     int `json:"accuracy,omitempty"`
	Fluency      int `json:"fluency,omitempty"`
	Completeness int `json:"completeness,omitempty"`
}

// NewRecord flattens a scored result into a Record stamped with the current
// time.
func NewRecord(unitID, language string, result *scoring.Result) Record {
	rec := Record{
		Timestamp: time.Now().UTC(),
		UnitID:    unitID,
		Language:  language,
	}
	if result == nil {
		return rec
	}
	rec.Overall = result.Overall
	if p := result.Pronunciation; p != nil {
		rec.Source = p.Source
		rec.Accuracy = p.Accuracy
		rec.Fluency = p.Fluency
	}
	if c := result.Content; c != nil {
		rec.Completeness = c.Completeness
	}
	return rec
}

// FileStore persists attempt records as JSON lines in a local file.
// Thread-safe for concurrent use.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a FileStore that writes to the given path.
// The file is created on first append if it does not exist.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Append writes a record to the end of the file.
func (fs *FileStore) Append(rec Record) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("history: marshal: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(fs.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("history: open file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("history: write: %w", err)
	}
	return nil
}

// Load reads all records from the file in append order. A missing file is
// not an error; it returns an empty slice. Malformed lines are skipped.
func (fs *FileStore) Load() ([]Record, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, err := os.Open(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("history: open file: %w", err)
	}
	defer f.Close()

	var records []Record
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("history: read: %w", err)
	}
	return records, nil
}

// Best returns the highest overall score recorded for a unit and whether any
// attempt for that unit exists.
func (fs *FileStore) Best(unitID string) (int, bool, error) {
	records, err := fs.Load()
	if err != nil {
		return 0, false, err
	}
	best, found := 0, false
	for _, rec := range records {
		if rec.UnitID != unitID {
			continue
		}
		found = true
		if rec.Overall > best {
			best = rec.Overall
		}
	}
	return best, found, nil
}

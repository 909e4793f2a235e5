// Package persistence stores the whole job collection as a single
// JSON-encoded blob under a fixed key, the durable equivalent of a browser
// key-value slot. Corrupt data is never partially recovered: any invalid
// record discards the entire slot and falls back to the seed set.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	log "github.com/go-pkgz/lgr"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/drag1web/job-board/app/store"
)

// slotKey is the fixed key the collection lives under. External tools may
// inspect or edit this row directly; a malformed edit triggers the seed
// fallback on the next load.
const slotKey = "jobs_data"

// SQLiteStore implements the single-slot persistence on SQLite
type SQLiteStore struct {
	db   *sqlx.DB
	seed []store.Job
}

// NewSQLiteStore opens (or creates) the database at dbPath and prepares the
// slot table. The seed set is returned by Load whenever no valid data is
// stored; nil seed falls back to the built-in set.
func NewSQLiteStore(dbPath string, seed []store.Job) (*SQLiteStore, error) {
	db, err := sqlx.Connect("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to set WAL mode: %w (also failed to close db: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS slots (key TEXT PRIMARY KEY, value BLOB NOT NULL)`); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to create schema: %w (also failed to close db: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if seed == nil {
		seed = store.Seed()
	}
	return &SQLiteStore{db: db, seed: seed}, nil
}

// Load reads the stored collection. An absent slot returns the seed set.
// A present but corrupt slot (bad JSON, any record failing schema
// validation, duplicate ids) clears the slot and returns the seed set -
// all-or-nothing, no partial recovery. Only real I/O failures return an error.
func (s *SQLiteStore) Load() ([]store.Job, error) {
	var blob []byte
	err := s.db.Get(&blob, "SELECT value FROM slots WHERE key = ?", slotKey)
	if errors.Is(err, sql.ErrNoRows) {
		return s.seedCopy(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read slot %s: %w", slotKey, err)
	}

	var jobs []store.Job
	if err := json.Unmarshal(blob, &jobs); err != nil {
		log.Printf("[WARN] slot %s holds malformed JSON, falling back to seed: %v", slotKey, err)
		s.clearSlot()
		return s.seedCopy(), nil
	}

	seen := make(map[string]bool, len(jobs))
	for i, job := range jobs {
		if err := store.Validate(job); err != nil {
			log.Printf("[WARN] slot %s record #%d invalid, falling back to seed: %v", slotKey, i+1, err)
			s.clearSlot()
			return s.seedCopy(), nil
		}
		if seen[job.ID] {
			log.Printf("[WARN] slot %s record #%d duplicates id %q, falling back to seed", slotKey, i+1, job.ID)
			s.clearSlot()
			return s.seedCopy(), nil
		}
		seen[job.ID] = true
	}

	return jobs, nil
}

// Save serializes the full collection and replaces the slot contents
func (s *SQLiteStore) Save(jobs []store.Job) error {
	blob, err := json.Marshal(jobs)
	if err != nil {
		return fmt.Errorf("failed to serialize jobs: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.Exec("INSERT OR REPLACE INTO slots (key, value) VALUES (?, ?)", slotKey, blob); err != nil {
		return fmt.Errorf("failed to write slot %s: %w", slotKey, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) clearSlot() {
	if _, err := s.db.Exec("DELETE FROM slots WHERE key = ?", slotKey); err != nil {
		log.Printf("[WARN] failed to clear slot %s: %v", slotKey, err)
	}
}

func (s *SQLiteStore) seedCopy() []store.Job {
	out := make([]store.Job, len(s.seed))
	copy(out, s.seed)
	return out
}

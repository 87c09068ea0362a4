package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store is a sqlite-backed arena of audit records keyed by their own
// integrity hash. Parent links stay hash-value lookups into the arena,
// never live pointers, so the DAG carries no ownership cycles.
type Store struct {
	db *sql.DB
}

const storeSchema = `
CREATE TABLE IF NOT EXISTS records (
	seq  INTEGER PRIMARY KEY AUTOINCREMENT,
	hash TEXT NOT NULL UNIQUE,
	body TEXT NOT NULL
);`

// OpenStore opens (or creates) a sqlite archive at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open archive: %w", err)
	}
	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: init archive schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Append inserts a sealed record. Records are immutable: appending the
// same hash twice is a no-op, and an unsealed record is rejected.
func (s *Store) Append(r Record) error {
	if r.Integrity == "" {
		return fmt.Errorf("audit: record %s is not sealed", r.ID)
	}
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("audit: marshal record: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO records (hash, body) VALUES (?, ?) ON CONFLICT(hash) DO NOTHING`,
		r.Integrity, string(body),
	)
	if err != nil {
		return fmt.Errorf("audit: insert record: %w", err)
	}
	return nil
}

// Load returns all records in insertion order.
func (s *Store) Load() ([]Record, error) {
	rows, err := s.db.Query(`SELECT body FROM records ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("audit: query archive: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("audit: scan row: %w", err)
		}
		var r Record
		if err := json.Unmarshal([]byte(body), &r); err != nil {
			return nil, fmt.Errorf("audit: decode archived record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Get looks up a single record by integrity hash.
func (s *Store) Get(hash string) (Record, bool, error) {
	var body string
	err := s.db.QueryRow(`SELECT body FROM records WHERE hash = ?`, hash).Scan(&body)
	if err == sql.ErrNoRows {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("audit: lookup record: %w", err)
	}
	var r Record
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return Record{}, false, fmt.Errorf("audit: decode archived record: %w", err)
	}
	return r, true, nil
}

// Verify re-validates the full chain straight from the archive.
func (s *Store) Verify() ChainResult {
	records, err := s.Load()
	if err != nil {
		return ChainResult{Error: err.Error()}
	}
	return VerifyChain(records)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

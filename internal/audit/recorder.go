package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Recorder is an append-only JSONL audit log. Each appended record cites
// the integrity hash of the current tail, so sequential writes produce a
// linear chain; merge records with additional parents can be appended by
// callers that track branch tails themselves.
type Recorder struct {
	path     string
	file     *os.File
	tailHash string
	canon    string
	mu       sync.Mutex
}

// OpenRecorder opens (or creates) a JSONL audit log for appending.
// If the file already exists, the last record's integrity hash is
// recovered as the chain tail. New records are sealed under canon mode;
// empty means CanonExtended.
func OpenRecorder(path, canon string) (*Recorder, error) {
	if canon == "" {
		canon = CanonExtended
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("audit: create directory: %w", err)
	}

	tail := ""
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		records, err := ReadLog(path)
		if err != nil {
			return nil, err
		}
		if len(records) > 0 {
			tail = records[len(records)-1].Integrity
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("audit: open file: %w", err)
	}

	return &Recorder{
		path:     path,
		file:     file,
		tailHash: tail,
		canon:    canon,
	}, nil
}

// Append stamps identity, timestamp, canon mode, and parent linkage onto
// the record, seals it, writes the JSON line, and syncs to disk. The
// sealed record is returned. A record appended to an empty log is the
// origin and cites no parent.
func (rec *Recorder) Append(r Record) (Record, error) {
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp == "" {
		r.Timestamp = time.Now().UTC().Format(TimestampFormat)
	}
	r.Canon = rec.canon
	r.PrevHashes = nil
	if rec.tailHash != "" {
		r.PrevHashes = []string{rec.tailHash}
	}

	if err := r.Seal(); err != nil {
		return Record{}, err
	}

	line, err := json.Marshal(r)
	if err != nil {
		return Record{}, fmt.Errorf("audit: marshal record: %w", err)
	}

	if _, err := rec.file.Write(append(line, '\n')); err != nil {
		return Record{}, fmt.Errorf("audit: write record: %w", err)
	}
	if err := rec.file.Sync(); err != nil {
		return Record{}, fmt.Errorf("audit: sync: %w", err)
	}

	rec.tailHash = r.Integrity
	return r, nil
}

// Close flushes and closes the underlying file.
func (rec *Recorder) Close() error {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.file.Close()
}

// ReadLog reads a JSONL audit log into memory in file order.
func ReadLog(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audit: open log: %w", err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			return nil, fmt.Errorf("audit: parse line %d: %w", line, err)
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("audit: scan log: %w", err)
	}
	return records, nil
}

// VerifyLog reads a JSONL audit log and validates its hash chain.
func VerifyLog(path string) ChainResult {
	records, err := ReadLog(path)
	if err != nil {
		return ChainResult{Error: err.Error()}
	}
	return VerifyChain(records)
}

// Package audit models the tamper-evident audit evidence of the governed
// system: records that cite the integrity hashes of their predecessors,
// forming a directed acyclic graph rather than a single linear list. A
// merge record may cite multiple parents. Verification recomputes every
// record's hash and checks every cited parent by value.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// TimestampFormat is the layout used in audit record timestamps.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// Canonicalization modes. The mode marker is itself part of the hashed
// payload under both modes, so a record cannot be re-hashed under a
// different mode without changing its integrity hash.
const (
	// CanonBaseline hashes only the fixed baseline field set, ignoring
	// any extension fields a derived record shape may carry. Older
	// chains were written this way.
	CanonBaseline = "baseline"

	// CanonExtended hashes every field present on the record, including
	// extensions.
	CanonExtended = "extended"
)

// Record is one tamper-evident audit log entry. Created once by the
// governed system at action time and never mutated afterward.
// PrevHashes cite parent records by integrity-hash value, not by
// pointer; Extensions carry fields of derived record shapes.
type Record struct {
	ID         string            `json:"id"`
	TraceID    string            `json:"trace_id,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	Timestamp  string            `json:"ts"`
	Actor      string            `json:"actor"`
	Action     string            `json:"action"`
	Outcome    string            `json:"outcome"`
	Safety     map[string]string `json:"safety,omitempty"`
	PrevHashes []string          `json:"previous_hash,omitempty"`
	Integrity  string            `json:"integrity_hash,omitempty"`
	Canon      string            `json:"canon"`
	Extensions map[string]any    `json:"extensions,omitempty"`
}

// baselineFields is the fixed field set hashed under CanonBaseline.
var baselineFields = map[string]bool{
	"id":            true,
	"trace_id":      true,
	"request_id":    true,
	"ts":            true,
	"actor":         true,
	"action":        true,
	"outcome":       true,
	"safety":        true,
	"previous_hash": true,
	"canon":         true,
}

// ComputeHash returns "sha256:<hex>" over the canonical encoding of the
// record's fields, excluding integrity_hash itself. The encoding is
// compact JSON with lexicographically sorted keys, so it is identical
// regardless of struct field order or map iteration order.
func ComputeHash(r Record) (string, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("audit: marshal record: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", fmt.Errorf("audit: decode record fields: %w", err)
	}

	delete(fields, "integrity_hash")

	if r.Canon != CanonExtended {
		for k := range fields {
			if !baselineFields[k] {
				delete(fields, k)
			}
		}
	}

	canonical, err := canonicalMarshal(fields)
	if err != nil {
		return "", err
	}

	h := sha256.Sum256(canonical)
	return "sha256:" + hex.EncodeToString(h[:]), nil
}

// Seal computes and stores the record's integrity hash.
func (r *Record) Seal() error {
	hash, err := ComputeHash(*r)
	if err != nil {
		return err
	}
	r.Integrity = hash
	return nil
}

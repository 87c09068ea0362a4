package audit

import "fmt"

// ChainResult holds the outcome of a chain verification.
type ChainResult struct {
	Valid   bool   `json:"valid"`
	Records int    `json:"records"`
	Error   string `json:"error,omitempty"`
	// ErrorIndex is the zero-based position of the first bad record.
	ErrorIndex int `json:"error_index,omitempty"`
}

// VerifyChain validates a record set as a hash-linked DAG. A record is
// chain-valid only if its recomputed hash equals its stored
// integrity_hash and every cited previous_hash matches the integrity
// hash of a record already confirmed valid earlier in the set. The first
// record is the origin and may cite no parents; any other record citing
// none is disconnected. Merge records citing several valid parents are
// legal — the set need not be a single linear list.
//
// The canonicalization mode is read from each record's canon field. That
// field is itself hashed, so flipping it counts as content tamper.
func VerifyChain(records []Record) ChainResult {
	if len(records) == 0 {
		return ChainResult{Valid: true}
	}

	verified := make(map[string]bool, len(records))

	for i, r := range records {
		computed, err := ComputeHash(r)
		if err != nil {
			return ChainResult{
				Records:    len(records),
				Error:      fmt.Sprintf("record %s: %v", r.ID, err),
				ErrorIndex: i,
			}
		}
		if computed != r.Integrity {
			return ChainResult{
				Records:    len(records),
				Error:      fmt.Sprintf("record %s: integrity hash mismatch: expected %s, got %s", r.ID, computed, r.Integrity),
				ErrorIndex: i,
			}
		}

		if i > 0 && len(r.PrevHashes) == 0 {
			return ChainResult{
				Records:    len(records),
				Error:      fmt.Sprintf("record %s: non-origin record cites no parent", r.ID),
				ErrorIndex: i,
			}
		}

		// Each parent is checked independently by hash value.
		for _, prev := range r.PrevHashes {
			if !verified[prev] {
				return ChainResult{
					Records:    len(records),
					Error:      fmt.Sprintf("record %s: previous_hash %s does not match any verified record", r.ID, prev),
					ErrorIndex: i,
				}
			}
		}

		verified[r.Integrity] = true
	}

	return ChainResult{Valid: true, Records: len(records)}
}

// Package audit records every authorization decision as a tamper-evident,
// hash-chained entry, with optional SQL persistence and S3 archival.
package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/predicate-security/predicate-gate/pkg/canonicalize"
	"github.com/predicate-security/predicate-gate/pkg/contracts"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// Entry is one decision record. PreviousHash links it to the preceding entry
// and Hash is the SHA-256 digest of the entry's canonical form (excluding
// Hash itself), forming a verifiable chain.
type Entry struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Principal    string    `json:"principal"`
	TenantID     string    `json:"tenant_id,omitempty"`
	Action       string    `json:"action"`
	StateHash    string    `json:"state_hash"`
	Allowed      bool      `json:"allowed"`
	Reason       string    `json:"reason"`
	ViolatedRule string    `json:"violated_rule,omitempty"`
	PreviousHash string    `json:"previous_hash"`
	Hash         string    `json:"hash"`
}

// NewEntry builds an unchained entry from a request/decision pair.
func NewEntry(req *contracts.AuthorizationRequest, decision *contracts.Decision, now time.Time) Entry {
	return Entry{
		ID:           "dec_" + uuid.NewString(),
		Timestamp:    now.UTC(),
		Principal:    req.Principal.PrincipalID,
		TenantID:     req.Principal.TenantID,
		Action:       req.ActionSpec.Action,
		StateHash:    req.StateEvidence.StateHash,
		Allowed:      decision.Allowed,
		Reason:       string(decision.Reason),
		ViolatedRule: decision.ViolatedRule,
	}
}

// Log is an in-memory hash chain of entries.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	clock   Clock
}

// NewLog creates an audit log. A nil clock defaults to wall time.
func NewLog(clock Clock) *Log {
	if clock == nil {
		clock = wallClock{}
	}
	return &Log{clock: clock}
}

// Append records a decision, linking the new entry to the previous one.
// The context parameter satisfies Sink; the in-memory log performs no I/O.
func (l *Log) Append(_ context.Context, req *contracts.AuthorizationRequest, decision *contracts.Decision) (*Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := NewEntry(req, decision, l.clock.Now())
	if n := len(l.entries); n > 0 {
		entry.PreviousHash = l.entries[n-1].Hash
	}

	hash, err := computeEntryHash(&entry)
	if err != nil {
		return nil, err
	}
	entry.Hash = hash

	l.entries = append(l.entries, entry)
	return &entry, nil
}

// Entries returns a copy of the recorded chain.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// VerifyChain checks link integrity and per-entry content integrity.
func (l *Log) VerifyChain() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.entries {
		entry := l.entries[i]
		if i == 0 {
			if entry.PreviousHash != "" {
				return fmt.Errorf("audit: genesis entry has non-empty previous hash")
			}
		} else if entry.PreviousHash != l.entries[i-1].Hash {
			return fmt.Errorf("audit: chain broken at index %d: previous hash mismatch", i)
		}

		computed, err := computeEntryHash(&entry)
		if err != nil {
			return fmt.Errorf("audit: recompute hash at index %d: %w", i, err)
		}
		if computed != entry.Hash {
			return fmt.Errorf("audit: integrity failure at index %d: computed %s, stored %s", i, computed, entry.Hash)
		}
	}
	return nil
}

// computeEntryHash digests the entry's canonical form, excluding the Hash
// field itself.
func computeEntryHash(e *Entry) (string, error) {
	data := map[string]any{
		"id":            e.ID,
		"timestamp":     e.Timestamp.Format(time.RFC3339Nano),
		"principal":     e.Principal,
		"tenant_id":     e.TenantID,
		"action":        e.Action,
		"state_hash":    e.StateHash,
		"allowed":       e.Allowed,
		"reason":        e.Reason,
		"violated_rule": e.ViolatedRule,
		"previous_hash": e.PreviousHash,
	}
	return canonicalize.CanonicalHash(data)
}

package audit

import (
	"context"
	"log/slog"
	"sync"

	"github.com/predicate-security/predicate-gate/pkg/authority"
	"github.com/predicate-security/predicate-gate/pkg/contracts"
)

// Sink accepts decision records. Log implements it in-memory; SQL-backed
// recording wraps a SQLStore behind this interface.
type Sink interface {
	Append(ctx context.Context, req *contracts.AuthorizationRequest, decision *contracts.Decision) (*Entry, error)
}

// Recorder decorates a provider so every successful decision is appended to
// an audit sink. Recording failure is logged, never surfaced: the audit
// trail must not change authorization outcomes.
type Recorder struct {
	inner  authority.Provider
	sink   Sink
	logger *slog.Logger
}

// NewRecorder wraps inner with decision recording.
func NewRecorder(inner authority.Provider, sink Sink) *Recorder {
	return &Recorder{
		inner:  inner,
		sink:   sink,
		logger: slog.Default().With("component", "audit-recorder"),
	}
}

// Authorize implements authority.Provider.
func (r *Recorder) Authorize(ctx context.Context, req *contracts.AuthorizationRequest) (*contracts.Decision, error) {
	decision, err := r.inner.Authorize(ctx, req)
	if err != nil {
		return nil, err
	}

	if _, recErr := r.sink.Append(ctx, req, decision); recErr != nil {
		r.logger.ErrorContext(ctx, "failed to record decision",
			"action", req.ActionSpec.Action,
			"error", recErr,
		)
	}
	return decision, nil
}

// StoreSink chains entries into a SQLStore, continuing the persisted chain.
// The read-link-insert sequence runs under a mutex so concurrent recorders
// cannot link two entries to the same predecessor.
type StoreSink struct {
	mu    sync.Mutex
	store *SQLStore
	clock Clock
}

// NewStoreSink creates a sink writing to the given store. A nil clock
// defaults to wall time.
func NewStoreSink(store *SQLStore, clock Clock) *StoreSink {
	if clock == nil {
		clock = wallClock{}
	}
	return &StoreSink{store: store, clock: clock}
}

// Append implements Sink: the entry links to the store's latest hash.
func (s *StoreSink) Append(ctx context.Context, req *contracts.AuthorizationRequest, decision *contracts.Decision) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, err := s.store.LastHash(ctx)
	if err != nil {
		return nil, err
	}

	entry := NewEntry(req, decision, s.clock.Now())
	entry.PreviousHash = prev

	hash, err := computeEntryHash(&entry)
	if err != nil {
		return nil, err
	}
	entry.Hash = hash

	if err := s.store.Insert(ctx, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

package analytics

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrJobNotFound is returned when polling an unknown run ID.
var ErrJobNotFound = errors.New("job not found")

// JobStore is the process-wide registry of bulk analytics jobs.
//
// Concurrency contract: each job has exactly one writer (the orchestrator
// goroutine that owns it) calling Update; any number of pollers may call
// Get concurrently. Readers always observe an internally consistent
// snapshot, possibly slightly stale.
type JobStore interface {
	// Create allocates a new job in the pending state and returns its ID.
	Create(ctx context.Context) (uuid.UUID, error)
	// Get returns a snapshot of the job, or ErrJobNotFound.
	Get(ctx context.Context, id uuid.UUID) (*JobRecord, error)
	// Update applies mutate to the job's current state and replaces the
	// stored record wholesale.
	Update(ctx context.Context, id uuid.UUID, mutate func(*JobRecord)) error
}

// MemoryStore is the default in-process JobStore. Records live for the
// process lifetime; nothing is evicted.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*JobRecord
}

// NewMemoryStore creates an empty in-memory job store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[uuid.UUID]*JobRecord)}
}

// Create allocates a new pending job.
func (s *MemoryStore) Create(ctx context.Context) (uuid.UUID, error) {
	id := uuid.New()

	s.mu.Lock()
	s.jobs[id] = NewJobRecord(id)
	s.mu.Unlock()

	return id, nil
}

// Get returns a deep-copied snapshot of the job.
func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*JobRecord, error) {
	s.mu.RLock()
	job, ok := s.jobs[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrJobNotFound
	}
	return job.Clone(), nil
}

// Update mutates a copy of the current record and swaps it in wholesale,
// so a concurrent Get never sees a half-applied mutation.
func (s *MemoryStore) Update(ctx context.Context, id uuid.UUID, mutate func(*JobRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}

	next := job.Clone()
	mutate(next)
	s.jobs[id] = next
	return nil
}

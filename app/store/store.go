// Package store implements the in-memory job collection with optimistic
// mutations. Every mutation applies its change immediately, persists it, and
// then waits for the simulated backend round-trip; a failed round-trip rolls
// the collection back to the exact pre-call state and persists the rollback,
// so memory and storage always converge to a consistent result.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/google/uuid"
)

// user-facing error messages kept in the state's Err field
const (
	msgLoadFailed   = "failed to load jobs"
	msgAddFailed    = "failed to add job"
	msgUpdateFailed = "failed to update job"
	msgDeleteFailed = "failed to delete job"
)

// ErrNotFound is returned by Update when no job matches the given id
var ErrNotFound = errors.New("job not found")

// Persistence defines the durable storage the store mirrors itself into
type Persistence interface {
	Load() ([]Job, error)
	Save(jobs []Job) error
}

// State is the observable snapshot consumed by the view layer
type State struct {
	Jobs    []Job
	Loading bool
	Err     string
}

// Store is the single source of truth for the job collection. One instance
// per process, constructed explicitly and passed to consumers.
//
// Mutations are serialized: opMu is held for the full duration of a call,
// including the simulated round-trip, so a later call can never capture a
// snapshot that an earlier in-flight rollback would clobber. Reads don't
// take opMu and observe optimistic state as soon as it is published.
type Store struct {
	persistence  Persistence
	gateway      Gateway
	fetchGateway Gateway

	mu      sync.RWMutex
	jobs    []Job
	loading bool
	err     string

	opMu sync.Mutex
}

// Config holds store configuration
type Config struct {
	Persistence  Persistence
	Gateway      Gateway // round-trip for mutations, defaults to 300-500ms with 10% failures
	FetchGateway Gateway // round-trip for fetch, defaults to 400-800ms and never fails
}

// New creates a job store. Persistence is required, gateways default to the
// simulated backend with the reference latency windows.
func New(cfg Config) (*Store, error) {
	if cfg.Persistence == nil {
		return nil, errors.New("store initialization failed: Persistence is required")
	}
	gateway := cfg.Gateway
	if gateway == nil {
		gateway = NewSimulatedGateway(300*time.Millisecond, 500*time.Millisecond, 0.1)
	}
	fetchGateway := cfg.FetchGateway
	if fetchGateway == nil {
		fetchGateway = NewSimulatedGateway(400*time.Millisecond, 800*time.Millisecond, 0)
	}
	return &Store{persistence: cfg.Persistence, gateway: gateway, fetchGateway: fetchGateway}, nil
}

// Snapshot returns a copy of the current state. The jobs slice is cloned so
// callers can't mutate the live collection.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{Jobs: cloneJobs(s.jobs), Loading: s.loading, Err: s.err}
}

// Get returns a single job by id
func (s *Store) Get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := indexOf(s.jobs, id); idx >= 0 {
		return s.jobs[idx], true
	}
	return Job{}, false
}

// Fetch reloads the whole collection from persistence, replacing the
// in-memory state. The loading flag is guaranteed to clear on exit no
// matter how the call settles.
func (s *Store) Fetch(ctx context.Context) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	if err := s.fetchGateway.Roundtrip(ctx); err != nil {
		log.Printf("[WARN] fetch round-trip failed: %v", err)
		s.setErr(msgLoadFailed)
		return
	}

	jobs, err := s.persistence.Load()
	if err != nil {
		log.Printf("[WARN] failed to load jobs from persistence: %v", err)
		s.setErr(msgLoadFailed)
		return
	}

	s.mu.Lock()
	s.jobs = jobs
	s.mu.Unlock()
	log.Printf("[DEBUG] fetched %d jobs", len(jobs))
}

// Add validates the candidate and prepends it to the collection
// optimistically. A caller-supplied id is kept when present (and must be
// unique), otherwise a fresh uuid is assigned. Validation failures are
// returned immediately with no state change; a failed round-trip rolls back
// and is reported through the Err state field, not the return value.
func (s *Store) Add(ctx context.Context, job Job) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if err := Validate(job); err != nil {
		return err
	}

	prev := s.snapshotJobs()
	if indexOf(prev, job.ID) >= 0 {
		return &ValidationError{Violations: []FieldViolation{{Field: "id", Message: "duplicate id"}}}
	}

	next := make([]Job, 0, len(prev)+1)
	next = append(next, job)
	next = append(next, prev...)
	s.publish(next, "")
	s.persist(next)

	if err := s.gateway.Roundtrip(ctx); err != nil {
		log.Printf("[WARN] add %s rejected, rolling back: %v", job.ID, err)
		s.publish(prev, msgAddFailed)
		s.persist(prev)
		return nil
	}

	// confirm phase: the settled state matches the optimistic one, the
	// extra save documents where a real backend ack would land
	s.persist(next)
	log.Printf("[INFO] added job %s (%s at %s)", job.ID, job.Title, job.Company)
	return nil
}

// Update validates the modified job and replaces the matching entry in
// place, keeping its position. Unknown ids fail with ErrNotFound before any
// state change. Round-trip failures roll back like Add.
func (s *Store) Update(ctx context.Context, job Job) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	prev := s.snapshotJobs()
	idx := indexOf(prev, job.ID)
	if idx < 0 {
		return ErrNotFound
	}
	if err := Validate(job); err != nil {
		return err
	}

	next := cloneJobs(prev)
	next[idx] = job
	s.publish(next, "")
	s.persist(next)

	if err := s.gateway.Roundtrip(ctx); err != nil {
		log.Printf("[WARN] update %s rejected, rolling back: %v", job.ID, err)
		s.publish(prev, msgUpdateFailed)
		s.persist(prev)
		return nil
	}

	s.persist(next)
	log.Printf("[INFO] updated job %s", job.ID)
	return nil
}

// Delete removes the matching job optimistically. Deleting an unknown id is
// a silent no-op. Round-trip failures restore the deleted job.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	prev := s.snapshotJobs()
	idx := indexOf(prev, id)
	if idx < 0 {
		return nil
	}

	next := make([]Job, 0, len(prev)-1)
	next = append(next, prev[:idx]...)
	next = append(next, prev[idx+1:]...)
	s.publish(next, "")
	s.persist(next)

	if err := s.gateway.Roundtrip(ctx); err != nil {
		log.Printf("[WARN] delete %s rejected, rolling back: %v", id, err)
		s.publish(prev, msgDeleteFailed)
		s.persist(prev)
		return nil
	}

	s.persist(next)
	log.Printf("[INFO] deleted job %s", id)
	return nil
}

// publish swaps the live collection and error atomically
func (s *Store) publish(jobs []Job, errMsg string) {
	s.mu.Lock()
	s.jobs = jobs
	s.err = errMsg
	s.mu.Unlock()
}

func (s *Store) setErr(msg string) {
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
}

// persist mirrors the given collection into storage. Save failures are
// logged but don't fail the operation, matching the fire-and-forget write
// semantics of the storage slot.
func (s *Store) persist(jobs []Job) {
	if err := s.persistence.Save(jobs); err != nil {
		log.Printf("[WARN] failed to persist jobs: %v", err)
	}
}

func (s *Store) snapshotJobs() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneJobs(s.jobs)
}

func indexOf(jobs []Job, id string) int {
	for i, job := range jobs {
		if job.ID == id {
			return i
		}
	}
	return -1
}

func cloneJobs(jobs []Job) []Job {
	out := make([]Job, len(jobs))
	copy(out, jobs)
	return out
}

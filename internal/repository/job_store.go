package repository

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/mediafetch/internal/domain"
)

// JobStore is the volatile job table. Every read and write goes through one mutex,
// so callers never observe a partially applied update.
type JobStore struct {
	mu    sync.Mutex
	jobs  map[string]*domain.Job
	clock domain.Clock
	newID func() string
}

// NewJobStore creates an empty job store.
// Parameters:
//   - clock: time source for created_at/updated_at; nil uses domain.SystemClock.
// Returns:
//   - *JobStore: initialized store.
func NewJobStore(clock domain.Clock) *JobStore {
	if clock == nil {
		clock = domain.SystemClock
	}
	return &JobStore{
		jobs:  make(map[string]*domain.Job),
		clock: clock,
		newID: newJobID,
	}
}

// newJobID returns a random 32-char hex identifier.
func newJobID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// CreateJob inserts a queued job and returns its id.
// Parameters:
//   - urls: locators as submitted by the caller.
//   - itemURLs: normalized locators, one per url, in the same order.
//   - format: validated output format.
// Returns:
//   - string: the new job id.
func (s *JobStore) CreateJob(urls, itemURLs []string, format domain.Format) string {
	if itemURLs == nil {
		itemURLs = urls
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	for {
		if _, taken := s.jobs[id]; !taken {
			break
		}
		id = s.newID()
	}

	s.jobs[id] = domain.NewJob(id, urls, itemURLs, format, s.clock.Now())
	return id
}

// UpdateJob applies a partial update atomically. Missing jobs are ignored.
// Returns:
//   - bool: true if the update changed the job.
func (s *JobStore) UpdateJob(id string, update domain.JobUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return false
	}
	return job.Apply(update, s.clock.Now())
}

// GetJob returns a snapshot of the job or domain.ErrJobNotFound.
func (s *JobStore) GetJob(id string) (domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return domain.Job{}, domain.ErrJobNotFound
	}
	return job.Clone(), nil
}

// ListRecent returns job summaries sorted by creation time, newest first.
// A non-positive limit returns every job.
func (s *JobStore) ListRecent(limit int) []domain.JobSummary {
	s.mu.Lock()
	summaries := make([]domain.JobSummary, 0, len(s.jobs))
	for _, job := range s.jobs {
		summaries = append(summaries, job.Summary())
	}
	s.mu.Unlock()

	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].ID < summaries[j].ID
		}
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})

	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries
}

// DeleteJob removes a job. Deleting a missing job is a no-op.
func (s *JobStore) DeleteJob(id string) {
	s.mu.Lock()
	delete(s.jobs, id)
	s.mu.Unlock()
}

// EvictExpired removes every job created before cutoff in one critical section
// and returns the removed snapshots.
func (s *JobStore) EvictExpired(cutoff time.Time) []domain.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []domain.Job
	for id, job := range s.jobs {
		if job.CreatedAt.Before(cutoff) {
			evicted = append(evicted, job.Clone())
			delete(s.jobs, id)
		}
	}
	return evicted
}

// Count returns the number of live jobs per status.
func (s *JobStore) Count() map[domain.JobStatus]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := map[domain.JobStatus]int{
		domain.JobStatusQueued:   0,
		domain.JobStatusRunning:  0,
		domain.JobStatusFinished: 0,
		domain.JobStatusError:    0,
	}
	for _, job := range s.jobs {
		counts[job.Status]++
	}
	return counts
}

package service

import (
	"context"
	"strings"
	"sync"

	"github.com/timmy/mediafetch/internal/config"
	"github.com/timmy/mediafetch/internal/domain"
	"github.com/timmy/mediafetch/internal/logger"
	"github.com/timmy/mediafetch/internal/repository"
	"github.com/timmy/mediafetch/internal/telemetry"
)

// JobRunner executes one job to completion.
type JobRunner interface {
	Run(ctx context.Context, jobID string)
}

// Stats is the live job table breakdown, plus persisted totals and the newest
// history records when the history store is enabled.
type Stats struct {
	Live          map[domain.JobStatus]int   `json:"live"`
	History       map[domain.JobStatus]int64 `json:"history,omitempty"`
	RecentHistory []domain.JobRecord         `json:"recent_history,omitempty"`
}

// JobService is the entry point for job submission and inspection.
type JobService struct {
	baseCtx   context.Context
	store     *repository.JobStore
	runner    JobRunner
	artifacts *Artifacts
	history   HistoryStore
	cfg       config.JobsConfig

	wg sync.WaitGroup
}

// NewJobService creates a JobService.
// Parameters:
//   - baseCtx: process lifetime; runners are interrupted when it is cancelled.
//   - store: the job table.
//   - runner: executes submitted jobs.
//   - artifacts: removes job files on delete.
//   - history: optional persisted history, may be nil.
//   - cfg: job tunables.
func NewJobService(
	baseCtx context.Context,
	store *repository.JobStore,
	runner JobRunner,
	artifacts *Artifacts,
	history HistoryStore,
	cfg config.JobsConfig,
) *JobService {
	return &JobService{
		baseCtx:   baseCtx,
		store:     store,
		runner:    runner,
		artifacts: artifacts,
		history:   history,
		cfg:       cfg,
	}
}

// ParseFormat maps user input onto a Format. Empty input selects mp3.
func ParseFormat(raw string) domain.Format {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return domain.FormatMP3
	}
	return domain.Format(raw)
}

// Submit validates urls, creates a queued job and starts it in the background.
// It never waits for the fetch to begin.
func (s *JobService) Submit(ctx context.Context, urls []string, format domain.Format) (string, error) {
	var cleaned []string
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			cleaned = append(cleaned, u)
		}
	}
	if err := ValidateSubmission(cleaned, format, s.cfg.MaxURLsPerJob); err != nil {
		return "", err
	}

	normalized := make([]string, len(cleaned))
	for i, u := range cleaned {
		normalized[i] = NormalizeURL(u)
	}

	id := s.store.CreateJob(cleaned, normalized, format)
	telemetry.JobsSubmitted.Inc()

	logger.With(logger.Fields{
		logger.FieldJobID:  id,
		logger.FieldFormat: string(format),
		logger.FieldCount:  len(cleaned),
	}).Info(ctx, "Job submitted")

	// The runner must outlive the request, so it runs on the service context
	// and only inherits the request logger.
	runCtx := logger.FromContext(ctx).WithContext(s.baseCtx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runner.Run(runCtx, id)
	}()

	return id, nil
}

// Get returns a snapshot of the job, or domain.ErrJobNotFound.
func (s *JobService) Get(_ context.Context, id string) (domain.Job, error) {
	return s.store.GetJob(id)
}

// Recent returns summaries of the newest jobs, capped at max_recent.
func (s *JobService) Recent(_ context.Context) []domain.JobSummary {
	return s.store.ListRecent(s.cfg.MaxRecent)
}

// Delete drops the job and its artifacts. Unknown ids are not an error.
// A job still running keeps fetching until its next URL boundary.
func (s *JobService) Delete(ctx context.Context, id string) {
	s.store.DeleteJob(id)
	if s.artifacts == nil {
		return
	}
	for _, err := range s.artifacts.Remove(ctx, id) {
		logger.FromContext(logger.SetJobID(ctx, id)).WithError(err).Warn("Failed to remove job artifact")
	}
}

// Stats reports job counts per status.
func (s *JobService) Stats(ctx context.Context) Stats {
	stats := Stats{Live: s.store.Count()}
	if s.history == nil {
		return stats
	}
	totals, err := s.history.Totals(ctx)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to load job history totals")
		return stats
	}
	stats.History = totals

	recent, err := s.history.ListRecent(ctx, s.cfg.MaxRecent)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to load recent job history")
		return stats
	}
	stats.RecentHistory = recent
	return stats
}

// Wait blocks until every dispatched runner has returned.
func (s *JobService) Wait() {
	s.wg.Wait()
}

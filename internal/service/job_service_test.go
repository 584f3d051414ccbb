package service

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/timmy/mediafetch/internal/config"
	"github.com/timmy/mediafetch/internal/domain"
	"github.com/timmy/mediafetch/internal/repository"
)

type jobServiceFixture struct {
	store     *repository.JobStore
	fetcher   *fakeFetcher
	history   *fakeHistory
	artifacts *Artifacts
	svc       *JobService
}

func newJobServiceFixture(t *testing.T, cfg config.JobsConfig) *jobServiceFixture {
	t.Helper()
	dataDir := t.TempDir()
	store := repository.NewJobStore(newFakeClock())
	f := &fakeFetcher{fail: map[string]error{}}
	history := &fakeHistory{}
	artifacts := NewArtifacts(dataDir, nil)
	runner := NewRunner(store, f, history, RunnerConfig{DataDir: dataDir})
	return &jobServiceFixture{
		store:     store,
		fetcher:   f,
		history:   history,
		artifacts: artifacts,
		svc:       NewJobService(context.Background(), store, runner, artifacts, history, cfg),
	}
}

func defaultJobsConfig() config.JobsConfig {
	return config.JobsConfig{MaxRecent: 10, TTLHours: 6, CleanupIntervalMinutes: 30, MaxURLsPerJob: 50}
}

func TestJobServiceSubmitRunsJob(t *testing.T) {
	fx := newJobServiceFixture(t, defaultJobsConfig())
	ctx := context.Background()

	id, err := fx.svc.Submit(ctx, []string{" https://www.youtube.com/watch?v=abc&t=3 ", ""}, domain.FormatMP3)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if len(id) != 32 {
		t.Errorf("id %q has length %d, want 32", id, len(id))
	}
	fx.svc.Wait()

	job, err := fx.svc.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if job.Status != domain.JobStatusFinished {
		t.Errorf("status = %q, want finished", job.Status)
	}
	if len(job.URLs) != 1 || job.URLs[0] != "https://www.youtube.com/watch?v=abc&t=3" {
		t.Errorf("urls = %v, want the trimmed submission", job.URLs)
	}
	if job.Items[0].URL != "https://www.youtube.com/watch?v=abc" {
		t.Errorf("item url = %q, want normalized form", job.Items[0].URL)
	}
	if calls := fx.fetcher.Calls(); len(calls) != 1 || calls[0] != job.Items[0].URL {
		t.Errorf("fetch calls = %v, want the normalized url", calls)
	}
}

func TestJobServiceSubmitValidation(t *testing.T) {
	cfg := defaultJobsConfig()
	cfg.MaxURLsPerJob = 2
	fx := newJobServiceFixture(t, cfg)

	tests := []struct {
		name   string
		urls   []string
		format domain.Format
	}{
		{"only blanks", []string{" ", ""}, domain.FormatMP3},
		{"unknown format", []string{"a"}, domain.Format("wav")},
		{"too many", []string{"a", "b", "c"}, domain.FormatMP3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.svc.Submit(context.Background(), tt.urls, tt.format)
			if !domain.IsValidation(err) {
				t.Errorf("Submit() error = %v, want ValidationError", err)
			}
		})
	}

	if got := len(fx.svc.Recent(context.Background())); got != 0 {
		t.Errorf("rejected submissions created %d jobs", got)
	}
}

func TestJobServiceRecentHonorsMaxRecent(t *testing.T) {
	cfg := defaultJobsConfig()
	cfg.MaxRecent = 2
	fx := newJobServiceFixture(t, cfg)

	for i := 0; i < 3; i++ {
		if _, err := fx.svc.Submit(context.Background(), []string{"a"}, domain.FormatMP4); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}
	fx.svc.Wait()

	if got := len(fx.svc.Recent(context.Background())); got != 2 {
		t.Errorf("Recent() returned %d jobs, want 2", got)
	}
}

func TestJobServiceDelete(t *testing.T) {
	fx := newJobServiceFixture(t, defaultJobsConfig())
	ctx := context.Background()

	id, err := fx.svc.Submit(ctx, []string{"a"}, domain.FormatMP3)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	fx.svc.Wait()

	fx.svc.Delete(ctx, id)
	if _, err := fx.svc.Get(ctx, id); !errors.Is(err, domain.ErrJobNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrJobNotFound", err)
	}
	if _, err := os.Stat(fx.artifacts.Dir(id)); !os.IsNotExist(err) {
		t.Errorf("job dir still present, stat err = %v", err)
	}

	// Deleting again is a no-op.
	fx.svc.Delete(ctx, id)
}

func TestJobServiceStats(t *testing.T) {
	fx := newJobServiceFixture(t, defaultJobsConfig())
	fx.fetcher.fail["bad"] = errors.New("nope")
	fx.history.totals = map[domain.JobStatus]int64{domain.JobStatusFinished: 7}
	ctx := context.Background()

	for _, u := range []string{"good", "bad"} {
		if _, err := fx.svc.Submit(ctx, []string{u}, domain.FormatMP3); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}
	fx.svc.Wait()

	stats := fx.svc.Stats(ctx)
	if stats.Live[domain.JobStatusFinished] != 1 || stats.Live[domain.JobStatusError] != 1 {
		t.Errorf("live = %v, want one finished and one error", stats.Live)
	}
	if stats.History[domain.JobStatusFinished] != 7 {
		t.Errorf("history = %v, want finished=7", stats.History)
	}
	if got := len(fx.history.Records()); got != 2 {
		t.Errorf("history records = %d, want 2", got)
	}
	if len(stats.RecentHistory) != 2 {
		t.Fatalf("recent history = %+v, want 2 records", stats.RecentHistory)
	}
	statuses := map[domain.JobStatus]bool{}
	for _, rec := range stats.RecentHistory {
		statuses[rec.Status] = true
	}
	if !statuses[domain.JobStatusFinished] || !statuses[domain.JobStatusError] {
		t.Errorf("recent history statuses = %v, want finished and error", statuses)
	}
}

func TestJobServiceStatsHistoryLimit(t *testing.T) {
	cfg := defaultJobsConfig()
	cfg.MaxRecent = 1
	fx := newJobServiceFixture(t, cfg)
	ctx := context.Background()

	for _, u := range []string{"a", "b"} {
		if _, err := fx.svc.Submit(ctx, []string{u}, domain.FormatMP3); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		fx.svc.Wait()
	}

	if got := len(fx.svc.Stats(ctx).RecentHistory); got != 1 {
		t.Errorf("recent history = %d records, want 1", got)
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]domain.Format{
		"":      domain.FormatMP3,
		" MP4 ": domain.FormatMP4,
		"mp3":   domain.FormatMP3,
		"ogg":   domain.Format("ogg"),
	}
	for in, want := range tests {
		if got := ParseFormat(in); got != want {
			t.Errorf("ParseFormat(%q) = %q, want %q", in, got, want)
		}
	}
}

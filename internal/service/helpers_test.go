package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/timmy/mediafetch/internal/domain"
	"github.com/timmy/mediafetch/internal/fetcher"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeFetcher writes one file per URL and follows the progress contract.
type fakeFetcher struct {
	mu     sync.Mutex
	calls  []string
	fail   map[string]error
	before func(req fetcher.Request)
}

func (f *fakeFetcher) Fetch(ctx context.Context, req fetcher.Request, progress fetcher.ProgressFunc) ([]string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req.URL)
	err := f.fail[req.URL]
	before := f.before
	f.mu.Unlock()

	if before != nil {
		before(req)
	}

	progress(req.Index, domain.ItemStatusDownloading, fetcher.ProgressInfo{Percent: fetcher.Percent(50)})
	if err != nil {
		fetchErr := &domain.FetchError{URL: req.URL, Err: err}
		progress(req.Index, domain.ItemStatusError, fetcher.ProgressInfo{Err: fetchErr})
		return nil, fetchErr
	}

	path := filepath.Join(req.OutputDir, fmt.Sprintf("track-%d.%s", req.Index, req.Format.Ext()))
	if err := os.WriteFile(path, []byte(req.URL), 0o644); err != nil {
		return nil, err
	}
	progress(req.Index, domain.ItemStatusCompleted, fetcher.ProgressInfo{
		Percent:  fetcher.Percent(100),
		Filename: filepath.Base(path),
	})
	return []string{path}, nil
}

func (f *fakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeHistory struct {
	mu      sync.Mutex
	records []domain.Job
	totals  map[domain.JobStatus]int64
	err     error
}

func (h *fakeHistory) Record(_ context.Context, job domain.Job) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, job)
	return nil
}

func (h *fakeHistory) Totals(context.Context) (map[domain.JobStatus]int64, error) {
	return h.totals, h.err
}

func (h *fakeHistory) ListRecent(_ context.Context, limit int) ([]domain.JobRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []domain.JobRecord
	for i := len(h.records) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, *domain.NewJobRecord(h.records[i]))
	}
	return out, h.err
}

func (h *fakeHistory) Records() []domain.Job {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.Job(nil), h.records...)
}

type fakeRemover struct {
	mu      sync.Mutex
	removed []string
	err     error
}

func (r *fakeRemover) Remove(_ context.Context, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, jobID)
	return r.err
}

// fetchFunc adapts a function to fetcher.Fetcher.
type fetchFunc func(ctx context.Context, req fetcher.Request, progress fetcher.ProgressFunc) ([]string, error)

func (f fetchFunc) Fetch(ctx context.Context, req fetcher.Request, progress fetcher.ProgressFunc) ([]string, error) {
	return f(ctx, req, progress)
}

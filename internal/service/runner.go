package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/timmy/mediafetch/internal/domain"
	"github.com/timmy/mediafetch/internal/fetcher"
	"github.com/timmy/mediafetch/internal/logger"
	"github.com/timmy/mediafetch/internal/repository"
	"github.com/timmy/mediafetch/internal/telemetry"
	"golang.org/x/sync/semaphore"
)

// InterruptedMessage is stored on jobs cut short by process shutdown.
const InterruptedMessage = "interrupted: service shutting down"

const historyTimeout = 5 * time.Second

// HistoryStore persists terminal job records.
type HistoryStore interface {
	Record(ctx context.Context, job domain.Job) error
	Totals(ctx context.Context) (map[domain.JobStatus]int64, error)
	ListRecent(ctx context.Context, limit int) ([]domain.JobRecord, error)
}

// RunnerConfig holds the runner tunables.
type RunnerConfig struct {
	DataDir string
	// MaxConcurrent caps jobs running at once; 0 means unbounded
	MaxConcurrent int
}

// Runner executes jobs: it fetches every URL of a job in order and reports
// progress into the job store.
type Runner struct {
	store   *repository.JobStore
	fetcher fetcher.Fetcher
	history HistoryStore
	dataDir string
	slots   *semaphore.Weighted
}

// NewRunner creates a Runner. history may be nil.
func NewRunner(store *repository.JobStore, f fetcher.Fetcher, history HistoryStore, cfg RunnerConfig) *Runner {
	r := &Runner{
		store:   store,
		fetcher: f,
		history: history,
		dataDir: cfg.DataDir,
	}
	if cfg.MaxConcurrent > 0 {
		r.slots = semaphore.NewWeighted(int64(cfg.MaxConcurrent))
	}
	return r
}

// OutputDir returns the directory the files of jobID are written to.
func (r *Runner) OutputDir(jobID string) string {
	return filepath.Join(r.dataDir, jobID)
}

// Run processes jobID until it is finished, failed, or deleted. ctx is the
// process lifetime; cancelling it interrupts the job between URLs.
func (r *Runner) Run(ctx context.Context, jobID string) {
	ctx = logger.SetJobID(ctx, jobID)

	if r.slots != nil {
		if err := r.slots.Acquire(ctx, 1); err != nil {
			r.fail(ctx, jobID, InterruptedMessage)
			return
		}
		defer r.slots.Release(1)
	}

	job, err := r.store.GetJob(jobID)
	if err != nil {
		logger.CtxDebug(ctx, "Job removed before it started")
		return
	}

	running := domain.JobStatusRunning
	r.store.UpdateJob(jobID, domain.JobUpdate{Status: &running})
	telemetry.JobsRunning.Inc()
	defer telemetry.JobsRunning.Dec()

	start := time.Now()
	logger.With(logger.Fields{
		logger.FieldFormat: string(job.Format),
		logger.FieldCount:  len(job.Items),
	}).Info(ctx, "Job started")

	dir := r.OutputDir(jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		r.fail(ctx, jobID, fmt.Sprintf("failed to create output directory: %v", err))
		return
	}

	for index, item := range job.Items {
		if ctx.Err() != nil {
			r.fail(ctx, jobID, InterruptedMessage)
			return
		}
		if _, err := r.store.GetJob(jobID); errors.Is(err, domain.ErrJobNotFound) {
			r.abandon(ctx, dir)
			return
		}

		if err := r.fetchItem(ctx, jobID, index, item.URL, job.Format, dir); err != nil {
			msg := err.Error()
			if ctx.Err() != nil {
				msg = InterruptedMessage
			}
			r.fail(ctx, jobID, msg)
			return
		}
	}

	finished := domain.JobStatusFinished
	if !r.store.UpdateJob(jobID, domain.JobUpdate{Status: &finished}) {
		r.abandon(ctx, dir)
		return
	}
	telemetry.JobsFinished.Inc()

	logger.With(logger.Fields{logger.FieldFormat: string(job.Format)}).
		WithDuration(time.Since(start)).
		WithCount(len(job.Items)).
		Info(ctx, "Job finished")
	r.record(ctx, jobID)
}

func (r *Runner) fetchItem(ctx context.Context, jobID string, index int, url string, format domain.Format, dir string) error {
	itemCtx := logger.WithFields(ctx, logger.Fields{
		logger.FieldItemIndex: index,
		logger.FieldURL:       url,
	})
	start := time.Now()

	files, err := r.fetcher.Fetch(itemCtx, fetcher.Request{
		Index:     index,
		URL:       url,
		Format:    format,
		OutputDir: dir,
	}, r.newItemProgress(jobID, index))
	if err != nil {
		telemetry.FetchDuration.WithLabelValues(string(format), "error").Observe(time.Since(start).Seconds())
		r.store.UpdateJob(jobID, domain.JobUpdate{
			Item: &domain.ItemUpdate{Index: index, Status: domain.ItemStatusError},
		})
		logger.FromContext(itemCtx).WithError(err).Warn("Fetch failed")
		return err
	}

	telemetry.FetchDuration.WithLabelValues(string(format), "ok").Observe(time.Since(start).Seconds())
	telemetry.ItemsCompleted.WithLabelValues(string(format)).Inc()

	update := domain.JobUpdate{
		AppendFiles: files,
		Item: &domain.ItemUpdate{
			Index:   index,
			Status:  domain.ItemStatusCompleted,
			Percent: fetcher.Percent(100),
		},
	}
	if len(files) > 0 {
		update.Item.Filename = filepath.Base(files[len(files)-1])
	}
	r.store.UpdateJob(jobID, update)

	logger.With(logger.Fields{logger.FieldFormat: string(format)}).
		WithDuration(time.Since(start)).
		WithCount(len(files)).
		Debug(itemCtx, "Item completed")
	return nil
}

// newItemProgress builds the progress callback for one item. The index is
// bound here; signals carrying any other index are dropped. Terminal item
// states are set by fetchItem once Fetch returns, so backend completed/error
// signals only contribute their percent and filename.
func (r *Runner) newItemProgress(jobID string, index int) fetcher.ProgressFunc {
	return func(signalIndex int, status domain.ItemStatus, info fetcher.ProgressInfo) {
		if signalIndex != index {
			return
		}
		if status.IsTerminal() {
			status = domain.ItemStatusDownloading
		}
		u := domain.ItemUpdate{
			Index:   index,
			Status:  status,
			Percent: info.Percent,
		}
		if info.Filename != "" {
			u.Filename = filepath.Base(info.Filename)
		}
		r.store.UpdateJob(jobID, domain.JobUpdate{Item: &u})
	}
}

// abandon removes files written for a job that was deleted mid-run.
func (r *Runner) abandon(ctx context.Context, dir string) {
	logger.CtxInfo(ctx, "Job deleted while running, stopping")
	if err := os.RemoveAll(dir); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to remove output of deleted job")
	}
}

func (r *Runner) fail(ctx context.Context, jobID, msg string) {
	status := domain.JobStatusError
	if !r.store.UpdateJob(jobID, domain.JobUpdate{Status: &status, Error: &msg}) {
		if _, err := r.store.GetJob(jobID); errors.Is(err, domain.ErrJobNotFound) {
			r.abandon(ctx, r.OutputDir(jobID))
		}
		return
	}
	telemetry.JobsFailed.Inc()
	logger.With(logger.Fields{logger.FieldStatus: string(status)}).Warn(ctx, "Job failed: %s", msg)
	r.record(ctx, jobID)
}

// record writes the terminal snapshot to the history store. It outlives ctx so
// jobs interrupted by shutdown are still recorded.
func (r *Runner) record(ctx context.Context, jobID string) {
	if r.history == nil {
		return
	}
	job, err := r.store.GetJob(jobID)
	if err != nil {
		return
	}

	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyTimeout)
	defer cancel()
	if err := r.history.Record(recCtx, job); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to record job history")
	}
}

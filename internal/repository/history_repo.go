package repository

import (
	"context"
	"fmt"

	"github.com/timmy/mediafetch/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HistoryRepository stores terminal job snapshots for auditing.
type HistoryRepository struct {
	db *gorm.DB
}

// NewHistoryRepository creates a new HistoryRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *HistoryRepository: repository instance bound to db.
func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Record upserts the audit row of a job keyed by its id.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - job: terminal job snapshot.
// Returns:
//   - error: non-nil if the write fails.
func (r *HistoryRepository) Record(ctx context.Context, job domain.Job) error {
	rec := domain.NewJobRecord(job)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(rec).Error
	if err != nil {
		return fmt.Errorf("failed to record job %s: %w", job.ID, err)
	}
	return nil
}

// Totals counts recorded jobs per status.
func (r *HistoryRepository) Totals(ctx context.Context) (map[domain.JobStatus]int64, error) {
	var rows []struct {
		Status domain.JobStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&domain.JobRecord{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count job records: %w", err)
	}

	totals := make(map[domain.JobStatus]int64, len(rows))
	for _, row := range rows {
		totals[row.Status] = row.Count
	}
	return totals, nil
}

// ListRecent returns the newest records first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum number of rows; non-positive means no limit.
// Returns:
//   - []domain.JobRecord: records ordered by created_at descending.
//   - error: non-nil if the query fails.
func (r *HistoryRepository) ListRecent(ctx context.Context, limit int) ([]domain.JobRecord, error) {
	var records []domain.JobRecord
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// StringArray stores a string slice as a JSON text column.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded string representation of the slice.
//   - error: non-nil if marshaling fails.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	raw, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StringArray")
		}
		raw = []byte(str)
	}
	return json.Unmarshal(raw, a)
}

// JobRecord is the audit row written once a job reaches a terminal state.
// It is never read back into the live job table.
type JobRecord struct {
	ID         string      `gorm:"type:text;primaryKey" json:"id"`
	Format     Format      `gorm:"type:text;not null" json:"format"`
	Status     JobStatus   `gorm:"type:text;index:idx_job_records_status" json:"status"`
	URLs       StringArray `gorm:"type:text" json:"urls"`
	URLCount   int         `json:"url_count"`
	FileCount  int         `json:"file_count"`
	Error      string      `gorm:"type:text" json:"error,omitempty"`
	CreatedAt  time.Time   `gorm:"index:idx_job_records_created" json:"created_at"`
	FinishedAt time.Time   `json:"finished_at"`
}

// TableName returns the database table name for JobRecord.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (JobRecord) TableName() string {
	return "job_records"
}

// NewJobRecord builds the audit row for a terminal job snapshot.
func NewJobRecord(job Job) *JobRecord {
	return &JobRecord{
		ID:         job.ID,
		Format:     job.Format,
		Status:     job.Status,
		URLs:       StringArray(job.URLs),
		URLCount:   len(job.URLs),
		FileCount:  len(job.Files),
		Error:      job.Error,
		CreatedAt:  job.CreatedAt,
		FinishedAt: job.UpdatedAt,
	}
}

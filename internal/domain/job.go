package domain

import (
	"math"
	"time"
)

// JobStatus represents the lifecycle state of a fetch job.
// Values advance queued -> running -> finished|error and never move backwards.
type JobStatus string

const (
	JobStatusQueued   JobStatus = "queued"
	JobStatusRunning  JobStatus = "running"
	JobStatusFinished JobStatus = "finished"
	JobStatusError    JobStatus = "error"
)

// IsTerminal reports whether no further mutation is allowed.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusFinished || s == JobStatusError
}

func (s JobStatus) rank() int {
	switch s {
	case JobStatusQueued:
		return 0
	case JobStatusRunning:
		return 1
	case JobStatusFinished, JobStatusError:
		return 2
	default:
		return -1
	}
}

// ItemStatus represents the progress state of a single URL inside a job.
type ItemStatus string

const (
	ItemStatusQueued      ItemStatus = "queued"
	ItemStatusDownloading ItemStatus = "downloading"
	ItemStatusCompleted   ItemStatus = "completed"
	ItemStatusError       ItemStatus = "error"
)

// IsTerminal reports whether the item transfer has ended.
func (s ItemStatus) IsTerminal() bool {
	return s == ItemStatusCompleted || s == ItemStatusError
}

// Format is the output kind requested for a job.
type Format string

const (
	FormatMP3 Format = "mp3"
	FormatMP4 Format = "mp4"
)

// Valid reports whether the format is supported.
func (f Format) Valid() bool {
	return f == FormatMP3 || f == FormatMP4
}

// Ext returns the file extension produced for the format, without the dot.
func (f Format) Ext() string {
	return string(f)
}

// Item is the per-URL progress record owned by a Job.
type Item struct {
	URL      string     `json:"url"`
	Status   ItemStatus `json:"status"`
	Percent  float64    `json:"percent"`
	Filename string     `json:"filename,omitempty"`
}

// Job is one submitted batch of URLs sharing a format and lifecycle.
type Job struct {
	ID        string    `json:"id"`
	Status    JobStatus `json:"status"`
	Format    Format    `json:"format"`
	URLs      []string  `json:"urls"`
	Items     []Item    `json:"items"`
	Files     []string  `json:"files"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JobSummary is the listing projection of a Job.
type JobSummary struct {
	ID        string    `json:"id"`
	Status    JobStatus `json:"status"`
	Format    Format    `json:"format"`
	CreatedAt time.Time `json:"created_at"`
	URLCount  int       `json:"url_count"`
}

// NewJob builds a queued job with one queued item per URL.
// itemURLs holds the normalized locators and must match urls in length.
func NewJob(id string, urls, itemURLs []string, format Format, now time.Time) *Job {
	items := make([]Item, len(itemURLs))
	for i, u := range itemURLs {
		items[i] = Item{URL: u, Status: ItemStatusQueued}
	}
	return &Job{
		ID:        id,
		Status:    JobStatusQueued,
		Format:    format,
		URLs:      append([]string(nil), urls...),
		Items:     items,
		Files:     []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy safe to hand out to readers.
func (j *Job) Clone() Job {
	c := *j
	c.URLs = append([]string(nil), j.URLs...)
	c.Items = append([]Item(nil), j.Items...)
	c.Files = append([]string{}, j.Files...)
	return c
}

// Summary projects the job onto its listing fields.
func (j *Job) Summary() JobSummary {
	return JobSummary{
		ID:        j.ID,
		Status:    j.Status,
		Format:    j.Format,
		CreatedAt: j.CreatedAt,
		URLCount:  len(j.URLs),
	}
}

// ItemUpdate describes a change to one item. Zero values leave fields untouched.
type ItemUpdate struct {
	Index    int
	Status   ItemStatus
	Percent  *float64
	Filename string
}

// JobUpdate is a partial update applied atomically by the job store.
// Nil or empty fields leave the job untouched.
type JobUpdate struct {
	Status      *JobStatus
	Error       *string
	AppendFiles []string
	Item        *ItemUpdate
}

// Apply folds u into the job and reports whether anything changed.
// Terminal jobs are immutable, status never regresses, files only grow,
// an error message is only accepted together with the error status, and
// item percent stays within [0,100] without decreasing.
func (j *Job) Apply(u JobUpdate, now time.Time) bool {
	if j.Status.IsTerminal() {
		return false
	}

	changed := false

	if u.Item != nil && j.applyItem(*u.Item) {
		changed = true
	}

	if len(u.AppendFiles) > 0 {
		j.Files = append(j.Files, u.AppendFiles...)
		changed = true
	}

	if u.Status != nil && u.Status.rank() > j.Status.rank() {
		j.Status = *u.Status
		changed = true
		if j.Status == JobStatusError && u.Error != nil {
			j.Error = *u.Error
		}
	}

	if changed {
		j.UpdatedAt = now
	}
	return changed
}

func (j *Job) applyItem(u ItemUpdate) bool {
	if u.Index < 0 || u.Index >= len(j.Items) {
		return false
	}
	item := &j.Items[u.Index]
	if item.Status.IsTerminal() {
		return false
	}

	changed := false
	if u.Status != "" && u.Status != item.Status && u.Status != ItemStatusQueued {
		item.Status = u.Status
		changed = true
	}
	if u.Percent != nil {
		p := ClampPercent(*u.Percent)
		if p > item.Percent {
			item.Percent = p
			changed = true
		}
	}
	if u.Filename != "" && u.Filename != item.Filename {
		item.Filename = u.Filename
		changed = true
	}
	return changed
}

// ClampPercent bounds p to [0,100]. NaN maps to 0.
func ClampPercent(p float64) float64 {
	switch {
	case math.IsNaN(p) || p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

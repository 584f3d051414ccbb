package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/mediafetch/internal/api/middleware"
	"github.com/timmy/mediafetch/internal/domain"
	"github.com/timmy/mediafetch/internal/service"
)

// JobHandler handles job submission and inspection endpoints.
type JobHandler struct {
	jobs *service.JobService
}

// NewJobHandler creates a new job handler.
// Parameters:
//   - jobs: job service instance.
// Returns:
//   - *JobHandler: initialized handler.
func NewJobHandler(jobs *service.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// URLList accepts either free-form text or a JSON array of URLs.
type URLList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *URLList) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*l = service.ParseURLs(text)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return errors.New("urls must be a string or an array of strings")
	}
	*l = list
	return nil
}

// DownloadRequest is the body of POST /api/download.
type DownloadRequest struct {
	URLs   URLList `json:"urls"`
	Format string  `json:"format"`
}

// statusView is the public shape of a job. Files are exposed as basenames.
type statusView struct {
	ID        string           `json:"id"`
	Status    domain.JobStatus `json:"status"`
	Format    domain.Format    `json:"format"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Items     []domain.Item    `json:"items"`
	Error     *string          `json:"error"`
	Files     []string         `json:"files"`
}

func newStatusView(job domain.Job) statusView {
	v := statusView{
		ID:        job.ID,
		Status:    job.Status,
		Format:    job.Format,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
		Items:     job.Items,
		Files:     make([]string, len(job.Files)),
	}
	if job.Error != "" {
		v.Error = &job.Error
	}
	for i, f := range job.Files {
		v.Files[i] = filepath.Base(f)
	}
	return v
}

// Download handles POST /api/download.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *JobHandler) Download(c *gin.Context) {
	var req DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	id, err := h.jobs.Submit(c.Request.Context(), req.URLs, service.ParseFormat(req.Format))
	if err != nil {
		if domain.IsValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		middleware.GetLogger(c).WithError(err).Error("Failed to submit job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit job"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"job_id": id})
}

// Status handles GET /api/status/:id.
func (h *JobHandler) Status(c *gin.Context) {
	job, err := h.jobs.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, domain.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, newStatusView(job))
}

// Recent handles GET /api/recent.
func (h *JobHandler) Recent(c *gin.Context) {
	c.JSON(http.StatusOK, h.jobs.Recent(c.Request.Context()))
}

// Stats handles GET /api/stats.
func (h *JobHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.jobs.Stats(c.Request.Context()))
}

// Delete handles DELETE /api/jobs/:id.
func (h *JobHandler) Delete(c *gin.Context) {
	h.jobs.Delete(c.Request.Context(), c.Param("id"))
	c.Status(http.StatusNoContent)
}

package handler

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/mediafetch/internal/api/middleware"
	"github.com/timmy/mediafetch/internal/archive"
	"github.com/timmy/mediafetch/internal/domain"
	"github.com/timmy/mediafetch/internal/fetcher"
	"github.com/timmy/mediafetch/internal/service"
)

// FileHandler serves produced files and job archives.
type FileHandler struct {
	jobs    *service.JobService
	builder *archive.Builder
	mirror  *archive.Mirror
}

// NewFileHandler creates a new file handler.
// Parameters:
//   - jobs: job service instance.
//   - builder: builds the per-job zip archive.
//   - mirror: optional object storage mirror, may be nil.
// Returns:
//   - *FileHandler: initialized handler.
func NewFileHandler(jobs *service.JobService, builder *archive.Builder, mirror *archive.Mirror) *FileHandler {
	return &FileHandler{jobs: jobs, builder: builder, mirror: mirror}
}

// Get handles GET /api/files/:id/:index, where index is a file position or "zip".
func (h *FileHandler) Get(c *gin.Context) {
	if c.Param("index") == "zip" {
		h.Zip(c)
		return
	}
	h.File(c)
}

// Zip serves every file of a finished job as one archive.
func (h *FileHandler) Zip(c *gin.Context) {
	ctx := c.Request.Context()
	job, ok := h.lookup(c)
	if !ok {
		return
	}
	if job.Status != domain.JobStatusFinished {
		c.JSON(http.StatusBadRequest, gin.H{"error": "job not finished yet"})
		return
	}
	if len(job.Files) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no files to zip"})
		return
	}

	path, err := h.builder.Build(job.ID, job.Files)
	if errors.Is(err, archive.ErrNoFiles) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no files to zip"})
		return
	}
	if err != nil {
		middleware.GetLogger(c).WithError(err).Error("Failed to build archive")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build archive"})
		return
	}
	if !h.keepArchive(c, job.ID, path) {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	if h.mirror != nil {
		url, err := h.mirror.Publish(ctx, job.ID, path)
		if err == nil {
			c.Redirect(http.StatusFound, url)
			return
		}
		middleware.GetLogger(c).WithError(err).Warn("Failed to mirror archive, serving local copy")
	}

	c.FileAttachment(path, job.ID+".zip")
}

// File serves one produced file by its position in the job.
func (h *FileHandler) File(c *gin.Context) {
	job, ok := h.lookup(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 || index >= len(job.Files) {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}

	path := job.Files[index]
	if fi, err := os.Stat(path); err != nil || !fi.Mode().IsRegular() {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}

	c.FileAttachment(path, fetcher.SafeFilename(filepath.Base(path)))
}

// keepArchive reports whether the job still exists after its archive was
// built. An archive built for a job deleted or evicted meanwhile is removed.
func (h *FileHandler) keepArchive(c *gin.Context, jobID, path string) bool {
	if _, err := h.jobs.Get(c.Request.Context(), jobID); err == nil {
		return true
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		middleware.GetLogger(c).WithError(err).Warn("Failed to remove archive of deleted job")
	}
	return false
}

func (h *FileHandler) lookup(c *gin.Context) (domain.Job, bool) {
	job, err := h.jobs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return domain.Job{}, false
	}
	return job, true
}

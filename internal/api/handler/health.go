package handler

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	dataDir string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(dataDir string) *HealthHandler {
	return &HealthHandler{dataDir: dataDir}
}

// Health reports ok while the download directory is reachable.
func (h *HealthHandler) Health(c *gin.Context) {
	if fi, err := os.Stat(h.dataDir); err != nil || !fi.IsDir() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "degraded",
			"error":  "download directory unavailable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

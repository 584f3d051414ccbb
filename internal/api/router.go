package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/mediafetch/internal/api/handler"
	"github.com/timmy/mediafetch/internal/api/middleware"
	"github.com/timmy/mediafetch/internal/archive"
	"github.com/timmy/mediafetch/internal/config"
	"github.com/timmy/mediafetch/internal/logger"
	"github.com/timmy/mediafetch/internal/service"
	"github.com/timmy/mediafetch/internal/telemetry"
)

// Dependencies are the services the HTTP layer is built on.
type Dependencies struct {
	Jobs    *service.JobService
	Builder *archive.Builder
	// Mirror is nil when object storage is disabled
	Mirror *archive.Mirror
	// Limiter is nil when rate limiting is disabled
	Limiter middleware.Limiter
	Logger  *logger.Logger
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(deps Dependencies, cfg *config.Config) *gin.Engine {
	switch cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.CORS(cfg.Server.CORS))

	healthHandler := handler.NewHealthHandler(cfg.Jobs.DataDir)
	jobHandler := handler.NewJobHandler(deps.Jobs)
	fileHandler := handler.NewFileHandler(deps.Jobs, deps.Builder, deps.Mirror)

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(telemetry.Handler()))

	api := r.Group("/api")
	{
		download := []gin.HandlerFunc{jobHandler.Download}
		if deps.Limiter != nil {
			download = append([]gin.HandlerFunc{middleware.RateLimit(deps.Limiter)}, download...)
		}
		api.POST("/download", download...)

		api.GET("/status/:id", jobHandler.Status)
		api.GET("/recent", jobHandler.Recent)
		api.GET("/stats", jobHandler.Stats)
		api.DELETE("/jobs/:id", jobHandler.Delete)

		// :index is a file position or the literal "zip"
		api.GET("/files/:id/:index", fileHandler.Get)
	}

	return r
}

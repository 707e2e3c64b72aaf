package api

import (
	"video2voice/config"
	"video2voice/files"
	"video2voice/task"

	"github.com/gin-gonic/gin"
)

func SetupRouter(tm *task.Manager, store *files.Store, cfg *config.Config) *gin.Engine {
	r := gin.Default()
	r.Use(CORSMiddleware(cfg))
	h := NewHandler(tm, store, cfg)

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		// Batch download jobs
		v1.POST("/jobs", h.handleCreateJobs)
		v1.GET("/jobs", h.handleListJobs)
		v1.POST("/jobs/clear", h.handleClearJobs)
		v1.GET("/jobs/:taskId", h.handleGetJob)

		// Uploaded files are converted synchronously
		v1.POST("/local-extract", h.handleLocalExtract)

		v1.GET("/files", h.handleListFiles)
		v1.GET("/files/:filename", h.handleGetFile)
	}
	return r
}

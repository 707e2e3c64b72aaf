package api

import (
	"net/http"

	"video2voice/config"

	"github.com/gin-gonic/gin"
)

// CORSMiddleware lets browser front ends on other origins call the API and
// seek in served audio.
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	origin := cfg.CORSOrigin
	if origin == "" {
		origin = "*"
	}
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Range")
		h.Set("Access-Control-Expose-Headers", "Content-Range, Content-Length, Accept-Ranges")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

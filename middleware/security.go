package middleware

import (
	"net/http"

	"github.com/dododo1295/notetree/utils"

	"github.com/gin-gonic/gin"
)

// RequestSizeLimiter caps request bodies at maxSize bytes.
func RequestSizeLimiter(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			utils.RequestTooLarge(c, "Request body too large")
			return
		}

		var w http.ResponseWriter = c.Writer
		c.Request.Body = http.MaxBytesReader(w, c.Request.Body, maxSize)
		c.Next()
	}
}

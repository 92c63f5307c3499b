package middleware

import "github.com/gin-gonic/gin"

// CacheControlMiddleware sets the Cache-Control header, e.g. "no-store" for
// per-user API responses.
func CacheControlMiddleware(directive string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", directive)
		c.Next()
	}
}

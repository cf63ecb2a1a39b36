package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	resp "go-gin-timeclock/internal/transport/http/response"
)

// MaxBodyBytes caps the request body; handlers see *http.MaxBytesError on overflow.
func MaxBodyBytes(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > n {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, resp.Error(resp.CodeTooLarge, "request body too large"))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

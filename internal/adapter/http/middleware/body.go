package middleware

import (
	"net/http"

	"order-sync-gateway/internal/adapter/http/dto"
	"order-sync-gateway/pkg/apperror"

	"github.com/gin-gonic/gin"
)

const boundBodyKey = "bound_body"

// MaxBodySize returns middleware that limits the request body size.
// Once the limit is exceeded the reader returns an error and binding reports
// a max_bytes violation.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// ValidateJSON binds and validates the JSON body into a T. Every failed rule
// is reported in one VALIDATION_FAILED error; on success the handler reads
// the value with Body.
func ValidateJSON[T any]() gin.HandlerFunc {
	return func(c *gin.Context) {
		var v T
		if err := c.ShouldBindJSON(&v); err != nil {
			_ = c.Error(apperror.Validation(dto.Violations(err)...))
			c.Abort()
			return
		}
		c.Set(boundBodyKey, &v)
		c.Next()
	}
}

// ValidateQuery is ValidateJSON for the query string.
func ValidateQuery[T any]() gin.HandlerFunc {
	return func(c *gin.Context) {
		var v T
		if err := c.ShouldBindQuery(&v); err != nil {
			_ = c.Error(apperror.Validation(dto.Violations(err)...))
			c.Abort()
			return
		}
		c.Set(boundBodyKey, &v)
		c.Next()
	}
}

// Body returns the value bound by ValidateJSON or ValidateQuery. It panics
// when the route was registered without one, which Recovery reports as a 500.
func Body[T any](c *gin.Context) *T {
	return c.MustGet(boundBodyKey).(*T)
}

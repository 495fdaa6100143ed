package middleware

import (
	"context"
	"errors"
	"time"

	"order-sync-gateway/pkg/apperror"

	"github.com/gin-gonic/gin"
)

// deadlineWriter drops writes made after the request deadline so a late
// handler cannot overwrite the timeout response.
type deadlineWriter struct {
	gin.ResponseWriter
	ctx context.Context
}

func (w *deadlineWriter) expired() bool {
	return errors.Is(w.ctx.Err(), context.DeadlineExceeded)
}

func (w *deadlineWriter) WriteHeader(code int) {
	if w.expired() {
		return
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *deadlineWriter) WriteHeaderNow() {
	if w.expired() {
		return
	}
	w.ResponseWriter.WriteHeaderNow()
}

func (w *deadlineWriter) Write(b []byte) (int, error) {
	if w.expired() && !w.ResponseWriter.Written() {
		return len(b), nil
	}
	return w.ResponseWriter.Write(b)
}

func (w *deadlineWriter) WriteString(s string) (int, error) {
	if w.expired() && !w.ResponseWriter.Written() {
		return len(s), nil
	}
	return w.ResponseWriter.WriteString(s)
}

// Timeout bounds the request context by d. The timeout is cooperative: the
// handler keeps running until it returns, so only context-aware work stops at
// the deadline. A handler that finishes after the deadline without having
// written its response yields a 504 TIMEOUT_ERROR.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		orig := c.Writer
		dw := &deadlineWriter{ResponseWriter: orig, ctx: ctx}
		c.Writer = dw
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		c.Writer = orig
		if dw.expired() && !orig.Written() {
			if len(c.Errors) == 0 || apperror.KindOf(c.Errors.Last().Err) != apperror.KindTimeout {
				_ = c.Error(apperror.Timeout(ctx.Err()))
			}
			c.Abort()
		}
	}
}

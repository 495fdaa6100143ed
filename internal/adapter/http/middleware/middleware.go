package middleware

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"order-sync-gateway/internal/metrics"
	"order-sync-gateway/pkg/apperror"
	"order-sync-gateway/pkg/logger"
	"order-sync-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	HeaderCorrelationID = "X-Correlation-ID"
	HeaderRequestID     = "X-Request-ID"
)

var correlationRe = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// NewCorrelationID returns a fresh 12-hex-character identifier.
func NewCorrelationID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Correlation assigns every request a correlation id. A well-formed id sent by
// the caller is reused; anything else is replaced. The id is echoed in the
// response header and a logger tagged with it is stored in the request
// context.
func Correlation(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderCorrelationID)
		if id == "" {
			id = c.GetHeader(HeaderRequestID)
		}
		if !correlationRe.MatchString(id) {
			id = NewCorrelationID()
		}

		c.Set(response.CorrelationKey, id)
		c.Request = c.Request.WithContext(logger.WithCorrelationID(c.Request.Context(), log, id))
		c.Header(HeaderCorrelationID, id)
		c.Next()
	}
}

// ErrorHandler writes the error envelope for the last error attached by the
// inner chain, unless a response was already written. Every handled error is
// logged and counted.
func ErrorHandler(store *metrics.Store, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		ce := apperror.From(err)
		status := ce.HTTPStatus()

		l := logger.FromContext(c.Request.Context(), log)
		event := l.Warn()
		if status >= http.StatusInternalServerError {
			event = l.Error().Err(err)
		}
		event.
			Str("kind", string(ce.Kind)).
			Int("status", status).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg(ce.Message)

		if store != nil {
			store.RecordError(metrics.SourceHTTP, ce, c.Param("order_id"), response.CorrelationID(c))
		}
		if !c.Writer.Written() {
			response.Error(c, ce)
		}
	}
}

// RequestLogger logs every HTTP request through the request-scoped logger.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		l := logger.FromContext(c.Request.Context(), log)
		event := l.Info()
		if status >= http.StatusInternalServerError {
			event = l.Error()
		} else if status >= http.StatusBadRequest {
			event = l.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery turns a panic into an UNKNOWN_ERROR for ErrorHandler to write, so
// the client only sees the sanitized 500 envelope.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.FromContext(c.Request.Context(), log).Error().
					Interface("panic", r).
					Str("path", c.Request.URL.Path).
					Msg("panic recovered")
				_ = c.Error(apperror.Internal(fmt.Errorf("panic: %v", r)))
				c.Abort()
			}
		}()
		c.Next()
	}
}

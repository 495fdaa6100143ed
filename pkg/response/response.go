package response

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"order-sync-gateway/pkg/apperror"
	"order-sync-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
)

// CorrelationKey is the gin context key holding the correlation identifier.
const CorrelationKey = "correlation_id"

// SuccessResponse is the standard success envelope.
type SuccessResponse struct {
	Data          interface{} `json:"data"`
	CorrelationID string      `json:"correlation_id"`
	Timestamp     string      `json:"timestamp"`
}

// ErrorResponse is the standard error envelope. Details are only populated
// for client errors; server errors carry the sanitized message only.
type ErrorResponse struct {
	ErrorCode     string               `json:"error_code"`
	Message       string               `json:"message"`
	Retryable     bool                 `json:"retryable"`
	Details       map[string]any       `json:"details,omitempty"`
	Violations    []apperror.Violation `json:"violations,omitempty"`
	CorrelationID string               `json:"correlation_id"`
	Timestamp     string               `json:"timestamp"`
}

// OK sends a 200 response with data.
func OK(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, data)
}

// Created sends a 201 response with data.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data)
}

// JSON sends data in the success envelope with an arbitrary status.
func JSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, SuccessResponse{
		Data:          data,
		CorrelationID: CorrelationID(c),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	})
}

// Error normalizes err into a ConnectorError and writes it.
func Error(c *gin.Context, err error) {
	ce := apperror.From(err)
	status := ce.HTTPStatus()

	body := ErrorResponse{
		ErrorCode:     string(ce.Kind),
		Message:       ce.PublicMessage(),
		Retryable:     ce.Retryable,
		CorrelationID: CorrelationID(c),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}
	if status < http.StatusInternalServerError {
		body.Details = publicDetails(ce.Details)
		body.Violations = ce.Violations
	}

	if ra := ce.RetryAfter(); ra > 0 {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(ra.Seconds()))))
	}
	c.AbortWithStatusJSON(status, body)
}

// CorrelationID retrieves the correlation identifier for the request.
func CorrelationID(c *gin.Context) string {
	if id, exists := c.Get(CorrelationKey); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	if c.Request != nil {
		return logger.CorrelationID(c.Request.Context())
	}
	return ""
}

func publicDetails(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		if d, ok := v.(time.Duration); ok {
			out[k] = d.String()
			continue
		}
		out[k] = v
	}
	return out
}

// Package handlers provides the HTTP handlers for the public and admin API.
//
// This file defines the response helpers every handler uses: the error
// envelope, fail() which logs server-side failures with the request-scoped
// logger, and the mapping from service errors to status codes.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/portal-rpa/internal/http/middleware"
	"github.com/tbourn/portal-rpa/internal/services"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"bad_request"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"Submission ID cannot be empty"`
}

// fail aborts with the error envelope. 5xx responses are logged.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail is the exported variant of fail() for router fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// failService maps a service error onto the envelope. fallback is the code
// used for unclassified 500s.
func failService(c *gin.Context, err error, fallback string) {
	var oe *services.OrchestrationError
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrKeyReused):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.As(err, &oe):
		fail(c, http.StatusInternalServerError, ErrCodeSubmissionFailed, oe.Error())
	case errors.Is(err, services.ErrAllocationFailed):
		fail(c, http.StatusInternalServerError, ErrCodeAllocationFailed, err.Error())
	default:
		fail(c, http.StatusInternalServerError, fallback, err.Error())
	}
}

// Package handlers provides the HTTP handler implementations for the public
// and administrative API.
//
// This file defines the response utilities every endpoint uses: a structured
// error envelope with a stable machine-readable code, and small helpers for
// success responses so all endpoints answer in the same shape.
//
// Conventions:
//   - Every error response is an ErrorResponse with a stable `code`.
//   - fail() centralizes error formatting and logs 5xx responses with the
//     request-scoped logger.
//   - ok() and noContent() keep success responses uniform.
//
// Example error response:
//
//	HTTP/1.1 403 Forbidden
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "payment_required",
//	  "message": "payment not completed: status is pending",
//	  "payment_status": "pending"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/acervopress/go-newsstand-backend/internal/http/middleware"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
//
// RequestID correlates server logs with client-side errors. Code is a
// stable machine-readable string (see errors.go). Message is safe to show
// to end users. PaymentStatus is populated only on payment_required errors
// so the storefront can explain why a download was refused.
type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	Code      string `json:"code" example:"not_found"`
	Message   string `json:"message" example:"resource not found"`
	// Current provider-side payment status, on payment_required only.
	PaymentStatus string `json:"payment_status,omitempty" example:"pending"`
}

// fail aborts the request with a structured error. Server errors (>= 500)
// are logged with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	failWith(c, status, ErrorResponse{Code: code, Message: msg})
}

// failWith is fail with a caller-built envelope, for errors that carry
// extra fields. The request id is filled in here.
func failWith(c *gin.Context, status int, resp ErrorResponse) {
	resp.RequestID = c.Writer.Header().Get("X-Request-ID")

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", resp.Code).
			Str("message", resp.Message).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail() for router-level fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes a success JSON response with the given status.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes HTTP 204.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

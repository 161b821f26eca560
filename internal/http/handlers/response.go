// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the error envelope returned by every failed request and
// the helpers handlers use to finish a request. Handlers never write error
// bodies themselves: fail() records the error on the Gin context and aborts,
// and ErrorHandler (errors.go) turns the recorded error into an envelope.
//
// Example error response:
//
//	HTTP/1.1 400 Bad Request
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": 400,
//	  "errors": ["email: must be a well-formed email address"],
//	  "time": "2025-01-02T15:04:05Z",
//	  "message": "validation failed for request: email: must be a well-formed email address"
//	}
//
// Example success response:
//
//	HTTP/1.1 200 OK
//	{ "id": "0b8c...", "name": "user@example.com", "created_at": "...", "updated_at": "..." }
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
//
// Code and Time are always set. Error carries a single description and
// Errors a list of per-field messages; which one is filled depends on the
// failure kind.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// HTTP status code
	Code int `json:"code" example:"400"`
	// Single failure description
	Error string `json:"error,omitempty" example:"Email with name 'user@example.com' already exists"`
	// Per-field failure descriptions
	Errors []string `json:"errors,omitempty" example:"email: must be a well-formed email address"`
	// When the failure was handled (UTC)
	Time time.Time `json:"time" example:"2025-01-02T15:04:05Z"`
	// Human-readable summary
	Message string `json:"message" example:"Email with name 'user@example.com' already exists"`
}

// now is replaced in tests.
var now = func() time.Time { return time.Now().UTC() }

// fail records err on the request and stops the handler chain. The
// response is written by ErrorHandler.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// Fail is the exported variant of fail(), used by the router fallbacks.
func Fail(c *gin.Context, err error) { fail(c, err) }

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

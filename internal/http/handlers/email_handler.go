// Email HTTP handlers.
//
// This file exposes REST endpoints for collected addresses:
//   - POST /                     (submit an address)
//   - GET  /emails?name={email}  (look up a stored address)
//
// Handlers are transport-thin: they bind input, call EmailService and
// serialize the result. Every failure goes through fail() so the response
// is shaped by the classifier.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-email-collector/internal/domain"
	"github.com/tbourn/go-email-collector/internal/fault"
	"github.com/tbourn/go-email-collector/internal/http/middleware"
)

// EmailService defines the address operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type EmailService interface {
	// Create stores a new address, rejecting any case variant of a stored one.
	Create(ctx context.Context, name string) (*domain.Email, error)
	// Get returns the stored address matching name, ignoring case.
	Get(ctx context.Context, name string) (*domain.Email, error)
	// Update validates and inserts or replaces e.
	Update(ctx context.Context, e *domain.Email) (*domain.Email, error)
}

// Handlers groups the HTTP endpoints of the service.
type Handlers struct {
	emailSvc EmailService
}

// New constructs and returns a Handlers instance bound to the given service.
func New(emailSvc EmailService) *Handlers {
	return &Handlers{emailSvc: emailSvc}
}

// SubmitEmailRequest is the JSON payload for submitting an address.
type SubmitEmailRequest struct {
	// Email is the address to collect. It must be well-formed.
	Email string `json:"email" binding:"required,email" example:"User@Example.com"`
}

// SubmitEmail godoc
// @ID          submitEmail
// @Summary     Submit an email address
// @Description Validates the address, lowercases it and stores it. Any case
// @Description variant of an already stored address is rejected.
// @Tags        Emails
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.SubmitEmailRequest  true  "Address to collect"
// @Success     200   {object}  domain.Email                 "Stored record"
// @Failure     400   {object}  handlers.ErrorResponse       "Invalid or duplicate address"
// @Failure     415   {object}  handlers.ErrorResponse       "Body is not JSON"
// @Failure     500   {object}  handlers.ErrorResponse       "Internal error"
// @Router      / [post]
func (h *Handlers) SubmitEmail(c *gin.Context) {
	var req SubmitEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}

	e, err := h.emailSvc.Create(c.Request.Context(), req.Email)
	if err != nil {
		fail(c, err)
		return
	}

	middleware.LoggerFrom(c).Debug().Str("email_id", e.ID).Msg("email stored")
	ok(c, http.StatusOK, e)
}

// GetEmail godoc
// @ID          getEmail
// @Summary     Look up an email address
// @Description Returns the stored record whose name matches, ignoring case.
// @Tags        Emails
// @Produce     json
// @Param       name  query     string                  true  "Address to look up"  example(user@example.com)
// @Success     200   {object}  domain.Email            "Stored record"
// @Failure     400   {object}  handlers.ErrorResponse  "Missing name parameter"
// @Failure     422   {object}  handlers.ErrorResponse  "Address not stored"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /emails [get]
func (h *Handlers) GetEmail(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		fail(c, &fault.MissingError{Name: "name"})
		return
	}

	e, err := h.emailSvc.Get(c.Request.Context(), name)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, e)
}

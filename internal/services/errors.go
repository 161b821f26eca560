// Package services defines the business logic for collected emails.
// This file centralizes service-level sentinels. They are wrapped in
// fault.StatusError values that carry the HTTP status the business rule
// decides on, so callers can test with errors.Is while the classifier
// reads the status.
package services

import "errors"

var (
	// ErrEmailExists indicates an address is already stored under some
	// case variant of the same name.
	ErrEmailExists = errors.New("email already exists")

	// ErrEmailNotFound indicates no stored address matches the name.
	ErrEmailNotFound = errors.New("email not found")
)

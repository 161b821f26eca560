// Package services – EmailService
//
// This file implements EmailService, which owns the rules for collected
// addresses: names are normalized to lowercase, duplicates are rejected
// ignoring case, and entities are validated before they are written.
//
// Duplicates and misses are reported as fault.StatusError values (400 and
// 422 respectively) wrapping ErrEmailExists / ErrEmailNotFound.
package services

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/go-email-collector/internal/domain"
	"github.com/tbourn/go-email-collector/internal/fault"
	"github.com/tbourn/go-email-collector/internal/repo"
)

// EmailRepo defines the repository contract required by EmailService.
type EmailRepo interface {
	// FindEmailByName returns the row stored under a normalized name, or repo.ErrNotFound.
	FindEmailByName(ctx context.Context, db *gorm.DB, name string) (*domain.Email, error)
	// SaveEmail inserts or replaces e, returning repo.ErrDuplicate on a unique violation.
	SaveEmail(ctx context.Context, db *gorm.DB, e *domain.Email) (*domain.Email, error)
}

// EmailService provides create/get/update operations for addresses.
type EmailService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the email repository used by this service.
	Repo EmailRepo
}

// NewEmailService constructs an EmailService with the provided DB and repo.
func NewEmailService(db *gorm.DB, r EmailRepo) *EmailService {
	return &EmailService{DB: db, Repo: r}
}

// Normalize lowercases an address for comparison and storage.
func Normalize(name string) string {
	return cases.Lower(language.Und).String(name)
}

// Create stores a new address.
//
// The name is normalized first. If any case variant is already stored the
// call fails with a 400 StatusError wrapping ErrEmailExists; the same error is
// returned when a concurrent create wins the race and the unique index
// rejects this insert.
func (s *EmailService) Create(ctx context.Context, name string) (*domain.Email, error) {
	norm := Normalize(name)
	_, err := s.Repo.FindEmailByName(ctx, s.DB, norm)
	switch {
	case err == nil:
		return nil, duplicate(name)
	case !errors.Is(err, repo.ErrNotFound):
		return nil, err
	}
	return s.save(ctx, &domain.Email{Name: norm}, name)
}

// Get returns the address stored under name, ignoring case. It never writes.
func (s *EmailService) Get(ctx context.Context, name string) (*domain.Email, error) {
	e, err := s.Repo.FindEmailByName(ctx, s.DB, Normalize(name))
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fault.Status(http.StatusUnprocessableEntity, ErrEmailNotFound,
			"Email with name '%s' not found.", name)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Update normalizes and validates e, then inserts or replaces it, returning
// the stored form with its ID assigned. A case variant of another stored
// name is rejected by the unique index and reported like a duplicate Create.
func (s *EmailService) Update(ctx context.Context, e *domain.Email) (*domain.Email, error) {
	if e == nil {
		return nil, e.Validate()
	}
	return s.save(ctx, e, e.Name)
}

// save writes e under its normalized name; input is the name as the caller
// gave it and appears in the duplicate message.
func (s *EmailService) save(ctx context.Context, e *domain.Email, input string) (*domain.Email, error) {
	e.Name = Normalize(e.Name)
	if err := e.Validate(); err != nil {
		return nil, err
	}
	saved, err := s.Repo.SaveEmail(ctx, s.DB, e)
	if err != nil {
		if repo.IsDuplicate(err) {
			return nil, duplicate(input)
		}
		return nil, err
	}
	return saved, nil
}

func duplicate(name string) error {
	return fault.Status(http.StatusBadRequest, ErrEmailExists,
		"Email with name '%s' already exists", name)
}

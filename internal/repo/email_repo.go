// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Email model.
//
// The repository is thin: lookups and writes only. Names arrive already
// normalized by services.EmailService, so lookups compare the stored column
// directly and can use the unique index.
//
// Error semantics:
//   - FindEmailByName returns ErrNotFound when no row matches.
//   - SaveEmail returns ErrDuplicate when the unique index on name rejects
//     the write; any other DB error (a primary-key conflict included) is
//     propagated as-is.
package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/tbourn/go-email-collector/internal/domain"
)

// NameIndex is the unique index on emails.name.
const NameIndex = "ux_emails_name"

// pgUniqueViolation is the Postgres SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = gorm.ErrRecordNotFound

	// ErrDuplicate indicates a unique-constraint violation on write.
	ErrDuplicate = errors.New("duplicate")
)

// FindEmailByName looks up the row stored under the normalized name.
func FindEmailByName(ctx context.Context, db *gorm.DB, name string) (*domain.Email, error) {
	var e domain.Email
	err := db.WithContext(ctx).
		Where("name = ?", name).
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// SaveEmail inserts e when it has no ID yet and replaces the stored row
// otherwise. A fresh UUID is assigned on insert.
func SaveEmail(ctx context.Context, db *gorm.DB, e *domain.Email) (*domain.Email, error) {
	tx := db.WithContext(ctx)
	var err error
	if e.ID == "" {
		e.ID = uuid.NewString()
		err = tx.Create(e).Error
		if err != nil {
			e.ID = ""
		}
	} else {
		err = tx.Save(e).Error
	}
	if err != nil {
		if IsDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return e, nil
}

// CountEmails returns the number of rows stored under name, or all rows
// when name is empty.
func CountEmails(ctx context.Context, db *gorm.DB, name string) (int64, error) {
	var n int64
	q := db.WithContext(ctx).Model(&domain.Email{})
	if name != "" {
		q = q.Where("name = ?", name)
	}
	err := q.Count(&n).Error
	return n, err
}

// IsDuplicate reports whether err is a unique violation on NameIndex.
//
// When the driver names the violated constraint (the Postgres error, the
// SQLite "table.column" suffix) only a conflict on the name counts, so a
// primary-key clash is not mistaken for a duplicate address. Errors already
// translated to gorm.ErrDuplicatedKey carry no constraint and are accepted.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation &&
			(pgErr.ConstraintName == "" || pgErr.ConstraintName == NameIndex)
	}

	low := strings.ToLower(err.Error())
	switch {
	// SQLite: "UNIQUE constraint failed: emails.name"
	case strings.Contains(low, "unique constraint failed"):
		return strings.Contains(low, "emails.name")
	// Postgres text: `duplicate key value violates unique constraint "ux_emails_name"`
	case strings.Contains(low, "duplicate key"):
		if j := strings.Index(low, `"`); j >= 0 {
			return strings.Contains(low[j:], `"`+NameIndex+`"`)
		}
		return true
	}
	return false
}

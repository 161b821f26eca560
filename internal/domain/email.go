// Package domain defines the persistence model for collected email
// addresses. The type is mapped with GORM and validated with
// go-playground/validator before it is written to the store.
package domain

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tbourn/go-email-collector/internal/fault"
)

// Email is a collected address.
//
// Fields:
//   - ID: UUID primary key (char(36)), assigned on first save.
//   - Name: the address, stored lowercased. The unique index on the stored
//     value is what makes uniqueness case-insensitive.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Email struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Name      string    `json:"name"       gorm:"type:varchar(254);not null;uniqueIndex:ux_emails_name" validate:"required,email,max=254"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Email.
func (Email) TableName() string { return "emails" }

func (e Email) String() string {
	return "Email{id=" + e.ID + ", name='" + e.Name + "'}"
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the entity constraints and reports every violation as a
// fault.ConstraintViolations. A nil receiver is itself a violation.
func (e *Email) Validate() error {
	if e == nil {
		return fault.ConstraintViolations{{Entity: "Email", Path: "<root>", Message: "must not be null"}}
	}
	err := validate.Struct(e)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(fault.ConstraintViolations, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fault.Violation{
			Entity:  "Email",
			Path:    propertyPath(fe.StructField()),
			Message: ConstraintMessage(fe.Tag(), fe.Param()),
		})
	}
	return out
}

func propertyPath(field string) string {
	switch field {
	case "Name":
		return "name"
	case "ID":
		return "id"
	}
	return field
}

// ConstraintMessage returns the default message for a validator tag. The
// wording is shared by entity and request validation.
func ConstraintMessage(tag, param string) string {
	switch tag {
	case "required":
		return "must not be empty"
	case "email":
		return "must be a well-formed email address"
	case "max":
		return "size must be between 0 and " + param
	case "min":
		if n, err := strconv.Atoi(param); err == nil && n == 1 {
			return "must not be empty"
		}
		return "size must be at least " + param
	}
	return "failed on the '" + tag + "' constraint"
}

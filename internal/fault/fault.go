// Package fault defines the failure taxonomy shared by every layer of the
// service. Each failure kind is a concrete error type; the HTTP layer turns
// any error into a status code and envelope by asking which kind it is.
//
// Errors raised by lower layers stay ordinary Go errors. Wrap them with
// fmt.Errorf("...: %w", err) and the classifier still finds the kind with
// errors.As.
package fault

import (
	"errors"
	"fmt"
	"strings"
)

// Kind enumerates the failure classes understood by the classifier.
type Kind uint8

const (
	KindUnclassified Kind = iota
	KindFieldValidation
	KindTypeMismatch
	KindMissing
	KindConstraintViolation
	KindValidation
	KindAccessDenied
	KindRouteNotFound
	KindMethodNotAllowed
	KindUnsupportedMediaType
	KindStatus
)

var kindNames = [...]string{
	KindUnclassified:         "unclassified",
	KindFieldValidation:      "field_validation",
	KindTypeMismatch:         "type_mismatch",
	KindMissing:              "missing_part",
	KindConstraintViolation:  "constraint_violation",
	KindValidation:           "validation",
	KindAccessDenied:         "access_denied",
	KindRouteNotFound:        "route_not_found",
	KindMethodNotAllowed:     "method_not_allowed",
	KindUnsupportedMediaType: "unsupported_media_type",
	KindStatus:               "status",
}

// String returns the snake_case name used in logs and metric labels.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[KindUnclassified]
}

// FieldError is a single violated constraint on a named request field.
type FieldError struct {
	Field   string
	Message string
}

func (f FieldError) String() string { return f.Field + ": " + f.Message }

// FieldErrors reports request fields that failed validation.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for _, f := range fe {
		parts = append(parts, f.String())
	}
	return "validation failed for request: " + strings.Join(parts, "; ")
}

// Lines renders each violation as "<field>: <message>".
func (fe FieldErrors) Lines() []string {
	out := make([]string, 0, len(fe))
	for _, f := range fe {
		out = append(out, f.String())
	}
	return out
}

// TypeMismatchError reports a bound value of the wrong type.
type TypeMismatchError struct {
	Value string // offending value, or its JSON kind when the value is unknown
	Field string
	Type  string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s for %s should be of type %s", e.Value, e.Field, e.Type)
}

// MissingError reports an absent required request part or parameter.
type MissingError struct {
	Name string
	// Part is true for body parts, false for query/path parameters.
	Part bool
}

func (e *MissingError) Error() string {
	if e.Part {
		return e.Name + " part is missing"
	}
	return e.Name + " parameter is missing"
}

// Violation is a constraint failure on an entity property.
type Violation struct {
	Entity  string
	Path    string
	Message string
}

func (v Violation) String() string { return v.Entity + " " + v.Path + ": " + v.Message }

// ConstraintViolations reports entity-level validation failures, raised when
// a domain value is checked just before it is persisted.
type ConstraintViolations []Violation

func (cv ConstraintViolations) Error() string {
	parts := make([]string, 0, len(cv))
	for _, v := range cv {
		parts = append(parts, v.Path+": "+v.Message)
	}
	return strings.Join(parts, ", ")
}

// Lines renders each violation as "<entity> <path>: <message>".
func (cv ConstraintViolations) Lines() []string {
	out := make([]string, 0, len(cv))
	for _, v := range cv {
		out = append(out, v.String())
	}
	return out
}

// ValidationError is a validation failure that carries only a message.
type ValidationError struct {
	Msg string
	Err error
}

func (e *ValidationError) Error() string { return e.Msg }
func (e *ValidationError) Unwrap() error { return e.Err }

// AccessDeniedError reports a permission failure.
type AccessDeniedError struct {
	Msg string
	Err error
}

func (e *AccessDeniedError) Error() string { return e.Msg }
func (e *AccessDeniedError) Unwrap() error { return e.Err }

// RouteNotFoundError reports a request no route matched.
type RouteNotFoundError struct {
	Method string
	URL    string
}

func (e *RouteNotFoundError) Error() string {
	return "No handler found for " + e.Method + " " + e.URL
}

// MethodNotAllowedError reports a path that exists under other methods.
type MethodNotAllowedError struct {
	Method    string
	Supported []string
}

func (e *MethodNotAllowedError) Error() string {
	return "Request method '" + e.Method + "' not supported"
}

// Detail is the client-facing description listing the supported methods.
func (e *MethodNotAllowedError) Detail() string {
	return e.Method + " method is not supported for this request. Supported methods are " +
		strings.Join(e.Supported, " ")
}

// MediaTypeError reports a request body in a content type the route does
// not consume.
type MediaTypeError struct {
	ContentType string
	Supported   []string
}

func (e *MediaTypeError) Error() string {
	ct := e.ContentType
	if ct == "" {
		ct = "(none)"
	}
	return "Content type '" + ct + "' not supported"
}

// Detail is the client-facing description listing the supported types.
func (e *MediaTypeError) Detail() string {
	return e.ContentType + " media type is not supported. Supported media types are " +
		strings.Join(e.Supported, ", ")
}

// StatusError is raised by business logic that decides the HTTP status
// itself, e.g. a duplicate or a missing record.
type StatusError struct {
	Status int
	Reason string
	Err    error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.Status, e.Reason, e.Err)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Reason)
}

func (e *StatusError) Unwrap() error { return e.Err }

// Status builds a StatusError with a formatted reason.
func Status(status int, cause error, format string, args ...any) error {
	return &StatusError{Status: status, Reason: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf reports the kind of the first fault type found in err's chain.
// Errors from outside this package yield KindUnclassified; the HTTP
// classifier recognizes a few library errors on top of this.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnclassified
	}
	var (
		fe  FieldErrors
		tm  *TypeMismatchError
		me  *MissingError
		cv  ConstraintViolations
		ve  *ValidationError
		ad  *AccessDeniedError
		rn  *RouteNotFoundError
		mna *MethodNotAllowedError
		mt  *MediaTypeError
		se  *StatusError
	)
	switch {
	case errors.As(err, &fe):
		return KindFieldValidation
	case errors.As(err, &tm):
		return KindTypeMismatch
	case errors.As(err, &me):
		return KindMissing
	case errors.As(err, &cv):
		return KindConstraintViolation
	case errors.As(err, &ve):
		return KindValidation
	case errors.As(err, &ad):
		return KindAccessDenied
	case errors.As(err, &rn):
		return KindRouteNotFound
	case errors.As(err, &mna):
		return KindMethodNotAllowed
	case errors.As(err, &mt):
		return KindUnsupportedMediaType
	case errors.As(err, &se):
		return KindStatus
	}
	return KindUnclassified
}

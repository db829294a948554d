package taskflow

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure for the boundary layer that maps errors to
// transport responses.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindPermissionDenied Kind = "permission_denied"
	KindValidation       Kind = "validation"
	KindConflict         Kind = "conflict"
)

// Sentinel errors, one per kind plus a few named domain cases.
var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrValidation       = errors.New("validation failed")
	ErrConflict         = errors.New("conflict")

	ErrNoTeamMembers        = &Error{Kind: KindNotFound, Entity: "team", Message: "no team members"}
	ErrTaskAlreadyCompleted = &Error{Kind: KindConflict, Entity: "task", Message: "task is already completed"}
)

// Error is the result type every core operation returns on failure.
type Error struct {
	Op      string // Operation that failed
	Kind    Kind   // Failure class
	Entity  string // Entity involved (task, user, ...)
	Field   string // Offending field for validation errors
	Message string // Human readable detail
	Err     error  // Underlying error
}

func (e *Error) Error() string {
	var parts []string

	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	if e.Entity != "" {
		parts = append(parts, fmt.Sprintf("entity=%s", e.Entity))
	}
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}

	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
		if sentinel := e.sentinel(); sentinel != nil {
			msg = sentinel.Error()
		}
	}
	parts = append(parts, msg)

	if e.Err != nil && !isSentinel(e.Err) {
		parts = append(parts, e.Err.Error())
	}

	return "taskflow: " + strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels and other *Error values with the same
// kind and message, so the named domain errors work with errors.Is even
// after being re-wrapped with an operation name.
func (e *Error) Is(target error) bool {
	if target == e.sentinel() {
		return true
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message != "" && t.Message == e.Message
}

func (e *Error) sentinel() error {
	switch e.Kind {
	case KindNotFound:
		return ErrNotFound
	case KindPermissionDenied:
		return ErrPermissionDenied
	case KindValidation:
		return ErrValidation
	case KindConflict:
		return ErrConflict
	}
	return nil
}

func isSentinel(err error) bool {
	return err == ErrNotFound || err == ErrPermissionDenied || err == ErrValidation || err == ErrConflict
}

// WithOp returns a copy of a named error tagged with the failing operation.
func (e *Error) WithOp(op string) *Error {
	c := *e
	c.Op = op
	return &c
}

func NotFound(op, entity string) *Error {
	return &Error{Op: op, Kind: KindNotFound, Entity: entity, Message: entity + " not found"}
}

func NotFoundf(op, entity, format string, args ...interface{}) *Error {
	return &Error{Op: op, Kind: KindNotFound, Entity: entity, Message: fmt.Sprintf(format, args...)}
}

func PermissionDenied(op, reason string) *Error {
	return &Error{Op: op, Kind: KindPermissionDenied, Message: reason}
}

func Invalid(op, field, message string) *Error {
	return &Error{Op: op, Kind: KindValidation, Field: field, Message: message}
}

func Conflict(op, entity, message string) *Error {
	return &Error{Op: op, Kind: KindConflict, Entity: entity, Message: message}
}

// KindOf reports the kind of err, or "" when err is not a taskflow error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return KindValidation
	}
	return ""
}

func IsNotFound(err error) bool         { return errors.Is(err, ErrNotFound) }
func IsPermissionDenied(err error) bool { return errors.Is(err, ErrPermissionDenied) }
func IsValidation(err error) bool       { return errors.Is(err, ErrValidation) }
func IsConflict(err error) bool         { return errors.Is(err, ErrConflict) }

// ValidationErrors collects several field errors from one input.
type ValidationErrors []*Error

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return "taskflow: validation failed: " + strings.Join(msgs, "; ")
}

func (v ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}

// Add appends a field error.
func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, &Error{Kind: KindValidation, Field: field, Message: message})
}

// Err returns nil when no field errors were collected.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

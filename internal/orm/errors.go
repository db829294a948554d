package orm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Common errors
var (
	ErrNotFound         = errors.New("record not found")
	ErrDuplicateKey     = errors.New("duplicate key violation")
	ErrForeignKey       = errors.New("foreign key violation")
	ErrCheckConstraint  = errors.New("check constraint violation")
	ErrNotNull          = errors.New("not null constraint violation")
	ErrInvalidValue     = errors.New("invalid input value")
	ErrConnectionFailed = errors.New("database connection failed")
	ErrTimeout          = errors.New("operation timeout")
	ErrCanceled         = errors.New("operation canceled")
	ErrSerialization    = errors.New("serialization failure")
)

// Error provides detailed error information
type Error struct {
	Op         string        // Operation that failed
	Table      string        // Table involved
	Err        error         // Underlying error
	Query      string        // SQL query (if applicable)
	Args       []interface{} // Query arguments (if applicable)
	Constraint string        // Constraint name (if applicable)
	Column     string        // Column name (if applicable)
	Retryable  bool          // Whether the operation can be retried
}

func (e *Error) Error() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("orm: %s", e.Op))

	if e.Table != "" {
		parts = append(parts, fmt.Sprintf("table=%s", e.Table))
	}
	if e.Column != "" {
		parts = append(parts, fmt.Sprintf("column=%s", e.Column))
	}
	if e.Constraint != "" {
		parts = append(parts, fmt.Sprintf("constraint=%s", e.Constraint))
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Postgres SQLSTATE codes we classify.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeNotNullViolation     = "23502"
	codeCheckViolation       = "23514"
	codeInvalidText          = "22P02"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeQueryCanceled        = "57014"
)

// ParsePostgreSQLError converts driver errors to ORM errors. Structured
// pq errors are classified by SQLSTATE, anything else by message.
func ParsePostgreSQLError(err error, op, table string) error {
	if err == nil {
		return nil
	}

	var ormErr *Error
	if errors.As(err, &ormErr) {
		return err
	}

	if errors.Is(err, sql.ErrNoRows) {
		return &Error{Op: op, Table: table, Err: ErrNotFound}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fromPQError(pqErr, op, table)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Op: op, Table: table, Err: ErrTimeout, Retryable: true}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Op: op, Table: table, Err: ErrCanceled}
	}

	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "duplicate key value violates unique constraint"):
		return &Error{Op: op, Table: table, Err: ErrDuplicateKey, Constraint: extractConstraintName(errStr)}
	case strings.Contains(errStr, "violates foreign key constraint"):
		return &Error{Op: op, Table: table, Err: ErrForeignKey, Constraint: extractConstraintName(errStr)}
	case strings.Contains(errStr, "violates not-null constraint"):
		return &Error{Op: op, Table: table, Err: ErrNotNull, Column: extractColumnName(errStr)}
	case strings.Contains(errStr, "violates check constraint"):
		return &Error{Op: op, Table: table, Err: ErrCheckConstraint, Constraint: extractConstraintName(errStr)}
	case strings.Contains(errStr, "connection refused"),
		strings.Contains(errStr, "no such host"),
		strings.Contains(errStr, "bad connection"):
		return &Error{Op: op, Table: table, Err: ErrConnectionFailed, Retryable: true}
	}

	return &Error{Op: op, Table: table, Err: err}
}

func fromPQError(pqErr *pq.Error, op, table string) error {
	e := &Error{
		Op:         op,
		Table:      table,
		Constraint: pqErr.Constraint,
		Column:     pqErr.Column,
		Err:        pqErr,
	}
	if pqErr.Table != "" && table == "" {
		e.Table = pqErr.Table
	}

	switch string(pqErr.Code) {
	case codeUniqueViolation:
		e.Err = ErrDuplicateKey
	case codeForeignKeyViolation:
		e.Err = ErrForeignKey
	case codeNotNullViolation:
		e.Err = ErrNotNull
	case codeCheckViolation:
		e.Err = ErrCheckConstraint
	case codeInvalidText:
		e.Err = ErrInvalidValue
	case codeSerializationFailure, codeDeadlockDetected:
		e.Err = ErrSerialization
		e.Retryable = true
	case codeQueryCanceled:
		e.Err = ErrCanceled
	}
	return e
}

func extractConstraintName(errStr string) string {
	start := strings.Index(errStr, `constraint "`)
	if start == -1 {
		return ""
	}
	start += len(`constraint "`)
	end := strings.Index(errStr[start:], `"`)
	if end == -1 {
		return ""
	}
	return errStr[start : start+end]
}

func extractColumnName(errStr string) string {
	start := strings.Index(errStr, `column "`)
	if start == -1 {
		return ""
	}
	start += len(`column "`)
	end := strings.Index(errStr[start:], `"`)
	if end == -1 {
		return ""
	}
	return errStr[start : start+end]
}

// IsRetryable reports whether the error is worth retrying.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// IsConstraintError reports whether err is an integrity violation.
func IsConstraintError(err error) bool {
	return errors.Is(err, ErrDuplicateKey) ||
		errors.Is(err, ErrForeignKey) ||
		errors.Is(err, ErrNotNull) ||
		errors.Is(err, ErrCheckConstraint)
}

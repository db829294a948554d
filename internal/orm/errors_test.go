package orm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePostgreSQLError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		expected   error
		constraint string
		column     string
		retryable  bool
	}{
		{
			name:     "no rows",
			err:      sql.ErrNoRows,
			expected: ErrNotFound,
		},
		{
			name:       "unique violation by code",
			err:        &pq.Error{Code: "23505", Constraint: "categories_owner_id_name_key"},
			expected:   ErrDuplicateKey,
			constraint: "categories_owner_id_name_key",
		},
		{
			name:       "foreign key by code",
			err:        &pq.Error{Code: "23503", Constraint: "tasks_owner_id_fkey"},
			expected:   ErrForeignKey,
			constraint: "tasks_owner_id_fkey",
		},
		{
			name:     "not null by code",
			err:      &pq.Error{Code: "23502", Column: "title"},
			expected: ErrNotNull,
			column:   "title",
		},
		{
			name:       "check by code",
			err:        &pq.Error{Code: "23514", Constraint: "tasks_progress_check"},
			expected:   ErrCheckConstraint,
			constraint: "tasks_progress_check",
		},
		{
			name:     "bad uuid",
			err:      &pq.Error{Code: "22P02"},
			expected: ErrInvalidValue,
		},
		{
			name:      "serialization failure",
			err:       &pq.Error{Code: "40001"},
			expected:  ErrSerialization,
			retryable: true,
		},
		{
			name:       "unique violation by message",
			err:        errors.New(`pq: duplicate key value violates unique constraint "users_email_key"`),
			expected:   ErrDuplicateKey,
			constraint: "users_email_key",
		},
		{
			name:     "not null by message",
			err:      errors.New(`pq: null value in column "owner_id" violates not-null constraint`),
			expected: ErrNotNull,
			column:   "owner_id",
		},
		{
			name:      "deadline",
			err:       fmt.Errorf("query: %w", context.DeadlineExceeded),
			expected:  ErrTimeout,
			retryable: true,
		},
		{
			name:      "connection refused",
			err:       errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"),
			expected:  ErrConnectionFailed,
			retryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParsePostgreSQLError(tt.err, "create", "tasks")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.expected)

			var ormErr *Error
			require.ErrorAs(t, err, &ormErr)
			assert.Equal(t, "create", ormErr.Op)
			assert.Equal(t, tt.constraint, ormErr.Constraint)
			assert.Equal(t, tt.column, ormErr.Column)
			assert.Equal(t, tt.retryable, IsRetryable(err))
		})
	}

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, ParsePostgreSQLError(nil, "find", "tasks"))
	})

	t.Run("unknown errors are wrapped", func(t *testing.T) {
		base := errors.New("something odd")
		err := ParsePostgreSQLError(base, "find", "tasks")
		assert.ErrorIs(t, err, base)
		assert.Equal(t, "orm: find: table=tasks: something odd", err.Error())
	})
}

func TestIsConstraintError(t *testing.T) {
	assert.True(t, IsConstraintError(&Error{Err: ErrDuplicateKey}))
	assert.True(t, IsConstraintError(&Error{Err: ErrForeignKey}))
	assert.False(t, IsConstraintError(&Error{Err: ErrTimeout}))
	assert.False(t, IsConstraintError(errors.New("x")))
}

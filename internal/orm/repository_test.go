package orm

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Count     int       `db:"count"`
	CreatedAt time.Time `db:"created_at"`
	Children  []string  `db:"-"`
	internal  string
}

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return New(sqlx.NewDb(conn, "postgres")), mock
}

func TestRepositoryColumns(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewRepository[widget](db, "widgets")

	assert.Equal(t, []string{"id", "name", "count", "created_at"}, repo.Columns())
	assert.Equal(t, "widgets", repo.TableName())
}

func TestRepositoryInsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository[widget](db, "widgets")
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO widgets (id,name,count,created_at) VALUES ($1,$2,$3,$4)")).
		WithArgs("w1", "gear", 3, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Insert(context.Background(), &widget{ID: "w1", Name: "gear", Count: 3, CreatedAt: now})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryInsertIgnore(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository[widget](db, "widgets")
	record := &widget{ID: "w1", Name: "gear"}

	mock.ExpectExec(`INSERT INTO widgets .* ON CONFLICT \(name\) DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO widgets .* ON CONFLICT \(name\) DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := repo.InsertIgnore(context.Background(), record, "name")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.InsertIgnore(context.Background(), record, "name")
	require.NoError(t, err)
	assert.False(t, created)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryUpsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository[widget](db, "widgets")

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, count = EXCLUDED.count")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), &widget{ID: "w1"}, UpsertOptions{
		ConflictColumns: []string{"id"},
		Preserve:        []string{"created_at"},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	err = repo.Upsert(context.Background(), &widget{ID: "w1"}, UpsertOptions{})
	assert.Error(t, err)
}

func TestRepositorySave(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository[widget](db, "widgets")

	t.Run("updates selected columns", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE widgets SET name = $1 WHERE id = $2")).
			WithArgs("sprocket", "w1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Save(context.Background(), &widget{ID: "w1", Name: "sprocket"}, "id", "name")
		require.NoError(t, err)
	})

	t.Run("missing row is not found", func(t *testing.T) {
		mock.ExpectExec(`UPDATE widgets SET`).WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Save(context.Background(), &widget{ID: "nope"}, "id", "name")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown column", func(t *testing.T) {
		err := repo.Save(context.Background(), &widget{ID: "w1"}, "id", "colour")
		assert.Error(t, err)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryFindAndFirst(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository[widget](db, "widgets")
	name := String("", "name")

	t.Run("find with order and limit", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, count, created_at FROM widgets WHERE (name = $1) ORDER BY created_at DESC LIMIT 5")).
			WithArgs("gear").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "count"}).
				AddRow("w1", "gear", 1).
				AddRow("w2", "gear", 2))

		rows, err := repo.Query(context.Background()).
			Where(name.Eq("gear")).
			OrderBy("-created_at").
			Limit(5).
			Find()
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "w2", rows[1].ID)
	})

	t.Run("first on empty result", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM widgets`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.Query(context.Background()).Where(name.Eq("none")).First()
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("count", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM widgets WHERE (name = $1)")).
			WithArgs("gear").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

		n, err := repo.Query(context.Background()).Where(name.Eq("gear")).Count()
		require.NoError(t, err)
		assert.Equal(t, int64(7), n)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransaction(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := func(tx *DB) *Repository[widget] { return NewRepository[widget](tx, "widgets") }

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO widgets`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := db.WithTransaction(context.Background(), func(tx *DB) error {
			assert.True(t, tx.InTransaction())
			return repo(tx).Insert(context.Background(), &widget{ID: "w1"})
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db, mock := newMockDB(t)
		boom := errors.New("boom")

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := db.WithTransaction(context.Background(), func(tx *DB) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nested calls join the outer transaction", func(t *testing.T) {
		db, mock := newMockDB(t)

		mock.ExpectBegin()
		mock.ExpectCommit()

		err := db.WithTransaction(context.Background(), func(tx *DB) error {
			return tx.WithTransaction(context.Background(), func(inner *DB) error {
				assert.Same(t, tx, inner)
				return nil
			})
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMiddlewareSeesStatements(t *testing.T) {
	db, mock := newMockDB(t)
	var seen []string
	db.AddMiddleware(func(next QueryMiddlewareFunc) QueryMiddlewareFunc {
		return func(ctx *MiddlewareContext) error {
			seen = append(seen, string(ctx.Operation)+":"+ctx.TableName)
			return next(ctx)
		}
	})

	mock.ExpectExec(`DELETE FROM widgets`).WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := NewRepository[widget](db, "widgets").DeleteWhere(context.Background(), String("", "name").Eq("gear"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, []string{"delete:widgets"}, seen)
}

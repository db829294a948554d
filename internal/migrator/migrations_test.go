package migrator

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	content := `-- leading comment
-- +migrate Up
CREATE TABLE a (id INT);

-- +migrate Down
DROP TABLE a;
`
	m, err := Parse("0001_a", content)
	require.NoError(t, err)

	assert.Equal(t, "0001_a", m.Name)
	assert.Equal(t, "CREATE TABLE a (id INT);", m.Up)
	assert.Equal(t, "DROP TABLE a;", m.Down)
	assert.Len(t, m.Checksum, 64)

	_, err = Parse("0002_b", "CREATE TABLE b (id INT);")
	assert.Error(t, err)
}

func TestSplitStatements(t *testing.T) {
	script := `-- comment
CREATE TABLE a (
    id INT,
    name TEXT DEFAULT 'x;y'
);
CREATE INDEX idx_a ON a (id);

-- trailing comment
`
	stmts := SplitStatements(script)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "CREATE TABLE a")
	assert.Contains(t, stmts[0], "'x;y'")
	assert.Equal(t, "CREATE INDEX idx_a ON a (id);", stmts[1])
}

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"m/0002_b.sql":  {Data: []byte("-- +migrate Up\nCREATE TABLE b (id INT);\n")},
		"m/0001_a.sql":  {Data: []byte("-- +migrate Up\nCREATE TABLE a (id INT);\n")},
		"m/README.md":   {Data: []byte("ignored")},
		"m/nested/x.go": {Data: []byte("ignored")},
	}

	migrations, err := LoadFS(fsys, "m")
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, "0001_a", migrations[0].Name)
	assert.Equal(t, "0002_b", migrations[1].Name)
}

func TestEmbeddedMigrationsCoverModels(t *testing.T) {
	migrations, err := Load()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	expected, err := ExpectedSchema()
	require.NoError(t, err)

	var up string
	for _, m := range migrations {
		up += m.Up
	}
	for table, cols := range expected {
		assert.Contains(t, up, "CREATE TABLE "+table+" (", "table %s", table)
		for _, col := range cols {
			assert.Contains(t, up, col, "column %s.%s", table, col)
		}
	}
}

func TestMigratorUp(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	db := sqlx.NewDb(conn, "postgres")

	migs := []Migration{
		{Name: "0001_a", Up: "CREATE TABLE a (id INT);", Checksum: "aaa"},
		{Name: "0002_b", Up: "CREATE TABLE b (id INT);\nCREATE INDEX idx_b ON b (id);", Checksum: "bbb"},
	}

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT name, applied_at, checksum FROM schema_migrations`).
		WillReturnRows(sqlmock.NewRows([]string{"name", "applied_at", "checksum"}).
			AddRow("0001_a", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "aaa"))
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE b`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX idx_b`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO schema_migrations`).WithArgs("0002_b", "bbb").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	applied, err := New(db, "", migs).Up(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"0002_b"}, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

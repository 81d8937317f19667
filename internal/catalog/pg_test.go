package catalog

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPGStoreLoadAssemblesSnapshot(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	mock.MatchExpectationsInOrder(false)

	mock.ExpectQuery("SELECT version, embedded_by FROM catalog_meta").
		WillReturnRows(sqlmock.NewRows([]string{"version", "embedded_by"}).AddRow("2025.1", "hashed-ngram-v1"))
	mock.ExpectQuery("SELECT id, name, embedding FROM skills").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "embedding"}).
			AddRow("python", "Python", "[1,0]").
			AddRow("sql", "SQL", nil))
	mock.ExpectQuery("SELECT skill_id, alias FROM skill_aliases").
		WillReturnRows(sqlmock.NewRows([]string{"skill_id", "alias"}).AddRow("python", "py"))
	mock.ExpectQuery("SELECT id, title FROM roles").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}).AddRow("DA", "Data Analyst"))
	mock.ExpectQuery("SELECT role_id, skill_id, kind, weight FROM role_skills").
		WillReturnRows(sqlmock.NewRows([]string{"role_id", "skill_id", "kind", "weight"}).
			AddRow("DA", "sql", "required", 2.0).
			AddRow("DA", "python", "nice", nil))

	snap, err := (&PGStore{DB: db}).Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, "2025.1", snap.Version)
	assert.Equal(t, "hashed-ngram-v1", snap.EmbeddedBy)
	py, ok := snap.Skill("python")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 0}, py.Embedding)
	assert.Equal(t, []string{"py"}, py.Aliases)
	role, ok := snap.Role("DA")
	require.True(t, ok)
	assert.Equal(t, []string{"sql"}, role.Required)
	assert.Equal(t, []string{"python"}, role.NiceToHave)
	assert.Equal(t, 2.0, role.Weight("sql"))
}

func TestPGStoreSaveWritesAllTables(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	snap, err := NewSnapshot(Document{
		Version: "v2",
		Skills:  []Skill{{ID: "go", Name: "Go", Aliases: []string{"golang"}}},
		Roles:   []Role{{ID: "BE", Title: "Backend", Required: []string{"go"}}},
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM role_skills").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM roles").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM skill_aliases").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM skills").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO skills").WithArgs("go", "Go", nil).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO skill_aliases").WithArgs("go", "golang").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO roles").WithArgs("BE", "Backend").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO role_skills").WithArgs("BE", "go", "required", 0, nil).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO catalog_meta").WithArgs("v2", "").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, (&PGStore{DB: db}).Save(context.Background(), snap))
	require.NoError(t, mock.ExpectationsWereMet())
}

package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	stmts, err := splitStatements(`
-- header comment
CREATE TABLE a (x String);

CREATE TABLE b (y String DEFAULT 'it''s');
`)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"CREATE TABLE a (x String)",
		"CREATE TABLE b (y String DEFAULT 'it''s')",
	}, stmts)
}

func TestSplitStatements_RejectsSemicolonInString(t *testing.T) {
	_, err := splitStatements(`SELECT 'a;b';`)
	assert.Error(t, err)
}

func TestEmbeddedFiles(t *testing.T) {
	pg, err := sqlFiles(PostgresFS, "postgres")
	require.NoError(t, err)
	assert.Equal(t, []string{"postgres/001_cache_entries.sql"}, pg)

	ch, err := sqlFiles(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	assert.Equal(t, []string{"clickhouse/001_aggregation_runs.sql"}, ch)
}

func TestEmbeddedClickhouseMigrationsSplit(t *testing.T) {
	files, err := sqlFiles(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	for _, f := range files {
		data, err := ClickhouseFS.ReadFile(f)
		require.NoError(t, err)
		stmts, err := splitStatements(string(data))
		require.NoError(t, err, f)
		assert.NotEmpty(t, stmts, f)
	}
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default@localhost:9000/tv")
	require.NoError(t, err)
	assert.Equal(t, "tv", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)
}

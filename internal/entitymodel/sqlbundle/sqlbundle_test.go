package sqlbundle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"experimentdb/pkg/domain"
)

func TestSplitStatements(t *testing.T) {
	for _, dialect := range []string{"sqlite", "postgres"} {
		ddl, err := ForDialect(dialect)
		require.NoError(t, err)
		stmts := SplitStatements(ddl)
		require.NotEmpty(t, stmts, dialect)
		for _, stmt := range stmts {
			assert.False(t, strings.HasPrefix(stmt, "--"), "statement starts with comment: %q", stmt)
			assert.True(t, strings.HasSuffix(stmt, ";"), "statement missing terminator: %q", stmt)
		}
	}
}

func TestSplitStatementsKeepsUnterminatedTail(t *testing.T) {
	stmts := SplitStatements("-- header\nCREATE TABLE a (id INTEGER);\n\nSELECT 1")
	assert.Equal(t, []string{"CREATE TABLE a (id INTEGER);", "SELECT 1"}, stmts)
}

func TestUnknownDialect(t *testing.T) {
	_, err := ForDialect("oracle")
	assert.Error(t, err)
}

// Every table the stores address by name must exist in both bundles.
func TestBundlesCoverDomainTables(t *testing.T) {
	var tables []string
	for _, k := range domain.ExternalRefKinds() {
		tables = append(tables, k.Table())
	}
	for _, r := range domain.Relations() {
		tables = append(tables, r.Table())
	}
	tables = append(tables, "protocols", "sequencing", "animal_cohorts", "experiments", "results", "clonings", "mutageneses")
	for _, ddl := range []string{SQLite(), Postgres()} {
		for _, table := range tables {
			assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS "+table+" (", table)
		}
	}
}

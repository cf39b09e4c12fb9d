// Package sqldocs embeds the relational schema shipped with experimentdb.
package sqldocs

import _ "embed"

// SQLite contains the SQLite DDL.
//
//go:embed sqlite.sql
var SQLite string

// Postgres contains the PostgreSQL DDL.
//
//go:embed postgres.sql
var Postgres string

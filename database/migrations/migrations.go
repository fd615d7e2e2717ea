// Package migrations embeds the SQL schema migrations for the relational store.
package migrations

import "embed"

// FS holds the *.up.sql and *.down.sql files.
//
//go:embed *.sql
var FS embed.FS

// Path is the directory inside FS that holds the migrations.
const Path = "."

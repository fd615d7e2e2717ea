// Package database connects marathon to its PostgreSQL store through gorm
// and defines the persisted models.
//
// Connect opens the store from a Config, merging Config.Options into the
// URL query string, and pings it once. Open accepts any gorm dialector so
// the models can be exercised against SQLite in tests.
//
// The schema itself is owned by the SQL files in database/migrations; the
// gorm tags on Template and App mirror it.
package database

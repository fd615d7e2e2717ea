// Package testutil holds helpers shared by marathon's tests: an in-memory
// Redis, an in-memory SQLite database, and scripted registry components.
package testutil

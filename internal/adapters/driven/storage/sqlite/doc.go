// Package sqlite persists run history using modernc.org/sqlite, a pure Go
// SQLite implementation that needs no CGO.
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Each applied version is recorded in
// schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.chronicle/data/history.db
//
// # Thread Safety
//
// All operations are thread-safe. SQLite runs in WAL mode with a busy
// timeout so the CLI and a running server can share the file.
package sqlite

// Package dialect defines the database driver abstraction used by SQL
// backed store clients.
//
// # Supported Dialects
//
//   - Postgres: PostgreSQL (github.com/lib/pq)
//   - MySQL: MySQL/MariaDB (github.com/go-sql-driver/mysql)
//   - SQLite: SQLite (modernc.org/sqlite)
//
// Bind parameters and identifier quoting differ per dialect:
//
//	dialect.Placeholder(dialect.Postgres, 2) // "$2"
//	dialect.Placeholder(dialect.MySQL, 2)    // "?"
//	dialect.Quote(dialect.MySQL, "orders")   // "`orders`"
//
// The dialect/sql sub-package wraps database/sql in a Driver.
package dialect

// Package sql wraps database/sql in a dialect.Driver.
//
//	drv, err := sql.Open("postgres", "postgres://...")
//	rows, err := sql.QueryRows(ctx, drv, sql.Rebind(drv.Dialect(),
//	    "SELECT * FROM orders WHERE customer_id = ?"), "c1")
//
// StatsDriver collects query counts and durations; DebugDriver logs every
// statement.
package sql

package schema

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/syssam/polystore/dialect"
)

// Create validates tables and creates the missing tables and indexes
// inside a single transaction.
func Create(ctx context.Context, drv dialect.Driver, tables []*Table, logger *slog.Logger) (rerr error) {
	if res := ValidateSchema(tables); res.HasErrors() {
		return fmt.Errorf("schema: invalid tables:\n%s", res)
	}
	if logger == nil {
		logger = slog.Default()
	}
	tx, err := drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("schema: begin: %w", err)
	}
	defer func() {
		if rerr != nil {
			if err := tx.Rollback(); err != nil {
				logger.WarnContext(ctx, "schema rollback failed", slog.Any("error", err))
			}
		}
	}()
	for _, t := range tables {
		stmt := t.CreateStatement(drv.Dialect())
		logger.DebugContext(ctx, "create table", slog.String("table", t.Name))
		if err := tx.Exec(ctx, stmt, []any{}, nil); err != nil {
			return fmt.Errorf("schema: create %s: %w", t.Name, err)
		}
		for _, stmt := range t.IndexStatements(drv.Dialect()) {
			if err := tx.Exec(ctx, stmt, []any{}, nil); err != nil {
				return fmt.Errorf("schema: index %s: %w", t.Name, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("schema: commit: %w", err)
	}
	return nil
}

package persist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/syssam/polystore/dialect"
	"github.com/syssam/polystore/dialect/sql"
	"github.com/syssam/polystore/metadata"
	"github.com/syssam/polystore/store"
	"github.com/syssam/polystore/store/kvstore"
	"github.com/syssam/polystore/store/memstore"
	"github.com/syssam/polystore/store/sqlstore"
)

// driverNames maps dialects to the database/sql driver names registered
// by lib/pq, go-sql-driver/mysql and modernc.org/sqlite. Callers import
// the drivers they need.
var driverNames = map[string]string{
	dialect.Postgres: "postgres",
	dialect.MySQL:    "mysql",
	dialect.SQLite:   "sqlite",
}

// Open creates the store client of every unit in cfg and returns a manager
// over them. Options given here override the ones derived from cfg.
func Open(ctx context.Context, cfg *Config, catalog metadata.Provider, opts ...Option) (_ *Manager, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := newOptions(opts).logger
	all := []Option{
		WithConcurrency(cfg.Resolver.Concurrency),
		WithResolverOptions(cfg.Resolver.Options()...),
	}
	opened := &Manager{}
	defer func() {
		if err == nil {
			return
		}
		if cerr := opened.Close(); cerr != nil {
			logger.WarnContext(ctx, "closing units after failed open", slog.Any("error", cerr))
		}
	}()
	for _, u := range cfg.Units {
		client, c, err := openUnit(ctx, u, catalog, logger)
		if err != nil {
			return nil, fmt.Errorf("persist: open unit %q: %w", u.Name, err)
		}
		if c != nil {
			opened.closers = append(opened.closers, c)
			all = append(all, WithCloser(c))
		}
		all = append(all, WithUnit(u.Name, client))
		logger.DebugContext(ctx, "opened unit", slog.String("unit", u.Name), slog.String("backend", u.Backend))
	}
	return New(catalog, append(all, opts...)...)
}

func openUnit(ctx context.Context, u UnitConfig, catalog metadata.Provider, logger *slog.Logger) (store.Client, io.Closer, error) {
	switch u.Backend {
	case BackendMemory:
		secondary := u.SecondaryIndex == nil || *u.SecondaryIndex
		return memstore.New(catalog, memstore.WithSecondaryIndex(secondary)), nil, nil
	case BackendSQL:
		name := dialect.Normalize(u.Dialect)
		drv, err := sql.Open(driverNames[name], u.DSN)
		if err != nil {
			return nil, nil, err
		}
		var d dialect.Driver = sql.NewStatsDriver(drv, sql.WithSlowQueryLog(logger))
		if u.Debug {
			d = sql.NewDebugDriver(d, logger)
		}
		client := sqlstore.New(d, catalog, sqlstore.WithLogger(logger))
		if u.Migrate {
			if err := client.Migrate(ctx); err != nil {
				return nil, nil, errors.Join(err, d.Close())
			}
		}
		return client, d, nil
	case BackendKV:
		codec, err := kvstore.CodecByName(u.Codec)
		if err != nil {
			return nil, nil, err
		}
		opts := []kvstore.Option{kvstore.WithCodec(codec), kvstore.WithLogger(logger)}
		if u.URL == "" {
			return kvstore.New(kvstore.NewMemBucket(), catalog, opts...), nil, nil
		}
		bucket, err := kvstore.OpenJetStream(ctx, u.URL, u.Bucket)
		if err != nil {
			return nil, nil, err
		}
		return kvstore.New(bucket, catalog, opts...), bucket, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", u.Backend)
}

// QueryStats returns the SQL statistics of unit, if it is served by a SQL
// client.
func (m *Manager) QueryStats(unit string) (sql.StatsSnapshot, bool) {
	c, ok := m.clients[unit].(*sqlstore.Client)
	if !ok {
		return sql.StatsSnapshot{}, false
	}
	var drv dialect.Driver = c.Driver()
	if dd, ok := drv.(*sql.DebugDriver); ok {
		drv = dd.Driver
	}
	sd, ok := drv.(*sql.StatsDriver)
	if !ok {
		return sql.StatsSnapshot{}, false
	}
	return sd.QueryStats().Snapshot(), true
}

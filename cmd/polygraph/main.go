// polygraph reads an entity from the configured stores, resolves its
// object graph and prints it as JSON.
//
//	polygraph -config polystore.yaml -type Order -id o1
//	polygraph -seed -type Customer -id c1
//	polygraph -seed -type Order -query '+parentClass:customer AND +parentId:c1 AND +entityClass:order'
//
// Entity types are those of the commerce domain in internal/fixture. The
// catalog defaults to the built-in one, with every type in the first
// configured unit; -catalog loads a YAML catalog file instead.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	_ "modernc.org/sqlite"

	"github.com/syssam/polystore/internal/fixture"
	"github.com/syssam/polystore/metadata"
	"github.com/syssam/polystore/persist"
	"github.com/syssam/polystore/resolver"
	"github.com/syssam/polystore/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "polygraph: %v\n", err)
		os.Exit(1)
	}
}

type flags struct {
	config  string
	catalog string
	typ     string
	id      string
	query   string
	seed    bool
	metrics bool
	verbose bool
}

func parseFlags(args []string, stderr io.Writer) (*flags, error) {
	fs := flag.NewFlagSet("polygraph", flag.ContinueOnError)
	fs.SetOutput(stderr)
	f := &flags{}
	fs.StringVar(&f.config, "config", "", "Path to the store config (default: one in-memory unit)")
	fs.StringVar(&f.catalog, "catalog", "", "Path to a YAML catalog file (default: built-in catalog)")
	fs.StringVar(&f.typ, "type", "", "Entity type to read")
	fs.StringVar(&f.id, "id", "", "Primary key of the entity; comma separated for several")
	fs.StringVar(&f.query, "query", "", "Search index query selecting the entities")
	fs.BoolVar(&f.seed, "seed", false, "Load the sample data set before reading")
	fs.BoolVar(&f.metrics, "metrics", false, "Print resolver metrics to stderr")
	fs.BoolVar(&f.verbose, "v", false, "Debug logging")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if f.typ == "" {
		return nil, errors.New("-type is required")
	}
	if (f.id == "") == (f.query == "") {
		return nil, errors.New("exactly one of -id and -query is required")
	}
	return f, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	f, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	level := slog.LevelWarn
	if f.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	cfg := &persist.Config{Units: []persist.UnitConfig{{Name: "default", Backend: persist.BackendMemory}}}
	if f.config != "" {
		if cfg, err = persist.LoadConfig(f.config); err != nil {
			return err
		}
	}
	if len(cfg.Units) == 0 {
		return errors.New("config declares no units")
	}

	var catalog metadata.Provider
	if f.catalog != "" {
		w, err := metadata.Watch(ctx, f.catalog, fixture.Types, metadata.WithLogger(logger), metadata.WithDefaultUnit(cfg.Units[0].Name))
		if err != nil {
			return err
		}
		defer w.Close()
		catalog = w
	} else {
		c, err := fixture.Catalog(cfg.Units[0].Name)
		if err != nil {
			return err
		}
		catalog = c
	}

	reg := prometheus.NewRegistry()
	metrics, err := resolver.NewMetrics(reg)
	if err != nil {
		return err
	}
	m, err := persist.Open(ctx, cfg, catalog,
		persist.WithLogger(logger),
		persist.WithResolverOptions(resolver.WithMetrics(metrics)))
	if err != nil {
		return err
	}
	defer m.Close()

	if f.seed {
		if err := seed(ctx, m, catalog.Catalog()); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	var objs []any
	if f.query != "" {
		objs, err = m.FindByQuery(ctx, f.typ, f.query)
	} else {
		objs, err = m.FindMany(ctx, f.typ, strings.Split(f.id, ","))
	}
	if err != nil {
		return err
	}
	if f.id != "" && !strings.Contains(f.id, ",") && len(objs) == 0 {
		return fmt.Errorf("%s %s not found", f.typ, f.id)
	}

	r := newRenderer(catalog.Catalog())
	out := make([]any, 0, len(objs))
	for _, obj := range objs {
		v, err := r.render(obj)
		if err != nil {
			return err
		}
		out = append(out, v)
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	var doc any = out
	if len(out) == 1 && f.query == "" {
		doc = out[0]
	}
	if err := enc.Encode(doc); err != nil {
		return err
	}

	if f.metrics {
		return printMetrics(reg, stderr)
	}
	for _, u := range cfg.Units {
		if s, ok := m.QueryStats(u.Name); ok {
			logger.DebugContext(ctx, "sql statistics", slog.String("unit", u.Name), slog.String("stats", s.String()))
		}
	}
	return nil
}

// seed loads the sample data set into the unit of each row's type. Rows
// of types missing from the catalog are skipped.
func seed(ctx context.Context, m *persist.Manager, c *metadata.Catalog) error {
	data := fixture.Data()
	writer := func(typ string) (store.Writer, error) {
		client, err := m.Client(typ)
		if err != nil {
			return nil, err
		}
		w, ok := client.(store.Writer)
		if !ok {
			return nil, fmt.Errorf("store of %s is read-only", typ)
		}
		return w, nil
	}
	for _, r := range data.Rows {
		if _, err := c.Entity(r.Type); err != nil {
			continue
		}
		w, err := writer(r.Type)
		if err != nil {
			return err
		}
		if err := w.Put(ctx, r.Type, r.ID, r.Object, r.Relations); err != nil {
			return err
		}
	}
	for _, l := range data.Links {
		owner := linkOwner(c, l.Table)
		if owner == "" {
			continue
		}
		w, err := writer(owner)
		if err != nil {
			return err
		}
		if err := w.Link(ctx, l.Table, l.OwnColumn, l.OtherColumn, l.Own, l.Other); err != nil {
			return err
		}
	}
	return nil
}

// linkOwner returns the first type, by name, whose relations use table.
func linkOwner(c *metadata.Catalog, table string) string {
	for _, e := range c.Entities() {
		for _, d := range e.Relations {
			if d.JoinTable != nil && d.JoinTable.Name == table {
				return e.Name
			}
		}
	}
	return ""
}

func printMetrics(g prometheus.Gatherer, w io.Writer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			switch {
			case m.GetCounter() != nil:
				fmt.Fprintf(w, "%s %g\n", name, m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				fmt.Fprintf(w, "%s_count %d\n", name, m.GetHistogram().GetSampleCount())
			}
		}
	}
	return nil
}

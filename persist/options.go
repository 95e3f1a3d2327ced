package persist

import (
	"io"
	"log/slog"

	"github.com/syssam/polystore/resolver"
	"github.com/syssam/polystore/store"
)

// Option configures a Manager.
type Option func(*options)

type options struct {
	logger       *slog.Logger
	clients      map[string]store.Client
	closers      []io.Closer
	concurrency  int
	resolverOpts []resolver.Option
}

func newOptions(opts []Option) *options {
	o := &options{
		logger:      slog.Default(),
		clients:     make(map[string]store.Client),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.concurrency <= 0 {
		o.concurrency = DefaultConcurrency
	}
	return o
}

// WithLogger sets the logger of the manager and its resolver.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithUnit serves the persistence unit name with client.
func WithUnit(name string, client store.Client) Option {
	return func(o *options) { o.clients[name] = client }
}

// WithCloser registers c to be closed by Manager.Close.
func WithCloser(c io.Closer) Option {
	return func(o *options) { o.closers = append(o.closers, c) }
}

// WithConcurrency bounds the parallel traversals of FindMany.
func WithConcurrency(n int) Option {
	return func(o *options) { o.concurrency = n }
}

// WithResolverOptions configures the resolver.
func WithResolverOptions(opts ...resolver.Option) Option {
	return func(o *options) { o.resolverOpts = append(o.resolverOpts, opts...) }
}

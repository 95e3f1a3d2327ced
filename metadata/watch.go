package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Watcher keeps a catalog loaded from a file and rebuilds it whenever the
// file changes. A file that fails to load is logged and the previous
// catalog stays in effect.
type Watcher struct {
	path    string
	types   map[string]any
	opts    []Option
	logger  *slog.Logger
	current atomic.Pointer[Catalog]
	fsw     *fsnotify.Watcher
	reloads atomic.Int64
	done    chan struct{}
	once    sync.Once
}

// Watch loads the catalog at path and starts watching it. The watcher
// stops when ctx is done or Close is called.
func Watch(ctx context.Context, path string, types map[string]any, opts ...Option) (*Watcher, error) {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	c, err := LoadFile(path, types, opts...)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("polystore: creating watcher: %w", err)
	}
	// Editors replace files on save; watch the directory and filter.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("polystore: watching %s: %w", path, err)
	}
	w := &Watcher{
		path:   filepath.Clean(path),
		types:  types,
		opts:   opts,
		logger: o.logger,
		fsw:    fsw,
		done:   make(chan struct{}),
	}
	w.current.Store(c)
	go w.run(ctx)
	return w, nil
}

// Catalog returns the most recently loaded catalog.
func (w *Watcher) Catalog() *Catalog { return w.current.Load() }

// Reloads returns the number of successful reloads.
func (w *Watcher) Reloads() int64 { return w.reloads.Load() }

// Close stops watching.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		err = w.fsw.Close()
		<-w.done
	})
	return err
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			w.fsw.Close()
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("catalog watcher error", slog.String("path", w.path), slog.Any("error", err))
		}
	}
}

func (w *Watcher) reload() {
	c, err := LoadFile(w.path, w.types, w.opts...)
	if err != nil {
		w.logger.Error("catalog reload failed, keeping previous catalog",
			slog.String("path", w.path), slog.Any("error", err))
		return
	}
	w.current.Store(c)
	w.reloads.Add(1)
	w.logger.Info("catalog reloaded", slog.String("path", w.path), slog.Int("entities", len(c.names)))
}

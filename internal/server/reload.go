package server

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 500 * time.Millisecond

// Reloader watches data and config files and rebuilds components on change.
type Reloader struct {
	watcher  *fsnotify.Watcher
	server   *Server
	paths    []string
	debounce time.Duration

	wg sync.WaitGroup
}

// NewReloader creates a file watcher for the given paths. Empty and
// missing paths are skipped.
func NewReloader(server *Server, paths []string) (*Reloader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	var watched []string
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := watcher.Add(p); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to watch %q: %w", p, err)
		}
		watched = append(watched, p)
	}

	return &Reloader{
		watcher:  watcher,
		server:   server,
		paths:    watched,
		debounce: reloadDebounce,
	}, nil
}

// Paths returns the files actually being watched.
func (r *Reloader) Paths() []string { return r.paths }

// Run watches for file changes and reloads. Blocks until ctx is cancelled
// and any in-flight reload has finished.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()
	defer r.wg.Wait()

	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			if debounce != nil && debounce.Stop() {
				r.wg.Done()
			}
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if debounce != nil && debounce.Stop() {
				r.wg.Done()
			}
			r.wg.Add(1)
			debounce = time.AfterFunc(r.debounce, func() {
				defer r.wg.Done()
				if err := r.server.Reload(ctx); err != nil {
					r.server.logger.Error("hot-reload failed", zap.Error(err))
					return
				}
				r.server.logger.Info("hot-reload: components reloaded", zap.String("file", event.Name))
			})

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			r.server.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

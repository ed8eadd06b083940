package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"taskmind/internal/logging"
)

// Watcher watches the config file for changes and re-applies the logging
// section without a restart. Only logging settings are hot-reloaded; the
// rest of the config is read once at startup.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	path        string
	debounceDur time.Duration
	lastEvent   time.Time
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	// OnReload is invoked with the freshly loaded config after each
	// successful reload. Optional.
	OnReload func(*Config)
}

// NewWatcher creates a watcher for the given config file path.
func NewWatcher(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:     fw,
		path:        path,
		debounceDur: 500 * time.Millisecond, // debounce rapid editor saves
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; events are handled in a goroutine
// until Stop is called or the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	// Watch the directory, not the file: editors replace files on save and
	// a file-level watch dies with the old inode.
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	go func() {
		defer close(w.doneCh)
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stopCh:
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(w.path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				w.mu.Lock()
				if time.Since(w.lastEvent) < w.debounceDur {
					w.mu.Unlock()
					continue
				}
				w.lastEvent = time.Now()
				w.mu.Unlock()

				w.reload()
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				logging.Get(logging.CategoryConfig).Warn("config watcher error: %v", err)
			}
		}
	}()

	logging.ConfigDebug("config watcher started for %s", w.path)
	return nil
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		logging.Get(logging.CategoryConfig).Warn("config reload failed: %v", err)
		return
	}

	logging.Configure(logging.Options{
		Debug:      cfg.Logging.DebugMode,
		Level:      cfg.Logging.Level,
		Categories: cfg.Logging.Categories,
		JSONFormat: cfg.Logging.Format == "json",
	})
	logging.Config("config reloaded: level=%s debug=%v", cfg.Logging.Level, cfg.Logging.DebugMode)

	if w.OnReload != nil {
		w.OnReload(cfg)
	}
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	w.watcher.Close()
	<-w.doneCh
}

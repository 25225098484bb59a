package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Loader loads the configuration and watches it for changes, reloading
// and invoking callbacks when the file is rewritten.
type Loader struct {
	path     string
	mu       sync.RWMutex
	config   *Config
	onChange []func(*Config)

	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewLoader creates a loader for the configuration at path. An empty
// path means the default location.
func NewLoader(path string) *Loader {
	if path == "" {
		path = ConfigPath()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Loader{
		path:   path,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Load reads and validates the configuration file.
func (l *Loader) Load() (*Config, error) {
	cfg, err := Load(l.path)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.config = cfg
	l.mu.Unlock()
	return cfg, nil
}

// Config returns the most recently loaded configuration.
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config
}

// Path returns the configuration file path.
func (l *Loader) Path() string {
	return l.path
}

// OnChange registers a callback invoked with the new configuration after
// each successful reload.
func (l *Loader) OnChange(fn func(*Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Watch starts watching the configuration file for changes. The parent
// directory is watched because editors replace files on save.
func (l *Loader) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(l.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(l.path), err)
	}
	l.watcher = watcher

	l.wg.Add(1)
	go l.watchLoop()
	return nil
}

func (l *Loader) watchLoop() {
	defer l.wg.Done()

	// Editors produce bursts of writes; reload once per burst.
	var pending <-chan time.Time

	for {
		select {
		case <-l.ctx.Done():
			return

		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(l.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(200 * time.Millisecond)

		case <-pending:
			pending = nil
			l.reload()

		case _, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// reload re-reads the file and notifies callbacks. A file that fails to
// parse or validate leaves the previous configuration in effect.
func (l *Loader) reload() {
	cfg, err := Load(l.path)
	if err != nil {
		return
	}

	l.mu.Lock()
	l.config = cfg
	callbacks := make([]func(*Config), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.Unlock()

	for _, fn := range callbacks {
		fn(cfg)
	}
}

// Close stops watching.
func (l *Loader) Close() error {
	l.cancel()
	var err error
	if l.watcher != nil {
		err = l.watcher.Close()
	}
	l.wg.Wait()
	return err
}

// Package watch monitors scan directories for filesystem changes and
// requests a re-synchronization of the affected root when the activity
// settles.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/openmdb/mediadb"
)

// A SyncFunc re-synchronizes one scan directory.
type SyncFunc func(dir string) error

type Config struct {
	Verbosity string `yaml:"verbosity"`

	// Settle is how long a root must stay quiet before it is synced.
	Settle time.Duration `yaml:"settle"`

	// MinInterval limits how often a single root may sync.
	MinInterval time.Duration `yaml:"min-interval"`
}

type daemon struct {
	callback SyncFunc
	roots    []string
	settle   time.Duration
	watcher  *fsnotify.Watcher
	log      zerolog.Logger

	mu       sync.Mutex
	pending  map[string]*time.Timer
	limiters map[string]*rate.Limiter
}

type Daemon struct {
	d *daemon
}

// New watches the given scan roots and calls callback for a root after
// changes below it have settled.
func New(c Config, roots []string, callback SyncFunc) (*Daemon, error) {
	if c.Settle <= 0 {
		c.Settle = 5 * time.Second
	}
	if c.MinInterval <= 0 {
		c.MinInterval = time.Minute
	}

	d := &daemon{
		callback: callback,
		roots:    roots,
		settle:   c.Settle,
		log:      mediadb.GetLogger(c.Verbosity).With().Str("component", "watch").Logger(),
		pending:  make(map[string]*time.Timer),
		limiters: make(map[string]*rate.Limiter),
	}

	for _, root := range roots {
		d.limiters[root] = rate.NewLimiter(rate.Every(c.MinInterval), 1)
	}

	if err := d.startMonitoring(); err != nil {
		return nil, err
	}

	return &Daemon{d: d}, nil
}

// Close stops the watcher.
func (w *Daemon) Close() error {
	return w.d.watcher.Close()
}

func (d *daemon) startMonitoring() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	d.watcher = watcher

	for _, root := range d.roots {
		if err := filepath.Walk(root, d.walkFunc); err != nil {
			_ = d.watcher.Close()
			return err
		}
	}

	go d.worker()

	return nil
}

func (d *daemon) walkFunc(path string, fi os.FileInfo, err error) error {
	if err != nil {
		return nil
	}
	if !fi.Mode().IsDir() {
		return nil
	}
	if strings.HasPrefix(fi.Name(), ".") && !contains(d.roots, path) {
		return filepath.SkipDir
	}

	if err := d.watcher.Add(path); err != nil {
		return fmt.Errorf("watch directory: %v: %w", path, err)
	}

	d.log.Trace().
		Str("path", path).
		Msg("Watching directory")

	return nil
}

func (d *daemon) rootOf(path string) string {
	for _, root := range d.roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return root
		}
	}
	return ""
}

// schedule arms (or re-arms) the settle timer of a root.
func (d *daemon) schedule(root string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.pending[root]; ok {
		t.Reset(d.settle)
		return
	}

	d.pending[root] = time.AfterFunc(d.settle, func() {
		d.mu.Lock()
		delete(d.pending, root)
		limiter := d.limiters[root]
		d.mu.Unlock()

		if limiter != nil && !limiter.Allow() {
			// too soon, try again after the settle period
			d.schedule(root)
			return
		}

		if err := d.callback(root); err != nil {
			d.log.Error().
				Err(err).
				Str("path", root).
				Msg("Failed syncing directory")
		} else {
			d.log.Info().
				Str("path", root).
				Msg("Directory synced")
		}
	})
}

func (d *daemon) worker() {
	for {
		select {
		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}

			d.log.Trace().
				Interface("event", event).
				Msg("Filesystem event")

			switch {
			case event.Op&fsnotify.Create == fsnotify.Create:
				fi, err := os.Stat(event.Name)
				if err == nil && fi.IsDir() {
					// watch new directories
					if err := filepath.Walk(event.Name, d.walkFunc); err != nil {
						d.log.Error().
							Err(err).
							Str("path", event.Name).
							Msg("Failed watching new directory")
					}
				}
			case event.Op&fsnotify.Write == fsnotify.Write,
				event.Op&fsnotify.Rename == fsnotify.Rename,
				event.Op&fsnotify.Remove == fsnotify.Remove:
				// changed / renamed / removed
			default:
				continue
			}

			root := d.rootOf(event.Name)
			if root == "" {
				continue
			}
			d.schedule(root)

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.log.Error().
				Err(err).
				Msg("Failed receiving filesystem events")
		}
	}
}

func contains(list []string, v string) bool {
	for _, e := range list {
		if e == v {
			return true
		}
	}
	return false
}

// Package daemon imports feed exports dropped into a directory.
//
// The daemon:
//  1. Watches the export directory for <feed>.csv files
//  2. Debounces bursts of writes (a spreadsheet export rewrites several files)
//  3. Runs one Synchronize against the directory once the burst settles
//  4. Never runs two syncs at once
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/palmtask/palmtask/internal/feed"
	psync "github.com/palmtask/palmtask/internal/sync"
)

// ErrBusy is returned by TriggerSync while another sync is running.
var ErrBusy = errors.New("sync already in progress")

// Config holds configuration for the daemon.
type Config struct {
	// DebounceInterval is how long the directory must stay quiet before a
	// sync starts.
	DebounceInterval time.Duration

	// SyncOnStart runs a sync before watching begins.
	SyncOnStart bool

	// OnSync, when set, is called after every sync the daemon runs.
	OnSync func(psync.Outcome, error)

	// Logger for daemon activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: 2 * time.Second,
		SyncOnStart:      true,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon watches an export directory and syncs it into the store.
type Daemon struct {
	syncer psync.Syncer
	dir    string
	config *Config

	watcher       *fsnotify.Watcher
	changeQueue   map[string]time.Time // filepath -> last event
	changeQueueMu sync.Mutex

	// syncing is the busy guard around Synchronize.
	syncing sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a daemon syncing dir through syncer, with the default
// configuration. The syncer should read from a feed.DirSource on dir.
func New(syncer psync.Syncer, dir string) (*Daemon, error) {
	return NewWithConfig(syncer, dir, DefaultConfig())
}

// NewWithConfig creates a daemon with custom configuration.
func NewWithConfig(syncer psync.Syncer, dir string, config *Config) (*Daemon, error) {
	if syncer == nil {
		return nil, fmt.Errorf("syncer cannot be nil")
	}
	if dir == "" {
		return nil, fmt.Errorf("dir cannot be empty")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[daemon] ", log.LstdFlags)
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = DefaultConfig().DebounceInterval
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		syncer:      syncer,
		dir:         dir,
		config:      config,
		watcher:     watcher,
		changeQueue: make(map[string]time.Time),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Dir returns the watched directory.
func (d *Daemon) Dir() string { return d.dir }

// Start watches the directory until ctx is cancelled or Stop is called.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return fmt.Errorf("failed to create watch directory: %w", err)
	}
	if err := d.watcher.Add(d.dir); err != nil {
		return fmt.Errorf("failed to watch directory: %w", err)
	}
	d.config.Logger.Printf("Watching: %s", d.dir)

	if d.config.SyncOnStart {
		// Errors are reported through OnSync and the log.
		_, _ = d.TriggerSync(ctx)
	}

	d.wg.Add(2)
	go d.watchFileEvents()
	go d.processChangeQueue()

	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon. A sync in progress finishes first.
func (d *Daemon) Stop() error {
	d.config.Logger.Println("Stopping daemon")

	d.cancel()

	if err := d.watcher.Close(); err != nil {
		d.config.Logger.Printf("Error closing watcher: %v", err)
	}

	d.wg.Wait()

	// Wait for an in-flight sync.
	d.syncing.Lock()
	d.syncing.Unlock()

	d.config.Logger.Println("Daemon stopped")
	return nil
}

// TriggerSync runs one sync now. It returns ErrBusy without waiting when a
// sync is already running.
func (d *Daemon) TriggerSync(ctx context.Context) (psync.Outcome, error) {
	if !d.syncing.TryLock() {
		return psync.Outcome{}, ErrBusy
	}
	defer d.syncing.Unlock()

	d.config.Logger.Println("Syncing export directory")
	out, err := d.syncer.Synchronize(ctx)
	if err != nil {
		d.config.Logger.Printf("Sync failed: %v", err)
	} else {
		d.config.Logger.Printf("Sync complete: %d tasks, skipped %v", out.Records[feed.Tasks], out.Skipped)
	}
	if d.config.OnSync != nil {
		d.config.OnSync(out, err)
	}
	return out, err
}

// watchFileEvents monitors filesystem events and queues changes.
func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}

			// Only care about Create, Write, Remove, Rename
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !isFeedFile(event.Name) {
				continue
			}

			d.config.Logger.Printf("File event: %s %s", event.Op, event.Name)
			d.queueChange(event.Name)

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// isFeedFile reports whether path is one of the feed exports.
func isFeedFile(path string) bool {
	name, ok := strings.CutSuffix(filepath.Base(path), ".csv")
	if !ok {
		return false
	}
	_, err := feed.ParseFeed(name)
	return err == nil
}

// queueChange records a change to path.
func (d *Daemon) queueChange(path string) {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	d.changeQueue[path] = time.Now()
}

// processChangeQueue checks the queue on every debounce tick.
func (d *Daemon) processChangeQueue() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			if d.settled(time.Now()) {
				if _, err := d.TriggerSync(d.ctx); errors.Is(err, ErrBusy) {
					// Changes raced a running sync; try again next tick.
					d.queueChange(d.dir)
				}
			}
		}
	}
}

// settled reports whether changes are pending and the newest one is older
// than the debounce interval. It clears the queue when it returns true.
func (d *Daemon) settled(now time.Time) bool {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	if len(d.changeQueue) == 0 {
		return false
	}
	for _, queuedAt := range d.changeQueue {
		if now.Sub(queuedAt) < d.config.DebounceInterval {
			return false
		}
	}
	clear(d.changeQueue)
	return true
}

package sourcefs

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/phanxgames/zoml"
)

// DefaultDebounce is how long a path must stay quiet before its event is
// delivered.
const DefaultDebounce = 50 * time.Millisecond

// WatcherStats counts the events a Watcher has seen.
type WatcherStats struct {
	FilesCreated  int
	FilesModified int
	FilesDeleted  int
	Errors        int
	LastEventTime time.Time
	LastEventPath string
}

type pendingEvent struct {
	kind zoml.FileEventKind
	at   time.Time
}

// Watcher is a FileMonitor over a Dir backed by fsnotify. Bursts of events
// on one path within the debounce window coalesce into one event.
type Watcher struct {
	mu       sync.Mutex
	dir      *Dir
	log      *zap.Logger
	watcher  *fsnotify.Watcher
	debounce time.Duration
	pending  map[zoml.Location]pendingEvent
	ready    []zoml.FileEvent
	started  bool
	closed   bool
	ended    bool
	stopCh   chan struct{}
	doneCh   chan struct{}

	stats WatcherStats
}

var _ zoml.FileMonitor = (*Watcher)(nil)

// NewWatcher creates a watcher over dir. debounce <= 0 means
// DefaultDebounce.
func NewWatcher(dir *Dir, debounce time.Duration, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		dir:      dir,
		log:      log,
		watcher:  fw,
		debounce: debounce,
		pending:  make(map[zoml.Location]pendingEvent),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start watches every directory under the source dir and processes events
// until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started || w.closed {
		w.mu.Unlock()
		return nil
	}
	w.started = true
	w.mu.Unlock()

	err := filepath.WalkDir(w.dir.Root(), func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if entry.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				w.log.Warn("failed to watch directory", zap.String("path", path), zap.Error(err))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	w.log.Info("watching sources", zap.String("dir", w.dir.Root()))

	go w.run(ctx)
	return nil
}

// Stop ends monitoring and waits for the event loop to exit. Events already
// debounced are still returned by TryNext.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	started := w.started
	w.closed = true
	w.mu.Unlock()

	if started {
		close(w.stopCh)
		<-w.doneCh
	}
	if err := w.watcher.Close(); err != nil {
		w.log.Error("error closing watcher", zap.Error(err))
	}
	w.log.Info("watcher stopped")
}

// Close is Stop for io.Closer callers.
func (w *Watcher) Close() error {
	w.Stop()
	return nil
}

// Stats returns a snapshot of the event counters.
func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// TryNext returns the oldest debounced event.
func (w *Watcher) TryNext() (zoml.FileEvent, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.ready) == 0 {
		if w.closed || w.ended {
			return zoml.FileEvent{}, zoml.ErrNoLongerMonitoring
		}
		return zoml.FileEvent{}, zoml.ErrNoFileChanges
	}
	ev := w.ready[0]
	w.ready = w.ready[1:]
	return ev, nil
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("watcher context cancelled")
			w.markStopped()
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				w.markStopped()
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				w.markStopped()
				return
			}
			w.log.Error("watcher error", zap.Error(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
		case now := <-ticker.C:
			w.flush(now)
		}
	}
}

func (w *Watcher) markStopped() {
	w.mu.Lock()
	w.ended = true
	w.mu.Unlock()
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watcher.Add(event.Name); err != nil {
				w.log.Warn("failed to watch directory", zap.String("path", event.Name), zap.Error(err))
			}
			return
		}
	}
	if filepath.Ext(event.Name) != Extension {
		return
	}
	loc, ok := w.dir.Location(event.Name)
	if !ok {
		return
	}

	var kind zoml.FileEventKind
	switch {
	case event.Has(fsnotify.Create):
		kind = zoml.FileCreated
	case event.Has(fsnotify.Write):
		kind = zoml.FileModified
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		kind = zoml.FileDeleted
	default:
		return
	}
	w.log.Debug("file event", zap.Stringer("kind", kind), zap.String("location", string(loc)))

	w.mu.Lock()
	defer w.mu.Unlock()
	now := time.Now()
	w.stats.LastEventTime = now
	w.stats.LastEventPath = event.Name
	switch kind {
	case zoml.FileCreated:
		w.stats.FilesCreated++
	case zoml.FileModified:
		w.stats.FilesModified++
	case zoml.FileDeleted:
		w.stats.FilesDeleted++
	}
	if prev, ok := w.pending[loc]; ok {
		kind = coalesce(prev.kind, kind)
	}
	w.pending[loc] = pendingEvent{kind: kind, at: now}
}

// coalesce folds a new event into a pending one for the same path.
func coalesce(prev, next zoml.FileEventKind) zoml.FileEventKind {
	switch {
	case prev == zoml.FileDeleted && next == zoml.FileCreated:
		// Editors that save by replacing the file.
		return zoml.FileModified
	case prev == zoml.FileCreated && next == zoml.FileModified:
		return zoml.FileCreated
	}
	return next
}

func (w *Watcher) flush(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var due []zoml.Location
	for loc, p := range w.pending {
		if now.Sub(p.at) >= w.debounce {
			due = append(due, loc)
		}
	}
	slices.Sort(due)
	for _, loc := range due {
		w.ready = append(w.ready, zoml.FileEvent{Kind: w.pending[loc].kind, Location: loc})
		delete(w.pending, loc)
	}
}

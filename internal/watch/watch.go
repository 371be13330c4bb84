// Package watch refreshes a category when its backing file changes on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/kingrea/unirecords/internal/config"
	"github.com/kingrea/unirecords/internal/refresh"
)

const defaultDebounce = 300 * time.Millisecond

// Refresher reloads one category. *refresh.Orchestrator satisfies it.
type Refresher interface {
	RefreshSpecific(ctx context.Context, category refresh.Category) refresh.Outcome
}

// Option customizes a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long a file must stay quiet before its category is
// refreshed.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// Watcher maps file system events on record files to refresh requests.
type Watcher struct {
	files     map[string]refresh.Category
	refresher Refresher
	debounce  time.Duration
	logger    *zap.Logger
	watcher   *fsnotify.Watcher

	mu       sync.Mutex
	timers   map[refresh.Category]*time.Timer
	stopCh   chan struct{}
	stopOnce sync.Once
}

// Files maps every record file to the category it feeds. Both assignment
// files feed the assignments category.
func Files(paths config.Paths) map[string]refresh.Category {
	out := map[string]refresh.Category{}
	add := func(path string, category refresh.Category) {
		if path != "" {
			out[clean(path)] = category
		}
	}
	add(paths.Students, refresh.Students)
	add(paths.Staff, refresh.Staff)
	add(paths.Courses, refresh.Courses)
	add(paths.Modules, refresh.Modules)
	add(paths.StaffAssignments, refresh.Assignments)
	add(paths.StudentAssignments, refresh.Assignments)
	return out
}

// New watches the directories holding every record file.
func New(paths config.Paths, refresher Refresher, opts ...Option) (*Watcher, error) {
	if refresher == nil {
		return nil, fmt.Errorf("watch: refresher is required")
	}
	w := &Watcher{
		files:     Files(paths),
		refresher: refresher,
		debounce:  defaultDebounce,
		logger:    zap.NewNop(),
		timers:    map[refresh.Category]*time.Timer{},
		stopCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create watcher: %w", err)
	}
	// Directories rather than files, so atomic renames onto a record file are seen.
	dirs := map[string]struct{}{}
	for path := range w.files {
		dirs[filepath.Dir(path)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("watch: add %s: %w", dir, err)
		}
	}
	w.watcher = watcher
	return w, nil
}

// Run handles events until ctx is done or Close is called.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watch_started", zap.Int("files", len(w.files)), zap.Duration("debounce", w.debounce))
	defer w.stopTimers()
	for {
		select {
		case <-ctx.Done():
			w.Close()
			return nil
		case <-w.stopCh:
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			category, known := w.files[clean(event.Name)]
			if !known {
				continue
			}
			w.schedule(ctx, category, event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch_error", zap.Error(err))
		}
	}
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) schedule(ctx context.Context, category refresh.Category, name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer := w.timers[category]; timer != nil {
		timer.Stop()
	}
	w.timers[category] = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.stopCh:
			return
		default:
		}
		w.logger.Info("watch_file_changed", zap.String("file", name), zap.String("category", category.String()))
		w.refresher.RefreshSpecific(ctx, category)
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for category, timer := range w.timers {
		timer.Stop()
		delete(w.timers, category)
	}
}

func clean(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// Package watch triggers reloads when local dataset files change.
//
// Parent directories are watched rather than the files themselves so that
// editors which save by writing a temp file and renaming it are still seen.
// Events are coalesced: a callback runs once the files have been quiet for
// the debounce interval.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/yellowduckie/duckline/internal/logger"
)

// DefaultDebounce is the quiet period used when Options.Debounce is zero.
const DefaultDebounce = 300 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration
	Logger   logrus.FieldLogger
}

// ChangeFunc receives the sorted set of files that changed in one burst.
type ChangeFunc func(ctx context.Context, changed []string)

// Watcher watches a fixed set of files.
type Watcher struct {
	fs       *fsnotify.Watcher
	files    map[string]bool
	debounce time.Duration
	log      *logrus.Entry
}

// New starts watching the directories holding paths.
func New(paths []string, opts Options) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("watch: no local files to watch")
	}
	files := make(map[string]bool, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("watch: %s: %w", p, err)
		}
		files[abs] = true
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	dirs := lo.Uniq(lo.Map(lo.Keys(files), func(f string, _ int) string { return filepath.Dir(f) }))
	sort.Strings(dirs)
	for _, d := range dirs {
		if err := fw.Add(d); err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("watch %s: %w", d, err)
		}
	}

	d := opts.Debounce
	if d <= 0 {
		d = DefaultDebounce
	}
	return &Watcher{
		fs:       fw,
		files:    files,
		debounce: d,
		log:      logger.Component(opts.Logger, "watch"),
	}, nil
}

// Files returns the watched files in sorted order.
func (w *Watcher) Files() []string {
	out := lo.Keys(w.files)
	sort.Strings(out)
	return out
}

// Run delivers debounced changes to fn until ctx is done or the watcher is
// closed. Each callback runs on its own goroutine, so a slow reload never
// delays noticing the next save; Run waits for them before returning.
func (w *Watcher) Run(ctx context.Context, fn ChangeFunc) error {
	var (
		wg      sync.WaitGroup
		timer   *time.Timer
		fire    <-chan time.Time
		pending = map[string]bool{}
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			path := filepath.Clean(event.Name)
			w.log.WithFields(logrus.Fields{"file": path, "op": event.Op.String()}).Debug("change")
			pending[path] = true
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			changed := lo.Keys(pending)
			sort.Strings(changed)
			pending = map[string]bool{}
			w.log.WithField("files", len(changed)).Info("files changed, reloading")
			wg.Add(1)
			go func() {
				defer wg.Done()
				fn(ctx, changed)
			}()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("file watcher error")
		}
	}
}

func (w *Watcher) relevant(e fsnotify.Event) bool {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) && !e.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(e.Name)
	if err != nil {
		return false
	}
	return w.files[abs]
}

// Close stops the underlying watcher. A running Run returns.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

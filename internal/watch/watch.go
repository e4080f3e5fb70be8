// Package watch is the dispatch front: it translates filesystem events and
// the optional startup scan into enqueued upload paths.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/studio1767/s3mirror/internal/logging"
	"github.com/studio1767/s3mirror/internal/mirror"
)

// Options selects which events feed the queue and how directories are
// registered.
type Options struct {
	// Recursive registers all subdirectories of each root at startup.
	Recursive bool

	// AutoAdd registers directories created inside watched ones and
	// scans them for files that raced the registration.
	AutoAdd bool

	// Events are the event names to react to: create, write, remove,
	// rename, chmod. Empty means create and write.
	Events []string
}

type Watcher struct {
	watcher *fsnotify.Watcher
	queue   *mirror.Queue
	pred    mirror.Predicate
	opts    Options
	mask    fsnotify.Op
	log     logging.Logger
}

func New(queue *mirror.Queue, pred mirror.Predicate, opts Options, log logging.Logger) (*Watcher, error) {
	mask, err := eventMask(opts.Events)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher: fsw,
		queue:   queue,
		pred:    pred,
		opts:    opts,
		mask:    mask,
		log:     log,
	}, nil
}

func eventMask(names []string) (fsnotify.Op, error) {
	if len(names) == 0 {
		names = []string{"create", "write"}
	}

	var mask fsnotify.Op
	for _, name := range names {
		switch name {
		case "create":
			mask |= fsnotify.Create
		case "write":
			mask |= fsnotify.Write
		case "remove":
			mask |= fsnotify.Remove
		case "rename":
			mask |= fsnotify.Rename
		case "chmod":
			mask |= fsnotify.Chmod
		default:
			return 0, &ErrUnknownEvent{name: name}
		}
	}
	return mask, nil
}

// AddRoots registers the watch roots, descending into subdirectories when
// recursive watching is configured. A failure here happens before the event
// loop and the caller exits with status 1.
func (w *Watcher) AddRoots(roots []string) error {
	for _, root := range roots {
		if !w.opts.Recursive {
			if err := w.watcher.Add(root); err != nil {
				return err
			}
			continue
		}

		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return w.watcher.Add(path)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Run pumps events into the queue until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn(ctx, "watch error", "error", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if event.Op&w.mask == 0 {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
			if w.opts.AutoAdd {
				w.addNewDir(ctx, event.Name)
			}
			return
		}
	}

	if !w.pred.Match(event.Name) {
		w.log.Debug(ctx, "path rejected by predicate", "path", event.Name)
		return
	}

	w.queue.Enqueue(event.Name)
}

// addNewDir registers a directory that appeared inside a watched one, then
// scans it: files written before the watch took effect would otherwise be
// missed.
func (w *Watcher) addNewDir(ctx context.Context, dir string) {
	if err := w.watcher.Add(dir); err != nil {
		w.log.Warn(ctx, "failed to watch new directory", "path", dir, "error", err)
		return
	}
	w.log.Info(ctx, "watching new directory", "path", dir)

	ScanExisting(ctx, []string{dir}, w.pred, w.queue, w.log)
}

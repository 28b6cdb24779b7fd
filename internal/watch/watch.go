// Package watch reruns a build when the sources of a document change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yildizm/texwatch/internal/logger"
)

// DefaultDebounce is used when Options.Debounce is zero
const DefaultDebounce = 300 * time.Millisecond

// BuildFunc runs one build for the files that changed since the last one
type BuildFunc func(ctx context.Context, changed []string)

// Options configure a Watcher
type Options struct {
	// Root is the directory of the document; it is watched with its
	// subdirectories
	Root string

	// Extensions select the files that trigger a build, with leading dot
	Extensions []string

	// Debounce is how long the tree must be quiet before a build starts
	Debounce time.Duration

	Log *logger.Logger
}

// Watcher turns bursts of file events into single builds
type Watcher struct {
	fs   *fsnotify.Watcher
	opts Options
	exts map[string]bool
	log  *logger.Logger
}

// New starts watching opts.Root
func New(opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	log := opts.Log
	if log == nil {
		log = logger.Discard()
	}

	info, err := os.Stat(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("cannot watch %s: %w", opts.Root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("cannot watch %s: not a directory", opts.Root)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{fs: fw, opts: opts, exts: make(map[string]bool), log: log}
	for _, ext := range opts.Extensions {
		w.exts[strings.ToLower(ext)] = true
	}
	if err := w.addTree(opts.Root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// addTree watches dir and every directory below it, hidden ones excepted
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		w.log.Debug("watching %s", path)
		return nil
	})
}

// Close stops watching
func (w *Watcher) Close() error {
	return w.fs.Close()
}

// Relevant reports whether an event on name should trigger a build. Build
// outputs, editor backups and hidden files never do.
func (w *Watcher) Relevant(name string, op fsnotify.Op) bool {
	if !op.Has(fsnotify.Write) && !op.Has(fsnotify.Create) && !op.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	return w.exts[strings.ToLower(filepath.Ext(base))]
}

// Run waits for changes and calls build once per quiet period until ctx is
// done. Events arriving while build runs are collected for the next round.
func (w *Watcher) Run(ctx context.Context, build BuildFunc) error {
	timer := time.NewTimer(w.opts.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	pending := make(map[string]bool)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			w.handle(event)
			if !w.Relevant(event.Name, event.Op) {
				continue
			}
			w.log.Debug("%s %s", event.Op, event.Name)
			pending[event.Name] = true
			timer.Reset(w.opts.Debounce)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.log.Warn("watcher error: %v", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for name := range pending {
				changed = append(changed, name)
			}
			sort.Strings(changed)
			pending = make(map[string]bool)
			build(ctx, changed)
		}
	}
}

// handle follows directories created inside the tree
func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Op.Has(fsnotify.Create) {
		return
	}
	info, err := os.Stat(event.Name)
	if err != nil || !info.IsDir() {
		return
	}
	if err := w.addTree(event.Name); err != nil {
		w.log.Warn("%v", err)
	}
}

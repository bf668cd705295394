package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"umlizer/internal/scanner"
)

// DefaultDebounce is the quiet period after the last change before a rerun.
const DefaultDebounce = 300 * time.Millisecond

// Watch runs the pipeline once and again after every burst of source file
// changes under opts.Source, reporting each outcome to onResult. It returns
// when ctx is done or the watcher fails.
func (p *Pipeline) Watch(ctx context.Context, opts Options, onResult func(*Result, error)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	root, err := filepath.Abs(opts.Source)
	if err != nil {
		return err
	}
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		if err := fsw.Add(filepath.Dir(root)); err != nil {
			return err
		}
	} else if err := p.watchTree(fsw, root, root, opts); err != nil {
		return err
	}

	onResult(p.Run(ctx, opts))

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) && info.IsDir() {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := p.watchTree(fsw, root, event.Name, opts); err != nil {
						p.logger.Debug("failed to watch directory", "path", event.Name, "error", err)
					}
					continue
				}
			}
			if !p.relevant(root, info.IsDir(), event, opts) {
				continue
			}
			p.logger.Debug("source changed", "path", event.Name, "op", event.Op.String())
			timer.Reset(debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			p.logger.Warn("watch error", "error", err)

		case <-timer.C:
			onResult(p.Run(ctx, opts))
		}
	}
}

func (p *Pipeline) watchTree(fsw *fsnotify.Watcher, root, dir string, opts Options) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (strings.HasPrefix(d.Name(), ".") || excluded(root, path+"/_", opts.Scan.Exclude)) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return err
		}
		p.logger.Debug("watching directory", "path", path)
		return nil
	})
}

// relevant reports whether an event can change the scanned declarations.
func (p *Pipeline) relevant(root string, dir bool, event fsnotify.Event, opts Options) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	if !dir {
		return filepath.Clean(event.Name) == root
	}
	if !scanner.IsSource(event.Name) {
		return false
	}
	return !excluded(root, event.Name, opts.Scan.Exclude)
}

func excluded(root, path string, patterns []string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

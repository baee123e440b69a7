package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports writes to the config file so the server can re-source it
// without a restart. The parent directory is watched because editors
// typically replace the file rather than write it in place.
type Watcher struct {
	fs   *fsnotify.Watcher
	path string
	done chan struct{}
}

// Watch starts watching path and invokes onChange (from a background
// goroutine) whenever the file is written or recreated.
func Watch(path string, onChange func()) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(filepath.Dir(path)); err != nil {
		fs.Close()
		return nil, err
	}

	w := &Watcher{fs: fs, path: path, done: make(chan struct{})}
	go w.run(onChange)
	return w, nil
}

func (w *Watcher) run(onChange func()) {
	base := filepath.Base(w.path)
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Rename) {
				onChange()
			}
		case _, ok := <-w.fs.Errors:
			if !ok {
				return
			}
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fs.Close()
}

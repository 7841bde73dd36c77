package config

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports changes to the configuration file so collaborators can
// re-read it. It never applies changes itself; the engine only refreshes
// behavior settings while idle.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
	changes chan string
	done    chan struct{}
}

// NewWatcher starts watching the given configuration file.
func NewWatcher(path string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fs watcher: %w", err)
	}

	// Watch the directory; editors often replace the file on save, which
	// would drop a watch registered on the file itself.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	w := &Watcher{
		watcher: fsw,
		path:    path,
		changes: make(chan string, 1),
		done:    make(chan struct{}),
	}

	go w.loop()

	return w, nil
}

// Changes delivers the config path each time the file is written or replaced.
func (w *Watcher) Changes() <-chan string {
	return w.changes
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			select {
			case w.changes <- w.path:
			default:
				// A change is already pending, collapsing is fine
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Config watcher error: %v", err)
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

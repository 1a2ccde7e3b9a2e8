package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Reload is one result of re-reading a watched file.
type Reload struct {
	Config *Config
	Err    error
}

// Watch loads the file at path and reloads it whenever it is written or
// replaced. The first value carries the current contents. The channel is
// closed when ctx is done.
//
// The parent directory is watched so editors that save by renaming a
// temporary file are picked up.
func Watch(ctx context.Context, path string) (<-chan Reload, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	out := make(chan Reload)

	go func() {
		defer close(out)
		defer watcher.Close()

		send := func() bool {
			cfg, err := Load(path)
			select {
			case out <- Reload{Config: cfg, Err: err}:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send() {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if !send() {
					return
				}

			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return out, nil
}

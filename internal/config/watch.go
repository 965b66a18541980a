package config

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch re-reads the config at path whenever it changes and sends the result
// on configs, or the failure on errs, until done is closed. The parent
// directory is watched so editors that replace the file are followed.
func Watch(path string, configs chan<- *Config, errs chan<- error, done <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("can't create watcher: %w", err)
	}
	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return err
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				c, err := Read(target)
				if err != nil {
					select {
					case errs <- err:
					case <-done:
						return
					}
					continue
				}
				select {
				case configs <- c:
				case <-done:
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				select {
				case errs <- err:
				case <-done:
					return
				}
			case <-done:
				return
			}
		}
	}()
	return nil
}

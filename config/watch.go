package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the file at path whenever it changes and passes each valid
// configuration to onChange. Invalid files are logged and skipped, leaving the
// previous configuration in effect. The directory is watched rather than the file
// so that editors which replace the file on save are followed. Watching stops when
// ctx is cancelled.
func Watch(ctx context.Context, path string, logger *slog.Logger, onChange func(*Config)) error {
	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	go watchLoop(ctx, watcher, path, logger, onChange)

	return nil
}

func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, path string, logger *slog.Logger, onChange func(*Config)) {
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}

			config, err := Load(path)
			if err != nil {
				logger.Warn("Ignoring invalid configuration",
					slog.String("path", path),
					slog.String("error", err.Error()),
				)
				continue
			}

			logger.Info("Configuration reloaded", slog.String("path", path))
			onChange(config)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Error("Configuration watcher error", slog.String("error", err.Error()))
		}
	}
}

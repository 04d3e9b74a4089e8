package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/df07/go-pathtracer/pkg/core"
)

// ReloadDelay is how long Watch waits after the last write before reloading
const ReloadDelay = 50 * time.Millisecond

// Watch reloads the config at path whenever it is written and passes the
// new value to onChange. Bursts of writes are coalesced into one reload
// after ReloadDelay. Empty files and files that fail to load are logged
// and skipped. Watch blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, logger core.Logger, onChange func(Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory so editors that replace the file are still seen
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	target := filepath.Clean(path)

	reload := time.NewTimer(ReloadDelay)
	if !reload.Stop() {
		<-reload.C
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			reload.Reset(ReloadDelay)

		case <-reload.C:
			if info, err := os.Stat(path); err == nil && info.Size() == 0 {
				logger.Printf("Ignoring empty config %s\n", path)
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				logger.Printf("Config reload failed: %v\n", err)
				continue
			}
			logger.Printf("Reloaded config from %s\n", path)
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Printf("Config watcher error: %v\n", err)

		case <-ctx.Done():
			reload.Stop()
			return nil
		}
	}
}

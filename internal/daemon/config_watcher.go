package daemon

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/evolvinglmms-lab/docsync/internal/config"
	"github.com/evolvinglmms-lab/docsync/internal/foundation/errors"
	"github.com/evolvinglmms-lab/docsync/internal/logfields"
)

const defaultDebounce = 2 * time.Second

// ReloadFunc applies a freshly loaded configuration.
type ReloadFunc func(ctx context.Context, cfg *config.Config) error

// ConfigWatcher monitors the configuration file and reloads it after writes
// settle for the debounce interval.
type ConfigWatcher struct {
	configPath   string
	reload       ReloadFunc
	watcher      *fsnotify.Watcher
	debounceTime time.Duration

	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewConfigWatcher creates a watcher for configPath. Reloads call reload with
// the parsed file; a file that fails to load is logged and ignored.
func NewConfigWatcher(configPath string, reload ReloadFunc) (*ConfigWatcher, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to resolve config path").
			WithContext("path", configPath).Build()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryDaemon, "failed to create file watcher").Build()
	}

	return &ConfigWatcher{
		configPath:   absPath,
		reload:       reload,
		watcher:      watcher,
		debounceTime: defaultDebounce,
		stopChan:     make(chan struct{}),
	}, nil
}

// Start begins monitoring. The containing directory is watched so editors
// that replace the file by rename are still seen.
func (cw *ConfigWatcher) Start(ctx context.Context) error {
	configDir := filepath.Dir(cw.configPath)
	if err := cw.watcher.Add(configDir); err != nil {
		return errors.WrapError(err, errors.CategoryDaemon, "failed to watch config directory").
			WithContext("dir", configDir).Build()
	}

	slog.Info("Starting configuration watcher", logfields.Path(cw.configPath))
	cw.wg.Add(1)
	go cw.loop(ctx)
	return nil
}

// Stop ends monitoring and waits for an in-flight reload to return.
func (cw *ConfigWatcher) Stop() error {
	var err error
	cw.stopOnce.Do(func() {
		slog.Info("Stopping configuration watcher")
		close(cw.stopChan)
		err = cw.watcher.Close()
		cw.wg.Wait()
	})
	return err
}

func (cw *ConfigWatcher) loop(ctx context.Context) {
	defer cw.wg.Done()

	configFile := filepath.Base(cw.configPath)
	timer := time.NewTimer(cw.debounceTime)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cw.stopChan:
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFile {
				continue
			}
			switch {
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create), event.Has(fsnotify.Rename):
				slog.Debug("Config file change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
				timer.Reset(cw.debounceTime)
			case event.Has(fsnotify.Remove):
				slog.Warn("Config file removed", logfields.Path(event.Name))
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Config watcher error", logfields.Error(err))
		case <-timer.C:
			if err := cw.performReload(ctx); err != nil {
				slog.Error("Failed to reload configuration", logfields.Error(err))
			}
		}
	}
}

func (cw *ConfigWatcher) performReload(ctx context.Context) error {
	slog.Info("Reloading configuration", logfields.Path(cw.configPath))
	cfg, err := config.Load(cw.configPath)
	if err != nil {
		return err
	}
	if err := cw.reload(ctx, cfg); err != nil {
		return err
	}
	slog.Info("Configuration reloaded successfully")
	return nil
}

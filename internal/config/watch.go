package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the burst of events editors produce on save.
const reloadDelay = 100 * time.Millisecond

// Watch reloads the configuration whenever the file changes until ctx is
// done. The directory is watched rather than the file so that editors
// replacing the file by rename are noticed. Reload errors are logged and
// the previous configuration is kept.
func (m *Manager) Watch(ctx context.Context, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(m.configPath)); err != nil {
		w.Close()
		return err
	}

	go func() {
		defer w.Close()

		timer := time.NewTimer(reloadDelay)
		timer.Stop()
		name := filepath.Clean(m.configPath)

		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != name {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
					timer.Reset(reloadDelay)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("config: watch error", "error", err)
			case <-timer.C:
				if err := m.Load(); err != nil {
					logger.Warn("config: reload failed, keeping previous settings", "error", err)
					continue
				}
				logger.Info("config: reloaded", "path", m.configPath)
			}
		}
	}()

	return nil
}

package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/hupe1980/agentguard/logging"
)

// Watch reloads path into src whenever the file is written or recreated,
// until ctx is done. The containing directory is watched so editors that
// replace the file via rename are picked up. A file that fails to load is
// logged and leaves src unchanged.
func Watch(ctx context.Context, path string, src *Source, logger logging.Logger) error {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	logger.Info("config.watch.start", "path", abs)

	for {
		select {
		case <-ctx.Done():
			logger.Info("config.watch.stop", "path", abs)
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			reload(abs, src, logger)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config.watch.error", "path", abs, "error", err.Error())
		}
	}
}

func reload(path string, src *Source, logger logging.Logger) {
	limits, err := Load(path)
	if err == nil {
		err = src.Store(limits)
	}
	if err != nil {
		logger.Warn("config.reload.error", "path", path, "error", err.Error())
		return
	}

	logger.Info("config.reloaded",
		"path", path,
		"max_steps", limits.MaxSteps,
		"max_tool_calls", limits.MaxToolCalls,
		"timeout", limits.Timeout.String(),
		"max_tokens", limits.MaxTokens,
		"token_accounting_mode", string(limits.Mode()),
	)
}

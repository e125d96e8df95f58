package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ledgerScope/internal/config"
	"ledgerScope/internal/report"
)

func runWatch(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadWatch(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Debounce <= 0 {
		return fmt.Errorf("debounce must be positive")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(cfg.DataDir); err != nil {
		return fmt.Errorf("watch %s: %w", cfg.DataDir, err)
	}
	watched := map[string]bool{filepath.Clean(cfg.DataDir): true}
	addStreamDirs(watcher, cfg.Config, watched, logger)

	logger.Info("watch start",
		zap.String("data_dir", cfg.DataDir),
		zap.Int("dirs", len(watched)),
		zap.Duration("debounce", cfg.Debounce),
	)

	w := cmd.OutOrStdout()
	rerun := func() {
		if err := runOnce(ctx, cfg.Config, report.AllSections, w, logger); err != nil {
			logger.Error("replay failed", zap.Error(err))
		}
	}
	rerun()

	timer := time.NewTimer(cfg.Debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("watch stop")
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("log change", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				forgetDir(watched, cfg.DataDir, ev.Name)
			}
			// Stream directories created after start, or recreated, need their own watch.
			if ev.Has(fsnotify.Create) {
				addStreamDirs(watcher, cfg.Config, watched, logger)
			}
			timer.Reset(cfg.Debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", zap.Error(err))
		case <-timer.C:
			rerun()
		}
	}
}

func addStreamDirs(watcher *fsnotify.Watcher, cfg config.Config, watched map[string]bool, logger *zap.Logger) {
	for _, name := range cfg.Entities {
		dir := filepath.Join(cfg.DataDir, name)
		if watched[dir] {
			continue
		}
		stat, err := os.Stat(dir)
		if err != nil || !stat.IsDir() {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			logger.Warn("watch stream dir", zap.String("dir", dir), zap.Error(err))
			continue
		}
		watched[dir] = true
	}
}

// forgetDir drops a removed or renamed stream directory so a recreated one is watched again.
// fsnotify removes the watch itself when the directory goes away.
func forgetDir(watched map[string]bool, dataDir, path string) {
	path = filepath.Clean(path)
	if path == filepath.Clean(dataDir) {
		return
	}
	delete(watched, path)
}

package app

import (
	"context"
	"path/filepath"
	"strings"

	"go.trai.ch/stale/internal/adapters/watcher"
	"go.trai.ch/stale/internal/core/domain"
	"go.trai.ch/zerr"
)

// Watch builds once, then rebuilds whenever files below the build root change, until ctx
// is canceled. Build failures are logged and do not stop watching.
func (a *App) Watch(ctx context.Context, opts BuildOptions) error {
	cfg, err := a.configLoader.Load(a.workDir)
	if err != nil {
		return zerr.Wrap(err, "failed to load configuration")
	}

	shutdown := a.install(a.renderer)
	defer func() {
		_ = shutdown(ctx)
	}()

	if _, err := a.build(ctx, opts); err != nil {
		a.logger.Error(err)
	}

	if err := a.watcher.Start(ctx, cfg.Root); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to start watcher"), "root", cfg.Root)
	}
	defer func() {
		_ = a.watcher.Stop()
	}()

	trigger := make(chan struct{}, 1)
	debouncer := watcher.NewDebouncer(a.debounce, func([]string) {
		select {
		case trigger <- struct{}{}:
		default:
		}
	})

	go func() {
		for event := range a.watcher.Events() {
			if relevant(cfg, event.Path) {
				debouncer.Add(event.Path)
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-trigger:
			a.logger.Info("change detected, rebuilding")
			if _, err := a.build(ctx, opts); err != nil {
				a.logger.Error(err)
			}
		}
	}
}

// relevant drops events for the directories a build writes to.
func relevant(cfg *domain.BuildConfig, path string) bool {
	for _, dir := range []string{cfg.CacheDir, cfg.OutputDir} {
		if dir == "" {
			continue
		}
		rel, err := filepath.Rel(dir, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return false
		}
	}
	return true
}

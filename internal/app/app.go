// Package app implements the application layer for stale.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.trai.ch/stale/internal/adapters/telemetry"
	"go.trai.ch/stale/internal/adapters/watcher"
	"go.trai.ch/stale/internal/core/ports"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	opener       ports.CacheOpener
	reader       ports.LibraryReader
	symbols      ports.Loader
	compiler     ports.Compiler
	writer       ports.ModuleWriter
	watcher      ports.Watcher
	logger       ports.Logger
	tracer       ports.Tracer
	renderer     ports.Renderer

	workDir  string
	debounce time.Duration
	install  func(ports.Renderer) func(context.Context) error
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	opener ports.CacheOpener,
	reader ports.LibraryReader,
	symbols ports.Loader,
	compiler ports.Compiler,
	writer ports.ModuleWriter,
	fsWatcher ports.Watcher,
	log ports.Logger,
	tracer ports.Tracer,
	renderer ports.Renderer,
) *App {
	return &App{
		configLoader: loader,
		opener:       opener,
		reader:       reader,
		symbols:      symbols,
		compiler:     compiler,
		writer:       writer,
		watcher:      fsWatcher,
		logger:       log,
		tracer:       tracer,
		renderer:     renderer,
		workDir:      ".",
		debounce:     watcher.DefaultDebounceWindow,
		install:      telemetry.Install,
	}
}

// WithWorkDir sets the directory the configuration is searched from.
func (a *App) WithWorkDir(dir string) *App {
	a.workDir = dir
	return a
}

// WithDebounce sets the window used to coalesce file events in watch mode.
func (a *App) WithDebounce(window time.Duration) *App {
	a.debounce = window
	return a
}

// WithoutTelemetry keeps the global tracer provider untouched.
// This is primarily used for testing with a no-op tracer.
func (a *App) WithoutTelemetry() *App {
	a.install = func(ports.Renderer) func(context.Context) error {
		return func(context.Context) error { return nil }
	}
	return a
}

// CleanOptions configuration for the Clean method.
type CleanOptions struct {
	Cache  bool
	Output bool
}

// Clean removes the incremental cache and the assembled modules based on options.
func (a *App) Clean(_ context.Context, options CleanOptions) error {
	cfg, err := a.configLoader.Load(a.workDir)
	if err != nil {
		return zerr.Wrap(err, "failed to load configuration")
	}

	var errs error
	remove := func(path string, name string) {
		a.logger.Info(fmt.Sprintf("removing %s...", name))
		if err := os.RemoveAll(path); err != nil {
			errs = errors.Join(errs, zerr.With(zerr.Wrap(err, fmt.Sprintf("failed to remove %s", name)), "path", path))
			return
		}
		a.logger.Info(fmt.Sprintf("removed %s", name))
	}

	if options.Cache {
		remove(cfg.CacheDir, "incremental cache")
	}
	if options.Output {
		remove(cfg.OutputDir, "module outputs")
	}
	return errs
}

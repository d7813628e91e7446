package app

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"go.trai.ch/stale/internal/adapters/cas"
	"go.trai.ch/stale/internal/core/domain"
	"go.trai.ch/stale/internal/core/ports"
	"go.trai.ch/stale/internal/engine/depgraph"
	"go.trai.ch/stale/internal/engine/fingerprint"
	"go.trai.ch/stale/internal/engine/invalidation"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// BuildOptions configuration for the Build method.
type BuildOptions struct {
	// NoCache discards the incremental cache before building.
	NoCache bool
	// Fallback rebuilds from scratch when the cache contradicts itself.
	Fallback bool
	// DryRun computes the files to compile without compiling or committing anything.
	DryRun bool
}

// Build runs an incremental build and reports its outcome to the renderer.
func (a *App) Build(ctx context.Context, opts BuildOptions) error {
	shutdown := a.install(a.renderer)
	defer func() {
		_ = shutdown(ctx)
	}()

	_, err := a.build(ctx, opts)
	return err
}

// Status reports the files the next build would compile.
func (a *App) Status(ctx context.Context) error {
	return a.Build(ctx, BuildOptions{DryRun: true, Fallback: true})
}

// build runs one build, falling back to a cold build when the cache cannot be trusted.
func (a *App) build(ctx context.Context, opts BuildOptions) (*domain.Report, error) {
	cfg, err := a.configLoader.Load(a.workDir)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}

	store, release, err := a.openStore(cfg, opts, opts.NoCache)
	if err != nil {
		return nil, err
	}
	defer func() { release() }()

	report, err := a.attempt(ctx, cfg, store, opts)
	if err != nil && discardable(err, opts) {
		a.logger.Warn(fmt.Sprintf("discarding incremental cache: %v", err))
		release()
		release = func() {}
		var reopened func()
		store, reopened, err = a.openStore(cfg, opts, true)
		if err != nil {
			return nil, err
		}
		release = reopened
		report, err = a.attempt(ctx, cfg, store, opts)
		if report != nil {
			report.Cold = true
		}
	} else if report != nil {
		report.Cold = opts.NoCache
	}
	if err != nil {
		return nil, err
	}

	a.renderer.OnReport(report)
	return report, nil
}

// discardable reports whether err is resolved by rebuilding without the cache.
func discardable(err error, opts BuildOptions) bool {
	if errors.Is(err, domain.ErrCacheCorrupt) {
		return true
	}
	return opts.Fallback && errors.Is(err, domain.ErrInternalInconsistency)
}

// openStore opens the cache of cfg. A cold build purges it first; a cold dry run works on a
// scratch cache instead, leaving the real one untouched.
func (a *App) openStore(cfg *domain.BuildConfig, opts BuildOptions, cold bool) (ports.CacheStore, func(), error) {
	if cold && opts.DryRun {
		scratch, err := os.MkdirTemp("", "stale-status-*")
		if err != nil {
			return nil, nil, zerr.Wrap(err, "failed to create scratch cache")
		}
		shadow := *cfg
		shadow.CacheDir = scratch
		store, err := a.opener.Open(&shadow)
		if err != nil {
			_ = os.RemoveAll(scratch)
			return nil, nil, err
		}
		return store, func() { _ = os.RemoveAll(scratch) }, nil
	}

	store, err := a.opener.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	if cold {
		if err := store.Purge(); err != nil {
			return nil, nil, err
		}
	}
	return store, func() {}, nil
}

// session is the state one build attempt reads from the cache and the libraries.
type session struct {
	cfg     *domain.BuildConfig
	store   ports.CacheStore
	libs    []*domain.Library
	changes []domain.Classification
	// headers are the committed headers of the libraries in the build.
	headers map[domain.LibraryPath]domain.LibraryHeader
	stubs   map[domain.FileKey]domain.SignatureSet
	orphans []string
}

func (a *App) attempt(
	ctx context.Context,
	cfg *domain.BuildConfig,
	store ports.CacheStore,
	opts BuildOptions,
) (*domain.Report, error) {
	s := &session{cfg: cfg, store: store, stubs: make(map[domain.FileKey]domain.SignatureSet)}
	if err := a.stage(ctx, "fingerprinting libraries", func(ctx context.Context) error {
		return a.prepare(ctx, s)
	}); err != nil {
		return nil, err
	}

	g, err := depgraph.New(domain.NewFileTable(), store, depgraph.DefaultCacheSize)
	if err != nil {
		return nil, err
	}
	res, err := invalidation.New(a.symbols, a.tracer).Run(ctx, invalidation.Input{
		Libraries: s.libs,
		Changes:   s.changes,
		Graph:     g,
		Stubs:     s.stubs,
	})
	if err != nil {
		return nil, err
	}

	report := &domain.Report{
		Dirty:       res.Dirty(),
		Diagnostics: res.Diagnostics(),
		Rounds:      res.Rounds,
		Removed:     res.Removed,
		DryRun:      opts.DryRun,
	}
	if opts.DryRun {
		return report, nil
	}

	var fragments map[domain.FileKey][]byte
	if err := a.stage(ctx, "compiling", func(ctx context.Context) error {
		var err error
		fragments, err = a.compiler.Compile(ctx, cfg.Compiler, res.Symbols, res.Dirty())
		return err
	}); err != nil {
		return nil, err
	}

	commit, err := newCommit(s, g, res, fragments)
	if err != nil {
		return nil, err
	}

	if err := a.stage(ctx, "assembling modules", func(context.Context) error {
		report.Modules, err = a.assemble(s, g, res, fragments, commit)
		return err
	}); err != nil {
		return nil, err
	}

	if err := a.stage(ctx, "committing cache", func(ctx context.Context) error {
		if err := store.Commit(ctx, commit); err != nil {
			return err
		}
		return a.pruneVersions(cfg.CacheDir, store.Root())
	}); err != nil {
		return nil, err
	}
	return report, nil
}

func (a *App) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := a.tracer.Start(ctx, name, ports.AsStage())
	defer span.End()
	if err := fn(ctx); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// prepare reads the libraries of the build and classifies their files against the cache.
func (a *App) prepare(ctx context.Context, s *session) error {
	libs, err := a.readLibraries(ctx, s.cfg)
	if err != nil {
		return err
	}
	s.libs = libs

	inBuild := make(map[domain.LibraryPath]struct{}, len(libs))
	buildDirs := make(map[string]struct{}, len(libs))
	for _, lib := range libs {
		inBuild[lib.Path] = struct{}{}
		buildDirs[cas.LibraryDirName(lib.Path)] = struct{}{}
	}

	cached, err := s.store.Libraries()
	if err != nil {
		return err
	}
	headers := make(map[domain.LibraryPath]domain.LibraryHeader)
	s.headers = headers
	recovered := make(map[domain.LibraryPath][]domain.SourcePath)
	for _, c := range cached {
		if h, ok := c.Header.Get(); ok {
			if _, ok := inBuild[h.Path]; ok {
				headers[h.Path] = h
				continue
			}
			s.changes = append(s.changes, fingerprint.ClassifyOrphan(h.Path, headerFiles(h)))
			s.orphans = append(s.orphans, c.Dir)
			continue
		}

		// Without a readable header the committed file list is recovered from the metadata.
		keys, err := s.store.RecoverFiles(c.Dir)
		if err != nil {
			return err
		}
		byLib := groupByLibrary(keys)
		orphan := false
		for _, lib := range slices.SortedFunc(maps.Keys(byLib), domain.LibraryPath.Compare) {
			if _, ok := inBuild[lib]; ok {
				recovered[lib] = byLib[lib]
				continue
			}
			s.changes = append(s.changes, fingerprint.ClassifyOrphan(lib, byLib[lib]))
			orphan = true
		}
		if _, ok := buildDirs[c.Dir]; !ok && (orphan || len(byLib) == 0) {
			s.orphans = append(s.orphans, c.Dir)
		}
	}

	for _, lib := range libs {
		var c domain.Classification
		if h, ok := headers[lib.Path]; ok {
			c = fingerprint.Classify(lib, domain.Found(h))
		} else if files, ok := recovered[lib.Path]; ok {
			c = fingerprint.ClassifyRecovered(lib, files)
		} else {
			c = fingerprint.Classify(lib, domain.NotFound[domain.LibraryHeader]())
		}
		s.changes = append(s.changes, requireFragments(s.store, lib, c))

		stubs, err := s.store.ReadStubs(lib.Path)
		if err != nil {
			return err
		}
		if m, ok := stubs.Get(); ok {
			for src, sigs := range m {
				s.stubs[lib.Key(src)] = sigs
			}
		}
	}
	return nil
}

// readLibraries reads every configured library in parallel, keeping the configured order.
func (a *App) readLibraries(ctx context.Context, cfg *domain.BuildConfig) ([]*domain.Library, error) {
	libs := make([]*domain.Library, len(cfg.Libraries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, path := range cfg.Libraries {
		g.Go(func() error {
			lib, err := a.reader.Read(gctx, cfg.Root, path)
			if err != nil {
				return err
			}
			lib.Dependencies = cfg.Dependencies[path]
			libs[i] = lib
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return libs, nil
}

// requireFragments reclassifies unmodified files without a committed fragment as modified.
func requireFragments(store ports.CacheStore, lib *domain.Library, c domain.Classification) domain.Classification {
	unmodified := c.Unmodified[:0:0]
	for _, src := range c.Unmodified {
		if store.HasFragment(lib.Key(src)) {
			unmodified = append(unmodified, src)
			continue
		}
		c.Modified = append(c.Modified, src)
	}
	c.Unmodified = unmodified
	return c
}

// newCommit collects everything a successful build persists, except module records.
// Headers equal to the committed ones are left out.
func newCommit(
	s *session,
	g *depgraph.Graph,
	res *invalidation.Result,
	fragments map[domain.FileKey][]byte,
) (*domain.Commit, error) {
	c := domain.NewCommit(g.Table())
	c.Metadata = res.Metadata
	c.Removed = res.Removed
	c.Stubs = res.Stubs
	c.Orphans = s.orphans
	for _, lib := range s.libs {
		h := lib.Header()
		if prior, ok := s.headers[lib.Path]; ok && prior.Equal(h) {
			continue
		}
		c.Headers = append(c.Headers, h)
	}

	for _, key := range res.Dirty() {
		fragment, ok := fragments[key]
		if !ok {
			return nil, zerr.With(zerr.Wrap(domain.ErrCompileFailed, "compiler produced no fragment"), "file", key.String())
		}
		artifact := &domain.CacheArtifact{Fragment: fragment}
		if f, ok := res.Symbols.Files[key]; ok {
			for i := range f.Declarations {
				artifact.Symbols = append(artifact.Symbols, f.Declarations[i].Signature)
			}
		}
		c.Fragments[key] = artifact
	}
	return c, nil
}

// pruneVersions removes cache roots left behind by other configurations.
func (a *App) pruneVersions(cacheDir, keep string) error {
	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return zerr.With(zerr.Wrap(err, "failed to list cache directory"), "dir", cacheDir)
	}
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), domain.VersionDirPrefix) || e.Name() == filepath.Base(keep) {
			continue
		}
		path := filepath.Join(cacheDir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to remove stale cache version"), "path", path)
		}
		a.logger.Info(fmt.Sprintf("removed cache of a previous configuration: %s", e.Name()))
	}
	return nil
}

func headerFiles(h domain.LibraryHeader) []domain.SourcePath {
	files := make([]domain.SourcePath, 0, len(h.Files))
	for _, f := range h.Files {
		files = append(files, f.Source)
	}
	return files
}

func groupByLibrary(keys []domain.FileKey) map[domain.LibraryPath][]domain.SourcePath {
	out := make(map[domain.LibraryPath][]domain.SourcePath)
	for _, key := range keys {
		out[key.Library] = append(out[key.Library], key.Source)
	}
	return out
}

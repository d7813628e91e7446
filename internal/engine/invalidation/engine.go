// Package invalidation computes the set of source files an incremental build must recompile.
//
// The engine starts from the files whose content changed, loads just enough of the program to
// rehash what they export, and follows the dependency graph round by round until no further
// file has to be rebuilt.
package invalidation

import (
	"context"
	"fmt"

	"go.trai.ch/stale/internal/core/domain"
	"go.trai.ch/stale/internal/core/ports"
	"go.trai.ch/stale/internal/engine/depgraph"
	"go.trai.ch/stale/internal/engine/sighash"
	"go.trai.ch/zerr"
)

// Input is everything one invalidation run reads.
type Input struct {
	// Libraries are the libraries of the build in dependency order.
	Libraries []*domain.Library
	// Changes classifies the files of every library of the build, and of every library
	// that left it since the last commit.
	Changes []domain.Classification
	// Graph is the dependency graph backed by the committed metadata.
	Graph *depgraph.Graph
	// Stubs holds the signatures each file saw replaced by stubs at the last commit.
	Stubs map[domain.FileKey]domain.SignatureSet
}

// Engine runs invalidations.
type Engine struct {
	loader ports.Loader
	tracer ports.Tracer
}

// New creates an Engine materializing symbols through loader.
func New(loader ports.Loader, tracer ports.Tracer) *Engine {
	return &Engine{loader: loader, tracer: tracer}
}

// Run computes the files to recompile. The metadata of every touched file is left as an
// in-memory update of in.Graph; nothing is persisted.
func (e *Engine) Run(ctx context.Context, in Input) (*Result, error) {
	r := newRun(e, in)

	if err := r.stage(ctx, "invalidation: collecting modified files", r.seed); err != nil {
		return nil, err
	}

	if len(r.dirty) == 0 {
		return r.result(domain.NewSymbolGraph()), nil
	}

	if err := r.stage(ctx, "invalidation: collecting exported signatures", func(context.Context) error {
		return r.collectExports(r.sortedDirty())
	}); err != nil {
		return nil, err
	}

	symbols, err := r.propagate(ctx)
	if err != nil {
		return nil, err
	}
	return r.result(symbols), nil
}

// exports lists, per importer, the signatures a dirty file is known to provide to it.
type exports map[domain.FileID]domain.SignatureSet

func (x exports) all() domain.SignatureSet {
	set := make(domain.SignatureSet)
	for _, sigs := range x {
		set.AddAll(sigs)
	}
	return set
}

type run struct {
	engine  *Engine
	in      Input
	g       *depgraph.Graph
	libs    map[domain.LibraryPath]*domain.Library
	calc    *sighash.Calculator
	diag    domain.Diagnostics
	dirty   map[domain.FileID]exports
	removed map[domain.FileID]*domain.SourceFileMetadata
	stubbed domain.SignatureSet
	rounds  int
}

func newRun(e *Engine, in Input) *run {
	r := &run{
		engine:  e,
		in:      in,
		g:       in.Graph,
		libs:    make(map[domain.LibraryPath]*domain.Library, len(in.Libraries)),
		calc:    sighash.New(),
		diag:    make(domain.Diagnostics),
		dirty:   make(map[domain.FileID]exports),
		removed: make(map[domain.FileID]*domain.SourceFileMetadata),
		stubbed: make(domain.SignatureSet),
	}
	for _, lib := range in.Libraries {
		r.libs[lib.Path] = lib
	}
	for _, sigs := range in.Stubs {
		r.stubbed.AddAll(sigs)
	}
	return r
}

func (r *run) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := r.engine.tracer.Start(ctx, name, ports.AsStage())
	defer span.End()
	if err := fn(ctx); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// inBuild reports whether id belongs to a library of the current build.
func (r *run) inBuild(id domain.FileID) bool {
	_, ok := r.libs[r.g.Key(id).Library]
	return ok
}

func (r *run) isDirty(id domain.FileID) bool {
	_, ok := r.dirty[id]
	return ok
}

func (r *run) sortedDirty() []domain.FileID {
	return domain.SortedIDs(r.dirty)
}

// seed marks added and modified files dirty, drops removed files from the graph and
// dirties everything a removed file was connected to.
func (r *run) seed(_ context.Context) error {
	for _, c := range r.in.Changes {
		if _, ok := r.libs[c.Library]; !ok && len(c.Dirty()) > 0 {
			err := zerr.Wrap(domain.ErrInternalInconsistency, "library outside the build has dirty files")
			return zerr.With(err, "library", c.Library.String())
		}

		for _, src := range c.Added {
			key := domain.FileKey{Library: c.Library, Source: src}
			id := r.g.ID(key)
			r.g.Update(id, domain.NewSourceFileMetadata())
			r.dirty[id] = nil
			r.diag.Tag(key, domain.StateAdded)
		}
		for _, src := range c.Modified {
			key := domain.FileKey{Library: c.Library, Source: src}
			r.dirty[r.g.ID(key)] = nil
			r.diag.Tag(key, domain.StateModified)
		}
		for _, src := range c.Removed {
			key := domain.FileKey{Library: c.Library, Source: src}
			id := r.g.ID(key)
			md, err := r.g.Fetch(id)
			if err != nil {
				return err
			}
			r.removed[id] = md
			r.g.Remove(id)
			r.diag.Tag(key, domain.StateRemoved)
		}
	}

	for _, id := range domain.SortedIDs(r.removed) {
		md := r.removed[id]
		r.dirtyNeighbours(domain.SortedIDs(md.Direct), domain.StateRemovedInverseDepends)
		r.dirtyNeighbours(domain.SortedIDs(md.Inverse), domain.StateRemovedDirectDepends)
	}
	return nil
}

func (r *run) dirtyNeighbours(ids []domain.FileID, state domain.DirtyFileState) {
	for _, id := range ids {
		if !r.inBuild(id) || r.g.IsRemoved(id) {
			continue
		}
		r.dirty[id] = nil
		r.diag.Tag(r.g.Key(id), state)
	}
}

// collectExports records, for each of ids, what importers outside the dirty set take from it.
func (r *run) collectExports(ids []domain.FileID) error {
	for _, id := range ids {
		md, err := r.g.Fetch(id)
		if err != nil {
			return err
		}
		x := make(exports)
		for _, importer := range domain.SortedIDs(md.Inverse) {
			if r.isDirty(importer) || r.g.IsRemoved(importer) || !r.inBuild(importer) {
				continue
			}
			imp, err := r.g.Fetch(importer)
			if err != nil {
				return err
			}
			if sigs, ok := imp.Direct[id]; ok {
				x[importer] = sigs.Keys()
			}
		}
		r.dirty[id] = x
	}
	return nil
}

// propagate runs rounds until no file has to be rebuilt and returns the symbols of the
// whole dirty set.
func (r *run) propagate(ctx context.Context) (*domain.SymbolGraph, error) {
	round := r.sortedDirty()

	var symbols *domain.SymbolGraph
	err := r.stage(ctx, "invalidation: loading modified files", func(ctx context.Context) error {
		var err error
		symbols, err = r.materialize(ctx, round)
		return err
	})
	if err != nil {
		return nil, err
	}

	for {
		var (
			rebuilt map[domain.FileID]*rebuiltFile
			updates map[domain.FileID]*update
			next    []domain.FileID
		)

		name := fmt.Sprintf("invalidation (%d): updating the dependency graph", r.rounds)
		if err := r.stage(ctx, name, func(context.Context) error {
			var err error
			rebuilt, err = r.rebuild(symbols, round)
			return err
		}); err != nil {
			return nil, err
		}

		name = fmt.Sprintf("invalidation (%d): collecting files with updated exports and imports", r.rounds)
		if err := r.stage(ctx, name, func(context.Context) error {
			var err error
			if updates, err = r.fallout(rebuilt); err != nil {
				return err
			}
			next = r.schedule(updates)
			resolved, err := r.resolvedStubs()
			if err != nil {
				return err
			}
			next = append(next, resolved...)
			return r.g.Reconcile(r.settled(rebuilt, updates, next))
		}); err != nil {
			return nil, err
		}

		if len(next) == 0 {
			break
		}

		r.rounds++
		round = next
		name = fmt.Sprintf("invalidation (%d): loading files with updated exports and imports", r.rounds)
		if err := r.stage(ctx, name, func(ctx context.Context) error {
			var err error
			symbols, err = r.materialize(ctx, round)
			return err
		}); err != nil {
			return nil, err
		}
	}

	if r.rounds > 0 {
		if err := r.stage(ctx, "invalidation: loading all dirty files", func(ctx context.Context) error {
			var err error
			symbols, err = r.materialize(ctx, r.sortedDirty())
			return err
		}); err != nil {
			return nil, err
		}
	}
	return symbols, nil
}

// materialize loads ids and registers their symbols for hashing.
func (r *run) materialize(ctx context.Context, ids []domain.FileID) (*domain.SymbolGraph, error) {
	req := domain.LoadRequest{
		Libraries: r.in.Libraries,
		Files:     make([]domain.FileKey, 0, len(ids)),
		Exports:   make(map[domain.FileKey]domain.SignatureSet),
		Stubbed:   r.stubbed,
	}
	for _, id := range ids {
		key := r.g.Key(id)
		req.Files = append(req.Files, key)
		if x := r.dirty[id]; len(x) > 0 {
			req.Exports[key] = x.all()
		}
	}

	symbols, err := r.engine.loader.Materialize(ctx, req)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load symbols")
	}
	for _, key := range req.Files {
		if _, ok := symbols.Files[key]; !ok {
			err := zerr.Wrap(domain.ErrInternalInconsistency, "dirty file was not loaded")
			return nil, zerr.With(err, "file", key.String())
		}
	}
	if err := r.calc.AddGraph(symbols); err != nil {
		return nil, err
	}
	return symbols, nil
}

// settled returns the files of a round whose metadata is final for now: the rebuilt files
// and the files updated in place. Files queued for the next round are left out.
func (r *run) settled(
	rebuilt map[domain.FileID]*rebuiltFile,
	updates map[domain.FileID]*update,
	next []domain.FileID,
) []domain.FileID {
	queued := make(map[domain.FileID]struct{}, len(next))
	for _, id := range next {
		queued[id] = struct{}{}
	}
	ids := domain.SortedIDs(rebuilt)
	for _, id := range domain.SortedIDs(updates) {
		if _, ok := queued[id]; ok {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

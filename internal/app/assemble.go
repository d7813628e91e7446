package app

import (
	"go.trai.ch/stale/internal/core/domain"
	"go.trai.ch/stale/internal/engine/assembler"
	"go.trai.ch/stale/internal/engine/depgraph"
	"go.trai.ch/stale/internal/engine/invalidation"
	"go.trai.ch/zerr"
)

// assemble writes the modules whose inputs changed and records in commit every module whose
// record differs from the committed one.
// Fragments compiled by this build are taken from fragments; the others come from the cache.
func (a *App) assemble(
	s *session,
	g *depgraph.Graph,
	res *invalidation.Result,
	fragments map[domain.FileKey][]byte,
	commit *domain.Commit,
) ([]domain.ModuleOutcome, error) {
	changed := make(map[domain.FileKey]struct{}, len(res.Dirty())+len(res.Removed))
	for _, key := range res.Dirty() {
		changed[key] = struct{}{}
	}
	for _, key := range res.Removed {
		changed[key] = struct{}{}
	}

	decisions, err := assembler.Plan(assembler.Input{
		Libraries: s.libs,
		Graph:     g,
		Changed:   changed,
		Prior:     s.store.ReadModule,
		Present: func(lib domain.LibraryPath) bool {
			return a.writer.Exists(s.cfg.OutputDir, lib)
		},
	})
	if err != nil {
		return nil, err
	}

	outcomes := make([]domain.ModuleOutcome, 0, len(decisions))
	for _, d := range decisions {
		if !d.Recorded {
			commit.Modules[d.Library.Path] = d.Record
		}
		outcome := domain.ModuleOutcome{
			Library: d.Library.Path,
			Reused:  d.Reuse,
			Output:  a.writer.Path(s.cfg.OutputDir, d.Library.Path),
		}
		if !d.Reuse {
			parts, err := moduleFragments(s, d.Library, fragments)
			if err != nil {
				return nil, err
			}
			if outcome.Output, err = a.writer.Write(s.cfg.OutputDir, d.Library.Path, parts); err != nil {
				return nil, err
			}
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// moduleFragments returns the fragments of lib in file order.
func moduleFragments(s *session, lib *domain.Library, fresh map[domain.FileKey][]byte) ([][]byte, error) {
	parts := make([][]byte, 0, len(lib.Files))
	for _, src := range lib.Files {
		key := lib.Key(src)
		if fragment, ok := fresh[key]; ok {
			parts = append(parts, fragment)
			continue
		}
		artifact, err := s.store.ReadFragment(key)
		if err != nil {
			return nil, err
		}
		cached, ok := artifact.Get()
		if !ok {
			return nil, zerr.With(zerr.Wrap(domain.ErrCacheCorrupt, "fragment is missing"), "file", key.String())
		}
		parts = append(parts, cached.Fragment)
	}
	return parts, nil
}

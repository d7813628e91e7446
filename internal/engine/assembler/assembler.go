// Package assembler decides which module outputs a build has to regenerate.
//
// A module is the aggregate output of one library. It can be kept verbatim when none of its
// files changed and the set of references crossing the library boundary, with the hashes
// observed for them, is the same as when the output was produced.
package assembler

import (
	"slices"

	"go.trai.ch/stale/internal/core/domain"
	"go.trai.ch/stale/internal/engine/depgraph"
)

// Input is what Plan decides from.
type Input struct {
	// Libraries are the libraries of the build in dependency order.
	Libraries []*domain.Library
	// Graph is the dependency graph after invalidation.
	Graph *depgraph.Graph
	// Changed holds the files compiled, added or removed by this build.
	Changed map[domain.FileKey]struct{}
	// Prior returns the committed module record of a library.
	Prior func(domain.LibraryPath) (domain.Lookup[domain.ModuleRecord], error)
	// Present reports whether the previous output of a library still exists.
	Present func(domain.LibraryPath) bool
}

// Decision is the plan for one module.
type Decision struct {
	Library *domain.Library
	// Record is the module record to commit.
	Record domain.ModuleRecord
	// Recorded reports that Record equals the committed record.
	Recorded bool
	Reuse    bool
}

// Plan computes a decision per library, in the order of in.Libraries.
//
// A library none of whose files changed or gained an in-memory graph update keeps the cross
// module hash of its prior record, so its metadata is not read.
func Plan(in Input) ([]Decision, error) {
	changedLibs := make(map[domain.LibraryPath]struct{})
	for key := range in.Changed {
		changedLibs[key.Library] = struct{}{}
	}

	decisions := make([]Decision, 0, len(in.Libraries))
	for _, lib := range in.Libraries {
		d := Decision{Library: lib, Record: domain.ModuleRecord{Files: slices.Clone(lib.Files)}}

		var prior domain.Lookup[domain.ModuleRecord]
		if _, changed := changedLibs[lib.Path]; !changed {
			var err error
			if prior, err = in.Prior(lib.Path); err != nil {
				return nil, err
			}
		}
		rec, found := prior.Get()
		found = found && slices.Equal(rec.Files, lib.Files)

		if found && !touched(in.Graph, lib) {
			d.Record.CrossModuleHash = rec.CrossModuleHash
			d.Recorded = true
			d.Reuse = in.Present(lib.Path)
			decisions = append(decisions, d)
			continue
		}

		h, err := CrossModuleHash(in.Graph, lib)
		if err != nil {
			return nil, err
		}
		d.Record.CrossModuleHash = h
		d.Recorded = found && rec.CrossModuleHash == h
		d.Reuse = d.Recorded && in.Present(lib.Path)
		decisions = append(decisions, d)
	}
	return decisions, nil
}

// touched reports whether a file of lib has an in-memory update or was removed.
func touched(g *depgraph.Graph, lib *domain.Library) bool {
	for _, src := range lib.Files {
		id := g.ID(lib.Key(src))
		if g.IsUpdated(id) || g.IsRemoved(id) {
			return true
		}
	}
	return false
}

// CrossModuleHash hashes the ordered file list of lib together with every signature its
// files import from, or export to, other libraries.
func CrossModuleHash(g *depgraph.Graph, lib *domain.Library) (domain.Hash, error) {
	b := domain.NewHashBuilder().
		String(lib.Path.String()).
		Uint64(uint64(len(lib.Files)))

	for _, src := range lib.Files {
		b.String(src.String())
		md, err := g.Fetch(g.ID(lib.Key(src)))
		if err != nil {
			return domain.Hash{}, err
		}

		for _, exporter := range foreign(g, lib.Path, domain.SortedIDs(md.Direct)) {
			sigs := md.Direct[exporter]
			b.String("import").String(g.Key(exporter).String()).Uint64(uint64(len(sigs)))
			for _, sig := range sigs.Sorted() {
				b.String(sig.String()).Hash(sigs[sig])
			}
		}
		for _, importer := range foreign(g, lib.Path, domain.SortedIDs(md.Inverse)) {
			sigs := md.Inverse[importer]
			b.String("export").String(g.Key(importer).String()).Uint64(uint64(len(sigs)))
			for _, sig := range sigs.Sorted() {
				b.String(sig.String())
			}
		}
	}
	return b.Sum(), nil
}

// foreign keeps the files of other libraries, ordered by key so that the result does not
// depend on slot allocation.
func foreign(g *depgraph.Graph, lib domain.LibraryPath, ids []domain.FileID) []domain.FileID {
	out := ids[:0]
	for _, id := range ids {
		if g.Key(id).Library != lib {
			out = append(out, id)
		}
	}
	slices.SortFunc(out, func(a, b domain.FileID) int {
		return g.Key(a).Compare(g.Key(b))
	})
	return out
}

package invalidation

import (
	"maps"
	"slices"

	"go.trai.ch/stale/internal/core/domain"
)

// Result is the outcome of one invalidation run.
type Result struct {
	// Symbols holds every dirty file and what it needs to be compiled.
	Symbols *domain.SymbolGraph
	// Rounds counts the propagation rounds after the first.
	Rounds int
	// Metadata is the updated dependency record of every touched file.
	Metadata map[domain.FileKey]*domain.SourceFileMetadata
	// Removed lists the files whose metadata and fragment must be deleted.
	Removed []domain.FileKey
	// Stubs is the new stub record of every library with a dirty or removed file.
	Stubs map[domain.LibraryPath]map[domain.SourcePath]domain.SignatureSet

	dirty []domain.FileKey
	diag  domain.Diagnostics
}

// Dirty returns the files to compile in order.
func (res *Result) Dirty() []domain.FileKey {
	return res.dirty
}

// DirtySet returns the files to compile grouped by library.
func (res *Result) DirtySet() map[domain.LibraryPath][]domain.SourcePath {
	set := make(map[domain.LibraryPath][]domain.SourcePath)
	for _, key := range res.dirty {
		set[key.Library] = append(set[key.Library], key.Source)
	}
	return set
}

// Diagnostics returns why each file took part in the build. Files that were pulled in
// without a content change are tagged unmodified.
func (res *Result) Diagnostics() domain.Diagnostics {
	const content = domain.StateAdded | domain.StateModified | domain.StateRemoved
	diag := maps.Clone(res.diag)
	for key, state := range diag {
		if state&content == 0 {
			diag[key] = state | domain.StateUnmodified
		}
	}
	return diag
}

func (r *run) result(symbols *domain.SymbolGraph) *Result {
	res := &Result{
		Symbols:  symbols,
		Rounds:   r.rounds,
		Metadata: make(map[domain.FileKey]*domain.SourceFileMetadata),
		Stubs:    make(map[domain.LibraryPath]map[domain.SourcePath]domain.SignatureSet),
		diag:     r.diag,
	}

	for _, id := range r.sortedDirty() {
		res.dirty = append(res.dirty, r.g.Key(id))
	}
	slices.SortFunc(res.dirty, domain.FileKey.Compare)

	for _, id := range r.g.Touched() {
		md, _ := r.g.Fetch(id)
		res.Metadata[r.g.Key(id)] = md
	}
	for _, id := range r.g.Removed() {
		res.Removed = append(res.Removed, r.g.Key(id))
	}
	slices.SortFunc(res.Removed, domain.FileKey.Compare)

	res.Stubs = r.stubs(symbols, res.dirty, res.Removed)
	return res
}

// stubs merges the persisted stub records of affected libraries with the stubs the dirty
// files depend on now.
func (r *run) stubs(
	symbols *domain.SymbolGraph,
	dirty, removed []domain.FileKey,
) map[domain.LibraryPath]map[domain.SourcePath]domain.SignatureSet {
	out := make(map[domain.LibraryPath]map[domain.SourcePath]domain.SignatureSet)
	stale := make(map[domain.FileKey]struct{}, len(dirty)+len(removed))
	for _, key := range slices.Concat(dirty, removed) {
		stale[key] = struct{}{}
		if _, ok := out[key.Library]; !ok {
			out[key.Library] = make(map[domain.SourcePath]domain.SignatureSet)
		}
	}

	for key, sigs := range r.in.Stubs {
		lib, ok := out[key.Library]
		if !ok {
			continue
		}
		if _, ok := stale[key]; ok {
			continue
		}
		lib[key.Source] = sigs.Clone()
	}

	for _, key := range dirty {
		f, ok := symbols.Files[key]
		if !ok {
			continue
		}
		sigs := make(domain.SignatureSet)
		for _, sig := range f.Imports {
			if symbols.Stubbed.Has(sig) {
				sigs.Add(sig)
			}
		}
		for i := range f.Declarations {
			for _, ref := range f.Declarations[i].References {
				if symbols.Stubbed.Has(ref) {
					sigs.Add(ref)
				}
			}
		}
		if len(sigs) > 0 {
			out[key.Library][key.Source] = sigs
		}
	}
	return out
}

func sortedKeys[V any](m map[domain.FileKey]V) []domain.FileKey {
	return slices.SortedFunc(maps.Keys(m), domain.FileKey.Compare)
}

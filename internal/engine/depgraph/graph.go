// Package depgraph holds the cross-file dependency graph of one invocation.
//
// Files are addressed by arena slots (domain.FileID). Persisted metadata is fetched lazily
// through a ports.MetadataReader; updates stay in memory until the caller commits them.
package depgraph

import (
	"maps"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.trai.ch/stale/internal/core/domain"
	"go.trai.ch/stale/internal/core/ports"
	"go.trai.ch/zerr"
)

// DefaultCacheSize bounds the number of clean metadata records kept in memory.
const DefaultCacheSize = 4096

// Graph is the dependency graph of one invocation.
type Graph struct {
	table   *domain.FileTable
	reader  ports.MetadataReader
	clean   *lru.Cache[domain.FileID, domain.Lookup[*domain.SourceFileMetadata]]
	pending map[domain.FileID]*domain.SourceFileMetadata
	removed map[domain.FileID]struct{}
}

// New creates a Graph reading persisted metadata through reader.
func New(table *domain.FileTable, reader ports.MetadataReader, cacheSize int) (*Graph, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	clean, err := lru.New[domain.FileID, domain.Lookup[*domain.SourceFileMetadata]](cacheSize)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create metadata cache")
	}
	return &Graph{
		table:   table,
		reader:  reader,
		clean:   clean,
		pending: make(map[domain.FileID]*domain.SourceFileMetadata),
		removed: make(map[domain.FileID]struct{}),
	}, nil
}

// Table returns the arena resolving FileIDs.
func (g *Graph) Table() *domain.FileTable {
	return g.table
}

// ID interns key.
func (g *Graph) ID(key domain.FileKey) domain.FileID {
	return g.table.Intern(key)
}

// Key resolves id.
func (g *Graph) Key(id domain.FileID) domain.FileKey {
	return g.table.Key(id)
}

// Lookup returns the current metadata of id: the in-memory update if any, otherwise the
// persisted record.
func (g *Graph) Lookup(id domain.FileID) (domain.Lookup[*domain.SourceFileMetadata], error) {
	if _, ok := g.removed[id]; ok {
		return domain.Removed[*domain.SourceFileMetadata](), nil
	}
	if md, ok := g.pending[id]; ok {
		return domain.Found(md), nil
	}
	if res, ok := g.clean.Get(id); ok {
		return res, nil
	}

	res, err := g.reader.ReadMetadata(g.table.Key(id), g.table)
	if err != nil {
		return res, zerr.With(zerr.Wrap(err, "failed to read metadata"), "file", g.table.Key(id).String())
	}
	g.clean.Add(id, res)
	return res, nil
}

// Fetch returns the metadata of id, or empty metadata when nothing is recorded.
// The result must be treated as read-only; use Update to change it.
func (g *Graph) Fetch(id domain.FileID) (*domain.SourceFileMetadata, error) {
	res, err := g.Lookup(id)
	if err != nil {
		return nil, err
	}
	if md, ok := res.Get(); ok {
		return md, nil
	}
	return domain.NewSourceFileMetadata(), nil
}

// Update replaces the metadata of id in memory.
func (g *Graph) Update(id domain.FileID, md *domain.SourceFileMetadata) {
	delete(g.removed, id)
	g.pending[id] = md
}

// Remove marks id as deleted.
func (g *Graph) Remove(id domain.FileID) {
	delete(g.pending, id)
	g.clean.Remove(id)
	g.removed[id] = struct{}{}
}

// IsRemoved reports whether id was removed in this invocation.
func (g *Graph) IsRemoved(id domain.FileID) bool {
	_, ok := g.removed[id]
	return ok
}

// IsUpdated reports whether id has an in-memory update.
func (g *Graph) IsUpdated(id domain.FileID) bool {
	_, ok := g.pending[id]
	return ok
}

// Touched returns the files with in-memory updates in slot order.
func (g *Graph) Touched() []domain.FileID {
	return slices.Sorted(maps.Keys(g.pending))
}

// Removed returns the removed files in slot order.
func (g *Graph) Removed() []domain.FileID {
	return slices.Sorted(maps.Keys(g.removed))
}

// mutable returns an updatable copy of the metadata of id, registering it as pending.
func (g *Graph) mutable(id domain.FileID) (*domain.SourceFileMetadata, error) {
	if md, ok := g.pending[id]; ok {
		return md, nil
	}
	md, err := g.Fetch(id)
	if err != nil {
		return nil, err
	}
	c := md.Clone()
	g.pending[id] = c
	return c, nil
}

// SetInverse makes exporter.Inverse[importer] equal to sigs, removing the entry when sigs is
// empty. It is the only routine writing inverse edges, and it does nothing for removed
// exporters.
func (g *Graph) SetInverse(exporter, importer domain.FileID, sigs domain.SignatureSet) error {
	if g.IsRemoved(exporter) {
		return nil
	}
	current, err := g.Fetch(exporter)
	if err != nil {
		return err
	}
	if have, ok := current.Inverse[importer]; ok == (len(sigs) > 0) && have.Equal(sigs) {
		return nil
	}
	md, err := g.mutable(exporter)
	if err != nil {
		return err
	}
	if len(sigs) == 0 {
		delete(md.Inverse, importer)
		return nil
	}
	md.Inverse[importer] = sigs.Clone()
	return nil
}

// Reconcile re-establishes the symmetry of every edge incident to ids.
//
// Direct edges are authoritative: for each direct edge of a listed file the exporter's
// inverse edge is rewritten to match it, and inverse edges of a listed file that no
// importer backs any more are dropped.
func (g *Graph) Reconcile(ids []domain.FileID) error {
	for _, id := range ids {
		if g.IsRemoved(id) {
			continue
		}
		md, err := g.Fetch(id)
		if err != nil {
			return err
		}

		for _, exporter := range domain.SortedIDs(md.Direct) {
			if g.IsRemoved(exporter) {
				err := zerr.Wrap(domain.ErrInternalInconsistency, "file imports from a removed file")
				err = zerr.With(err, "file", g.Key(id).String())
				return zerr.With(err, "removed", g.Key(exporter).String())
			}
			if err := g.SetInverse(exporter, id, md.Direct[exporter].Keys()); err != nil {
				return err
			}
		}

		for _, importer := range domain.SortedIDs(md.Inverse) {
			imp, err := g.Fetch(importer)
			if err != nil {
				return err
			}
			if err := g.SetInverse(id, importer, imp.Direct[id].Keys()); err != nil {
				return err
			}
		}
	}
	return nil
}

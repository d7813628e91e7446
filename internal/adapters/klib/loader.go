package klib

import (
	"context"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.trai.ch/stale/internal/core/domain"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// DefaultParseCacheSize bounds the number of parsed units kept between materializations.
const DefaultParseCacheSize = 8192

// ownerCacheSize bounds the number of library versions whose signature owners are kept.
const ownerCacheSize = 256

// parseKey identifies one version of a unit.
type parseKey struct {
	file        domain.FileKey
	fingerprint domain.Hash
}

// ownersKey identifies one version of a library.
type ownersKey struct {
	dir         string
	fingerprint domain.Hash
}

// Loader implements ports.Loader over unit libraries.
//
// A materialization contains the requested files, the files declaring what they import or
// reference, and, transitively, the files declaring what inline declarations reference.
// Signatures that resolve nowhere are reported as stubbed.
//
// The signature owners of a library are indexed once per library fingerprint; units are
// parsed when a materialization reaches them.
type Loader struct {
	parsed *lru.Cache[parseKey, *domain.LoadedFile]
	owners *lru.Cache[ownersKey, map[domain.Signature]domain.SourcePath]
}

// NewLoader creates a Loader caching up to cacheSize parsed units.
func NewLoader(cacheSize int) (*Loader, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultParseCacheSize
	}
	parsed, err := lru.New[parseKey, *domain.LoadedFile](cacheSize)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create unit cache")
	}
	owners, err := lru.New[ownersKey, map[domain.Signature]domain.SourcePath](ownerCacheSize)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create owner cache")
	}
	return &Loader{parsed: parsed, owners: owners}, nil
}

// index resolves signatures and files over every library of a request.
type index struct {
	loader *Loader
	libs   map[domain.LibraryPath]*domain.Library
	files  map[domain.FileKey]*domain.LoadedFile
	owners map[domain.Signature]domain.FileKey
}

// file returns the parsed unit of key.
func (x *index) file(key domain.FileKey) (*domain.LoadedFile, error) {
	if f, ok := x.files[key]; ok {
		return f, nil
	}
	lib, ok := x.libs[key.Library]
	if !ok {
		return nil, zerr.With(zerr.Wrap(domain.ErrFileNotInLibrary, "failed to materialize"), "file", key.String())
	}
	fp, ok := lib.FileFingerprints[key.Source]
	if !ok {
		return nil, zerr.With(zerr.Wrap(domain.ErrFileNotInLibrary, "failed to materialize"), "file", key.String())
	}
	pk := parseKey{file: key, fingerprint: fp}
	f, ok := x.loader.parsed.Get(pk)
	if !ok {
		var err error
		if f, err = parseUnit(key, unitPath(lib, key.Source)); err != nil {
			return nil, err
		}
		x.loader.parsed.Add(pk, f)
	}
	x.files[key] = f
	return f, nil
}

// Materialize loads the symbol information of req.Files and their closure.
func (l *Loader) Materialize(ctx context.Context, req domain.LoadRequest) (*domain.SymbolGraph, error) {
	idx, err := l.buildIndex(ctx, req.Libraries)
	if err != nil {
		return nil, err
	}

	graph := domain.NewSymbolGraph()
	var queue []domain.FileKey
	requested := make(map[domain.FileKey]bool, len(req.Files))
	add := func(key domain.FileKey) error {
		if _, ok := graph.Files[key]; ok {
			return nil
		}
		f, err := idx.file(key)
		if err != nil {
			return err
		}
		graph.Files[key] = f
		queue = append(queue, key)
		return nil
	}
	resolve := func(sig domain.Signature) error {
		owner, ok := idx.owners[sig]
		if !ok {
			graph.Stubbed.Add(sig)
			return nil
		}
		return add(owner)
	}

	for _, key := range req.Files {
		requested[key] = true
		if err := add(key); err != nil {
			return nil, err
		}
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, zerr.Wrap(err, "materialization interrupted")
		}
		f := graph.Files[queue[0]]
		queue = queue[1:]

		if requested[f.Key] {
			for _, sig := range f.Imports {
				if err := resolve(sig); err != nil {
					return nil, err
				}
			}
		}
		for i := range f.Declarations {
			d := &f.Declarations[i]
			if !d.Inline && !requested[f.Key] {
				continue
			}
			for _, ref := range d.References {
				if err := resolve(ref); err != nil {
					return nil, err
				}
			}
		}
	}

	for sig := range req.Stubbed {
		if err := resolve(sig); err != nil {
			return nil, err
		}
	}
	for _, sigs := range req.Exports {
		for sig := range sigs {
			if _, ok := idx.owners[sig]; !ok {
				graph.Stubbed.Add(sig)
			}
		}
	}

	// Files pulled in by resolved stubs bring their own inline closure.
	for len(queue) > 0 {
		f := graph.Files[queue[0]]
		queue = queue[1:]
		for i := range f.Declarations {
			if !f.Declarations[i].Inline {
				continue
			}
			for _, ref := range f.Declarations[i].References {
				if err := resolve(ref); err != nil {
					return nil, err
				}
			}
		}
	}

	return graph, nil
}

// buildIndex merges the signature owners of libs. Libraries without an indexed version are
// parsed in full, reusing units whose fingerprint is unchanged.
func (l *Loader) buildIndex(ctx context.Context, libs []*domain.Library) (*index, error) {
	idx := &index{
		loader: l,
		libs:   make(map[domain.LibraryPath]*domain.Library, len(libs)),
		files:  make(map[domain.FileKey]*domain.LoadedFile),
		owners: make(map[domain.Signature]domain.FileKey),
	}

	perLib := make(map[domain.LibraryPath]map[domain.Signature]domain.SourcePath, len(libs))
	var missing []*domain.Library
	for _, lib := range libs {
		idx.libs[lib.Path] = lib
		if owners, ok := l.owners.Get(ownersKey{dir: lib.Dir, fingerprint: lib.Fingerprint}); ok {
			perLib[lib.Path] = owners
			continue
		}
		missing = append(missing, lib)
	}

	if err := l.parseAll(ctx, idx, missing); err != nil {
		return nil, err
	}
	for _, lib := range missing {
		owners, err := libraryOwners(lib, idx.files)
		if err != nil {
			return nil, err
		}
		l.owners.Add(ownersKey{dir: lib.Dir, fingerprint: lib.Fingerprint}, owners)
		perLib[lib.Path] = owners
	}

	paths := slices.SortedFunc(maps.Keys(perLib), domain.LibraryPath.Compare)
	for _, path := range paths {
		var (
			dup       domain.Signature
			dupKey    domain.FileKey
			prevKey   domain.FileKey
			duplicate bool
		)
		for sig, src := range perLib[path] {
			key := domain.FileKey{Library: path, Source: src}
			if prev, ok := idx.owners[sig]; ok {
				if !duplicate || sig.Compare(dup) < 0 {
					dup, dupKey, prevKey, duplicate = sig, key, prev, true
				}
				continue
			}
			idx.owners[sig] = key
		}
		if duplicate {
			return nil, duplicateError(dup, dupKey, prevKey)
		}
	}
	return idx, nil
}

// parseAll parses every unit of libs into idx.files in parallel.
func (l *Loader) parseAll(ctx context.Context, idx *index, libs []*domain.Library) error {
	type job struct {
		key  parseKey
		path string
	}

	var (
		mu   sync.Mutex
		jobs []job
	)
	for _, lib := range libs {
		for _, src := range lib.Files {
			pk := parseKey{file: lib.Key(src), fingerprint: lib.FileFingerprints[src]}
			if f, ok := l.parsed.Get(pk); ok {
				idx.files[pk.file] = f
				continue
			}
			jobs = append(jobs, job{key: pk, path: unitPath(lib, src)})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := parseUnit(j.key.file, j.path)
			if err != nil {
				return err
			}
			l.parsed.Add(j.key, f)
			mu.Lock()
			idx.files[j.key.file] = f
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// libraryOwners maps every signature declared in lib to its file.
func libraryOwners(lib *domain.Library, files map[domain.FileKey]*domain.LoadedFile) (map[domain.Signature]domain.SourcePath, error) {
	owners := make(map[domain.Signature]domain.SourcePath)
	for _, src := range slices.SortedFunc(slices.Values(lib.Files), domain.SourcePath.Compare) {
		for _, d := range files[lib.Key(src)].Declarations {
			if prev, ok := owners[d.Signature]; ok && prev != src {
				return nil, duplicateError(d.Signature, lib.Key(src), lib.Key(prev))
			}
			owners[d.Signature] = src
		}
	}
	return owners, nil
}

func duplicateError(sig domain.Signature, key, prev domain.FileKey) error {
	err := zerr.With(zerr.Wrap(domain.ErrDuplicateSignature, "failed to index libraries"), "signature", sig.String())
	err = zerr.With(err, "file", key.String())
	return zerr.With(err, "previous", prev.String())
}

func unitPath(lib *domain.Library, src domain.SourcePath) string {
	return filepath.Join(lib.Dir, filepath.FromSlash(src.String()))
}

func parseUnit(key domain.FileKey, path string) (*domain.LoadedFile, error) {
	// #nosec G304 -- path is a unit found by walking a configured library
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read unit"), "path", path)
	}

	var dto UnitDTO
	if err := yaml.Unmarshal(data, &dto); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrInvalidUnit, err.Error()), "path", path)
	}

	f := &domain.LoadedFile{
		Key:          key,
		Path:         path,
		Annotations:  []byte(dto.Annotations),
		Imports:      signatures(dto.Imports),
		Declarations: make([]domain.Declaration, 0, len(dto.Declarations)),
	}
	for i, d := range dto.Declarations {
		if d.Signature == "" {
			err := zerr.With(zerr.Wrap(domain.ErrInvalidUnit, "declaration without signature"), "path", path)
			return nil, zerr.With(err, "index", i)
		}
		if d.Kind == "" {
			d.Kind = "function"
		}
		kind, ok := domain.ParseDeclarationKind(d.Kind)
		if !ok {
			err := zerr.With(zerr.Wrap(domain.ErrInvalidUnit, "unknown declaration kind"), "path", path)
			return nil, zerr.With(err, "kind", d.Kind)
		}
		decl := domain.Declaration{
			Signature:  domain.NewSignature(d.Signature),
			Kind:       kind,
			Inline:     d.Inline,
			Header:     []byte(d.Header),
			Body:       []byte(d.Body),
			References: signatures(d.References),
		}
		if d.Parent != "" {
			decl.Parent = domain.NewSignature(d.Parent)
		}
		f.Declarations = append(f.Declarations, decl)
	}
	return f, nil
}

func signatures(ss []string) []domain.Signature {
	if len(ss) == 0 {
		return nil
	}
	out := make([]domain.Signature, 0, len(ss))
	for _, s := range ss {
		out = append(out, domain.NewSignature(s))
	}
	return out
}

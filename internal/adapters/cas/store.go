// Package cas implements the on-disk incremental cache: library headers, per-file dependency
// metadata, compiled fragments, stub records and cross-module records.
//
// The cache directory is not locked. Only one build may use a cache root at a time.
package cas

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/stale/internal/core/domain"
	"go.trai.ch/stale/internal/core/ports"
	"go.trai.ch/zerr"
)

// sourcePrefixSize bounds how much of a metadata blob RecoverFiles reads.
const sourcePrefixSize = 4096

// Store implements ports.CacheStore with one file per blob.
type Store struct {
	root string
}

// NewStore creates a Store rooted at root. Nothing is created until the first commit.
func NewStore(root string) *Store {
	return &Store{root: filepath.Clean(root)}
}

// Opener implements ports.CacheOpener.
type Opener struct{}

// NewOpener creates an Opener.
func NewOpener() *Opener {
	return &Opener{}
}

// Open returns the store of cfg, rooted at version.<config hash> inside the cache directory.
func (o *Opener) Open(cfg *domain.BuildConfig) (ports.CacheStore, error) {
	if cfg.CacheDir == "" {
		return nil, zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "cache directory is not set"), "root", cfg.Root)
	}
	return NewStore(RootDir(cfg.CacheDir, cfg)), nil
}

// Root returns the cache root.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) libDir(lib domain.LibraryPath) string {
	return filepath.Join(s.root, LibraryDirName(lib))
}

func (s *Store) blobPath(key domain.FileKey, ext string) string {
	return filepath.Join(s.libDir(key.Library), blobName(key.Source)+ext)
}

// readBlob returns the content of path, or nil when it does not exist.
func readBlob(path string) ([]byte, error) {
	//nolint:gosec // Path is built from the cache root and hashed names
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to read cache file"), "path", path)
	}
	return data, nil
}

func withPath(err error, path string) error {
	return zerr.With(err, "path", path)
}

// ReadHeader returns the committed header of lib. A header that cannot be decoded, or that
// belongs to a different library, is reported as not found.
func (s *Store) ReadHeader(lib domain.LibraryPath) (domain.Lookup[domain.LibraryHeader], error) {
	return readHeaderAt(filepath.Join(s.libDir(lib), domain.HeaderFileName), &lib)
}

func readHeaderAt(path string, want *domain.LibraryPath) (domain.Lookup[domain.LibraryHeader], error) {
	data, err := readBlob(path)
	if err != nil || data == nil {
		return domain.NotFound[domain.LibraryHeader](), err
	}
	h, err := DecodeHeader(data)
	if err != nil {
		return domain.NotFound[domain.LibraryHeader](), nil
	}
	if want != nil && h.Path != *want {
		return domain.NotFound[domain.LibraryHeader](), nil
	}
	return domain.Found(h), nil
}

// RecoverFiles lists the files with metadata in the library directory dir. Only the
// leading record of each blob is read, and unreadable blobs are skipped.
func (s *Store) RecoverFiles(dir string) ([]domain.FileKey, error) {
	full := filepath.Join(s.root, dir)
	entries, err := os.ReadDir(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to list cache directory"), "dir", full)
	}

	var keys []domain.FileKey
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), domain.MetadataExt) {
			continue
		}
		key, err := readSource(filepath.Join(full, e.Name()))
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	slices.SortFunc(keys, domain.FileKey.Compare)
	return keys, nil
}

func readSource(path string) (domain.FileKey, error) {
	//nolint:gosec // Path is built from the cache root and a directory listing
	f, err := os.Open(path)
	if err != nil {
		return domain.FileKey{}, zerr.Wrap(err, "failed to open metadata")
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, sourcePrefixSize))
	if err != nil {
		return domain.FileKey{}, zerr.Wrap(err, "failed to read metadata")
	}
	return DecodeSource(data)
}

// ReadMetadata returns the committed metadata of key.
func (s *Store) ReadMetadata(key domain.FileKey, table *domain.FileTable) (domain.Lookup[*domain.SourceFileMetadata], error) {
	path := s.blobPath(key, domain.MetadataExt)
	data, err := readBlob(path)
	if err != nil || data == nil {
		return domain.NotFound[*domain.SourceFileMetadata](), err
	}
	owner, md, err := DecodeMetadata(data, table)
	if err != nil {
		return domain.NotFound[*domain.SourceFileMetadata](), withPath(err, path)
	}
	if owner != key {
		err := zerr.With(zerr.Wrap(domain.ErrCacheCorrupt, "metadata belongs to another file"), "owner", owner.String())
		return domain.NotFound[*domain.SourceFileMetadata](), withPath(err, path)
	}
	return domain.Found(md), nil
}

// ReadStubs returns the stub record of lib.
func (s *Store) ReadStubs(lib domain.LibraryPath) (domain.Lookup[map[domain.SourcePath]domain.SignatureSet], error) {
	path := filepath.Join(s.libDir(lib), domain.StubsFileName)
	data, err := readBlob(path)
	if err != nil || data == nil {
		return domain.NotFound[map[domain.SourcePath]domain.SignatureSet](), err
	}
	stubs, err := DecodeStubs(data)
	if err != nil {
		return domain.NotFound[map[domain.SourcePath]domain.SignatureSet](), withPath(err, path)
	}
	return domain.Found(stubs), nil
}

// ReadFragment returns the compiled artifact of key.
func (s *Store) ReadFragment(key domain.FileKey) (domain.Lookup[*domain.CacheArtifact], error) {
	path := s.blobPath(key, domain.FragmentExt)
	data, err := readBlob(path)
	if err != nil || data == nil {
		return domain.NotFound[*domain.CacheArtifact](), err
	}
	a, err := DecodeFragment(data)
	if err != nil {
		return domain.NotFound[*domain.CacheArtifact](), withPath(err, path)
	}
	return domain.Found(a), nil
}

// HasFragment reports whether a compiled artifact exists for key.
func (s *Store) HasFragment(key domain.FileKey) bool {
	_, err := os.Stat(s.blobPath(key, domain.FragmentExt))
	return err == nil
}

// ReadModule returns the cross-module record of lib.
func (s *Store) ReadModule(lib domain.LibraryPath) (domain.Lookup[domain.ModuleRecord], error) {
	path := filepath.Join(s.libDir(lib), domain.ModuleFileName)
	data, err := readBlob(path)
	if err != nil || data == nil {
		return domain.NotFound[domain.ModuleRecord](), err
	}
	m, err := DecodeModule(data)
	if err != nil {
		return domain.NotFound[domain.ModuleRecord](), withPath(err, path)
	}
	return domain.Found(m), nil
}

// Libraries lists the library directories of the cache root with their headers.
func (s *Store) Libraries() ([]domain.CachedLibrary, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to list cache root"), "root", s.root)
	}

	var libs []domain.CachedLibrary
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		header, err := readHeaderAt(filepath.Join(s.root, e.Name(), domain.HeaderFileName), nil)
		if err != nil {
			return nil, err
		}
		libs = append(libs, domain.CachedLibrary{Dir: e.Name(), Header: header})
	}
	return libs, nil
}

// Commit persists c. Fragments and metadata are written before the stub and module
// records, and every library header is written last, so an interrupted commit leaves
// headers that describe an older, still consistent state or no header at all.
func (s *Store) Commit(ctx context.Context, c *domain.Commit) error {
	for _, key := range sortedKeys(c.Fragments) {
		if err := writeFileAtomic(s.blobPath(key, domain.FragmentExt), EncodeFragment(c.Fragments[key])); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return zerr.Wrap(err, "commit interrupted")
	}

	for _, key := range sortedKeys(c.Metadata) {
		data := EncodeMetadata(key, c.Metadata[key], c.Table)
		if err := writeFileAtomic(s.blobPath(key, domain.MetadataExt), data); err != nil {
			return err
		}
	}

	for _, key := range c.Removed {
		if err := removeFile(s.blobPath(key, domain.MetadataExt)); err != nil {
			return err
		}
		if err := removeFile(s.blobPath(key, domain.FragmentExt)); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return zerr.Wrap(err, "commit interrupted")
	}

	for lib, stubs := range c.Stubs {
		path := filepath.Join(s.libDir(lib), domain.StubsFileName)
		if len(stubs) == 0 {
			if err := removeFile(path); err != nil {
				return err
			}
			continue
		}
		if err := writeFileAtomic(path, EncodeStubs(stubs)); err != nil {
			return err
		}
	}

	for lib, m := range c.Modules {
		if err := writeFileAtomic(filepath.Join(s.libDir(lib), domain.ModuleFileName), EncodeModule(m)); err != nil {
			return err
		}
	}

	for _, h := range c.Headers {
		if err := writeFileAtomic(filepath.Join(s.libDir(h.Path), domain.HeaderFileName), EncodeHeader(h)); err != nil {
			return err
		}
	}

	for _, dir := range c.Orphans {
		if err := os.RemoveAll(filepath.Join(s.root, dir)); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to remove orphaned library"), "dir", dir)
		}
	}
	return nil
}

// Purge removes the cache root.
func (s *Store) Purge() error {
	if err := os.RemoveAll(s.root); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to purge cache"), "root", s.root)
	}
	return nil
}

func sortedKeys[V any](m map[domain.FileKey]V) []domain.FileKey {
	keys := make([]domain.FileKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, domain.FileKey.Compare)
	return keys
}

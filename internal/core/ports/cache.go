package ports

import (
	"context"

	"go.trai.ch/stale/internal/core/domain"
)

//go:generate mockgen -source=cache.go -destination=mocks/mock_cache.go -package=mocks

// MetadataReader reads persisted per-file dependency metadata.
type MetadataReader interface {
	// ReadMetadata decodes the metadata of key, interning referenced files into table.
	ReadMetadata(key domain.FileKey, table *domain.FileTable) (domain.Lookup[*domain.SourceFileMetadata], error)
}

// CacheStore is the persistent side of the incremental cache.
type CacheStore interface {
	MetadataReader

	// Root returns the directory keyed by the configuration hash.
	Root() string
	// ReadHeader returns the committed fingerprint header of a library.
	// A header that cannot be decoded is reported as not found.
	ReadHeader(lib domain.LibraryPath) (domain.Lookup[domain.LibraryHeader], error)
	// RecoverFiles lists the files that have committed metadata in a library directory.
	// It only reads the leading record of each blob.
	RecoverFiles(dir string) ([]domain.FileKey, error)
	// ReadStubs returns the stubbed signatures recorded per file of a library.
	ReadStubs(lib domain.LibraryPath) (domain.Lookup[map[domain.SourcePath]domain.SignatureSet], error)
	// ReadFragment returns the compiled artifact of a file.
	ReadFragment(key domain.FileKey) (domain.Lookup[*domain.CacheArtifact], error)
	// HasFragment reports whether an artifact exists for key without reading it.
	HasFragment(key domain.FileKey) bool
	// ReadModule returns the cross-module record of a library.
	ReadModule(lib domain.LibraryPath) (domain.Lookup[domain.ModuleRecord], error)
	// Libraries lists every library directory present in the cache root.
	Libraries() ([]domain.CachedLibrary, error)
	// Commit persists the outcome of a successful build.
	Commit(ctx context.Context, c *domain.Commit) error
	// Purge removes the whole cache root.
	Purge() error
}

// CacheOpener opens the cache store belonging to a configuration.
type CacheOpener interface {
	// Open returns the store rooted at the directory keyed by the configuration hash.
	Open(cfg *domain.BuildConfig) (CacheStore, error)
}

package domain

import "path/filepath"

const (
	// StaleDirName is the name of the internal workspace directory.
	StaleDirName = ".stale"

	// CacheDirName is the name of the incremental cache directory.
	CacheDirName = "cache"

	// OutputDirName is the default directory for assembled modules.
	OutputDirName = "out"

	// StaleFileName is the name of the build configuration file.
	StaleFileName = "stale.yaml"

	// LibraryFileName is the name of a library manifest.
	LibraryFileName = "library.yaml"

	// UnitFileSuffix is the suffix of source units inside a library.
	UnitFileSuffix = ".unit.yaml"

	// VersionDirPrefix prefixes the cache root directory keyed by the configuration hash.
	VersionDirPrefix = "version."

	// HeaderFileName is the per-library fingerprint header.
	HeaderFileName = "header.bin"

	// StubsFileName is the per-library record of stubbed signatures.
	StubsFileName = "stubs.bin"

	// ModuleFileName is the per-library cross-module record.
	ModuleFileName = "module.bin"

	// MetadataExt is the extension of per-file dependency metadata blobs.
	MetadataExt = ".meta"

	// FragmentExt is the extension of per-file compiled fragments.
	FragmentExt = ".frag"

	// ModuleOutputExt is the extension of assembled module outputs.
	ModuleOutputExt = ".out"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// PrivateFilePerm is the default permission for private files (rw-------).
	PrivateFilePerm = 0o600
)

// DefaultCachePath returns the default incremental cache directory.
// It joins .stale and cache.
func DefaultCachePath() string {
	return filepath.Join(StaleDirName, CacheDirName)
}

// DefaultOutputPath returns the default directory for assembled modules.
// It joins .stale and out.
func DefaultOutputPath() string {
	return filepath.Join(StaleDirName, OutputDirName)
}

package domain

import "go.trai.ch/zerr"

var (
	// ErrInternalInconsistency is returned when the dependency graph contradicts itself during
	// invalidation. It aborts the incremental build.
	ErrInternalInconsistency = zerr.New("incremental cache is internally inconsistent")

	// ErrCacheCorrupt is returned when a persisted cache blob cannot be decoded.
	ErrCacheCorrupt = zerr.New("incremental cache is corrupt")

	// ErrConfigNotFound is returned when no configuration file exists.
	ErrConfigNotFound = zerr.New("could not find " + StaleFileName)

	// ErrInvalidConfig is returned when the configuration fails validation.
	ErrInvalidConfig = zerr.New("invalid configuration")

	// ErrLibraryCycle is returned when libraries depend on each other in a cycle.
	ErrLibraryCycle = zerr.New("library dependency cycle detected")

	// ErrUnknownLibrary is returned when a library depends on a library outside the build.
	ErrUnknownLibrary = zerr.New("unknown library")

	// ErrLibraryNotFound is returned when a configured library directory is missing.
	ErrLibraryNotFound = zerr.New("library not found")

	// ErrInvalidUnit is returned when a source unit cannot be parsed.
	ErrInvalidUnit = zerr.New("invalid source unit")

	// ErrDuplicateSignature is returned when two files declare the same signature.
	ErrDuplicateSignature = zerr.New("signature declared more than once")

	// ErrFileNotInLibrary is returned when a requested file is not part of its library.
	ErrFileNotInLibrary = zerr.New("file is not part of library")

	// ErrCompilerNotConfigured is returned when a build needs the compiler but no command is set.
	ErrCompilerNotConfigured = zerr.New("no compiler command configured")

	// ErrCompileFailed is returned when the compiler fails for a file.
	ErrCompileFailed = zerr.New("compilation failed")
)

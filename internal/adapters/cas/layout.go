package cas

import (
	"path"
	"path/filepath"
	"strings"

	"go.trai.ch/stale/internal/core/domain"
)

// RootDir returns the cache root of a configuration inside cacheDir.
func RootDir(cacheDir string, cfg *domain.BuildConfig) string {
	return filepath.Join(cacheDir, domain.VersionDirPrefix+cfg.Fingerprint().Base36())
}

// LibraryDirName returns the directory name of lib inside a cache root: the readable base
// name of the library followed by a hash of its full path.
func LibraryDirName(lib domain.LibraryPath) string {
	return sanitize(path.Base(filepath.ToSlash(lib.String()))) + "." + domain.HashString(lib.String()).Base36()
}

// blobName returns the file name stem of a source file's blobs.
func blobName(src domain.SourcePath) string {
	return domain.HashString(src.String()).Base36()
}

func sanitize(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" || name == "_" {
		return "lib"
	}
	return name
}

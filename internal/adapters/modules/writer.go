// Package modules writes assembled module outputs to disk.
package modules

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.trai.ch/stale/internal/core/domain"
	"go.trai.ch/zerr"
)

// Writer stores each module as a single file named after its library.
type Writer struct{}

// NewWriter creates a new Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Path returns the output file of lib inside dir.
func (w *Writer) Path(dir string, lib domain.LibraryPath) string {
	return filepath.Join(dir, fileStem(lib)+domain.ModuleOutputExt)
}

// Exists reports whether the output file of lib is a regular file.
func (w *Writer) Exists(dir string, lib domain.LibraryPath) bool {
	info, err := os.Stat(w.Path(dir, lib))
	return err == nil && info.Mode().IsRegular()
}

// Write streams fragments into a temp file and renames it over the previous output.
func (w *Writer) Write(dir string, lib domain.LibraryPath, fragments [][]byte) (string, error) {
	dst := w.Path(dir, lib)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to create output directory"), "dir", dir)
	}

	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(dst)+"-*.tmp")
	if err != nil {
		return "", zerr.Wrap(err, "failed to create temp module file")
	}
	tmpName := tmpFile.Name()

	defer func() {
		if _, err := os.Stat(tmpName); err == nil {
			_ = os.Remove(tmpName)
		}
	}()

	for _, fragment := range fragments {
		if _, err := tmpFile.Write(fragment); err != nil {
			_ = tmpFile.Close()
			return "", zerr.With(zerr.Wrap(err, "failed to write module"), "library", lib.String())
		}
	}

	if err := tmpFile.Close(); err != nil {
		return "", zerr.Wrap(err, "failed to close temp module file")
	}

	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		return "", zerr.Wrap(err, "failed to chmod module file")
	}

	if err := os.Rename(tmpName, dst); err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to rename module file"), "path", dst)
	}
	return dst, nil
}

// fileStem keeps the readable base name of lib and disambiguates it with a hash of the
// full path.
func fileStem(lib domain.LibraryPath) string {
	base := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, path.Base(filepath.ToSlash(lib.String())))
	return base + "." + domain.HashString(lib.String()).Base36()
}

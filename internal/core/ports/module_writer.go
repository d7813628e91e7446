package ports

import "go.trai.ch/stale/internal/core/domain"

// ModuleWriter stores assembled module outputs.
//
//go:generate mockgen -source=module_writer.go -destination=mocks/mock_module_writer.go -package=mocks
type ModuleWriter interface {
	// Path returns the output location of lib inside dir.
	Path(dir string, lib domain.LibraryPath) string
	// Exists reports whether the output of lib is present in dir.
	Exists(dir string, lib domain.LibraryPath) bool
	// Write replaces the output of lib with the concatenation of fragments and returns its path.
	Write(dir string, lib domain.LibraryPath, fragments [][]byte) (string, error)
}

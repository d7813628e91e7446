package ports

import (
	"context"

	"go.trai.ch/stale/internal/core/domain"
)

//go:generate mockgen -source=library.go -destination=mocks/mock_library.go -package=mocks

// LibraryReader reads the current form of a library, including its fingerprints.
type LibraryReader interface {
	// Read returns the library at path, resolved against root.
	Read(ctx context.Context, root string, path domain.LibraryPath) (*domain.Library, error)
}

// Loader materializes symbol information for a subset of the program.
type Loader interface {
	// Materialize loads the requested files and whatever they reference, and reports the
	// signatures that could not be resolved.
	Materialize(ctx context.Context, req domain.LoadRequest) (*domain.SymbolGraph, error)
}

// Compiler turns dirty source files into opaque fragments.
type Compiler interface {
	// Compile returns one fragment per dirty file. graph holds every loaded file.
	Compile(ctx context.Context, cfg domain.CompilerConfig, graph *domain.SymbolGraph, dirty []domain.FileKey) (map[domain.FileKey][]byte, error)
}

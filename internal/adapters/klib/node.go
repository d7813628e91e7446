package klib

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/stale/internal/adapters/fs"
	"go.trai.ch/stale/internal/core/ports"
)

const (
	// ReaderNodeID is the unique identifier for the library reader Graft node.
	ReaderNodeID graft.ID = "adapter.klib.reader"
	// LoaderNodeID is the unique identifier for the symbol loader Graft node.
	LoaderNodeID graft.ID = "adapter.klib.loader"
)

var (
	_ ports.LibraryReader = (*Reader)(nil)
	_ ports.Loader        = (*Loader)(nil)
)

func init() {
	graft.Register(graft.Node[ports.LibraryReader]{
		ID:        ReaderNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{fs.WalkerNodeID, fs.HasherNodeID},
		Run: func(ctx context.Context) (ports.LibraryReader, error) {
			walker, err := graft.Dep[*fs.Walker](ctx)
			if err != nil {
				return nil, err
			}
			hasher, err := graft.Dep[ports.Hasher](ctx)
			if err != nil {
				return nil, err
			}
			return NewReader(walker, hasher), nil
		},
	})

	graft.Register(graft.Node[ports.Loader]{
		ID:        LoaderNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Loader, error) {
			return NewLoader(DefaultParseCacheSize)
		},
	})
}

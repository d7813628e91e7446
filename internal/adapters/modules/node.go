package modules

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/stale/internal/core/ports"
)

// NodeID is the unique identifier for the module writer Graft node.
const NodeID graft.ID = "adapter.module_writer"

var _ ports.ModuleWriter = (*Writer)(nil)

func init() {
	graft.Register(graft.Node[ports.ModuleWriter]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.ModuleWriter, error) {
			return NewWriter(), nil
		},
	})
}

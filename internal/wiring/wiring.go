// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/stale/internal/adapters/cas"
	_ "go.trai.ch/stale/internal/adapters/config"
	_ "go.trai.ch/stale/internal/adapters/fs"
	_ "go.trai.ch/stale/internal/adapters/klib"
	_ "go.trai.ch/stale/internal/adapters/linear"
	_ "go.trai.ch/stale/internal/adapters/logger"
	_ "go.trai.ch/stale/internal/adapters/modules"
	_ "go.trai.ch/stale/internal/adapters/shell"
	_ "go.trai.ch/stale/internal/adapters/telemetry"
	_ "go.trai.ch/stale/internal/adapters/watcher"
	// Register app nodes.
	_ "go.trai.ch/stale/internal/app"
)

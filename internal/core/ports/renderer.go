package ports

import (
	"time"

	"go.trai.ch/stale/internal/core/domain"
)

// Renderer is the abstraction for output rendering.
// It decouples telemetry collection from presentation.
//
//go:generate mockgen -source=renderer.go -destination=mocks/mock_renderer.go -package=mocks
type Renderer interface {
	// OnStageStart is called when a pipeline stage begins.
	// parentID is empty for top-level stages.
	OnStageStart(spanID, parentID, name string, startTime time.Time)

	// OnStageComplete is called when a pipeline stage ends.
	// err is nil if the stage succeeded.
	OnStageComplete(spanID string, endTime time.Time, err error)

	// OnReport is called once with the outcome of a build or status run.
	OnReport(report *domain.Report)
}

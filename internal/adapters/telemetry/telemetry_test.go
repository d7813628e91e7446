package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/stale/internal/adapters/telemetry"
	"go.trai.ch/stale/internal/core/ports"
	"go.trai.ch/stale/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func TestOTelTracer_StageSpansReachRenderer(t *testing.T) {
	ctrl := gomock.NewController(t)
	renderer := mocks.NewMockRenderer(ctrl)

	shutdown := telemetry.Install(renderer)
	defer func() {
		require.NoError(t, shutdown(context.Background()))
	}()

	var startID string
	renderer.EXPECT().OnStageStart(gomock.Any(), "", "load", gomock.Any()).
		Do(func(spanID, _, _ string, _ time.Time) { startID = spanID }).Times(1)
	renderer.EXPECT().OnStageComplete(gomock.Any(), gomock.Any(), nil).
		Do(func(spanID string, _ time.Time, _ error) { assert.Equal(t, startID, spanID) }).Times(1)

	tracer := telemetry.NewOTelTracer("test")
	_, span := tracer.Start(context.Background(), "load", ports.AsStage())
	span.SetAttribute("files", 3)
	span.End()
}

func TestOTelTracer_PlainSpansAreIgnored(t *testing.T) {
	ctrl := gomock.NewController(t)
	renderer := mocks.NewMockRenderer(ctrl)

	shutdown := telemetry.Install(renderer)
	defer func() {
		require.NoError(t, shutdown(context.Background()))
	}()

	tracer := telemetry.NewOTelTracer("test")
	_, span := tracer.Start(context.Background(), "detail")
	_, err := span.Write([]byte("log line"))
	require.NoError(t, err)
	span.End()
}

func TestOTelTracer_FailedStage(t *testing.T) {
	ctrl := gomock.NewController(t)
	renderer := mocks.NewMockRenderer(ctrl)

	shutdown := telemetry.Install(renderer)
	defer func() {
		require.NoError(t, shutdown(context.Background()))
	}()

	renderer.EXPECT().OnStageStart(gomock.Any(), gomock.Any(), "compile", gomock.Any()).Times(1)
	renderer.EXPECT().OnStageComplete(gomock.Any(), gomock.Any(), gomock.Any()).
		Do(func(_ string, _ time.Time, err error) {
			require.Error(t, err)
			assert.Equal(t, "boom", err.Error())
		}).Times(1)

	tracer := telemetry.NewOTelTracer("test")
	ctx, span := tracer.Start(context.Background(), "compile", ports.AsStage())
	span.RecordError(errors.New("boom"))
	span.End()
	assert.NotNil(t, ctx)
}

func TestBridgeWithNilRenderer(t *testing.T) {
	shutdown := telemetry.Install(nil)
	defer func() {
		require.NoError(t, shutdown(context.Background()))
	}()

	_, span := telemetry.NewOTelTracer("test").Start(context.Background(), "stage", ports.AsStage())
	span.End()
}

func TestNoOpTracer(t *testing.T) {
	t.Parallel()

	tracer := telemetry.NewNoOpTracer()
	ctx := context.Background()

	newCtx, span := tracer.Start(ctx, "test-span", ports.AsStage())
	assert.Equal(t, ctx, newCtx)

	n, err := span.Write([]byte("data"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	span.SetAttribute("key", "value")
	span.RecordError(errors.New("ignored"))
	span.End()
}

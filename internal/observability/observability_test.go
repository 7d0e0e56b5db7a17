package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zapcore"

	"github.com/dshills/vortex-catalog/internal/config"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("vortex-test", "debug", false)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = NewLogger("vortex-test", "warn", true)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	_, err = NewLogger("vortex-test", "verbose", false)
	assert.Error(t, err)
}

func TestSetup_Disabled(t *testing.T) {
	ctx := context.Background()

	tp, shutdown, err := SetupTracingSDK(ctx, "vortex-test", config.OtelConfig{})
	require.NoError(t, err)
	assert.Nil(t, tp)
	assert.NoError(t, shutdown(ctx))

	logShutdown, err := SetupLoggingSDK(ctx, "vortex-test", config.OtelConfig{})
	require.NoError(t, err)
	assert.NoError(t, logShutdown(ctx))

	all, err := Setup(ctx, "vortex-test", config.OtelConfig{})
	require.NoError(t, err)
	assert.NoError(t, all(ctx))
}

func TestRecordResult(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := tp.Tracer("test")

	_, ok := tracer.Start(context.Background(), "ok")
	RecordResult(ok, nil)
	ok.End()

	_, failed := tracer.Start(context.Background(), "failed")
	RecordResult(failed, errors.New("boom"))
	failed.End()

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "boom", spans[1].Status().Description)
	assert.Len(t, spans[1].Events(), 1)
}

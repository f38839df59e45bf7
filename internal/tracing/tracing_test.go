package tracing

import (
	"context"
	"errors"
	"testing"

	"takeoutmerge/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestRunID(t *testing.T) {
	id := NewRunID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, NewRunID())

	ctx := WithRunID(context.Background(), id)
	assert.Equal(t, id, RunID(ctx))
	assert.Equal(t, "", RunID(context.Background()))
}

func TestTracingManager_Disabled(t *testing.T) {
	logger, _ := test.NewNullLogger()
	tm := NewTracingManager(models.TracingConfig{Enabled: false}, "dev", logger)

	require.NoError(t, tm.Initialize(context.Background()))
	assert.Nil(t, tm.tracerProvider)
	assert.NoError(t, tm.Shutdown(context.Background()))
	assert.Equal(t, "takeoutmerge", tm.config.ServiceName)
}

func TestTracingManager_Stdout(t *testing.T) {
	logger, _ := test.NewNullLogger()
	tm := NewTracingManager(models.TracingConfig{Enabled: true, UseStdout: true, SampleRate: 1}, "dev", logger)

	original := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(original) })

	require.NoError(t, tm.Initialize(context.Background()))
	assert.NotNil(t, tm.tracerProvider)
	assert.NoError(t, tm.Shutdown(context.Background()))
}

func TestStartSpan_RecordsRunIDAndErrors(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(original) })

	ctx := WithRunID(context.Background(), "run-1")
	ctx, span := StartSpan(ctx, "merge.group", attribute.Int("entries", 3))
	assert.NotEmpty(t, GetOtelTraceID(ctx))
	RecordError(ctx, errors.New("boom"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "merge.group", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("run.id", "run-1"))
	assert.Contains(t, spans[0].Attributes(), attribute.Int("entries", 3))
	assert.Equal(t, "boom", spans[0].Status().Description)
}

func TestGetOtelTraceID_NoSpan(t *testing.T) {
	assert.Equal(t, "", GetOtelTraceID(context.Background()))
}

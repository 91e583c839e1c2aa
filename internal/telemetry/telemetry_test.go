package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrumboard/internal/telemetry"
)

func TestInitDisabled(t *testing.T) {
	shutdown, err := telemetry.Init(context.Background(), telemetry.Config{}, "scrumboard", "test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	_, span := telemetry.Tracer("").Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
}

func TestInitEnabled(t *testing.T) {
	shutdown, err := telemetry.Init(context.Background(), telemetry.Config{Enabled: true}, "scrumboard", "test")
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = telemetry.Init(context.Background(), telemetry.Config{}, "scrumboard", "test")
	})

	_, span := telemetry.Tracer("scrumboard/test").Start(context.Background(), "op")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	counter, err := telemetry.Meter("").Int64Counter("scrumboard.test")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)

	assert.NoError(t, shutdown(context.Background()))
}

package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/trackerhq/tracker/internal/telemetry"
)

func TestInit_Disabled(t *testing.T) {
	ctx := context.Background()

	provider, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:  "tracker-test",
		OTLPEndpoint: "localhost:4317",
		Enabled:      false,
	})
	require.NoError(t, err)

	assert.Nil(t, provider.TracerProvider)
	assert.Nil(t, provider.MeterProvider)
	assert.NotNil(t, otel.GetTextMapPropagator())
	assert.NoError(t, provider.Shutdown(ctx))
}

func TestProvider_ShutdownNil(t *testing.T) {
	assert.NoError(t, (&telemetry.Provider{}).Shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	assert.Contains(t, telemetry.Sampler(0).Description(), "AlwaysOnSampler")
	assert.Contains(t, telemetry.Sampler(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, telemetry.Sampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}

package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/config"
)

func TestSetupDisabledIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), &config.Config{TracingEnabled: false})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupConsoleExporterProducesSpans(t *testing.T) {
	shutdown, err := Setup(context.Background(), &config.Config{
		AppName:            "clover-test",
		TracingEnabled:     true,
		TracingExporter:    "console",
		TracingSampleRatio: 1.0,
	})
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, shutdown(context.Background()))
	}()

	ctx, span := StartSpan(context.Background(), "tracing.test.span")
	defer span.End()

	require.True(t, span.SpanContext().IsValid())
	assert.NotEmpty(t, GetTraceID(ctx))
	assert.NotEmpty(t, GetTraceParent(ctx))
}

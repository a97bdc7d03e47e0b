package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDisabledReturnsNoopTracer(t *testing.T) {
	cfg := DefaultConfig("taskforge")
	cfg.Enabled = false

	provider, err := Init(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, provider)

	ctx, span := provider.StartSpan(context.Background(), "test-span")
	assert.NotNil(t, ctx)
	span.End()

	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestTraceIDEmptyWithoutSpan(t *testing.T) {
	assert.Equal(t, "", TraceID(context.Background()))
	assert.Equal(t, "", SpanID(context.Background()))
}

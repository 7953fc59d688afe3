package tracing

import (
	"context"
	"testing"

	"github.com/opentracing/opentracing-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracer_Disabled(t *testing.T) {
	tracer, closer, err := InitTracer(Config{})
	require.NoError(t, err)
	defer closer()

	assert.IsType(t, opentracing.NoopTracer{}, tracer)

	span, ctx := opentracing.StartSpanFromContext(context.Background(), "scan.universe")
	defer span.Finish()
	assert.Empty(t, TraceID(ctx))
}

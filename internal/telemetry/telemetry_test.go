package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(context.Background(), "", "gophauth", zap.NewNop())
	require.NoError(t, err)

	_, span := p.Tracer().Start(context.Background(), "op")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_Enabled(t *testing.T) {
	p, err := New(context.Background(), "http://127.0.0.1:4318", "gophauth", zap.NewNop())
	require.NoError(t, err)

	_, span := p.Tracer().Start(context.Background(), "op")
	assert.True(t, span.SpanContext().IsValid())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	// Nothing is listening, so only the shutdown itself is asserted to return.
	_ = p.Shutdown(ctx)
}

func TestNilProvider(t *testing.T) {
	var p *Provider
	assert.NotNil(t, p.Tracer())
	assert.NoError(t, p.Shutdown(context.Background()))
}

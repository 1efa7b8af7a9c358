package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestCtxWithoutSpanReturnsBase(t *testing.T) {
	l := Ctx(context.Background())
	assert.Same(t, Logger(), l)
}

func TestCtxWithSpanDerivesTraceLogger(t *testing.T) {
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10},
		SpanID:  trace.SpanID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
	})
	require.True(t, sc.IsValid())
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	l := Ctx(ctx)
	assert.NotSame(t, Logger(), l)
}

func TestLevelMethodsChain(t *testing.T) {
	// Info/Error/Debug 是指针接收者，返回值必须可直接链式调用
	Logger().Debug().Str("k", "v").Msg("base logger chain")
	Ctx(context.Background()).Info().Msg("ctx logger chain")
}

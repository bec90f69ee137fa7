package costing_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"clinicstock/internal/core/types"
	"clinicstock/internal/domain/costing"
)

// spans installs a recording tracer provider once per test binary; the
// engine's tracer is resolved through the global delegate.
var spans = sync.OnceValue(func() *tracetest.SpanRecorder {
	sr := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))
	return sr
})

func findSpan(sr *tracetest.SpanRecorder, name string, attr attribute.KeyValue) sdktrace.ReadOnlySpan {
	for _, s := range sr.Ended() {
		if s.Name() != name {
			continue
		}
		for _, a := range s.Attributes() {
			if a == attr {
				return s
			}
		}
	}
	return nil
}

func TestTracing_ReceiptSpan(t *testing.T) {
	sr := spans()
	e := newEnv(t, averagePolicy)
	m := e.material(t)

	res := e.receive(t, m, "4", "2.5", day(time.March, 1), nil)

	span := findSpan(sr, "costing.RegisterReceipt", attribute.String("receipt.id", res.Receipt.ID.String()))
	require.NotNil(t, span)
	assert.Contains(t, span.Attributes(), attribute.Int("receipt.items", 1))
	assert.Empty(t, span.Events())
}

func TestTracing_FailedWriteOffRecordsError(t *testing.T) {
	sr := spans()
	e := newEnv(t, averagePolicy)
	m := e.material(t)
	e.receive(t, m, "1", "3", day(time.March, 1), nil)

	_, err := e.engine.WriteOff(context.Background(), costing.WriteOffInput{
		MaterialID: m,
		Quantity:   types.Qty(9),
		Reason:     "damaged",
		Date:       day(time.March, 2),
	})
	require.Error(t, err)

	span := findSpan(sr, "costing.WriteOff", attribute.String("material.id", m.String()))
	require.NotNil(t, span)
	require.NotEmpty(t, span.Events())
	assert.Equal(t, "exception", span.Events()[0].Name)
}

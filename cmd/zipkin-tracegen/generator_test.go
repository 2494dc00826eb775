package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	zipkintracer "github.com/openzipkin-contrib/zipkin-thrift-opentracing"
)

func TestGenerator(t *testing.T) {
	reporter := zipkintracer.NewInMemoryReporter()
	tracer, err := zipkintracer.NewTracer(reporter, zipkintracer.WithServiceName("tracegen"))
	require.NoError(t, err)

	gen := &generator{tracer: tracer, depth: 2, limiter: rate.NewLimiter(rate.Inf, 1)}
	n, err := gen.run(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// client + server + 2 + 4 local spans per trace
	spans := reporter.GetSpans()
	require.Len(t, spans, 3*8)

	traces := map[string]int{}
	for _, sp := range spans {
		traces[sp.SpanContext().TraceID.String()]++
	}
	assert.Len(t, traces, 3)
	for _, count := range traces {
		assert.Equal(t, 8, count)
	}
}

func TestGeneratorCanceled(t *testing.T) {
	tracer, err := zipkintracer.NewTracer(zipkintracer.NewNullReporter(), zipkintracer.WithServiceName("tracegen"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := &generator{tracer: tracer, limiter: rate.NewLimiter(1, 1)}
	gen.limiter.Allow()
	n, err := gen.run(ctx, 5)
	assert.Error(t, err)
	assert.Equal(t, 0, n)
}

package zipkintracer_test

import (
	"net/http"
	"testing"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/openzipkin/zipkin-go/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	zipkintracer "github.com/openzipkin-contrib/zipkin-thrift-opentracing"
	"github.com/openzipkin-contrib/zipkin-thrift-opentracing/propagation/b3"
)

type verbatimCarrier struct {
	zipkintracer.SpanContext
	b map[string]string
}

var _ zipkintracer.DelegatingCarrier = &verbatimCarrier{}

func (vc *verbatimCarrier) SetBaggageItem(k, v string) {
	vc.b[k] = v
}

func (vc *verbatimCarrier) GetBaggage(f func(string, string)) {
	for k, v := range vc.b {
		f(k, v)
	}
}

func (vc *verbatimCarrier) SetState(tID model.TraceID, sID, pID model.ID, sampled, debug bool) {
	vc.SpanContext = zipkintracer.SpanContext{TraceID: tID, SpanID: sID, ParentID: pID}
	if sampled {
		vc.Flags |= zipkintracer.FlagSampled
	}
	if debug {
		vc.Flags |= zipkintracer.FlagDebug
	}
}

func (vc *verbatimCarrier) State() (traceID model.TraceID, spanID, parentSpanID model.ID, sampled, debug bool) {
	return vc.TraceID, vc.SpanID, vc.ParentID, vc.IsSampled(), vc.IsDebug()
}

func TestSpanPropagator(t *testing.T) {
	const op = "test"
	recorder := zipkintracer.NewInMemoryReporter()
	tracer, err := zipkintracer.NewTracer(
		recorder,
		zipkintracer.WithServiceName("svc"),
		zipkintracer.WithTraceID128Bit(true),
	)
	require.NoError(t, err)

	sp := tracer.StartSpan(op)
	sp.SetBaggageItem("foo", "bar")
	parent := sp.Context().(zipkintracer.SpanContext)

	tests := []struct {
		typ, carrier interface{}
	}{
		{zipkintracer.Delegator, zipkintracer.DelegatingCarrier(&verbatimCarrier{b: map[string]string{}})},
		{opentracing.TextMap, opentracing.TextMapCarrier{}},
		{opentracing.HTTPHeaders, opentracing.HTTPHeadersCarrier(http.Header{})},
	}

	for i, test := range tests {
		require.NoError(t, tracer.Inject(sp.Context(), test.typ, test.carrier), i)
		sc, err := tracer.Extract(test.typ, test.carrier)
		require.NoError(t, err, i)

		extracted := sc.(zipkintracer.SpanContext)
		assert.Equal(t, parent.TraceID, extracted.TraceID, i)
		assert.Equal(t, parent.SpanID, extracted.SpanID, i)
		assert.Equal(t, parent.Flags, extracted.Flags, i)
		assert.Equal(t, map[string]string{"foo": "bar"}, extracted.Baggage, i)

		child := tracer.StartSpan(op, opentracing.ChildOf(sc))
		childCtx := child.Context().(zipkintracer.SpanContext)
		assert.Equal(t, parent.TraceID, childCtx.TraceID, i)
		assert.Equal(t, parent.SpanID, childCtx.ParentID, i)
		child.Finish()
	}
	sp.Finish()

	assert.Equal(t, len(tests)+1, recorder.Len())
}

func TestTextMapHeaders(t *testing.T) {
	tracer, err := zipkintracer.NewTracer(zipkintracer.NewNullReporter(), zipkintracer.WithServiceName("svc"))
	require.NoError(t, err)

	sc := zipkintracer.SpanContext{
		TraceID:  model.TraceID{Low: 1},
		SpanID:   2,
		ParentID: 3,
		Flags:    zipkintracer.FlagSampled | zipkintracer.FlagDebug,
		Baggage:  map[string]string{"user": "42"},
	}
	carrier := opentracing.TextMapCarrier{}
	require.NoError(t, tracer.Inject(sc, opentracing.TextMap, carrier))
	assert.Equal(t, opentracing.TextMapCarrier{
		b3.TraceID:        "0000000000000001",
		b3.SpanID:         "0000000000000002",
		b3.ParentSpanID:   "0000000000000003",
		b3.Sampled:        "1",
		b3.Flags:          "1",
		"ot-baggage-user": "42",
	}, carrier)

	unsampled := opentracing.TextMapCarrier{}
	sc.Flags = 0
	sc.ParentID = 0
	sc.Baggage = nil
	require.NoError(t, tracer.Inject(&sc, opentracing.TextMap, unsampled))
	assert.Equal(t, opentracing.TextMapCarrier{
		b3.TraceID: "0000000000000001",
		b3.SpanID:  "0000000000000002",
	}, unsampled)
}

func TestExtractMixedCase(t *testing.T) {
	tracer, err := zipkintracer.NewTracer(zipkintracer.NewNullReporter(), zipkintracer.WithServiceName("svc"))
	require.NoError(t, err)

	sc, err := tracer.Extract(opentracing.TextMap, opentracing.TextMapCarrier{
		"X-B3-TraceId":    "1",
		"X-B3-SpanId":     "1",
		"X-B3-Sampled":    "1",
		"OT-Baggage-User": "42",
	})
	require.NoError(t, err)
	ctx := sc.(zipkintracer.SpanContext)
	assert.Equal(t, model.TraceID{Low: 1}, ctx.TraceID)
	assert.Equal(t, model.ID(1), ctx.SpanID)
	assert.True(t, ctx.IsSampled())
	assert.Equal(t, map[string]string{"user": "42"}, ctx.Baggage)
}

func TestPropagatorErrors(t *testing.T) {
	tracer, err := zipkintracer.NewTracer(zipkintracer.NewNullReporter(), zipkintracer.WithServiceName("svc"))
	require.NoError(t, err)
	sp := tracer.StartSpan("op")

	assert.Equal(t, opentracing.ErrInvalidCarrier, tracer.Inject(sp.Context(), opentracing.TextMap, "carrier"))
	assert.Equal(t, opentracing.ErrInvalidCarrier, tracer.Inject(sp.Context(), zipkintracer.Delegator, "carrier"))
	assert.Equal(t, opentracing.ErrInvalidSpanContext, tracer.Inject(nil, opentracing.TextMap, opentracing.TextMapCarrier{}))
	assert.Equal(t, b3.ErrEmptyContext, tracer.Inject(zipkintracer.SpanContext{}, opentracing.TextMap, opentracing.TextMapCarrier{}))

	_, err = tracer.Extract(opentracing.TextMap, opentracing.TextMapCarrier{})
	assert.Equal(t, opentracing.ErrSpanContextNotFound, err)
	_, err = tracer.Extract(opentracing.HTTPHeaders, opentracing.TextMapCarrier{"x-b3-traceid": "zz", "x-b3-spanid": "1"})
	assert.Equal(t, opentracing.ErrSpanContextCorrupted, err)
	_, err = tracer.Extract(zipkintracer.Delegator, &verbatimCarrier{b: map[string]string{}})
	assert.Equal(t, opentracing.ErrSpanContextNotFound, err)
	_, err = tracer.Extract(opentracing.TextMap, 42)
	assert.Equal(t, opentracing.ErrInvalidCarrier, err)
}

package zipkintracer

import (
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opentracing/opentracing-go/ext"
	"github.com/openzipkin/zipkin-go/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openzipkin-contrib/zipkin-thrift-opentracing/zipkincore"
)

type CountingReporter int32

func (c *CountingReporter) Report(*Span) {
	atomic.AddInt32((*int32)(c), 1)
}

func (c *CountingReporter) Close() error {
	return nil
}

var (
	testStart = time.Unix(1500000000, 0)
	testEnd   = testStart.Add(1500 * time.Microsecond)
	testLocal = MakeEndpoint("10.0.0.1", 8080, "svc")
)

func finishedSpan(kind ext.SpanKindEnum) *Span {
	return &Span{
		context: SpanContext{
			TraceID: model.TraceID{Low: 1 << 63},
			SpanID:  math.MaxUint64,
			Flags:   FlagSampled,
		},
		operationName: "op",
		startTime:     testStart,
		endTime:       testEnd,
		kind:          kind,
		finished:      true,
	}
}

func TestEncodeSpanIdentifiers(t *testing.T) {
	sp := finishedSpan("")
	s := EncodeSpan(sp, testLocal)

	assert.Equal(t, int64(math.MinInt64), s.TraceID)
	require.NotNil(t, s.TraceIDHigh)
	assert.Equal(t, int64(0), *s.TraceIDHigh)
	assert.Equal(t, int64(-1), s.ID)
	assert.Nil(t, s.ParentID)
	assert.Equal(t, "op", s.Name)
	assert.False(t, s.Debug)
	assert.Equal(t, testStart.UnixNano()/1000, s.GetTimestamp())
	assert.Equal(t, int64(1500), s.GetDuration())

	sp.context.TraceID.High = 5
	sp.context.ParentID = 7
	sp.context.Flags |= FlagDebug
	s = EncodeSpan(sp, testLocal)
	assert.Equal(t, int64(5), *s.TraceIDHigh)
	require.NotNil(t, s.ParentID)
	assert.Equal(t, int64(7), *s.ParentID)
	assert.True(t, s.Debug)
}

func TestEncodeSpanLocal(t *testing.T) {
	sp := finishedSpan("")
	sp.logs = []LogRecord{{Timestamp: testStart.Add(time.Millisecond), Value: "event"}}
	sp.tags = []Tag{{Key: "http.status_code", Value: 200}}

	s := EncodeSpan(sp, testLocal)

	require.Len(t, s.Annotations, 1)
	assert.Equal(t, &zipkincore.Annotation{
		Timestamp: testStart.Add(time.Millisecond).UnixNano() / 1000,
		Value:     "event",
		Host:      testLocal,
	}, s.Annotations[0])

	require.Len(t, s.BinaryAnnotations, 2)
	assert.Equal(t, "http.status_code", s.BinaryAnnotations[0].Key)
	assert.Equal(t, zipkincore.AnnotationType_I32, s.BinaryAnnotations[0].AnnotationType)
	assert.Equal(t, []byte{0, 0, 0, 200}, s.BinaryAnnotations[0].Value)

	lc := s.BinaryAnnotations[1]
	assert.Equal(t, zipkincore.LOCAL_COMPONENT, lc.Key)
	assert.Equal(t, []byte("svc"), lc.Value)
	assert.Equal(t, zipkincore.AnnotationType_STRING, lc.AnnotationType)
	assert.Equal(t, testLocal, lc.Host)

	sp.component = "db"
	s = EncodeSpan(sp, testLocal)
	assert.Equal(t, []byte("db"), s.BinaryAnnotations[len(s.BinaryAnnotations)-1].Value)
}

func TestEncodeSpanClient(t *testing.T) {
	sp := finishedSpan(ext.SpanKindRPCClientEnum)
	sp.logs = []LogRecord{{Timestamp: testStart, Value: "first"}}
	sp.peer = &peer{ipv4: "127.0.0.1", port: 9411, serviceName: "Backend"}

	s := EncodeSpan(sp, testLocal)

	require.Len(t, s.Annotations, 3)
	assert.Equal(t, "first", s.Annotations[0].Value)
	assert.Equal(t, zipkincore.CLIENT_RECV, s.Annotations[1].Value)
	assert.Equal(t, TimeToMicros(testEnd), s.Annotations[1].Timestamp)
	assert.Equal(t, zipkincore.CLIENT_SEND, s.Annotations[2].Value)
	assert.Equal(t, TimeToMicros(testStart), s.Annotations[2].Timestamp)

	require.Len(t, s.BinaryAnnotations, 1)
	sa := s.BinaryAnnotations[0]
	assert.Equal(t, zipkincore.SERVER_ADDR, sa.Key)
	assert.Equal(t, []byte{0x01}, sa.Value)
	assert.Equal(t, zipkincore.AnnotationType_BOOL, sa.AnnotationType)
	assert.Equal(t, &zipkincore.Endpoint{Ipv4: 0x7f000001, Port: 9411, ServiceName: "backend"}, sa.Host)
}

func TestEncodeSpanServer(t *testing.T) {
	sp := finishedSpan(ext.SpanKindRPCServerEnum)

	s := EncodeSpan(sp, testLocal)
	require.Len(t, s.Annotations, 2)
	assert.Equal(t, zipkincore.SERVER_SEND, s.Annotations[0].Value)
	assert.Equal(t, zipkincore.SERVER_RECV, s.Annotations[1].Value)
	assert.Empty(t, s.BinaryAnnotations)

	sp.peer = &peer{port: 40000}
	s = EncodeSpan(sp, testLocal)
	require.Len(t, s.BinaryAnnotations, 1)
	assert.Equal(t, zipkincore.CLIENT_ADDR, s.BinaryAnnotations[0].Key)
	assert.Equal(t, int16(-25536), s.BinaryAnnotations[0].Host.Port)
}

func TestEncodeSpanDoesNotMutate(t *testing.T) {
	sp := finishedSpan(ext.SpanKindRPCClientEnum)
	sp.tags = []Tag{{Key: "k", Value: "v"}}

	first := EncodeSpan(sp, testLocal)
	second := EncodeSpan(sp, testLocal)
	assert.Equal(t, first, second)
	assert.Len(t, sp.tags, 1)
	assert.Empty(t, sp.logs)
}

func TestEncodeSpansEndpoint(t *testing.T) {
	tracer, err := NewTracer(NewNullReporter(), WithServiceName("traced"), WithLocalIP("192.168.0.1"), WithLocalPort(80))
	require.NoError(t, err)

	owned := finishedSpan("")
	owned.tracer = tracer
	orphan := finishedSpan("")

	spans := EncodeSpans([]*Span{owned, orphan}, testLocal)
	require.Len(t, spans, 2)

	lc := spans[0].BinaryAnnotations[0]
	assert.Equal(t, []byte("traced"), lc.Value)
	assert.Equal(t, &zipkincore.Endpoint{Ipv4: IPv4ToInt32("192.168.0.1"), Port: 80, ServiceName: "traced"}, lc.Host)
	assert.Equal(t, testLocal, spans[1].BinaryAnnotations[0].Host)
}

func TestBinaryAnnotationValue(t *testing.T) {
	tests := []struct {
		value interface{}
		typ   zipkincore.AnnotationType
		bytes []byte
	}{
		{true, zipkincore.AnnotationType_BOOL, []byte{1}},
		{false, zipkincore.AnnotationType_BOOL, []byte{0}},
		{[]byte{9, 8}, zipkincore.AnnotationType_BYTES, []byte{9, 8}},
		{int16(-1), zipkincore.AnnotationType_I32, []byte{0xff, 0xff, 0xff, 0xff}},
		{uint16(1), zipkincore.AnnotationType_I32, []byte{0, 0, 0, 1}},
		{int64(2), zipkincore.AnnotationType_I64, []byte{0, 0, 0, 0, 0, 0, 0, 2}},
		{1.5, zipkincore.AnnotationType_DOUBLE, []byte{0x3f, 0xf8, 0, 0, 0, 0, 0, 0}},
		{"s", zipkincore.AnnotationType_STRING, []byte("s")},
		{struct{ A int }{1}, zipkincore.AnnotationType_STRING, []byte("{A:1}")},
	}
	for _, tt := range tests {
		typ, b := binaryAnnotationValue(tt.value)
		assert.Equal(t, tt.typ, typ, "%v", tt.value)
		assert.Equal(t, tt.bytes, b, "%v", tt.value)
	}
}

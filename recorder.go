package zipkintracer

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/opentracing/opentracing-go/ext"

	"github.com/openzipkin-contrib/zipkin-thrift-opentracing/zipkincore"
)

// peerAddressValue is the BOOL true carried by the sa and ca binary
// annotations.
var peerAddressValue = []byte{0x01}

// EncodeSpan converts a finished span into its Zipkin v1 Thrift
// representation. local is the endpoint of this process and becomes the host
// of every annotation. The span itself is left untouched, so encoding it
// twice yields equal results.
func EncodeSpan(sp *Span, local *zipkincore.Endpoint) *zipkincore.Span {
	serviceName := local.GetServiceName()
	if sp.tracer != nil {
		serviceName = sp.tracer.serviceName
	}

	sp.Lock()
	defer sp.Unlock()

	high, low := SplitTraceID(sp.context.TraceID)
	timestamp := TimeToMicros(sp.startTime)
	duration := TimeToMicros(sp.endTime) - timestamp

	span := &zipkincore.Span{
		TraceID:           IDToSignedWire(low),
		TraceIDHigh:       zipkincore.Int64Ptr(IDToSignedWire(high)),
		Name:              sp.operationName,
		ID:                IDToSignedWire(uint64(sp.context.SpanID)),
		Debug:             sp.context.IsDebug(),
		Timestamp:         &timestamp,
		Duration:          &duration,
		Annotations:       make([]*zipkincore.Annotation, 0, len(sp.logs)+2),
		BinaryAnnotations: make([]*zipkincore.BinaryAnnotation, 0, len(sp.tags)+1),
	}
	if sp.context.ParentID != 0 {
		span.ParentID = zipkincore.Int64Ptr(IDToSignedWire(uint64(sp.context.ParentID)))
	}

	for _, lr := range sp.logs {
		Annotate(span, lr.Timestamp, lr.Value, local)
	}
	for _, tag := range sp.tags {
		AnnotateBinary(span, tag.Key, tag.Value, local)
	}

	switch sp.kind {
	case ext.SpanKindRPCClientEnum, ext.SpanKindRPCServerEnum:
		isClient := sp.kind == ext.SpanKindRPCClientEnum
		endEvent, startEvent, addrKey := zipkincore.SERVER_SEND, zipkincore.SERVER_RECV, zipkincore.CLIENT_ADDR
		if isClient {
			endEvent, startEvent, addrKey = zipkincore.CLIENT_RECV, zipkincore.CLIENT_SEND, zipkincore.SERVER_ADDR
		}
		Annotate(span, sp.endTime, endEvent, local)
		Annotate(span, sp.startTime, startEvent, local)
		if sp.peer != nil {
			host := MakeEndpoint(sp.peer.ipv4, sp.peer.port, sp.peer.serviceName)
			span.BinaryAnnotations = append(span.BinaryAnnotations, &zipkincore.BinaryAnnotation{
				Key:            addrKey,
				Value:          peerAddressValue,
				AnnotationType: zipkincore.AnnotationType_BOOL,
				Host:           host,
			})
		}
	default:
		component := sp.component
		if component == "" {
			component = serviceName
		}
		AnnotateBinary(span, zipkincore.LOCAL_COMPONENT, component, local)
	}
	return span
}

// EncodeSpans encodes a batch, preserving its order. Each span is annotated
// with the local endpoint of the tracer that created it, or fallback for
// spans without a tracer.
func EncodeSpans(spans []*Span, fallback *zipkincore.Endpoint) []*zipkincore.Span {
	out := make([]*zipkincore.Span, 0, len(spans))
	for _, sp := range spans {
		local := fallback
		if sp.tracer != nil {
			local = sp.tracer.localEndpoint
		}
		out = append(out, EncodeSpan(sp, local))
	}
	return out
}

// Annotate annotates the span with the given value.
func Annotate(span *zipkincore.Span, timestamp time.Time, value string, host *zipkincore.Endpoint) {
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	span.Annotations = append(span.Annotations, &zipkincore.Annotation{
		Timestamp: TimeToMicros(timestamp),
		Value:     value,
		Host:      host,
	})
}

// AnnotateBinary annotates the span with a key and a value that will be []byte
// encoded.
func AnnotateBinary(span *zipkincore.Span, key string, value interface{}, host *zipkincore.Endpoint) {
	a, b := binaryAnnotationValue(value)
	span.BinaryAnnotations = append(span.BinaryAnnotations, &zipkincore.BinaryAnnotation{
		Key:            key,
		Value:          b,
		AnnotationType: a,
		Host:           host,
	})
}

// We are not using zipkincore.AnnotationType_I16 for types that could fit
// as reporting on it seems to be broken on the zipkin web interface.
func binaryAnnotationValue(value interface{}) (zipkincore.AnnotationType, []byte) {
	switch v := value.(type) {
	case bool:
		if v {
			return zipkincore.AnnotationType_BOOL, []byte{0x01}
		}
		return zipkincore.AnnotationType_BOOL, []byte{0x00}
	case []byte:
		return zipkincore.AnnotationType_BYTES, v
	case uint8:
		return zipkincore.AnnotationType_I32, i32Bytes(uint32(v))
	case int8:
		return zipkincore.AnnotationType_I32, i32Bytes(uint32(v))
	case int16:
		return zipkincore.AnnotationType_I32, i32Bytes(uint32(v))
	case uint16:
		return zipkincore.AnnotationType_I32, i32Bytes(uint32(v))
	case int32:
		return zipkincore.AnnotationType_I32, i32Bytes(uint32(v))
	case uint32:
		return zipkincore.AnnotationType_I32, i32Bytes(v)
	case int:
		return zipkincore.AnnotationType_I32, i32Bytes(uint32(v))
	case uint:
		return zipkincore.AnnotationType_I32, i32Bytes(uint32(v))
	case int64:
		return zipkincore.AnnotationType_I64, i64Bytes(uint64(v))
	case uint64:
		return zipkincore.AnnotationType_I64, i64Bytes(v)
	case float32:
		return zipkincore.AnnotationType_DOUBLE, i64Bytes(math.Float64bits(float64(v)))
	case float64:
		return zipkincore.AnnotationType_DOUBLE, i64Bytes(math.Float64bits(v))
	case string:
		return zipkincore.AnnotationType_STRING, []byte(v)
	}
	// we have no handler for type's value, but let's get a string
	// representation of it.
	return zipkincore.AnnotationType_STRING, []byte(fmt.Sprintf("%+v", value))
}

func i32Bytes(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func i64Bytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

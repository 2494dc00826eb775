// Package models holds the Zipkin v1 JSON span model accepted by
// /api/v1/spans.
package models

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"net"

	"github.com/openzipkin-contrib/zipkin-thrift-opentracing/zipkincore"
)

// Span is a Zipkin v1 JSON span. Identifiers are lower-hex; the trace id is
// 32 characters long when its high half is set.
type Span struct {
	TraceID           string              `json:"traceId"`
	Name              string              `json:"name"`
	ID                string              `json:"id"`
	ParentID          string              `json:"parentId,omitempty"`
	Annotations       []*Annotation       `json:"annotations"`
	BinaryAnnotations []*BinaryAnnotation `json:"binaryAnnotations"`
	Debug             bool                `json:"debug,omitempty"`
	Timestamp         int64               `json:"timestamp,omitempty"`
	Duration          int64               `json:"duration,omitempty"`
}

type Annotation struct {
	Timestamp int64     `json:"timestamp"`
	Value     string    `json:"value"`
	Endpoint  *Endpoint `json:"endpoint,omitempty"`
}

type BinaryAnnotation struct {
	Key      string      `json:"key"`
	Value    interface{} `json:"value"`
	Type     string      `json:"type,omitempty"`
	Endpoint *Endpoint   `json:"endpoint,omitempty"`
}

type Endpoint struct {
	ServiceName string `json:"serviceName"`
	Ipv4        string `json:"ipv4,omitempty"`
	Ipv6        string `json:"ipv6,omitempty"`
	Port        uint16 `json:"port,omitempty"`
}

// FromThrift converts a Thrift span. Signed identifiers go back to their
// unsigned hex form and typed binary annotations to JSON values.
func FromThrift(s *zipkincore.Span) *Span {
	span := &Span{
		Name:              s.Name,
		ID:                hexID(s.ID),
		Debug:             s.Debug,
		Timestamp:         s.GetTimestamp(),
		Duration:          s.GetDuration(),
		Annotations:       make([]*Annotation, 0, len(s.Annotations)),
		BinaryAnnotations: make([]*BinaryAnnotation, 0, len(s.BinaryAnnotations)),
	}
	if high := s.GetTraceIDHigh(); high != 0 {
		span.TraceID = hexID(high) + hexID(s.TraceID)
	} else {
		span.TraceID = hexID(s.TraceID)
	}
	if s.ParentID != nil {
		span.ParentID = hexID(*s.ParentID)
	}
	for _, a := range s.Annotations {
		span.Annotations = append(span.Annotations, &Annotation{
			Timestamp: a.Timestamp,
			Value:     a.Value,
			Endpoint:  endpoint(a.Host),
		})
	}
	for _, ba := range s.BinaryAnnotations {
		value, typ := binaryValue(ba)
		span.BinaryAnnotations = append(span.BinaryAnnotations, &BinaryAnnotation{
			Key:      ba.Key,
			Value:    value,
			Type:     typ,
			Endpoint: endpoint(ba.Host),
		})
	}
	return span
}

func hexID(id int64) string {
	return fmt.Sprintf("%016x", uint64(id))
}

func endpoint(e *zipkincore.Endpoint) *Endpoint {
	if e == nil {
		return nil
	}
	out := &Endpoint{
		ServiceName: e.ServiceName,
		Port:        uint16(e.Port),
	}
	if e.Ipv4 != 0 {
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, uint32(e.Ipv4))
		out.Ipv4 = net.IP(b).String()
	}
	if len(e.Ipv6) == net.IPv6len {
		out.Ipv6 = net.IP(e.Ipv6).String()
	}
	return out
}

// binaryValue decodes the annotation value. STRING annotations carry no
// type, as in the v1 JSON format.
func binaryValue(ba *zipkincore.BinaryAnnotation) (interface{}, string) {
	v := ba.Value
	switch ba.AnnotationType {
	case zipkincore.AnnotationType_BOOL:
		return len(v) == 1 && v[0] == 1, "BOOL"
	case zipkincore.AnnotationType_I16:
		if len(v) == 2 {
			return int16(binary.BigEndian.Uint16(v)), "I16"
		}
	case zipkincore.AnnotationType_I32:
		if len(v) == 4 {
			return int32(binary.BigEndian.Uint32(v)), "I32"
		}
	case zipkincore.AnnotationType_I64:
		if len(v) == 8 {
			return int64(binary.BigEndian.Uint64(v)), "I64"
		}
	case zipkincore.AnnotationType_DOUBLE:
		if len(v) == 8 {
			return math.Float64frombits(binary.BigEndian.Uint64(v)), "DOUBLE"
		}
	case zipkincore.AnnotationType_STRING:
		return string(v), ""
	}
	return base64.StdEncoding.EncodeToString(v), "BYTES"
}

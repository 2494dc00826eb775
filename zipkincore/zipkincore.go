// Copyright 2022 The OpenZipkin Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package zipkincore holds the Zipkin v1 data model defined by
// zipkinCore.thrift together with its Thrift serialization.
package zipkincore

import (
	"fmt"
)

// Core annotation values.
const (
	CLIENT_SEND     = "cs"
	CLIENT_RECV     = "cr"
	SERVER_SEND     = "ss"
	SERVER_RECV     = "sr"
	WIRE_SEND       = "ws"
	WIRE_RECV       = "wr"
	LOCAL_COMPONENT = "lc"
	CLIENT_ADDR     = "ca"
	SERVER_ADDR     = "sa"
)

// AnnotationType is the value type of a BinaryAnnotation.
type AnnotationType int64

// Known annotation types.
const (
	AnnotationType_BOOL   AnnotationType = 0
	AnnotationType_BYTES  AnnotationType = 1
	AnnotationType_I16    AnnotationType = 2
	AnnotationType_I32    AnnotationType = 3
	AnnotationType_I64    AnnotationType = 4
	AnnotationType_DOUBLE AnnotationType = 5
	AnnotationType_STRING AnnotationType = 6
)

func (p AnnotationType) String() string {
	switch p {
	case AnnotationType_BOOL:
		return "BOOL"
	case AnnotationType_BYTES:
		return "BYTES"
	case AnnotationType_I16:
		return "I16"
	case AnnotationType_I32:
		return "I32"
	case AnnotationType_I64:
		return "I64"
	case AnnotationType_DOUBLE:
		return "DOUBLE"
	case AnnotationType_STRING:
		return "STRING"
	}
	return "<UNSET>"
}

// Endpoint indicates the network context of a service recording an
// annotation.
type Endpoint struct {
	// IPv4 host address packed into 4 bytes, big-endian.
	Ipv4 int32
	// IPv4 port, or 0 if unknown. Ports above 32767 are negative.
	Port        int16
	ServiceName string
	// Optional 16 byte IPv6 address.
	Ipv6 []byte
}

// NewEndpoint returns an empty Endpoint.
func NewEndpoint() *Endpoint {
	return &Endpoint{}
}

// GetServiceName returns the service name, or "" for a nil endpoint.
func (p *Endpoint) GetServiceName() string {
	if p == nil {
		return ""
	}
	return p.ServiceName
}

func (p *Endpoint) String() string {
	if p == nil {
		return "<nil>"
	}
	return fmt.Sprintf("Endpoint(%+v)", *p)
}

// Annotation associates an event that explains latency with a timestamp.
type Annotation struct {
	// Microseconds from epoch.
	Timestamp int64
	Value     string
	Host      *Endpoint
}

func (p *Annotation) String() string {
	if p == nil {
		return "<nil>"
	}
	return fmt.Sprintf("Annotation(%+v)", *p)
}

// BinaryAnnotation is a tag whose value is typed by AnnotationType.
type BinaryAnnotation struct {
	Key            string
	Value          []byte
	AnnotationType AnnotationType
	Host           *Endpoint
}

func (p *BinaryAnnotation) String() string {
	if p == nil {
		return "<nil>"
	}
	return fmt.Sprintf("BinaryAnnotation(%+v)", *p)
}

// Span is a Zipkin v1 span. Identifier fields carry the unsigned ids as
// their two's complement signed value.
type Span struct {
	TraceID           int64
	Name              string
	ID                int64
	ParentID          *int64
	Annotations       []*Annotation
	BinaryAnnotations []*BinaryAnnotation
	Debug             bool
	Timestamp         *int64
	Duration          *int64
	TraceIDHigh       *int64
}

func (p *Span) String() string {
	if p == nil {
		return "<nil>"
	}
	return fmt.Sprintf("Span(%+v)", *p)
}

// GetParentID returns the parent id, or 0 when it is absent.
func (p *Span) GetParentID() int64 {
	if p.ParentID == nil {
		return 0
	}
	return *p.ParentID
}

// GetTimestamp returns the timestamp, or 0 when it is absent.
func (p *Span) GetTimestamp() int64 {
	if p.Timestamp == nil {
		return 0
	}
	return *p.Timestamp
}

// GetDuration returns the duration, or 0 when it is absent.
func (p *Span) GetDuration() int64 {
	if p.Duration == nil {
		return 0
	}
	return *p.Duration
}

// GetTraceIDHigh returns the high 64 bits of the trace id, or 0 when absent.
func (p *Span) GetTraceIDHigh() int64 {
	if p.TraceIDHigh == nil {
		return 0
	}
	return *p.TraceIDHigh
}

// Int64Ptr returns a pointer to v, for the optional i64 fields.
func Int64Ptr(v int64) *int64 {
	return &v
}

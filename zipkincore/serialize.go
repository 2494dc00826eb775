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

package zipkincore

import (
	"context"
	"fmt"

	"github.com/apache/thrift/lib/go/thrift"
)

// Protocol selects the Thrift protocol used for span lists.
type Protocol int

// Supported protocols. ProtocolBinary is what Zipkin v1 collectors expect
// on HTTP and Kafka; the Jaeger agent speaks ProtocolCompact.
const (
	ProtocolBinary Protocol = iota
	ProtocolCompact
)

func (p Protocol) String() string {
	switch p {
	case ProtocolBinary:
		return "binary"
	case ProtocolCompact:
		return "compact"
	}
	return fmt.Sprintf("Protocol(%d)", int(p))
}

// NewProtocol wraps trans with the selected Thrift protocol.
func NewProtocol(p Protocol, trans thrift.TTransport) (thrift.TProtocol, error) {
	conf := &thrift.TConfiguration{}
	switch p {
	case ProtocolBinary:
		return thrift.NewTBinaryProtocolConf(trans, conf), nil
	case ProtocolCompact:
		return thrift.NewTCompactProtocolConf(trans, conf), nil
	}
	return nil, fmt.Errorf("unknown thrift protocol %d", int(p))
}

// SerializeSpans encodes spans as a Thrift list<Span>: a list header
// carrying the STRUCT element type and count followed by each span.
func SerializeSpans(ctx context.Context, p Protocol, spans []*Span) ([]byte, error) {
	buf := thrift.NewTMemoryBuffer()
	oprot, err := NewProtocol(p, buf)
	if err != nil {
		return nil, err
	}
	if err := oprot.WriteListBegin(ctx, thrift.STRUCT, len(spans)); err != nil {
		return nil, err
	}
	for _, s := range spans {
		if err := s.Write(ctx, oprot); err != nil {
			return nil, err
		}
	}
	if err := oprot.WriteListEnd(ctx); err != nil {
		return nil, err
	}
	if err := oprot.Flush(ctx); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DeserializeSpans decodes a payload produced by SerializeSpans.
func DeserializeSpans(ctx context.Context, p Protocol, payload []byte) ([]*Span, error) {
	buf := thrift.NewTMemoryBufferLen(len(payload))
	if _, err := buf.Write(payload); err != nil {
		return nil, err
	}
	iprot, err := NewProtocol(p, buf)
	if err != nil {
		return nil, err
	}
	elemType, size, err := iprot.ReadListBegin(ctx)
	if err != nil {
		return nil, err
	}
	if elemType != thrift.STRUCT {
		return nil, fmt.Errorf("unexpected list element type %s", elemType)
	}
	spans := make([]*Span, 0, size)
	for i := 0; i < size; i++ {
		s := &Span{}
		if err := s.Read(ctx, iprot); err != nil {
			return nil, err
		}
		spans = append(spans, s)
	}
	if err := iprot.ReadListEnd(ctx); err != nil {
		return nil, err
	}
	return spans, nil
}

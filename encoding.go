package zipkintracer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openzipkin-contrib/zipkin-thrift-opentracing/models"
	"github.com/openzipkin-contrib/zipkin-thrift-opentracing/zipkincore"
)

// Encoding is the payload format of a span batch.
type Encoding int

// Supported encodings.
const (
	// EncodingThrift is a Thrift binary list<Span>, the format Zipkin v1
	// collectors accept on HTTP and Kafka.
	EncodingThrift Encoding = iota
	// EncodingThriftCompact is a Thrift compact list<Span>.
	EncodingThriftCompact
	// EncodingJSON is the Zipkin v1 JSON span list.
	EncodingJSON
)

// ParseEncoding resolves the configuration name of an encoding.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(s) {
	case "", "thrift", "thrift-binary":
		return EncodingThrift, nil
	case "thrift-compact", "compact":
		return EncodingThriftCompact, nil
	case "json":
		return EncodingJSON, nil
	}
	return 0, fmt.Errorf("unknown encoding %q", s)
}

func (e Encoding) String() string {
	switch e {
	case EncodingThrift:
		return "thrift"
	case EncodingThriftCompact:
		return "thrift-compact"
	case EncodingJSON:
		return "json"
	}
	return fmt.Sprintf("Encoding(%d)", int(e))
}

// ContentType is the HTTP content type of payloads in this encoding.
func (e Encoding) ContentType() string {
	if e == EncodingJSON {
		return "application/json"
	}
	return "application/x-thrift"
}

// Serialize encodes spans as one payload.
func (e Encoding) Serialize(ctx context.Context, spans []*zipkincore.Span) ([]byte, error) {
	switch e {
	case EncodingThrift:
		return zipkincore.SerializeSpans(ctx, zipkincore.ProtocolBinary, spans)
	case EncodingThriftCompact:
		return zipkincore.SerializeSpans(ctx, zipkincore.ProtocolCompact, spans)
	case EncodingJSON:
		out := make([]*models.Span, 0, len(spans))
		for _, s := range spans {
			out = append(out, models.FromThrift(s))
		}
		return json.Marshal(out)
	}
	return nil, fmt.Errorf("unknown encoding %d", int(e))
}

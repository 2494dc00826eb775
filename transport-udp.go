package zipkintracer

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/apache/thrift/lib/go/thrift"
)

// Agent defaults.
const (
	DefaultUDPAgentHostPort = "localhost:5775"
	DefaultUDPMaxPacketSize = 65000
)

// UDPAgentTransport sends span batches to a Jaeger agent, wrapping each
// Thrift compact list<Span> in a oneway Agent.emitZipkinBatch call.
type UDPAgentTransport struct {
	conn          net.Conn
	maxPacketSize int
	mu            sync.Mutex
	seqID         int32
}

// UDPOption sets a parameter for the UDPAgentTransport
type UDPOption func(t *UDPAgentTransport)

// UDPMaxPacketSize sets the largest datagram the transport sends.
func UDPMaxPacketSize(n int) UDPOption {
	return func(t *UDPAgentTransport) { t.maxPacketSize = n }
}

// NewUDPAgentTransport connects to the agent at hostport, DefaultUDPAgentHostPort
// when empty.
func NewUDPAgentTransport(hostport string, options ...UDPOption) (*UDPAgentTransport, error) {
	if hostport == "" {
		hostport = DefaultUDPAgentHostPort
	}
	conn, err := net.Dial("udp", hostport)
	if err != nil {
		return nil, fmt.Errorf("udp transport: %w", err)
	}
	t := &UDPAgentTransport{
		conn:          conn,
		maxPacketSize: DefaultUDPMaxPacketSize,
	}
	for _, option := range options {
		option(t)
	}
	return t, nil
}

// Encoding implements EncodingTransport. The agent only reads the compact
// protocol.
func (t *UDPAgentTransport) Encoding() Encoding {
	return EncodingThriftCompact
}

// Send implements Transport. payload must be a compact encoded span list.
func (t *UDPAgentTransport) Send(ctx context.Context, payload []byte) error {
	t.mu.Lock()
	t.seqID++
	seqID := t.seqID
	t.mu.Unlock()

	packet, err := emitZipkinBatchMessage(ctx, seqID, payload)
	if err != nil {
		return err
	}
	if len(packet) > t.maxPacketSize {
		return fmt.Errorf("udp transport: packet of %d bytes exceeds max packet size %d", len(packet), t.maxPacketSize)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := t.conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
	}
	_, err = t.conn.Write(packet)
	return err
}

// Close implements Transport.
func (t *UDPAgentTransport) Close() error {
	return t.conn.Close()
}

// emitZipkinBatchMessage builds the oneway call around an already encoded
// list, which becomes field 1 of the emitZipkinBatch_args struct.
func emitZipkinBatchMessage(ctx context.Context, seqID int32, spanList []byte) ([]byte, error) {
	buf := thrift.NewTMemoryBufferLen(len(spanList) + 64)
	oprot := thrift.NewTCompactProtocolConf(buf, &thrift.TConfiguration{})
	if err := oprot.WriteMessageBegin(ctx, "emitZipkinBatch", thrift.ONEWAY, seqID); err != nil {
		return nil, err
	}
	if err := oprot.WriteStructBegin(ctx, "emitZipkinBatch_args"); err != nil {
		return nil, err
	}
	if err := oprot.WriteFieldBegin(ctx, "spans", thrift.LIST, 1); err != nil {
		return nil, err
	}
	if _, err := buf.Write(spanList); err != nil {
		return nil, err
	}
	if err := oprot.WriteFieldEnd(ctx); err != nil {
		return nil, err
	}
	if err := oprot.WriteFieldStop(ctx); err != nil {
		return nil, err
	}
	if err := oprot.WriteStructEnd(ctx); err != nil {
		return nil, err
	}
	if err := oprot.WriteMessageEnd(ctx); err != nil {
		return nil, err
	}
	if err := oprot.Flush(ctx); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

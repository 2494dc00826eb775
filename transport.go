package zipkintracer

import (
	"context"
)

// Transport delivers a serialized batch of spans out of process. Send is
// called from the single reporter goroutine; implementations do not need to
// be safe for concurrent Sends.
type Transport interface {
	// Send delivers one serialized batch. A returned error fails the whole
	// batch.
	Send(ctx context.Context, payload []byte) error
	// Close releases the transport. It is called once, after the last Send.
	Close() error
}

// EncodingTransport is implemented by transports bound to one payload
// encoding. The remote reporter uses it as its default encoding and
// rejects a conflicting WithEncoding.
type EncodingTransport interface {
	Transport
	Encoding() Encoding
}

// TransportFunc adapts a plain function into a Transport.
type TransportFunc func(ctx context.Context, payload []byte) error

// Send implements Transport.
func (f TransportFunc) Send(ctx context.Context, payload []byte) error {
	return f(ctx, payload)
}

// Close implements Transport.
func (f TransportFunc) Close() error {
	return nil
}

// Package wire holds a DelegatingCarrier whose state can be marshaled with
// the Thrift compact protocol, for embedding in Thrift RPC headers.
package wire

import (
	"context"
	"fmt"

	"github.com/apache/thrift/lib/go/thrift"
	"github.com/openzipkin/zipkin-go/model"
)

const (
	flagSampled int8 = 1
	flagDebug   int8 = 2
)

// Carrier is a DelegatingCarrier backed by a plain struct.
type Carrier struct {
	TraceID      model.TraceID
	SpanID       model.ID
	ParentSpanID model.ID
	Sampled      bool
	Debug        bool
	BaggageItems map[string]string
}

// SetState set's the tracer state.
func (c *Carrier) SetState(traceID model.TraceID, spanID, parentSpanID model.ID, sampled, debug bool) {
	c.TraceID = traceID
	c.SpanID = spanID
	c.ParentSpanID = parentSpanID
	c.Sampled = sampled
	c.Debug = debug
}

// State returns the tracer state.
func (c *Carrier) State() (traceID model.TraceID, spanID, parentSpanID model.ID, sampled, debug bool) {
	return c.TraceID, c.SpanID, c.ParentSpanID, c.Sampled, c.Debug
}

// SetBaggageItem sets a baggage item.
func (c *Carrier) SetBaggageItem(key, value string) {
	if c.BaggageItems == nil {
		c.BaggageItems = map[string]string{key: value}
		return
	}

	c.BaggageItems[key] = value
}

// GetBaggage iterates over each baggage item and executes the callback with
// the key:value pair.
func (c *Carrier) GetBaggage(f func(k, v string)) {
	for k, v := range c.BaggageItems {
		f(k, v)
	}
}

// Marshal encodes the carrier as a Thrift compact struct.
func (c *Carrier) Marshal(ctx context.Context) ([]byte, error) {
	buf := thrift.NewTMemoryBuffer()
	oprot := thrift.NewTCompactProtocolConf(buf, &thrift.TConfiguration{})
	if err := c.write(ctx, oprot); err != nil {
		return nil, err
	}
	if err := oprot.Flush(ctx); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal replaces the carrier state with the one encoded in b.
func (c *Carrier) Unmarshal(ctx context.Context, b []byte) error {
	buf := thrift.NewTMemoryBufferLen(len(b))
	if _, err := buf.Write(b); err != nil {
		return err
	}
	*c = Carrier{}
	return c.read(ctx, thrift.NewTCompactProtocolConf(buf, &thrift.TConfiguration{}))
}

func (c *Carrier) write(ctx context.Context, oprot thrift.TProtocol) error {
	if err := oprot.WriteStructBegin(ctx, "TracerState"); err != nil {
		return err
	}
	fields := []struct {
		name string
		id   int16
		v    int64
	}{
		{"trace_id_high", 1, int64(c.TraceID.High)},
		{"trace_id", 2, int64(c.TraceID.Low)},
		{"span_id", 3, int64(c.SpanID)},
		{"parent_span_id", 4, int64(c.ParentSpanID)},
	}
	for _, f := range fields {
		if err := oprot.WriteFieldBegin(ctx, f.name, thrift.I64, f.id); err != nil {
			return err
		}
		if err := oprot.WriteI64(ctx, f.v); err != nil {
			return err
		}
		if err := oprot.WriteFieldEnd(ctx); err != nil {
			return err
		}
	}

	var flags int8
	if c.Sampled {
		flags |= flagSampled
	}
	if c.Debug {
		flags |= flagDebug
	}
	if err := oprot.WriteFieldBegin(ctx, "flags", thrift.BYTE, 5); err != nil {
		return err
	}
	if err := oprot.WriteByte(ctx, flags); err != nil {
		return err
	}
	if err := oprot.WriteFieldEnd(ctx); err != nil {
		return err
	}

	if len(c.BaggageItems) > 0 {
		if err := oprot.WriteFieldBegin(ctx, "baggage", thrift.MAP, 6); err != nil {
			return err
		}
		if err := oprot.WriteMapBegin(ctx, thrift.STRING, thrift.STRING, len(c.BaggageItems)); err != nil {
			return err
		}
		for k, v := range c.BaggageItems {
			if err := oprot.WriteString(ctx, k); err != nil {
				return err
			}
			if err := oprot.WriteString(ctx, v); err != nil {
				return err
			}
		}
		if err := oprot.WriteMapEnd(ctx); err != nil {
			return err
		}
		if err := oprot.WriteFieldEnd(ctx); err != nil {
			return err
		}
	}

	if err := oprot.WriteFieldStop(ctx); err != nil {
		return err
	}
	return oprot.WriteStructEnd(ctx)
}

func (c *Carrier) read(ctx context.Context, iprot thrift.TProtocol) error {
	if _, err := iprot.ReadStructBegin(ctx); err != nil {
		return fmt.Errorf("read carrier: %w", err)
	}
	for {
		_, typ, id, err := iprot.ReadFieldBegin(ctx)
		if err != nil {
			return err
		}
		if typ == thrift.STOP {
			break
		}
		switch {
		case id >= 1 && id <= 4 && typ == thrift.I64:
			v, err := iprot.ReadI64(ctx)
			if err != nil {
				return err
			}
			switch id {
			case 1:
				c.TraceID.High = uint64(v)
			case 2:
				c.TraceID.Low = uint64(v)
			case 3:
				c.SpanID = model.ID(v)
			case 4:
				c.ParentSpanID = model.ID(v)
			}
		case id == 5 && typ == thrift.BYTE:
			flags, err := iprot.ReadByte(ctx)
			if err != nil {
				return err
			}
			c.Sampled = flags&flagSampled != 0
			c.Debug = flags&flagDebug != 0
		case id == 6 && typ == thrift.MAP:
			_, _, size, err := iprot.ReadMapBegin(ctx)
			if err != nil {
				return err
			}
			c.BaggageItems = make(map[string]string, size)
			for i := 0; i < size; i++ {
				k, err := iprot.ReadString(ctx)
				if err != nil {
					return err
				}
				v, err := iprot.ReadString(ctx)
				if err != nil {
					return err
				}
				c.BaggageItems[k] = v
			}
			if err := iprot.ReadMapEnd(ctx); err != nil {
				return err
			}
		default:
			if err := iprot.Skip(ctx, typ); err != nil {
				return err
			}
		}
		if err := iprot.ReadFieldEnd(ctx); err != nil {
			return err
		}
	}
	return iprot.ReadStructEnd(ctx)
}

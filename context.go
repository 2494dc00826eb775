package zipkintracer

import (
	"github.com/openzipkin/zipkin-go/model"
)

// Flags carries the sampling bits of a SpanContext.
type Flags byte

// Flag bits. These are the tracer's own bits, not the B3 header values.
const (
	FlagSampled Flags = 1
	FlagDebug   Flags = 2
)

// SpanContext holds the basic Span metadata.
type SpanContext struct {
	TraceID model.TraceID
	SpanID  model.ID
	// ParentID is zero for root spans.
	ParentID model.ID
	Flags    Flags
	Baggage  map[string]string
}

// ForeachBaggageItem belongs to the opentracing.SpanContext interface
func (c SpanContext) ForeachBaggageItem(handler func(k, v string) bool) {
	for k, v := range c.Baggage {
		if !handler(k, v) {
			break
		}
	}
}

// IsValid reports whether the context carries a trace and a span id.
func (c SpanContext) IsValid() bool {
	return !c.TraceID.Empty() && c.SpanID != 0
}

// IsSampled reports whether the sampled bit is set.
func (c SpanContext) IsSampled() bool {
	return c.Flags&FlagSampled == FlagSampled
}

// IsDebug reports whether the debug bit is set.
func (c SpanContext) IsDebug() bool {
	return c.Flags&FlagDebug == FlagDebug
}

// WithBaggageItem returns a copy of the context with one more baggage item.
func (c SpanContext) WithBaggageItem(key, value string) SpanContext {
	baggage := make(map[string]string, len(c.Baggage)+1)
	for k, v := range c.Baggage {
		baggage[k] = v
	}
	baggage[key] = value
	c.Baggage = baggage
	return c
}

// ModelContext converts the context into the zipkin-go model used by the
// B3 codec.
func (c SpanContext) ModelContext() model.SpanContext {
	sc := model.SpanContext{
		TraceID: c.TraceID,
		ID:      c.SpanID,
		Debug:   c.IsDebug(),
	}
	if c.ParentID != 0 {
		parentID := c.ParentID
		sc.ParentID = &parentID
	}
	if c.IsSampled() {
		sampled := true
		sc.Sampled = &sampled
	}
	return sc
}

// SpanContextFromModel is the inverse of ModelContext.
func SpanContextFromModel(sc model.SpanContext) SpanContext {
	c := SpanContext{
		TraceID: sc.TraceID,
		SpanID:  sc.ID,
	}
	if sc.ParentID != nil {
		c.ParentID = *sc.ParentID
	}
	if sc.Sampled != nil && *sc.Sampled {
		c.Flags |= FlagSampled
	}
	if sc.Debug {
		c.Flags |= FlagDebug
	}
	return c
}

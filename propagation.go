package zipkintracer

import (
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/openzipkin/zipkin-go/model"
)

type accessorPropagator struct {
	tracer *Tracer
}

// DelegatingCarrier is a flexible carrier interface which can be implemented
// by types which have a means of storing the trace metadata and already know
// how to serialize themselves (for example, thrift structs).
type DelegatingCarrier interface {
	SetState(traceID model.TraceID, spanID, parentSpanID model.ID, sampled, debug bool)
	State() (traceID model.TraceID, spanID, parentSpanID model.ID, sampled, debug bool)
	SetBaggageItem(key, value string)
	GetBaggage(func(key, value string))
}

func (p *accessorPropagator) Inject(spanContext opentracing.SpanContext, carrier interface{}) error {
	ac, ok := carrier.(DelegatingCarrier)
	if !ok || ac == nil {
		return opentracing.ErrInvalidCarrier
	}
	sc, ok := toContext(spanContext)
	if !ok {
		return opentracing.ErrInvalidSpanContext
	}
	ac.SetState(sc.TraceID, sc.SpanID, sc.ParentID, sc.IsSampled(), sc.IsDebug())
	for k, v := range sc.Baggage {
		ac.SetBaggageItem(k, v)
	}
	return nil
}

func (p *accessorPropagator) Extract(carrier interface{}) (opentracing.SpanContext, error) {
	ac, ok := carrier.(DelegatingCarrier)
	if !ok || ac == nil {
		return nil, opentracing.ErrInvalidCarrier
	}

	traceID, spanID, parentSpanID, sampled, debug := ac.State()
	sc := SpanContext{
		TraceID:  traceID,
		SpanID:   spanID,
		ParentID: parentSpanID,
	}
	if !sc.IsValid() {
		return nil, opentracing.ErrSpanContextNotFound
	}
	if sampled {
		sc.Flags |= FlagSampled
	}
	if debug {
		sc.Flags |= FlagDebug
	}
	ac.GetBaggage(func(k, v string) {
		if sc.Baggage == nil {
			sc.Baggage = map[string]string{}
		}
		sc.Baggage[k] = v
	})
	return sc, nil
}

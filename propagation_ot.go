package zipkintracer

import (
	"strings"

	opentracing "github.com/opentracing/opentracing-go"

	"github.com/openzipkin-contrib/zipkin-thrift-opentracing/propagation/b3"
)

const prefixBaggage = "ot-baggage-"

type textMapPropagator struct {
	tracer *Tracer
}

func (p *textMapPropagator) Inject(spanContext opentracing.SpanContext, opaqueCarrier interface{}) error {
	sc, ok := toContext(spanContext)
	if !ok {
		return opentracing.ErrInvalidSpanContext
	}
	carrier, ok := opaqueCarrier.(opentracing.TextMapWriter)
	if !ok {
		return opentracing.ErrInvalidCarrier
	}
	if err := b3.Inject(sc.ModelContext(), carrier); err != nil {
		return err
	}
	for k, v := range sc.Baggage {
		carrier.Set(prefixBaggage+k, v)
	}
	return nil
}

func (p *textMapPropagator) Extract(opaqueCarrier interface{}) (opentracing.SpanContext, error) {
	carrier, ok := opaqueCarrier.(opentracing.TextMapReader)
	if !ok {
		return nil, opentracing.ErrInvalidCarrier
	}
	msc, err := b3.Extract(carrier)
	if err != nil {
		return nil, err
	}
	sc := SpanContextFromModel(*msc)

	err = carrier.ForeachKey(func(k, v string) error {
		lowercaseK := strings.ToLower(k)
		if strings.HasPrefix(lowercaseK, prefixBaggage) {
			if sc.Baggage == nil {
				sc.Baggage = make(map[string]string)
			}
			sc.Baggage[strings.TrimPrefix(lowercaseK, prefixBaggage)] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sc, nil
}

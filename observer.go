package zipkintracer

import (
	otobserver "github.com/opentracing-contrib/go-observer"
	opentracing "github.com/opentracing/opentracing-go"
)

// observer is a dispatcher to every otobserver.Observer registered with
// WithObserver.
type observer struct {
	observers []otobserver.Observer
}

// spanObserver is a dispatcher to other span observers
type spanObserver struct {
	observers []otobserver.SpanObserver
}

// OnStartSpan collects the span observers of all registered observers. It
// reports false when none of them is interested in the span.
func (o observer) OnStartSpan(sp opentracing.Span, operationName string, options opentracing.StartSpanOptions) (otobserver.SpanObserver, bool) {
	var spanObservers []otobserver.SpanObserver
	for _, obs := range o.observers {
		spanObs, ok := obs.OnStartSpan(sp, operationName, options)
		if !ok || spanObs == nil {
			continue
		}
		if spanObservers == nil {
			spanObservers = make([]otobserver.SpanObserver, 0, len(o.observers))
		}
		spanObservers = append(spanObservers, spanObs)
	}
	if len(spanObservers) == 0 {
		return nil, false
	}
	if len(spanObservers) == 1 {
		return spanObservers[0], true
	}
	return spanObserver{observers: spanObservers}, true
}

func (o spanObserver) OnSetOperationName(operationName string) {
	for _, obs := range o.observers {
		obs.OnSetOperationName(operationName)
	}
}

func (o spanObserver) OnSetTag(key string, value interface{}) {
	for _, obs := range o.observers {
		obs.OnSetTag(key, value)
	}
}

func (o spanObserver) OnFinish(options opentracing.FinishOptions) {
	for _, obs := range o.observers {
		obs.OnFinish(options)
	}
}

package events

import (
	"golang.org/x/net/trace"

	zipkintracer "github.com/openzipkin-contrib/zipkin-thrift-opentracing"
)

// NetTraceIntegrator can be passed into a zipkintracer as
// WithSpanEventListener and causes all traces to be registered with the
// net/trace endpoint.
var NetTraceIntegrator = func() func(zipkintracer.SpanEvent) {
	var tr trace.Trace
	return func(e zipkintracer.SpanEvent) {
		switch t := e.(type) {
		case zipkintracer.EventCreate:
			tr = trace.New("tracing", t.OperationName)
		case zipkintracer.EventFinish:
			if tr == nil {
				return
			}
			if !t.Context.IsSampled() {
				tr.LazyPrintf("not sampled")
			}
			tr.Finish()
		case zipkintracer.EventTag:
			if tr != nil {
				tr.LazyPrintf("%s:%v", t.Key, t.Value)
			}
		case zipkintracer.EventLog:
			if tr == nil {
				return
			}
			if t.Payload != nil {
				tr.LazyPrintf("%s (payload %v)", t.Event, t.Payload)
			} else {
				tr.LazyPrintf("%s", t.Event)
			}
		}
	}
}

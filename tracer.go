package zipkintracer

import (
	"errors"
	"time"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/openzipkin/zipkin-go/idgenerator"
	"github.com/openzipkin/zipkin-go/model"

	"github.com/openzipkin-contrib/zipkin-thrift-opentracing/zipkincore"
)

// Tracer construction errors.
var (
	ErrNoReporter    = errors.New("tracer requires a reporter")
	ErrNoServiceName = errors.New("tracer requires a service name")
)

// Tracer implements opentracing.Tracer and hands finished sampled spans to
// its Reporter.
type Tracer struct {
	serviceName   string
	reporter      Reporter
	sampler       Sampler
	localEndpoint *zipkincore.Endpoint
	idGen         idgenerator.IDGenerator
	options       TracerOptions
	observer      observer
	logger        Logger

	textPropagator     *textMapPropagator
	accessorPropagator *accessorPropagator
}

// NewTracer creates a Tracer reporting to reporter. A service name is
// required, see WithServiceName.
func NewTracer(reporter Reporter, opts ...TracerOption) (*Tracer, error) {
	var o TracerOptions
	for _, opt := range opts {
		opt(&o)
	}
	if reporter == nil {
		return nil, ErrNoReporter
	}
	if o.serviceName == "" {
		return nil, ErrNoServiceName
	}
	if o.sampler == nil {
		o.sampler = NewConstSampler(true)
	}
	if o.logger == nil {
		o.logger = NewNopLogger()
	}

	t := &Tracer{
		serviceName: o.serviceName,
		reporter:    reporter,
		sampler:     o.sampler,
		options:     o,
		observer:    observer{observers: o.observers},
		logger:      o.logger,
	}
	if o.traceID128Bit {
		t.idGen = idgenerator.NewRandom128()
	} else {
		t.idGen = idgenerator.NewRandom64()
	}

	if o.localHostPort != "" {
		t.localEndpoint = ResolveHostPort(o.localHostPort, o.serviceName)
		if t.localEndpoint == nil {
			_ = t.logger.Log("msg", "unable to resolve local host port", "hostport", o.localHostPort)
		}
	}
	if t.localEndpoint == nil {
		ip := o.localIP
		if ip == "" {
			ip = localIPv4()
		}
		t.localEndpoint = MakeEndpoint(ip, o.localPort, o.serviceName)
	}

	t.textPropagator = &textMapPropagator{tracer: t}
	t.accessorPropagator = &accessorPropagator{tracer: t}
	return t, nil
}

// ServiceName returns the local service name.
func (t *Tracer) ServiceName() string { return t.serviceName }

// LocalEndpoint returns the endpoint recorded on every annotation.
func (t *Tracer) LocalEndpoint() *zipkincore.Endpoint { return t.localEndpoint }

// StartSpan belongs to the opentracing.Tracer interface
func (t *Tracer) StartSpan(operationName string, opts ...opentracing.StartSpanOption) opentracing.Span {
	var sso opentracing.StartSpanOptions
	for _, o := range opts {
		o.Apply(&sso)
	}
	return t.startSpanWithOptions(operationName, sso)
}

func (t *Tracer) startSpanWithOptions(operationName string, opts opentracing.StartSpanOptions) opentracing.Span {
	startTime := opts.StartTime
	if startTime.IsZero() {
		startTime = time.Now()
	}

	sp := &Span{
		tracer:        t,
		operationName: operationName,
		startTime:     startTime,
	}

	rpcServer := toSpanKind(opts.Tags[string(ext.SpanKind)]) == ext.SpanKindRPCServerEnum
	parent, hasParent := parentContext(opts.References)

	var samplerTags []Tag
	if hasParent {
		sp.context.TraceID = parent.TraceID
		sp.context.Flags = parent.Flags
		if len(parent.Baggage) > 0 {
			sp.context.Baggage = make(map[string]string, len(parent.Baggage))
			for k, v := range parent.Baggage {
				sp.context.Baggage[k] = v
			}
		}
		if t.options.sharedSpans && rpcServer {
			sp.context.SpanID = parent.SpanID
			sp.context.ParentID = parent.ParentID
		} else {
			sp.context.SpanID = t.idGen.SpanID(model.TraceID{})
			sp.context.ParentID = parent.SpanID
		}
	} else {
		sp.context.TraceID = t.idGen.TraceID()
		sp.context.SpanID = t.idGen.SpanID(sp.context.TraceID)
		var sampled bool
		sampled, samplerTags = t.sampler.IsSampled(sp.context.TraceID, operationName)
		if sampled {
			sp.context.Flags |= FlagSampled
		}
	}

	if newEvent := t.options.newSpanEventFn; newEvent != nil {
		sp.event = newEvent()
	}
	sp.onCreate(operationName)

	sp.Lock()
	if sp.context.IsSampled() {
		for _, tag := range samplerTags {
			sp.setTagLocked(tag.Key, tag.Value)
		}
		if !hasParent || rpcServer {
			for _, tag := range t.options.tags {
				sp.setTagLocked(tag.Key, tag.Value)
			}
		}
	}
	for k, v := range opts.Tags {
		sp.setTagLocked(k, v)
	}
	sp.Unlock()

	if obs, ok := t.observer.OnStartSpan(sp, operationName, opts); ok {
		sp.observer = obs
	}
	return sp
}

// parentContext returns the first valid referenced context.
func parentContext(refs []opentracing.SpanReference) (SpanContext, bool) {
	for _, ref := range refs {
		switch sc := ref.ReferencedContext.(type) {
		case SpanContext:
			if sc.IsValid() {
				return sc, true
			}
		case *SpanContext:
			if sc != nil && sc.IsValid() {
				return *sc, true
			}
		}
	}
	return SpanContext{}, false
}

type delegatorType struct{}

// Delegator is the format to use for DelegatingCarrier.
var Delegator delegatorType

// Inject belongs to the opentracing.Tracer interface
func (t *Tracer) Inject(sc opentracing.SpanContext, format interface{}, carrier interface{}) error {
	switch format {
	case opentracing.TextMap, opentracing.HTTPHeaders:
		return t.textPropagator.Inject(sc, carrier)
	}
	if _, ok := format.(delegatorType); ok {
		return t.accessorPropagator.Inject(sc, carrier)
	}
	return opentracing.ErrUnsupportedFormat
}

// Extract belongs to the opentracing.Tracer interface
func (t *Tracer) Extract(format interface{}, carrier interface{}) (opentracing.SpanContext, error) {
	switch format {
	case opentracing.TextMap, opentracing.HTTPHeaders:
		return t.textPropagator.Extract(carrier)
	}
	if _, ok := format.(delegatorType); ok {
		return t.accessorPropagator.Extract(carrier)
	}
	return nil, opentracing.ErrUnsupportedFormat
}

// Close closes the sampler and the reporter, which flushes pending spans.
func (t *Tracer) Close() error {
	t.sampler.Close()
	return t.reporter.Close()
}

func toContext(sc opentracing.SpanContext) (SpanContext, bool) {
	switch c := sc.(type) {
	case SpanContext:
		return c, true
	case *SpanContext:
		if c != nil {
			return *c, true
		}
	}
	return SpanContext{}, false
}

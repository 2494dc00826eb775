package zipkintracer

import (
	otobserver "github.com/opentracing-contrib/go-observer"
)

// TracerOptions allows creating a customized Tracer.
type TracerOptions struct {
	serviceName    string
	sampler        Sampler
	sharedSpans    bool
	traceID128Bit  bool
	localIP        string
	localPort      interface{}
	localHostPort  string
	tags           []Tag
	observers      []otobserver.Observer
	newSpanEventFn func() func(SpanEvent)
	logger         Logger
}

// TracerOption allows for functional options.
// See: http://dave.cheney.net/2014/10/17/functional-options-for-friendly-apis
type TracerOption func(opts *TracerOptions)

// WithServiceName sets the name of the local service. It is required.
func WithServiceName(name string) TracerOption {
	return func(opts *TracerOptions) {
		opts.serviceName = name
	}
}

// WithSampler sets the sampler deciding on new traces. Defaults to
// sampling everything.
func WithSampler(sampler Sampler) TracerOption {
	return func(opts *TracerOptions) {
		opts.sampler = sampler
	}
}

// WithSharedSpans enables the Zipkin one-span-per-RPC model: a server span
// started from a remote client context reuses the client's span id and
// parent id instead of becoming its child.
func WithSharedSpans(val bool) TracerOption {
	return func(opts *TracerOptions) {
		opts.sharedSpans = val
	}
}

// WithTraceID128Bit makes root spans start 128 bit traces.
func WithTraceID128Bit(val bool) TracerOption {
	return func(opts *TracerOptions) {
		opts.traceID128Bit = val
	}
}

// WithLocalIP sets the IPv4 address of the local endpoint, by default the
// first non loopback address of the host.
func WithLocalIP(ip string) TracerOption {
	return func(opts *TracerOptions) {
		opts.localIP = ip
	}
}

// WithLocalPort sets the port of the local endpoint.
func WithLocalPort(port interface{}) TracerOption {
	return func(opts *TracerOptions) {
		opts.localPort = port
	}
}

// WithLocalHostPort resolves hostport into the local endpoint. Unresolvable
// input is ignored.
func WithLocalHostPort(hostport string) TracerOption {
	return func(opts *TracerOptions) {
		opts.localHostPort = hostport
	}
}

// WithTags adds tags to every sampled span that starts a trace in this
// process.
func WithTags(tags map[string]interface{}) TracerOption {
	return func(opts *TracerOptions) {
		for k, v := range tags {
			opts.tags = append(opts.tags, Tag{Key: k, Value: v})
		}
	}
}

// WithObserver registers an observer. It can be given more than once.
func WithObserver(observer otobserver.Observer) TracerOption {
	return func(opts *TracerOptions) {
		opts.observers = append(opts.observers, observer)
	}
}

// WithSpanEventListener sets a factory called once per span whose result
// receives the span's SpanEvents.
func WithSpanEventListener(fn func() func(SpanEvent)) TracerOption {
	return func(opts *TracerOptions) {
		opts.newSpanEventFn = fn
	}
}

// WithLogger sets the logger of the tracer.
func WithLogger(logger Logger) TracerOption {
	return func(opts *TracerOptions) {
		opts.logger = logger
	}
}

package zipkintracer

import (
	"time"

	"github.com/openzipkin-contrib/zipkin-thrift-opentracing/metrics"
	"github.com/openzipkin-contrib/zipkin-thrift-opentracing/zipkincore"
)

// Reporter defaults.
const (
	DefaultQueueCapacity    = 100
	DefaultBatchSize        = 10
	DefaultFlushInterval    = time.Second
	DefaultErrorLogInterval = 5 * time.Second
)

type reporterOptions struct {
	queueCapacity    int
	batchSize        int
	flushInterval    time.Duration
	sendTimeout      time.Duration
	encoding         *Encoding
	metrics          metrics.Factory
	logger           Logger
	errorLogInterval time.Duration
	endpoint         *zipkincore.Endpoint
}

// ReporterOption allows for functional options.
// See: http://dave.cheney.net/2014/10/17/functional-options-for-friendly-apis
type ReporterOption func(opts *reporterOptions)

// QueueCapacity sets how many finished spans are held in memory before
// new ones are dropped.
func QueueCapacity(n int) ReporterOption {
	return func(opts *reporterOptions) { opts.queueCapacity = n }
}

// BatchSize sets the maximum number of spans sent in one payload.
func BatchSize(n int) ReporterOption {
	return func(opts *reporterOptions) { opts.batchSize = n }
}

// FlushInterval sets how long a partial batch waits, counted from its first
// span, before it is sent anyway. Zero disables time based flushing.
func FlushInterval(d time.Duration) ReporterOption {
	return func(opts *reporterOptions) { opts.flushInterval = d }
}

// SendTimeout bounds every Transport.Send call. Zero means no deadline.
func SendTimeout(d time.Duration) ReporterOption {
	return func(opts *reporterOptions) { opts.sendTimeout = d }
}

// WithEncoding sets the payload encoding. It defaults to the transport's
// encoding, or Thrift binary.
func WithEncoding(e Encoding) ReporterOption {
	return func(opts *reporterOptions) { opts.encoding = &e }
}

// WithMetrics sets the factory for the reporter.success, reporter.failure
// and reporter.dropped counters.
func WithMetrics(f metrics.Factory) ReporterOption {
	return func(opts *reporterOptions) { opts.metrics = f }
}

// ReporterLogger sets the logger receiving submit errors.
func ReporterLogger(logger Logger) ReporterOption {
	return func(opts *reporterOptions) { opts.logger = logger }
}

// ErrorLogInterval sets how often an identical submit error is logged.
func ErrorLogInterval(d time.Duration) ReporterOption {
	return func(opts *reporterOptions) { opts.errorLogInterval = d }
}

// ReporterEndpoint sets the endpoint used for spans that do not come from a
// Tracer.
func ReporterEndpoint(e *zipkincore.Endpoint) ReporterOption {
	return func(opts *reporterOptions) { opts.endpoint = e }
}

package zipkintracer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/openzipkin-contrib/zipkin-thrift-opentracing/metrics"
	"github.com/openzipkin-contrib/zipkin-thrift-opentracing/zipkincore"
)

// Reporter receives finished, sampled spans from the Tracer.
type Reporter interface {
	// Report hands over a finished span. It must not block.
	Report(span *Span)
	// Close flushes whatever the reporter buffers and releases it.
	Close() error
}

// Reporter configuration errors.
var (
	ErrNoTransport      = errors.New("reporter requires a transport")
	ErrInvalidQueueSize = errors.New("queue capacity cannot be less than batch size")
	ErrInvalidBatchSize = errors.New("batch size must be positive")
	ErrInvalidFlush     = errors.New("flush interval must not be negative")
	ErrEncodingMismatch = errors.New("encoding does not match the transport")
	errTransportPanic   = errors.New("transport panicked")
)

// ReporterState is the lifecycle state of a RemoteReporter.
type ReporterState int32

// Reporter states.
const (
	ReporterRunning ReporterState = iota
	ReporterDraining
	ReporterStopped
)

func (s ReporterState) String() string {
	switch s {
	case ReporterRunning:
		return "running"
	case ReporterDraining:
		return "draining"
	case ReporterStopped:
		return "stopped"
	}
	return fmt.Sprintf("ReporterState(%d)", int32(s))
}

// ReporterMetrics holds the counters updated by the remote reporter, each
// incremented by a number of spans.
type ReporterMetrics struct {
	Success metrics.Counter
	Failure metrics.Counter
	Dropped metrics.Counter
}

// NewReporterMetrics creates the reporter counters from f.
func NewReporterMetrics(f metrics.Factory) *ReporterMetrics {
	if f == nil {
		f = metrics.NullFactory
	}
	return &ReporterMetrics{
		Success: f.Counter("reporter.success", nil),
		Failure: f.Counter("reporter.failure", nil),
		Dropped: f.Counter("reporter.dropped", nil),
	}
}

// RemoteReporter batches finished spans on a bounded queue and submits them
// from a single goroutine to a Transport. Report never blocks: spans that do
// not fit, or arrive after Close, are counted as dropped.
type RemoteReporter struct {
	transport     Transport
	encoding      Encoding
	batchSize     int
	flushInterval time.Duration
	sendTimeout   time.Duration
	endpoint      *zipkincore.Endpoint
	metrics       *ReporterMetrics
	errLog        *StateLogger
	logger        Logger

	queue *spanQueue
	state atomic.Int32

	// closeMu makes the closed check and the enqueue in Report atomic with
	// respect to Close, so nothing is queued behind the stop sentinel.
	closeMu  sync.RWMutex
	closed   bool
	done     chan struct{}
	once     sync.Once
	closeErr error
}

// NewRemoteReporter validates the configuration and starts the consumer
// goroutine.
func NewRemoteReporter(transport Transport, opts ...ReporterOption) (*RemoteReporter, error) {
	o := reporterOptions{
		queueCapacity:    DefaultQueueCapacity,
		batchSize:        DefaultBatchSize,
		flushInterval:    DefaultFlushInterval,
		metrics:          metrics.NullFactory,
		logger:           NewNopLogger(),
		errorLogInterval: DefaultErrorLogInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}

	var err error
	if transport == nil {
		err = multierr.Append(err, ErrNoTransport)
	}
	if o.batchSize <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w, got %d", ErrInvalidBatchSize, o.batchSize))
	}
	if o.queueCapacity < o.batchSize || o.queueCapacity <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: capacity %d, batch size %d", ErrInvalidQueueSize, o.queueCapacity, o.batchSize))
	}
	if o.flushInterval < 0 {
		err = multierr.Append(err, fmt.Errorf("%w, got %s", ErrInvalidFlush, o.flushInterval))
	}
	encoding := EncodingThrift
	if et, ok := transport.(EncodingTransport); ok {
		encoding = et.Encoding()
		if o.encoding != nil && *o.encoding != encoding {
			err = multierr.Append(err, fmt.Errorf("%w: transport wants %s, got %s", ErrEncodingMismatch, encoding, *o.encoding))
		}
	} else if o.encoding != nil {
		encoding = *o.encoding
	}
	if err != nil {
		return nil, err
	}

	if o.logger == nil {
		o.logger = NewNopLogger()
	}
	if o.endpoint == nil {
		o.endpoint = MakeEndpoint(localIPv4(), 0, "")
	}

	r := &RemoteReporter{
		transport:     transport,
		encoding:      encoding,
		batchSize:     o.batchSize,
		flushInterval: o.flushInterval,
		sendTimeout:   o.sendTimeout,
		endpoint:      o.endpoint,
		metrics:       NewReporterMetrics(o.metrics),
		errLog:        NewStateLogger(o.logger, o.errorLogInterval),
		logger:        o.logger,
		queue:         newSpanQueue(o.queueCapacity),
		done:          make(chan struct{}),
	}
	r.state.Store(int32(ReporterRunning))
	go r.consume()
	return r, nil
}

// Report implements Reporter.
func (r *RemoteReporter) Report(sp *Span) {
	r.closeMu.RLock()
	defer r.closeMu.RUnlock()
	if r.closed || !r.queue.offer(sp) {
		r.metrics.Dropped.Inc(1)
	}
}

// Close stops accepting spans, waits until every queued span has been
// submitted and closes the transport. Later calls return the first result.
func (r *RemoteReporter) Close() error {
	r.once.Do(func() {
		r.closeMu.Lock()
		r.closed = true
		r.state.Store(int32(ReporterDraining))
		r.closeMu.Unlock()

		r.queue.stop()
		<-r.done
		r.closeErr = r.transport.Close()
	})
	return r.closeErr
}

// State returns the lifecycle state. It is ReporterDraining from the moment
// Close is called until the last batch has been submitted.
func (r *RemoteReporter) State() ReporterState {
	return ReporterState(r.state.Load())
}

// Encoding returns the payload encoding in use.
func (r *RemoteReporter) Encoding() Encoding {
	return r.encoding
}

func (r *RemoteReporter) consume() {
	defer close(r.done)

	var (
		batch   = make([]*Span, 0, r.batchSize)
		timer   *time.Timer
		timeout <-chan time.Time
	)
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer, timeout = nil, nil
		}
	}

	for {
		item, ok := r.queue.next(timeout)
		if !ok {
			timer, timeout = nil, nil
			r.submit(batch)
			batch = make([]*Span, 0, r.batchSize)
			continue
		}
		if item.stop {
			stopTimer()
			r.state.Store(int32(ReporterDraining))
			if len(batch) > 0 {
				r.submit(batch)
			}
			r.state.Store(int32(ReporterStopped))
			_ = r.logger.Log("msg", "span reporter stopped")
			return
		}

		batch = append(batch, item.span)
		if len(batch) == 1 && r.flushInterval > 0 {
			timer = time.NewTimer(r.flushInterval)
			timeout = timer.C
		}
		if len(batch) >= r.batchSize {
			stopTimer()
			r.submit(batch)
			batch = make([]*Span, 0, r.batchSize)
		}
	}
}

// submit sends one batch. Failures are counted and logged, never returned.
func (r *RemoteReporter) submit(spans []*Span) {
	n := int64(len(spans))
	if err := r.send(spans); err != nil {
		r.metrics.Failure.Inc(n)
		r.errLog.LogError(err, "msg", "failed to submit spans", "spans", len(spans))
		return
	}
	r.metrics.Success.Inc(n)
	r.errLog.Fixed("msg", "span submission recovered")
}

func (r *RemoteReporter) send(spans []*Span) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", errTransportPanic, p)
		}
	}()

	ctx := context.Background()
	if r.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.sendTimeout)
		defer cancel()
	}

	payload, err := r.encoding.Serialize(ctx, EncodeSpans(spans, r.endpoint))
	if err != nil {
		return fmt.Errorf("serializing %d spans as %s: %w", len(spans), r.encoding, err)
	}
	return r.transport.Send(ctx, payload)
}

// NullReporter discards every span.
type NullReporter struct{}

// NewNullReporter creates a NullReporter.
func NewNullReporter() *NullReporter { return &NullReporter{} }

// Report implements Reporter.
func (NullReporter) Report(*Span) {}

// Close implements Reporter.
func (NullReporter) Close() error { return nil }

// InMemoryReporter keeps every reported span in memory.
type InMemoryReporter struct {
	mu    sync.Mutex
	spans []*Span
}

// NewInMemoryReporter creates an InMemoryReporter.
func NewInMemoryReporter() *InMemoryReporter {
	return &InMemoryReporter{}
}

// Report implements Reporter.
func (r *InMemoryReporter) Report(sp *Span) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spans = append(r.spans, sp)
}

// Close implements Reporter.
func (r *InMemoryReporter) Close() error { return nil }

// GetSpans returns a copy of the reported spans.
func (r *InMemoryReporter) GetSpans() []*Span {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Span(nil), r.spans...)
}

// Len returns the number of reported spans.
func (r *InMemoryReporter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.spans)
}

// Reset forgets all reported spans.
func (r *InMemoryReporter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spans = nil
}

// LoggingReporter logs a line for every reported span.
type LoggingReporter struct {
	logger Logger
}

// NewLoggingReporter creates a LoggingReporter.
func NewLoggingReporter(logger Logger) *LoggingReporter {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &LoggingReporter{logger: logger}
}

// Report implements Reporter.
func (r *LoggingReporter) Report(sp *Span) {
	_ = r.logger.Log("msg", "reporting span", "span", sp.String(), "operation", sp.OperationName())
}

// Close implements Reporter.
func (r *LoggingReporter) Close() error { return nil }

// CompositeReporter fans spans out to several reporters.
type CompositeReporter struct {
	reporters []Reporter
}

// NewCompositeReporter creates a CompositeReporter.
func NewCompositeReporter(reporters ...Reporter) *CompositeReporter {
	return &CompositeReporter{reporters: reporters}
}

// Report implements Reporter.
func (r *CompositeReporter) Report(sp *Span) {
	for _, rep := range r.reporters {
		rep.Report(sp)
	}
}

// Close closes every reporter and combines their errors.
func (r *CompositeReporter) Close() error {
	var err error
	for _, rep := range r.reporters {
		err = multierr.Append(err, rep.Close())
	}
	return err
}

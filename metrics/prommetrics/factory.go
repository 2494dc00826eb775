// Package prommetrics exposes reporter counters as Prometheus metrics.
package prommetrics

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/openzipkin-contrib/zipkin-thrift-opentracing/metrics"
)

// Factory implements metrics.Factory on top of a Prometheus registerer.
type Factory struct {
	registerer prometheus.Registerer
	namespace  string

	mu    sync.Mutex
	cache map[string]*prometheus.CounterVec
}

// Option configures a Factory.
type Option func(f *Factory)

// WithRegisterer sets the registerer, prometheus.DefaultRegisterer by
// default.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(f *Factory) { f.registerer = r }
}

// WithNamespace prefixes every metric name.
func WithNamespace(ns string) Option {
	return func(f *Factory) { f.namespace = ns }
}

// New creates a Factory.
func New(opts ...Option) *Factory {
	f := &Factory{
		registerer: prometheus.DefaultRegisterer,
		cache:      make(map[string]*prometheus.CounterVec),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

var _ metrics.Factory = (*Factory)(nil)

// Counter implements metrics.Factory. A name like "reporter.success"
// becomes <namespace>_reporter_success_total with the tag keys as labels.
func (f *Factory) Counter(name string, tags map[string]string) metrics.Counter {
	labelNames := make([]string, 0, len(tags))
	for k := range tags {
		labelNames = append(labelNames, sanitize(k))
	}
	sort.Strings(labelNames)
	labels := make(prometheus.Labels, len(tags))
	for k, v := range tags {
		labels[sanitize(k)] = v
	}

	fullName := f.metricName(name)
	cv := f.counterVec(fullName, labelNames)
	return counter{cv.With(labels)}
}

func (f *Factory) counterVec(name string, labelNames []string) *prometheus.CounterVec {
	key := name + "|" + strings.Join(labelNames, ",")

	f.mu.Lock()
	defer f.mu.Unlock()
	if cv, ok := f.cache[key]; ok {
		return cv
	}
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: name,
		Help: name,
	}, labelNames)
	if err := f.registerer.Register(cv); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				cv = existing
			}
		}
	}
	f.cache[key] = cv
	return cv
}

func (f *Factory) metricName(name string) string {
	if f.namespace != "" {
		name = f.namespace + "_" + name
	}
	name = sanitize(name)
	if !strings.HasSuffix(name, "_total") {
		name += "_total"
	}
	return name
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == ':':
			return r
		}
		return '_'
	}, name)
}

type counter struct {
	c prometheus.Counter
}

func (c counter) Inc(delta int64) {
	c.c.Add(float64(delta))
}

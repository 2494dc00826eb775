// Package config builds a tracer and its reporting pipeline from a YAML
// document and ZIPKIN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Shopify/sarama"
	"github.com/kelseyhightower/envconfig"
	"github.com/openzipkin/zipkin-go"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	zipkintracer "github.com/openzipkin-contrib/zipkin-thrift-opentracing"
	"github.com/openzipkin-contrib/zipkin-thrift-opentracing/metrics"
)

// EnvPrefix prefixes every environment variable read by FromEnv.
const EnvPrefix = "ZIPKIN"

// Sampler types.
const (
	SamplerConst         = "const"
	SamplerProbabilistic = "probabilistic"
	SamplerRateLimiting  = "ratelimiting"
	SamplerBoundary      = "boundary"
	SamplerCounting      = "counting"
)

// Transport types.
const (
	TransportHTTP  = "http"
	TransportKafka = "kafka"
	TransportUDP   = "udp"
)

// Config holds the tracer configuration.
type Config struct {
	ServiceName   string            `yaml:"service_name" envconfig:"SERVICE_NAME"`
	Disabled      bool              `yaml:"disabled" envconfig:"DISABLED"`
	LocalHostPort string            `yaml:"local_hostport" envconfig:"LOCAL_HOSTPORT"`
	SharedSpans   bool              `yaml:"shared_spans" envconfig:"SHARED_SPANS"`
	TraceID128Bit bool              `yaml:"trace_id_128bit" envconfig:"TRACE_ID_128BIT"`
	Tags          map[string]string `yaml:"tags" envconfig:"TAGS"`

	Sampler   SamplerConfig   `yaml:"sampler" envconfig:"SAMPLER"`
	Reporter  ReporterConfig  `yaml:"reporter" envconfig:"REPORTER"`
	Transport TransportConfig `yaml:"transport" envconfig:"TRANSPORT"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
}

// SamplerConfig selects the sampler for new traces.
type SamplerConfig struct {
	Type  string  `yaml:"type" envconfig:"TYPE"`
	Param float64 `yaml:"param" envconfig:"PARAM"`
	// Salt is only used by the boundary sampler.
	Salt int64 `yaml:"salt" envconfig:"SALT"`
}

// ReporterConfig tunes the remote reporter.
type ReporterConfig struct {
	QueueCapacity int           `yaml:"queue_capacity" envconfig:"QUEUE_CAPACITY"`
	BatchSize     int           `yaml:"batch_size" envconfig:"BATCH_SIZE"`
	FlushInterval time.Duration `yaml:"flush_interval" envconfig:"FLUSH_INTERVAL"`
	SendTimeout   time.Duration `yaml:"send_timeout" envconfig:"SEND_TIMEOUT"`
}

// TransportConfig selects where span batches go. An empty Type disables
// reporting.
type TransportConfig struct {
	Type     string `yaml:"type" envconfig:"TYPE"`
	Encoding string `yaml:"encoding" envconfig:"ENCODING"`

	URL  string `yaml:"url" envconfig:"URL"`
	Gzip bool   `yaml:"gzip" envconfig:"GZIP"`

	Brokers     []string `yaml:"brokers" envconfig:"BROKERS"`
	Topic       string   `yaml:"topic" envconfig:"TOPIC"`
	Compression string   `yaml:"compression" envconfig:"COMPRESSION"`

	HostPort      string `yaml:"hostport" envconfig:"HOSTPORT"`
	MaxPacketSize int    `yaml:"max_packet_size" envconfig:"MAX_PACKET_SIZE"`
}

// LoggingConfig controls logging of the reporting pipeline.
type LoggingConfig struct {
	// Spans logs every reported span in addition to sending it.
	Spans bool `yaml:"spans" envconfig:"SPANS"`
}

// Default returns the configuration used for anything not set explicitly.
func Default() *Config {
	return &Config{
		Sampler: SamplerConfig{
			Type:  SamplerConst,
			Param: 1,
		},
		Reporter: ReporterConfig{
			QueueCapacity: zipkintracer.DefaultQueueCapacity,
			BatchSize:     zipkintracer.DefaultBatchSize,
			FlushInterval: zipkintracer.DefaultFlushInterval,
		},
	}
}

// Parse reads a YAML document on top of Default.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Load reads the YAML file at path, if any, and applies environment
// overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if cfg, err = Parse(data); err != nil {
			return nil, err
		}
	}
	if err := cfg.FromEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv overrides fields from ZIPKIN_* environment variables, for example
// ZIPKIN_SERVICE_NAME or ZIPKIN_SAMPLER_PARAM.
func (c *Config) FromEnv() error {
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return fmt.Errorf("failed to load config from environment: %w", err)
	}
	return nil
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var err error
	if c.ServiceName == "" {
		err = multierr.Append(err, errors.New("service_name is required"))
	}
	switch c.Sampler.Type {
	case SamplerConst, SamplerProbabilistic, SamplerRateLimiting, SamplerBoundary, SamplerCounting:
	default:
		err = multierr.Append(err, fmt.Errorf("unknown sampler type %q", c.Sampler.Type))
	}
	switch c.Transport.Type {
	case "", TransportHTTP, TransportKafka, TransportUDP:
	default:
		err = multierr.Append(err, fmt.Errorf("unknown transport type %q", c.Transport.Type))
	}
	if _, e := zipkintracer.ParseEncoding(c.Transport.Encoding); e != nil {
		err = multierr.Append(err, e)
	}
	return err
}

// NewSampler creates the configured sampler.
func (c *Config) NewSampler() (zipkintracer.Sampler, error) {
	param := c.Sampler.Param
	switch c.Sampler.Type {
	case SamplerConst:
		return zipkintracer.NewConstSampler(param != 0), nil
	case SamplerProbabilistic:
		return zipkintracer.NewProbabilisticSampler(param)
	case SamplerRateLimiting:
		return zipkintracer.NewRateLimitingSampler(param)
	case SamplerBoundary:
		s, err := zipkin.NewBoundarySampler(param, c.Sampler.Salt)
		if err != nil {
			return nil, err
		}
		return zipkintracer.NewZipkinSampler(s, SamplerBoundary, param), nil
	case SamplerCounting:
		s, err := zipkin.NewCountingSampler(param)
		if err != nil {
			return nil, err
		}
		return zipkintracer.NewZipkinSampler(s, SamplerCounting, param), nil
	}
	return nil, fmt.Errorf("unknown sampler type %q", c.Sampler.Type)
}

// NewTransport creates the configured transport. It returns nil without
// error when no transport type is set.
func (c *Config) NewTransport() (zipkintracer.Transport, error) {
	tc := c.Transport
	encoding, err := zipkintracer.ParseEncoding(tc.Encoding)
	if err != nil {
		return nil, err
	}
	switch tc.Type {
	case "":
		return nil, nil
	case TransportHTTP:
		return zipkintracer.NewHTTPTransport(tc.URL,
			zipkintracer.HTTPEncoding(encoding),
			zipkintracer.HTTPGzip(tc.Gzip),
		)
	case TransportKafka:
		opts := []zipkintracer.KafkaOption{zipkintracer.KafkaEncoding(encoding)}
		if tc.Topic != "" {
			opts = append(opts, zipkintracer.KafkaTopic(tc.Topic))
		}
		if tc.Compression != "" {
			codec, err := parseCompression(tc.Compression)
			if err != nil {
				return nil, err
			}
			opts = append(opts, zipkintracer.KafkaCompression(codec))
		}
		return zipkintracer.NewKafkaTransport(tc.Brokers, opts...)
	case TransportUDP:
		hostport := tc.HostPort
		if hostport == "" {
			hostport = zipkintracer.DefaultUDPAgentHostPort
		}
		var opts []zipkintracer.UDPOption
		if tc.MaxPacketSize > 0 {
			opts = append(opts, zipkintracer.UDPMaxPacketSize(tc.MaxPacketSize))
		}
		return zipkintracer.NewUDPAgentTransport(hostport, opts...)
	}
	return nil, fmt.Errorf("unknown transport type %q", tc.Type)
}

func parseCompression(s string) (sarama.CompressionCodec, error) {
	switch strings.ToLower(s) {
	case "none":
		return sarama.CompressionNone, nil
	case "gzip":
		return sarama.CompressionGZIP, nil
	case "snappy":
		return sarama.CompressionSnappy, nil
	case "lz4":
		return sarama.CompressionLZ4, nil
	case "zstd":
		return sarama.CompressionZSTD, nil
	}
	return sarama.CompressionNone, fmt.Errorf("unknown kafka compression %q", s)
}

// Option configures NewTracer.
type Option func(*options)

type options struct {
	logger        *zap.Logger
	metrics       metrics.Factory
	tracerOptions []zipkintracer.TracerOption
}

// Logger sets the logger of the reporting pipeline.
func Logger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Metrics sets the factory for the reporter counters.
func Metrics(f metrics.Factory) Option {
	return func(o *options) { o.metrics = f }
}

// TracerOptions appends options passed to zipkintracer.NewTracer after the
// ones derived from the configuration.
func TracerOptions(opts ...zipkintracer.TracerOption) Option {
	return func(o *options) { o.tracerOptions = append(o.tracerOptions, opts...) }
}

// NewReporter creates the reporting pipeline. Without a transport, or when
// disabled, spans are discarded.
func (c *Config) NewReporter(opts ...Option) (zipkintracer.Reporter, error) {
	o := c.options(opts)
	logger := zipkintracer.NewZapLogger(o.logger)

	if c.Disabled {
		return zipkintracer.NewNullReporter(), nil
	}

	transport, err := c.NewTransport()
	if err != nil {
		return nil, err
	}

	var reporter zipkintracer.Reporter
	if transport == nil {
		o.logger.Warn("no transport configured, spans will not be reported")
		reporter = zipkintracer.NewNullReporter()
	} else {
		rc := c.Reporter
		reporter, err = zipkintracer.NewRemoteReporter(transport,
			zipkintracer.QueueCapacity(rc.QueueCapacity),
			zipkintracer.BatchSize(rc.BatchSize),
			zipkintracer.FlushInterval(rc.FlushInterval),
			zipkintracer.SendTimeout(rc.SendTimeout),
			zipkintracer.WithMetrics(o.metrics),
			zipkintracer.ReporterLogger(logger),
		)
		if err != nil {
			return nil, multierr.Append(err, transport.Close())
		}
	}

	if c.Logging.Spans {
		reporter = zipkintracer.NewCompositeReporter(reporter, zipkintracer.NewLoggingReporter(logger))
	}
	return reporter, nil
}

// NewTracer validates the configuration and creates a tracer with its
// reporter. The returned closer flushes and closes the pipeline.
func (c *Config) NewTracer(opts ...Option) (*zipkintracer.Tracer, io.Closer, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	o := c.options(opts)

	sampler, err := c.NewSampler()
	if err != nil {
		return nil, nil, err
	}
	reporter, err := c.NewReporter(opts...)
	if err != nil {
		return nil, nil, err
	}

	tags := make(map[string]interface{}, len(c.Tags))
	for k, v := range c.Tags {
		tags[k] = v
	}
	tracerOpts := []zipkintracer.TracerOption{
		zipkintracer.WithServiceName(c.ServiceName),
		zipkintracer.WithSampler(sampler),
		zipkintracer.WithSharedSpans(c.SharedSpans),
		zipkintracer.WithTraceID128Bit(c.TraceID128Bit),
		zipkintracer.WithTags(tags),
		zipkintracer.WithLogger(zipkintracer.NewZapLogger(o.logger)),
	}
	if c.LocalHostPort != "" {
		tracerOpts = append(tracerOpts, zipkintracer.WithLocalHostPort(c.LocalHostPort))
	}
	tracerOpts = append(tracerOpts, o.tracerOptions...)

	tracer, err := zipkintracer.NewTracer(reporter, tracerOpts...)
	if err != nil {
		return nil, nil, multierr.Append(err, reporter.Close())
	}
	return tracer, tracer, nil
}

func (c *Config) options(opts []Option) options {
	o := options{
		logger:  zap.NewNop(),
		metrics: metrics.NullFactory,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

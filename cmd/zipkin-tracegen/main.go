// Command zipkin-tracegen emits synthetic client/server span trees through
// a configured Zipkin reporting pipeline.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"github.com/openzipkin-contrib/zipkin-thrift-opentracing/config"
	"github.com/openzipkin-contrib/zipkin-thrift-opentracing/metrics/prommetrics"
)

type flags struct {
	configPath  string
	serviceName string
	url         string
	traces      int
	depth       int
	rate        float64
	metricsAddr string
	logLevel    string
}

func (f *flags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&f.serviceName, "service", "", "service name, overrides the configuration")
	fs.StringVar(&f.url, "url", "", "Zipkin v1 HTTP endpoint, selects the http transport")
	fs.IntVar(&f.traces, "traces", 10, "number of traces to emit")
	fs.IntVar(&f.depth, "depth", 2, "depth of the local span tree below each server span")
	fs.Float64Var(&f.rate, "rate", 10, "traces per second, 0 for no limit")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "address serving Prometheus /metrics, empty to disable")
	fs.StringVar(&f.logLevel, "log-level", "info", "log level")
}

func main() {
	var f flags
	f.register(pflag.CommandLine)
	pflag.Parse()

	level, err := zapcore.ParseLevel(f.logLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	logger, err := zc.Build()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, f, logger); err != nil {
		logger.Error("tracegen failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, f flags, logger *zap.Logger) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	if f.serviceName != "" {
		cfg.ServiceName = f.serviceName
	}
	if f.url != "" {
		cfg.Transport.Type = config.TransportHTTP
		cfg.Transport.URL = f.url
	}

	registry := prometheus.NewRegistry()
	factory := prommetrics.New(
		prommetrics.WithRegisterer(registry),
		prommetrics.WithNamespace("tracegen"),
	)
	if f.metricsAddr != "" {
		srv := &http.Server{
			Addr:              f.metricsAddr,
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
		defer func() { _ = srv.Close() }()
	}

	tracer, closer, err := cfg.NewTracer(config.Logger(logger), config.Metrics(factory))
	if err != nil {
		return err
	}

	limit := rate.Inf
	if f.rate > 0 {
		limit = rate.Limit(f.rate)
	}
	gen := &generator{
		tracer:  tracer,
		depth:   f.depth,
		limiter: rate.NewLimiter(limit, 1),
	}
	n, genErr := gen.run(ctx, f.traces)
	logger.Info("traces emitted", zap.Int("traces", n), zap.String("service", cfg.ServiceName))

	if err := closer.Close(); err != nil {
		logger.Warn("closing tracer", zap.Error(err))
	}
	if errors.Is(genErr, context.Canceled) {
		return nil
	}
	return genErr
}

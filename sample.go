package zipkintracer

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/openzipkin/zipkin-go"
	"github.com/openzipkin/zipkin-go/model"
	"golang.org/x/time/rate"
)

// Sampler tag keys and types.
const (
	SamplerTypeTagKey  = "sampler.type"
	SamplerParamTagKey = "sampler.param"

	SamplerTypeConst         = "const"
	SamplerTypeProbabilistic = "probabilistic"
	SamplerTypeRateLimiting  = "ratelimiting"
)

// ErrInvalidSamplingRate is returned for probabilistic rates outside [0, 1].
var ErrInvalidSamplingRate = errors.New("sampling rate must be between 0.0 and 1.0")

// Sampler decides whether a new trace is sampled. The returned tags are
// attached to the root span of sampled traces.
type Sampler interface {
	IsSampled(traceID model.TraceID, operation string) (bool, []Tag)
	Close()
}

// ConstSampler samples all traces or none.
type ConstSampler struct {
	Decision bool
	tags     []Tag
}

// NewConstSampler creates a ConstSampler.
func NewConstSampler(sample bool) *ConstSampler {
	return &ConstSampler{
		Decision: sample,
		tags: []Tag{
			{Key: SamplerTypeTagKey, Value: SamplerTypeConst},
			{Key: SamplerParamTagKey, Value: sample},
		},
	}
}

// IsSampled implements Sampler.
func (s *ConstSampler) IsSampled(model.TraceID, string) (bool, []Tag) {
	return s.Decision, s.tags
}

// Close implements Sampler.
func (s *ConstSampler) Close() {}

func (s *ConstSampler) String() string {
	return fmt.Sprintf("ConstSampler(decision=%t)", s.Decision)
}

// ProbabilisticSampler samples a fixed share of traces. Only the low 64
// bits of the trace id take part in the decision, so 64 and 128 bit trace
// ids with the same low half are sampled alike.
type ProbabilisticSampler struct {
	rate     float64
	boundary uint64
	tags     []Tag
}

// NewProbabilisticSampler creates a sampler keeping rate of all traces.
func NewProbabilisticSampler(rate float64) (*ProbabilisticSampler, error) {
	if rate < 0.0 || rate > 1.0 || math.IsNaN(rate) {
		return nil, fmt.Errorf("%w, got %v", ErrInvalidSamplingRate, rate)
	}
	s := &ProbabilisticSampler{
		rate: rate,
		tags: []Tag{
			{Key: SamplerTypeTagKey, Value: SamplerTypeProbabilistic},
			{Key: SamplerParamTagKey, Value: rate},
		},
	}
	if rate < 1.0 {
		// rate * 2^64, computed in two halves to stay inside float64 range
		s.boundary = uint64(rate*math.Exp2(63)) << 1
	}
	return s, nil
}

// Rate returns the sampling rate.
func (s *ProbabilisticSampler) Rate() float64 { return s.rate }

// IsSampled implements Sampler.
func (s *ProbabilisticSampler) IsSampled(traceID model.TraceID, _ string) (bool, []Tag) {
	if s.rate >= 1.0 {
		return true, s.tags
	}
	return traceID.Low < s.boundary, s.tags
}

// Close implements Sampler.
func (s *ProbabilisticSampler) Close() {}

func (s *ProbabilisticSampler) String() string {
	return fmt.Sprintf("ProbabilisticSampler(%v)", s.rate)
}

// RateLimitingSampler samples at most a fixed number of traces per second.
type RateLimitingSampler struct {
	tracesPerSecond float64
	mu              sync.Mutex
	limiter         *rate.Limiter
	tags            []Tag
}

// NewRateLimitingSampler creates a RateLimitingSampler.
func NewRateLimitingSampler(tracesPerSecond float64) (*RateLimitingSampler, error) {
	if tracesPerSecond < 0 || math.IsNaN(tracesPerSecond) {
		return nil, fmt.Errorf("traces per second must not be negative, got %v", tracesPerSecond)
	}
	burst := int(math.Max(tracesPerSecond, 1.0))
	return &RateLimitingSampler{
		tracesPerSecond: tracesPerSecond,
		limiter:         rate.NewLimiter(rate.Limit(tracesPerSecond), burst),
		tags: []Tag{
			{Key: SamplerTypeTagKey, Value: SamplerTypeRateLimiting},
			{Key: SamplerParamTagKey, Value: tracesPerSecond},
		},
	}, nil
}

// TracesPerSecond returns the configured limit.
func (s *RateLimitingSampler) TracesPerSecond() float64 { return s.tracesPerSecond }

// IsSampled implements Sampler.
func (s *RateLimitingSampler) IsSampled(model.TraceID, string) (bool, []Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.limiter.AllowN(time.Now(), 1), s.tags
}

// Close implements Sampler.
func (s *RateLimitingSampler) Close() {}

func (s *RateLimitingSampler) String() string {
	return fmt.Sprintf("RateLimitingSampler(%v)", s.tracesPerSecond)
}

// zipkinSampler adapts a zipkin-go Sampler, which looks at the low 64 bits
// of the trace id.
type zipkinSampler struct {
	sampler zipkin.Sampler
	tags    []Tag
}

// NewZipkinSampler adapts a zipkin-go sampler such as zipkin.NewModuloSampler
// or zipkin.NewBoundarySampler. samplerType and param end up in the sampler
// tags.
func NewZipkinSampler(s zipkin.Sampler, samplerType string, param interface{}) Sampler {
	return &zipkinSampler{
		sampler: s,
		tags: []Tag{
			{Key: SamplerTypeTagKey, Value: samplerType},
			{Key: SamplerParamTagKey, Value: param},
		},
	}
}

func (s *zipkinSampler) IsSampled(traceID model.TraceID, _ string) (bool, []Tag) {
	return s.sampler(traceID.Low), s.tags
}

func (s *zipkinSampler) Close() {}

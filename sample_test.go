package zipkintracer

import (
	"math"
	"testing"

	"github.com/openzipkin/zipkin-go"
	"github.com/openzipkin/zipkin-go/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstSampler(t *testing.T) {
	sampled, tags := NewConstSampler(true).IsSampled(model.TraceID{Low: 1}, "op")
	assert.True(t, sampled)
	assert.Equal(t, []Tag{{Key: SamplerTypeTagKey, Value: "const"}, {Key: SamplerParamTagKey, Value: true}}, tags)

	sampled, _ = NewConstSampler(false).IsSampled(model.TraceID{Low: 1}, "op")
	assert.False(t, sampled)
}

func TestProbabilisticSampler(t *testing.T) {
	s, err := NewProbabilisticSampler(0.5)
	require.NoError(t, err)

	sampled, tags := s.IsSampled(model.TraceID{Low: 1<<63 - 10}, "op")
	assert.True(t, sampled)
	assert.Equal(t, []Tag{{Key: SamplerTypeTagKey, Value: "probabilistic"}, {Key: SamplerParamTagKey, Value: 0.5}}, tags)

	sampled, _ = s.IsSampled(model.TraceID{Low: 1<<63 + 10}, "op")
	assert.False(t, sampled)

	// the high half does not take part in the decision
	sampled, _ = s.IsSampled(model.TraceID{High: math.MaxUint64, Low: 1<<63 - 10}, "op")
	assert.True(t, sampled)
}

func TestProbabilisticSamplerBounds(t *testing.T) {
	always, err := NewProbabilisticSampler(1)
	require.NoError(t, err)
	sampled, _ := always.IsSampled(model.TraceID{Low: math.MaxUint64}, "op")
	assert.True(t, sampled)

	never, err := NewProbabilisticSampler(0)
	require.NoError(t, err)
	sampled, _ = never.IsSampled(model.TraceID{Low: 0}, "op")
	assert.False(t, sampled)

	for _, rate := range []float64{-0.1, 1.1, math.NaN()} {
		_, err := NewProbabilisticSampler(rate)
		assert.ErrorIs(t, err, ErrInvalidSamplingRate)
	}
}

func TestRateLimitingSampler(t *testing.T) {
	s, err := NewRateLimitingSampler(2)
	require.NoError(t, err)
	assert.Equal(t, 2.0, s.TracesPerSecond())

	var sampled int
	for i := 0; i < 10; i++ {
		if ok, _ := s.IsSampled(model.TraceID{Low: uint64(i)}, "op"); ok {
			sampled++
		}
	}
	assert.Equal(t, 2, sampled)

	_, err = NewRateLimitingSampler(-1)
	assert.Error(t, err)
}

func TestZipkinSampler(t *testing.T) {
	s := NewZipkinSampler(zipkin.NewModuloSampler(2), "modulo", 2)

	sampled, tags := s.IsSampled(model.TraceID{High: 1, Low: 4}, "op")
	assert.True(t, sampled)
	assert.Equal(t, []Tag{{Key: SamplerTypeTagKey, Value: "modulo"}, {Key: SamplerParamTagKey, Value: 2}}, tags)

	sampled, _ = s.IsSampled(model.TraceID{Low: 5}, "op")
	assert.False(t, sampled)
}

package zipkintracer

import (
	"time"

	"github.com/opentracing/opentracing-go"
)

// A SpanEvent is emitted when a mutating command is called on a Span.
type SpanEvent interface{}

// EventCreate is emitted when a Span is created.
type EventCreate struct{ OperationName string }

// EventTag is received when SetTag is called.
type EventTag struct {
	Key   string
	Value interface{}
}

// EventLog is received when Log (or one of its derivatives) is called.
type EventLog opentracing.LogData

// EventFinish is received when Finish is called.
type EventFinish struct {
	Context       SpanContext
	OperationName string
	Start         time.Time
	Duration      time.Duration
}

func (s *Span) onCreate(opName string) {
	if s.event != nil {
		s.event(EventCreate{OperationName: opName})
	}
}

func (s *Span) onTag(key string, value interface{}) {
	if s.event != nil {
		s.event(EventTag{Key: key, Value: value})
	}
}

func (s *Span) onLog(ld opentracing.LogData) {
	if s.event != nil {
		s.event(EventLog(ld))
	}
}

func (s *Span) onFinish() {
	if s.event == nil {
		return
	}
	s.Lock()
	e := EventFinish{
		Context:       s.context,
		OperationName: s.operationName,
		Start:         s.startTime,
		Duration:      s.endTime.Sub(s.startTime),
	}
	s.Unlock()
	s.event(e)
}

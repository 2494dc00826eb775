// Copyright 2019 The OpenZipkin Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package zipkintracer

import (
	"fmt"
	"sync"
	"time"

	otobserver "github.com/opentracing-contrib/go-observer"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/opentracing/opentracing-go/log"
)

// Tag is a key/value attribute recorded on a sampled span. It is encoded as
// a typed binary annotation.
type Tag struct {
	Key   string
	Value interface{}
}

// LogRecord is a timestamped event recorded on a sampled span. It is
// encoded as an annotation.
type LogRecord struct {
	Timestamp time.Time
	Value     string
}

// peer is the remote side of an RPC span as described by the peer.* tags.
type peer struct {
	ipv4        interface{}
	port        interface{}
	serviceName string
}

// Span implements opentracing.Span. Everything it records is read by the
// reporter only after Finish, under the same mutex.
type Span struct {
	sync.Mutex

	tracer *Tracer

	context       SpanContext
	operationName string
	startTime     time.Time
	endTime       time.Time
	tags          []Tag
	logs          []LogRecord

	// kind is ext.SpanKindRPCClientEnum, ext.SpanKindRPCServerEnum or empty.
	kind      ext.SpanKindEnum
	peer      *peer
	component string

	finished bool

	observer otobserver.SpanObserver
	event    func(SpanEvent)
}

// SetOperationName belongs to the opentracing.Span interface
func (s *Span) SetOperationName(operationName string) opentracing.Span {
	if s.observer != nil {
		s.observer.OnSetOperationName(operationName)
	}
	s.Lock()
	s.operationName = operationName
	s.Unlock()
	return s
}

// SetTag belongs to the opentracing.Span interface
func (s *Span) SetTag(key string, value interface{}) opentracing.Span {
	s.onTag(key, value)
	if s.observer != nil {
		s.observer.OnSetTag(key, value)
	}

	s.Lock()
	defer s.Unlock()
	s.setTagLocked(key, value)
	return s
}

func (s *Span) setTagLocked(key string, value interface{}) {
	if key == string(ext.SamplingPriority) && !s.setSamplingPriority(value) {
		return
	}
	if !s.context.IsSampled() {
		return
	}
	if s.setSpecialTag(key, value) {
		return
	}
	s.tags = append(s.tags, Tag{Key: key, Value: value})
}

// setSamplingPriority reports whether the tag should also be recorded.
func (s *Span) setSamplingPriority(value interface{}) bool {
	var priority int64
	switch v := value.(type) {
	case int:
		priority = int64(v)
	case int32:
		priority = int64(v)
	case int64:
		priority = v
	case uint16:
		priority = int64(v)
	case uint32:
		priority = int64(v)
	default:
		return false
	}
	if priority > 0 {
		s.context.Flags |= FlagSampled | FlagDebug
	} else {
		s.context.Flags &^= FlagSampled
	}
	return true
}

// setSpecialTag interprets the tags that map onto span fields. It returns
// true when the tag must not be recorded as a binary annotation.
func (s *Span) setSpecialTag(key string, value interface{}) bool {
	switch key {
	case string(ext.SpanKind):
		kind := toSpanKind(value)
		if kind == ext.SpanKindRPCClientEnum || kind == ext.SpanKindRPCServerEnum {
			s.kind = kind
			return true
		}
	case string(ext.Component):
		s.component = fmt.Sprint(value)
	case string(ext.PeerService):
		s.peerLocked().serviceName = fmt.Sprint(value)
		return true
	case string(ext.PeerHostIPv4):
		s.peerLocked().ipv4 = value
		return true
	case string(ext.PeerPort):
		s.peerLocked().port = value
		return true
	}
	return false
}

func (s *Span) peerLocked() *peer {
	if s.peer == nil {
		s.peer = &peer{}
	}
	return s.peer
}

func toSpanKind(value interface{}) ext.SpanKindEnum {
	switch v := value.(type) {
	case ext.SpanKindEnum:
		return v
	case string:
		return ext.SpanKindEnum(v)
	}
	return ""
}

// LogFields belongs to the opentracing.Span interface
func (s *Span) LogFields(fields ...log.Field) {
	s.logFields(time.Now(), fields...)
}

func (s *Span) logFields(t time.Time, fields ...log.Field) {
	s.Lock()
	defer s.Unlock()
	if !s.context.IsSampled() || s.finished {
		return
	}
	for _, field := range fields {
		s.logs = append(s.logs, LogRecord{Timestamp: t, Value: field.String()})
	}
}

// LogKV belongs to the opentracing.Span interface
func (s *Span) LogKV(keyValues ...interface{}) {
	fields, err := log.InterleavedKVToFields(keyValues...)
	if err != nil {
		s.LogFields(log.Error(err), log.String("function", "LogKV"))
		return
	}
	s.LogFields(fields...)
}

// LogEvent belongs to the opentracing.Span interface
func (s *Span) LogEvent(event string) {
	s.Log(opentracing.LogData{
		Event: event,
	})
}

// LogEventWithPayload belongs to the opentracing.Span interface
func (s *Span) LogEventWithPayload(event string, payload interface{}) {
	s.Log(opentracing.LogData{
		Event:   event,
		Payload: payload,
	})
}

// Log belongs to the opentracing.Span interface
func (s *Span) Log(ld opentracing.LogData) {
	if ld.Timestamp.IsZero() {
		ld.Timestamp = time.Now()
	}
	s.onLog(ld)

	s.Lock()
	defer s.Unlock()
	if !s.context.IsSampled() || s.finished {
		return
	}
	s.logs = append(s.logs, LogRecord{Timestamp: ld.Timestamp, Value: logDataValue(ld)})
}

func logDataValue(ld opentracing.LogData) string {
	if ld.Payload == nil {
		return ld.Event
	}
	return fmt.Sprintf("%s:%v", ld.Event, ld.Payload)
}

// Finish belongs to the opentracing.Span interface
func (s *Span) Finish() {
	s.FinishWithOptions(opentracing.FinishOptions{})
}

// FinishWithOptions belongs to the opentracing.Span interface. Only the
// first call has an effect.
func (s *Span) FinishWithOptions(opts opentracing.FinishOptions) {
	finishTime := opts.FinishTime
	if finishTime.IsZero() {
		finishTime = time.Now()
	}

	for _, lr := range opts.LogRecords {
		s.logFields(lr.Timestamp, lr.Fields...)
	}
	for _, ld := range opts.BulkLogData {
		s.Log(ld)
	}

	s.Lock()
	if s.finished {
		s.Unlock()
		return
	}
	s.finished = true
	s.endTime = finishTime
	sampled := s.context.IsSampled()
	s.Unlock()

	if s.observer != nil {
		s.observer.OnFinish(opts)
	}
	s.onFinish()

	if sampled {
		s.tracer.reporter.Report(s)
	}
}

// Context belongs to the opentracing.Span interface
func (s *Span) Context() opentracing.SpanContext {
	s.Lock()
	defer s.Unlock()
	return s.context
}

// SpanContext returns the typed context of the span.
func (s *Span) SpanContext() SpanContext {
	s.Lock()
	defer s.Unlock()
	return s.context
}

// SetBaggageItem belongs to the opentracing.Span interface
func (s *Span) SetBaggageItem(key, val string) opentracing.Span {
	s.Lock()
	defer s.Unlock()
	s.context = s.context.WithBaggageItem(key, val)
	return s
}

// BaggageItem belongs to the opentracing.Span interface
func (s *Span) BaggageItem(key string) string {
	s.Lock()
	defer s.Unlock()
	return s.context.Baggage[key]
}

// Tracer belongs to the opentracing.Span interface
func (s *Span) Tracer() opentracing.Tracer {
	return s.tracer
}

// OperationName returns the current operation name.
func (s *Span) OperationName() string {
	s.Lock()
	defer s.Unlock()
	return s.operationName
}

// StartTime returns the start time of the span.
func (s *Span) StartTime() time.Time {
	return s.startTime
}

// Duration returns the time between start and finish, or 0 if the span has
// not finished yet.
func (s *Span) Duration() time.Duration {
	s.Lock()
	defer s.Unlock()
	if !s.finished {
		return 0
	}
	return s.endTime.Sub(s.startTime)
}

// Tags returns a copy of the recorded tags.
func (s *Span) Tags() []Tag {
	s.Lock()
	defer s.Unlock()
	return append([]Tag(nil), s.tags...)
}

// Logs returns a copy of the recorded log records.
func (s *Span) Logs() []LogRecord {
	s.Lock()
	defer s.Unlock()
	return append([]LogRecord(nil), s.logs...)
}

// IsRPC reports whether the span is the client or server side of an RPC.
func (s *Span) IsRPC() bool {
	s.Lock()
	defer s.Unlock()
	return s.kind != ""
}

// IsRPCClient reports whether the span is the client side of an RPC.
func (s *Span) IsRPCClient() bool {
	s.Lock()
	defer s.Unlock()
	return s.kind == ext.SpanKindRPCClientEnum
}

func (s *Span) String() string {
	s.Lock()
	defer s.Unlock()
	return fmt.Sprintf("%s:%s:%s:%d", s.context.TraceID, s.context.SpanID, s.context.ParentID, s.context.Flags)
}

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

// Package b3 moves span contexts in and out of the multi header B3 format.
// Keys are matched case-insensitively on extraction.
package b3

import (
	"strconv"
	"strings"

	"github.com/opentracing/opentracing-go"
	"github.com/openzipkin/zipkin-go/model"
	zb3 "github.com/openzipkin/zipkin-go/propagation/b3"
)

// Header names as written by Inject.
const (
	TraceID      = "X-B3-TraceId"
	SpanID       = "X-B3-SpanId"
	ParentSpanID = "X-B3-ParentSpanId"
	Sampled      = "X-B3-Sampled"
	Flags        = "X-B3-Flags"
)

const (
	traceIDHeader      = "x-b3-traceid"
	spanIDHeader       = "x-b3-spanid"
	parentSpanIDHeader = "x-b3-parentspanid"
	sampledHeader      = "x-b3-sampled"
	flagsHeader        = "x-b3-flags"
)

// ErrEmptyContext is returned when injecting a context without trace or
// span id.
var ErrEmptyContext = zb3.ErrEmptyContext

// Inject writes sc to carrier. The trace id is 16 lower-hex characters, or
// 32 for 128 bit ids. The parent id is only written when present and the
// sampled and debug markers only when set.
func Inject(sc model.SpanContext, carrier opentracing.TextMapWriter) error {
	if sc.TraceID.Empty() || sc.ID == 0 {
		return ErrEmptyContext
	}

	carrier.Set(TraceID, sc.TraceID.String())
	if sc.ParentID != nil && *sc.ParentID != 0 {
		carrier.Set(ParentSpanID, sc.ParentID.String())
	}
	carrier.Set(SpanID, sc.ID.String())
	if sc.Sampled != nil && *sc.Sampled {
		carrier.Set(Sampled, "1")
	}
	if sc.Debug {
		carrier.Set(Flags, "1")
	}
	return nil
}

// Extract reads a context from carrier. Sampled accepts "1" and "true",
// flags only "1". Without both a trace id and a span id the result is
// opentracing.ErrSpanContextNotFound; malformed ids yield
// opentracing.ErrSpanContextCorrupted.
func Extract(carrier opentracing.TextMapReader) (*model.SpanContext, error) {
	var (
		sc                model.SpanContext
		hasTrace, hasSpan bool
		sampled           bool
	)
	err := carrier.ForeachKey(func(key, val string) error {
		switch strings.ToLower(key) {
		case traceIDHeader:
			id, err := model.TraceIDFromHex(val)
			if err != nil {
				return opentracing.ErrSpanContextCorrupted
			}
			sc.TraceID, hasTrace = id, true
		case spanIDHeader:
			id, err := parseID(val)
			if err != nil {
				return err
			}
			sc.ID, hasSpan = id, true
		case parentSpanIDHeader:
			id, err := parseID(val)
			if err != nil {
				return err
			}
			if id != 0 {
				sc.ParentID = &id
			}
		case sampledHeader:
			if val == "1" || val == "true" {
				sampled = true
			}
		case flagsHeader:
			if val == "1" {
				sc.Debug = true
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !hasTrace || !hasSpan {
		return nil, opentracing.ErrSpanContextNotFound
	}
	if sampled {
		sc.Sampled = &sampled
	}
	return &sc, nil
}

func parseID(val string) (model.ID, error) {
	if len(val) > 16 {
		return 0, opentracing.ErrSpanContextCorrupted
	}
	id, err := strconv.ParseUint(val, 16, 64)
	if err != nil {
		return 0, opentracing.ErrSpanContextCorrupted
	}
	return model.ID(id), nil
}

// Copyright 2022 The OpenZipkin Authors
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
	"encoding/binary"
	"math"
	"net"
	"strconv"
	"time"

	"github.com/openzipkin/zipkin-go/model"
)

const (
	maxSignedPort   = math.MaxInt16
	maxUnsignedPort = math.MaxUint16 + 1
)

// IDToSignedWire converts an unsigned identifier into the signed i64 the
// zipkinCore.thrift id fields carry: ids above 2^63-1 become id - 2^64.
func IDToSignedWire(id uint64) int64 {
	// the conversion reinterprets the bits, which is the two's complement
	// wrap for ids above 2^63-1
	return int64(id)
}

// SignedWireToID reverses IDToSignedWire.
func SignedWireToID(v int64) uint64 {
	return uint64(v)
}

// SplitTraceID returns the high and low 64 bits of a trace id. For 64 bit
// trace ids high is 0.
func SplitTraceID(id model.TraceID) (high, low uint64) {
	return id.High, id.Low
}

// JoinTraceID builds a trace id back from its two halves.
func JoinTraceID(high, low uint64) model.TraceID {
	return model.TraceID{High: high, Low: low}
}

// TimestampToMicros converts a unix timestamp in (fractional) seconds into
// microseconds, truncating.
func TimestampToMicros(seconds float64) int64 {
	return int64(seconds * 1e6)
}

// TimeToMicros converts t into microseconds since the epoch.
func TimeToMicros(t time.Time) int64 {
	return t.UnixNano() / 1e3
}

// PortToSigned16 converts a port given as an integer or a string of
// digits into the signed i16 of the Endpoint struct. Ephemeral ports above
// 32767 wrap to negative values. Anything else yields 0.
func PortToSigned16(port interface{}) int16 {
	var p int64
	switch v := port.(type) {
	case int:
		p = int64(v)
	case int8:
		p = int64(v)
	case int16:
		p = int64(v)
	case int32:
		p = int64(v)
	case int64:
		p = v
	case uint:
		p = int64(v)
	case uint8:
		p = int64(v)
	case uint16:
		p = int64(v)
	case uint32:
		p = int64(v)
	case uint64:
		if v > maxUnsignedPort {
			return 0
		}
		p = int64(v)
	case string:
		if v == "" {
			return 0
		}
		for _, c := range v {
			if c < '0' || c > '9' {
				return 0
			}
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0
		}
		p = n
	default:
		return 0
	}
	if p < 0 || p >= maxUnsignedPort {
		return 0
	}
	if p > maxSignedPort {
		p -= maxUnsignedPort
	}
	return int16(p)
}

// IPv4ToInt32 packs a dotted quad into a big-endian signed 32 bit integer.
// "localhost" and "::1" are treated as 127.0.0.1. Input that is not an
// IPv4 address yields 0.
func IPv4ToInt32(addr string) int32 {
	if addr == "localhost" || addr == "::1" {
		addr = "127.0.0.1"
	}
	ip := net.ParseIP(addr)
	if ip == nil {
		return 0
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return 0
	}
	return int32(binary.BigEndian.Uint32(ip4))
}

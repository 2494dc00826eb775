package zipkintracer

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/mocks"
	"github.com/apache/thrift/lib/go/thrift"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openzipkin-contrib/zipkin-thrift-opentracing/zipkincore"
)

func encodedBatch(t *testing.T, e Encoding, ids ...uint64) []byte {
	t.Helper()
	spans := make([]*Span, 0, len(ids))
	for _, id := range ids {
		spans = append(spans, testSpan(id))
	}
	payload, err := e.Serialize(context.Background(), EncodeSpans(spans, testLocal))
	require.NoError(t, err)
	return payload
}

func TestHTTPTransport(t *testing.T) {
	payload := encodedBatch(t, EncodingThrift, 1, 2)

	var got *http.Request
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	tr, err := NewHTTPTransport(srv.URL+"/api/v1/spans", HTTPRequestCallback(func(r *http.Request) {
		r.Header.Set("X-Test", "yes")
	}))
	require.NoError(t, err)
	require.NoError(t, tr.Send(context.Background(), payload))

	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/api/v1/spans", got.URL.Path)
	assert.Equal(t, "application/x-thrift", got.Header.Get("Content-Type"))
	assert.Equal(t, "yes", got.Header.Get("X-Test"))
	assert.Equal(t, payload, body)

	spans, err := zipkincore.DeserializeSpans(context.Background(), zipkincore.ProtocolBinary, body)
	require.NoError(t, err)
	assert.Len(t, spans, 2)
	assert.NoError(t, tr.Close())
}

func TestHTTPTransportGzipJSON(t *testing.T) {
	payload := encodedBatch(t, EncodingJSON, 1)

	var body []byte
	var header http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header
		zr, err := gzip.NewReader(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		body, _ = io.ReadAll(zr)
	}))
	defer srv.Close()

	tr, err := NewHTTPTransport(srv.URL, HTTPEncoding(EncodingJSON), HTTPGzip(true))
	require.NoError(t, err)
	require.NoError(t, tr.Send(context.Background(), payload))

	assert.Equal(t, "application/json", header.Get("Content-Type"))
	assert.Equal(t, "gzip", header.Get("Content-Encoding"))
	assert.JSONEq(t, string(payload), string(body))
	assert.Equal(t, EncodingJSON, tr.Encoding())
}

func TestHTTPTransportErrors(t *testing.T) {
	_, err := NewHTTPTransport("")
	assert.Error(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tr, err := NewHTTPTransport(srv.URL)
	require.NoError(t, err)
	err = tr.Send(context.Background(), []byte{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")

	tr, err = NewHTTPTransport(srv.URL, HTTPTimeout(5*time.Millisecond))
	require.NoError(t, err)
	assert.Error(t, tr.Send(context.Background(), []byte{}))
}

func TestKafkaTransport(t *testing.T) {
	payload := encodedBatch(t, EncodingThrift, 1)

	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		if string(val) != string(payload) {
			return errors.New("unexpected payload")
		}
		return nil
	})
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	tr, err := NewKafkaTransportWithProducer(producer, KafkaTopic("spans"))
	require.NoError(t, err)
	assert.Equal(t, EncodingThrift, tr.Encoding())

	require.NoError(t, tr.Send(context.Background(), payload))
	assert.ErrorIs(t, tr.Send(context.Background(), payload), sarama.ErrOutOfBrokers)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, tr.Send(ctx, payload), context.Canceled)

	assert.NoError(t, tr.Close())
}

func TestKafkaTransportWithReporter(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		spans, err := zipkincore.DeserializeSpans(context.Background(), zipkincore.ProtocolCompact, val)
		if err != nil {
			return err
		}
		if len(spans) != 2 {
			return errors.New("expected 2 spans")
		}
		return nil
	})

	tr, err := NewKafkaTransportWithProducer(producer, KafkaEncoding(EncodingThriftCompact))
	require.NoError(t, err)
	r, err := NewRemoteReporter(tr)
	require.NoError(t, err)
	assert.Equal(t, EncodingThriftCompact, r.Encoding())

	r.Report(testSpan(1))
	r.Report(testSpan(2))
	require.NoError(t, r.Close())
}

func TestKafkaTransportOptions(t *testing.T) {
	_, err := NewKafkaTransportWithProducer(nil)
	assert.Error(t, err)

	tr := newKafkaTransport([]KafkaOption{KafkaCompression(sarama.CompressionSnappy)})
	assert.Equal(t, sarama.CompressionSnappy, tr.config.Producer.Compression)
	assert.Equal(t, DefaultKafkaTopic, tr.topic)
	assert.True(t, tr.config.Producer.Return.Successes)
}

func readEmitZipkinBatch(t *testing.T, packet []byte) (int32, []*zipkincore.Span) {
	t.Helper()
	ctx := context.Background()
	buf := thrift.NewTMemoryBufferLen(len(packet))
	_, err := buf.Write(packet)
	require.NoError(t, err)
	iprot := thrift.NewTCompactProtocolConf(buf, &thrift.TConfiguration{})

	name, typ, seqID, err := iprot.ReadMessageBegin(ctx)
	require.NoError(t, err)
	assert.Equal(t, "emitZipkinBatch", name)
	assert.Equal(t, thrift.ONEWAY, typ)

	_, err = iprot.ReadStructBegin(ctx)
	require.NoError(t, err)
	_, fieldType, fieldID, err := iprot.ReadFieldBegin(ctx)
	require.NoError(t, err)
	assert.Equal(t, thrift.TType(thrift.LIST), fieldType)
	assert.Equal(t, int16(1), fieldID)

	elemType, size, err := iprot.ReadListBegin(ctx)
	require.NoError(t, err)
	assert.Equal(t, thrift.TType(thrift.STRUCT), elemType)
	spans := make([]*zipkincore.Span, 0, size)
	for i := 0; i < size; i++ {
		s := &zipkincore.Span{}
		require.NoError(t, s.Read(ctx, iprot))
		spans = append(spans, s)
	}
	require.NoError(t, iprot.ReadListEnd(ctx))
	require.NoError(t, iprot.ReadFieldEnd(ctx))
	_, fieldType, _, err = iprot.ReadFieldBegin(ctx)
	require.NoError(t, err)
	assert.Equal(t, thrift.TType(thrift.STOP), fieldType)
	return seqID, spans
}

func TestUDPAgentTransport(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	tr, err := NewUDPAgentTransport(conn.LocalAddr().String())
	require.NoError(t, err)
	defer tr.Close()
	assert.Equal(t, EncodingThriftCompact, tr.Encoding())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, tr.Send(ctx, encodedBatch(t, EncodingThriftCompact, 1, 2)))
	require.NoError(t, tr.Send(ctx, encodedBatch(t, EncodingThriftCompact, 3)))

	packet := make([]byte, DefaultUDPMaxPacketSize)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	n, _, err := conn.ReadFrom(packet)
	require.NoError(t, err)
	seqID, spans := readEmitZipkinBatch(t, packet[:n])
	assert.Equal(t, int32(1), seqID)
	require.Len(t, spans, 2)
	assert.Equal(t, "span-1", spans[0].Name)

	n, _, err = conn.ReadFrom(packet)
	require.NoError(t, err)
	seqID, spans = readEmitZipkinBatch(t, packet[:n])
	assert.Equal(t, int32(2), seqID)
	assert.Len(t, spans, 1)
}

func TestUDPAgentTransportPacketTooLarge(t *testing.T) {
	tr, err := NewUDPAgentTransport("127.0.0.1:5775", UDPMaxPacketSize(32))
	require.NoError(t, err)
	defer tr.Close()

	err = tr.Send(context.Background(), encodedBatch(t, EncodingThriftCompact, 1, 2, 3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds max packet size")
}

func TestEncoding(t *testing.T) {
	tests := []struct {
		in          string
		want        Encoding
		contentType string
	}{
		{"", EncodingThrift, "application/x-thrift"},
		{"thrift", EncodingThrift, "application/x-thrift"},
		{"Thrift-Compact", EncodingThriftCompact, "application/x-thrift"},
		{"json", EncodingJSON, "application/json"},
	}
	for _, tt := range tests {
		e, err := ParseEncoding(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, e)
		assert.Equal(t, tt.contentType, e.ContentType())
	}

	_, err := ParseEncoding("protobuf")
	assert.Error(t, err)
	_, err = Encoding(9).Serialize(context.Background(), nil)
	assert.Error(t, err)
}

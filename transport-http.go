package zipkintracer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzip"
)

const defaultHTTPTimeout = time.Second * 5

// HTTPTransport posts span batches to a Zipkin v1 collector endpoint such
// as http://localhost:9411/api/v1/spans.
type HTTPTransport struct {
	url         string
	client      *http.Client
	encoding    Encoding
	gzip        bool
	reqCallback RequestCallback
}

// RequestCallback receives the initialized request from the HTTP transport
// before it is sent, for adding headers or tweaking the request.
type RequestCallback func(*http.Request)

// HTTPOption sets a parameter for the HTTPTransport
type HTTPOption func(t *HTTPTransport)

// HTTPTimeout sets the maximum timeout for an HTTP request.
func HTTPTimeout(duration time.Duration) HTTPOption {
	return func(t *HTTPTransport) { t.client.Timeout = duration }
}

// HTTPClient sets a custom http client to use.
func HTTPClient(client *http.Client) HTTPOption {
	return func(t *HTTPTransport) { t.client = client }
}

// HTTPEncoding sets the payload encoding and with it the Content-Type.
func HTTPEncoding(e Encoding) HTTPOption {
	return func(t *HTTPTransport) { t.encoding = e }
}

// HTTPGzip compresses request bodies.
func HTTPGzip(enabled bool) HTTPOption {
	return func(t *HTTPTransport) { t.gzip = enabled }
}

// HTTPRequestCallback registers a callback function to adjust the HTTP
// request before it is sent.
func HTTPRequestCallback(rc RequestCallback) HTTPOption {
	return func(t *HTTPTransport) { t.reqCallback = rc }
}

// NewHTTPTransport returns a new HTTP Transport.
func NewHTTPTransport(url string, options ...HTTPOption) (*HTTPTransport, error) {
	if url == "" {
		return nil, fmt.Errorf("http transport requires a url")
	}
	t := &HTTPTransport{
		url:      url,
		client:   &http.Client{Timeout: defaultHTTPTimeout},
		encoding: EncodingThrift,
	}
	for _, option := range options {
		option(t)
	}
	return t, nil
}

// Encoding implements EncodingTransport.
func (t *HTTPTransport) Encoding() Encoding {
	return t.encoding
}

// Send implements Transport. Any response outside 2xx is an error.
func (t *HTTPTransport) Send(ctx context.Context, payload []byte) error {
	body, err := t.body(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", t.encoding.ContentType())
	if t.gzip {
		req.Header.Set("Content-Encoding", "gzip")
	}
	if t.reqCallback != nil {
		t.reqCallback(req)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("http transport: %s returned %s", t.url, resp.Status)
	}
	return nil
}

func (t *HTTPTransport) body(payload []byte) (io.Reader, error) {
	if !t.gzip {
		return bytes.NewReader(payload), nil
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return &buf, nil
}

// Close implements Transport.
func (t *HTTPTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}

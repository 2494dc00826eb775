package main

import (
	"context"
	"fmt"
	"net/http"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"golang.org/x/time/rate"
)

// generator emits one client span per trace, a server span joined through
// B3 HTTP headers and a tree of local spans below it.
type generator struct {
	tracer  opentracing.Tracer
	depth   int
	limiter *rate.Limiter
}

// run emits up to n traces and returns how many were emitted.
func (g *generator) run(ctx context.Context, n int) (int, error) {
	for i := 0; i < n; i++ {
		if err := g.limiter.Wait(ctx); err != nil {
			return i, err
		}
		if err := g.trace(i); err != nil {
			return i, err
		}
	}
	return n, nil
}

func (g *generator) trace(i int) error {
	client := g.tracer.StartSpan("GET /work", ext.SpanKindRPCClient)
	ext.PeerService.Set(client, "backend")
	ext.PeerHostIPv4.SetString(client, "127.0.0.1")
	ext.PeerPort.Set(client, 8080)
	client.SetTag("trace.index", i)
	defer client.Finish()

	headers := http.Header{}
	carrier := opentracing.HTTPHeadersCarrier(headers)
	if err := g.tracer.Inject(client.Context(), opentracing.HTTPHeaders, carrier); err != nil {
		return fmt.Errorf("inject: %w", err)
	}

	remote, err := g.tracer.Extract(opentracing.HTTPHeaders, carrier)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	server := g.tracer.StartSpan("work", ext.RPCServerOption(remote))
	ext.Component.Set(server, "tracegen")
	server.LogKV("event", "request received")
	g.children(server, g.depth)
	server.Finish()
	return nil
}

func (g *generator) children(parent opentracing.Span, depth int) {
	if depth <= 0 {
		return
	}
	for i := 0; i < 2; i++ {
		child := g.tracer.StartSpan(fmt.Sprintf("step-%d-%d", depth, i), opentracing.ChildOf(parent.Context()))
		child.SetTag("depth", depth)
		g.children(child, depth-1)
		child.Finish()
	}
}

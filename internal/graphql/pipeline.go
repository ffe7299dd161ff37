package graphql

import (
	"context"
	"fmt"
	"net/http"
)

// Transform decorates an outbound request before dispatch. Stages run in
// the order they were given to NewPipeline.
type Transform func(ctx context.Context, req *Request) error

// Transport sends a fully decorated request.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// TokenSource yields the session token for the caller in ctx.
type TokenSource interface {
	Token(ctx context.Context) (string, bool)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, bool)

func (f TokenSourceFunc) Token(ctx context.Context) (string, bool) { return f(ctx) }

// Pipeline applies its stages in order and hands the result to the
// transport.
type Pipeline struct {
	stages    []Transform
	transport Transport
}

func NewPipeline(transport Transport, stages ...Transform) *Pipeline {
	return &Pipeline{
		stages:    append([]Transform(nil), stages...),
		transport: transport,
	}
}

// Len returns the number of stages.
func (p *Pipeline) Len() int { return len(p.stages) }

// Prepare runs every stage over req.
func (p *Pipeline) Prepare(ctx context.Context, req *Request) error {
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	for i, stage := range p.stages {
		if err := stage(ctx, req); err != nil {
			return fmt.Errorf("pipeline stage %d: %w", i, err)
		}
	}
	return nil
}

// Dispatch sends an already prepared request.
func (p *Pipeline) Dispatch(ctx context.Context, req *Request) (*Response, error) {
	return p.transport.Do(ctx, req)
}

// Execute prepares and dispatches req.
func (p *Pipeline) Execute(ctx context.Context, req *Request) (*Response, error) {
	if err := p.Prepare(ctx, req); err != nil {
		return nil, err
	}
	return p.Dispatch(ctx, req)
}

// BearerAuth sets the Authorization header from src: "Bearer <token>" when
// a token exists, the empty string otherwise.
func BearerAuth(src TokenSource) Transform {
	return func(ctx context.Context, req *Request) error {
		if tok, ok := src.Token(ctx); ok && tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		} else {
			req.Header.Set("Authorization", "")
		}
		return nil
	}
}

// RequestID copies the id returned by idFrom into X-Request-ID.
func RequestID(idFrom func(context.Context) string) Transform {
	return func(ctx context.Context, req *Request) error {
		if id := idFrom(ctx); id != "" {
			req.Header.Set("X-Request-ID", id)
		}
		return nil
	}
}

// StaticHeaders sets fixed headers on every request.
func StaticHeaders(h map[string]string) Transform {
	return func(_ context.Context, req *Request) error {
		for k, v := range h {
			req.Header.Set(k, v)
		}
		return nil
	}
}

package middleware

import (
	"context"

	"genaihub/providers/ai"
)

// StreamFunc is a function that sends a stream request to the backend
// transport and returns a ChatStream of normalized text deltas. It is the
// base unit threaded through the middleware chain.
type StreamFunc func(ctx context.Context, request ai.StreamRequest) (*ai.ChatStream, error)

// Middleware intercepts stream requests and may wrap the returned ChatStream
// to observe or transform the event sequence. Each Middleware receives the
// next StreamFunc in the chain and returns a new StreamFunc that wraps it.
type Middleware func(next StreamFunc) StreamFunc

// BuildChain constructs the linear middleware chain over the transport.
// Middlewares are applied in reverse order so that the first entry in the
// slice becomes the outermost wrapper, i.e. the first to execute on an
// incoming request.
func BuildChain(transport ai.Transport, middlewares []Middleware) StreamFunc {
	// Base function: direct transport call.
	var chain StreamFunc = func(ctx context.Context, request ai.StreamRequest) (*ai.ChatStream, error) {
		return transport.StreamMessage(ctx, request)
	}

	for i := len(middlewares) - 1; i >= 0; i-- {
		chain = middlewares[i](chain)
	}

	return chain
}

package ai

import "context"

// Transport is the contract every backend variant must satisfy. A variant
// owns exactly two concerns: initiating a stream for a request, and parsing
// its native chunk representation into normalized text-delta events (the
// parsing happens inside the iterator returned by StreamMessage).
//
// The active transport is selected once at adapter construction from
// credential availability and never re-evaluated per call.
type Transport interface {
	// StreamMessage sends a chat request and returns a ChatStream that
	// yields normalized text deltas as they arrive. Pre-stream errors
	// (auth, bad request, network) are returned as a normal error and are
	// eligible for retry. Mid-stream errors are yielded through the
	// iterator and terminate the stream without retry.
	StreamMessage(ctx context.Context, request StreamRequest) (*ChatStream, error)

	// Kind reports which backend variant this transport is.
	Kind() BackendKind
}

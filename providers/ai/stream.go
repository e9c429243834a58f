package ai

import (
	"iter"
	"strings"
)

// StreamEventType identifies the kind of payload carried by a StreamEvent.
type StreamEventType string

const (
	// StreamEventText indicates a text content delta — the sole normalized
	// output unit. A stream is an ordered, finite, non-restartable sequence
	// of text events terminated by normal completion or by an error.
	StreamEventText StreamEventType = "text"
)

// StreamEvent represents a single delta yielded during response streaming.
type StreamEvent struct {
	Type StreamEventType `json:"type"`
	Text string          `json:"text"`
}

// TextEvent builds a text-delta event.
func TextEvent(text string) StreamEvent {
	return StreamEvent{Type: StreamEventText, Text: text}
}

// ChatStream wraps a streaming iterator of normalized text-delta events.
// It supports range-based iteration for incremental consumption and a
// convenience Collect() method for callers who want the full text.
//
// Important: callers must consume the stream, either by iterating with Iter()
// (breaking out of the loop early is fine) or by calling Collect(). The
// underlying transport may hold open resources (such as an HTTP response
// body) that are only released when the iterator completes or is abandoned
// via a loop break. Constructing a ChatStream and never iterating it will
// leak those resources.
type ChatStream struct {
	iterator iter.Seq2[StreamEvent, error]
}

// NewChatStream creates a ChatStream from a raw streaming iterator.
// The iterator yields StreamEvent values (with nil error) for normal deltas,
// and may yield a non-nil error to signal a mid-stream failure, after which
// it must return.
func NewChatStream(iterator iter.Seq2[StreamEvent, error]) *ChatStream {
	return &ChatStream{iterator: iterator}
}

// NewSingleEventStream wraps an already-buffered completion as a stream of
// exactly one text event. This is the fallback used when a model does not
// support streaming: the entire content arrives as one delta.
func NewSingleEventStream(content string) *ChatStream {
	return NewChatStream(func(yield func(StreamEvent, error) bool) {
		yield(TextEvent(content), nil)
	})
}

// Iter returns the underlying iterator for use with range-over-func loops.
//
// Example:
//
//	for event, err := range stream.Iter() {
//	    if err != nil { handle error }
//	    fmt.Print(event.Text)
//	}
func (stream *ChatStream) Iter() iter.Seq2[StreamEvent, error] {
	return stream.iterator
}

// Collect consumes the entire stream and returns the concatenated text.
// A mid-stream error terminates collection and returns the partial text
// together with the error; already-delivered text is never retracted.
func (stream *ChatStream) Collect() (string, error) {
	var builder strings.Builder

	for event, err := range stream.iterator {
		if err != nil {
			return builder.String(), err
		}
		builder.WriteString(event.Text)
	}

	return builder.String(), nil
}

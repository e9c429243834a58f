package ai

import (
	"errors"
	"testing"
)

func TestCollect_ConcatenatesDeltas(t *testing.T) {
	stream := NewChatStream(func(yield func(StreamEvent, error) bool) {
		for _, text := range []string{"Hel", "lo", " world"} {
			if !yield(TextEvent(text), nil) {
				return
			}
		}
	})

	content, err := stream.Collect()
	if err != nil {
		t.Fatalf("Collect returned unexpected error: %v", err)
	}
	if content != "Hello world" {
		t.Errorf("expected %q, got %q", "Hello world", content)
	}
}

func TestCollect_MidStreamErrorKeepsPartialText(t *testing.T) {
	streamErr := errors.New("connection reset")
	stream := NewChatStream(func(yield func(StreamEvent, error) bool) {
		if !yield(TextEvent("partial"), nil) {
			return
		}
		yield(StreamEvent{}, streamErr)
	})

	content, err := stream.Collect()
	if !errors.Is(err, streamErr) {
		t.Fatalf("expected the mid-stream error, got %v", err)
	}
	if content != "partial" {
		t.Errorf("already-delivered text must be preserved, got %q", content)
	}
}

func TestNewSingleEventStream_EmitsExactlyOneEvent(t *testing.T) {
	stream := NewSingleEventStream("full buffered content")

	var events []StreamEvent
	for event, err := range stream.Iter() {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		events = append(events, event)
	}

	if len(events) != 1 {
		t.Fatalf("expected exactly 1 event, got %d", len(events))
	}
	if events[0].Type != StreamEventText || events[0].Text != "full buffered content" {
		t.Errorf("unexpected event: %+v", events[0])
	}
}

func TestIter_EarlyBreakStopsProducer(t *testing.T) {
	produced := 0
	stream := NewChatStream(func(yield func(StreamEvent, error) bool) {
		for i := 0; i < 100; i++ {
			produced++
			if !yield(TextEvent("x"), nil) {
				return
			}
		}
	})

	consumed := 0
	for range stream.Iter() {
		consumed++
		if consumed == 3 {
			break
		}
	}

	if produced != 3 {
		t.Errorf("producer should stop when the consumer breaks: produced %d events", produced)
	}
}

// Package memory defines the conversation-history store consumed by
// interactive front-ends. The adapter itself is stateless per call; a store
// lets a caller thread one conversation across CreateMessage calls.
package memory

import (
	"context"

	"genaihub/providers/ai"
)

// Provider stores an ordered conversation history.
type Provider interface {
	// AppendMessage stores message at the end of the history.
	AppendMessage(ctx context.Context, message *ai.Message)

	// AllMessages returns a copy of the full history in insertion order.
	AllMessages(ctx context.Context) ([]ai.Message, error)

	// Clear removes every stored message.
	Clear(ctx context.Context)
}

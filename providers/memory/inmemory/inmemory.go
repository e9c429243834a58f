package inmemory

import (
	"context"
	"sync"

	"genaihub/providers/ai"
	"genaihub/providers/memory"
)

// ArrayMemory is a simple, concurrency-safe in-memory message store.
// It uses RWMutex to guard access and is efficient for read-heavy workloads.
type ArrayMemory struct {
	mu       sync.RWMutex
	messages []ai.Message
}

// New returns a new, empty [ArrayMemory] ready for immediate use.
func New() *ArrayMemory {
	return &ArrayMemory{
		messages: []ai.Message{},
	}
}

// Ensure ArrayMemory implements memory.Provider at compile time.
var _ memory.Provider = (*ArrayMemory)(nil)

// AppendMessage stores a copy of message at the end of the history.
// It is a no-op when message is nil.
func (m *ArrayMemory) AppendMessage(_ context.Context, message *ai.Message) {
	if message == nil {
		return
	}

	m.mu.Lock()
	m.messages = append(m.messages, *message)
	m.mu.Unlock()
}

// AllMessages returns a copy of all messages to avoid external mutation of
// internal state. The returned slice is never nil.
func (m *ArrayMemory) AllMessages(_ context.Context) ([]ai.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ai.Message, len(m.messages))
	copy(out, m.messages)
	return out, nil
}

// Clear removes every stored message.
func (m *ArrayMemory) Clear(_ context.Context) {
	m.mu.Lock()
	m.messages = m.messages[:0]
	m.mu.Unlock()
}

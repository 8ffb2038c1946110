// Package history keeps the messages reconstructed from provider streams so
// they can be replayed as conversation context.
package history

import (
	"sync"

	"github.com/flynn-ai/unichat/pkg/protocol"
)

// History is an append-only, in-process message log.
type History struct {
	mu       sync.RWMutex
	messages []protocol.Message
}

// New creates an empty history.
func New() *History {
	return &History{}
}

// Append records a completed message.
func (h *History) Append(m protocol.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, m.Clone())
}

// Messages returns a copy of the recorded messages.
func (h *History) Messages() []protocol.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return protocol.CloneMessages(h.messages)
}

// Len returns the number of recorded messages.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

// Last returns the most recent message.
func (h *History) Last() (protocol.Message, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.messages) == 0 {
		return protocol.Message{}, false
	}
	return h.messages[len(h.messages)-1].Clone(), true
}

// Reset drops every recorded message.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = nil
}

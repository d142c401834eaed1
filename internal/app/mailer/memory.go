package mailer

import (
	"context"
	"sync"
)

// MemorySender records messages instead of delivering them. Used by tests and
// local development without an SMTP relay.
type MemorySender struct {
	mu   sync.Mutex
	sent []Message
}

// NewMemorySender creates an empty recorder.
func NewMemorySender() *MemorySender {
	return &MemorySender{}
}

func (s *MemorySender) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

// Sent returns a copy of every recorded message in delivery order.
func (s *MemorySender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.sent))
	copy(out, s.sent)
	return out
}

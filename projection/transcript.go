// Package projection holds in-memory read models built from routed events.
package projection

import (
	"context"
	"sync"

	"support-chat/domain"
	"support-chat/domain/event"
)

// Transcript accumulates accepted messages per session, in delivery order.
// It backs quick admin previews and doubles as a capture sink in tests.
type Transcript struct {
	mu       sync.Mutex
	messages map[string][]domain.ChatMessage
}

func NewTranscript() *Transcript {
	return &Transcript{messages: make(map[string][]domain.ChatMessage)}
}

func (t *Transcript) Consume(_ context.Context, e event.DomainEvent) error {
	accepted, ok := e.(event.MessageAccepted)
	if !ok {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages[accepted.Session] = append(t.messages[accepted.Session], domain.ChatMessage{
		ID:          accepted.ID,
		SessionID:   accepted.Session,
		SenderID:    accepted.SenderID,
		Content:     accepted.Content,
		SenderStaff: accepted.SenderStaff,
		CreatedAt:   accepted.At,
	})
	return nil
}

// Messages returns a copy of the session's transcript so far.
func (t *Transcript) Messages(sessionID string) []domain.ChatMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	transcript := t.messages[sessionID]
	out := make([]domain.ChatMessage, len(transcript))
	copy(out, transcript)
	return out
}

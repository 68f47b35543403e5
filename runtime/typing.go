package runtime

import (
	"context"
	"sync"
	"time"

	"support-chat/contract"
	"support-chat/domain/event"
)

// DefaultTypingQuiet is the quiet window after which a typing indicator
// auto-expires when the client never sends an explicit stop.
const DefaultTypingQuiet = 3 * time.Second

type typingKey struct {
	participantID string
	sessionID     string
}

// TypingDebouncer owns one timer per (participant, session) pair. Keys are
// independent: several simultaneous typists in one session never interfere.
//
// Timer callbacks race with explicit stop-typing events; whichever runs
// last wins, and both converge to "not typing" within the quiet window.
type TypingDebouncer struct {
	mu     sync.Mutex
	router contract.IRouter
	quiet  time.Duration
	timers map[typingKey]*time.Timer
}

func NewTypingDebouncer(router contract.IRouter, quiet time.Duration) *TypingDebouncer {
	if quiet <= 0 {
		quiet = DefaultTypingQuiet
	}
	return &TypingDebouncer{
		router: router,
		quiet:  quiet,
		timers: make(map[typingKey]*time.Timer),
	}
}

// SetTyping broadcasts the typing state to the session, excluding the
// typist's own connections (the client renders its own state optimistically).
// isTyping=true re-arms the expiry timer; isTyping=false cancels it and
// broadcasts the stop immediately.
func (d *TypingDebouncer) SetTyping(ctx context.Context, participantID, sessionID string, isTyping bool) {
	key := typingKey{participantID: participantID, sessionID: sessionID}

	d.mu.Lock()
	if timer, ok := d.timers[key]; ok {
		timer.Stop()
		delete(d.timers, key)
	}
	if isTyping {
		d.timers[key] = time.AfterFunc(d.quiet, func() {
			d.expire(key)
		})
	}
	d.mu.Unlock()

	d.router.Route(ctx, event.TypingChanged{
		Session:       sessionID,
		ParticipantID: participantID,
		IsTyping:      isTyping,
	}, sessionID, participantID)
}

// expire fires when a client went quiet without an explicit stop.
func (d *TypingDebouncer) expire(key typingKey) {
	d.mu.Lock()
	delete(d.timers, key)
	d.mu.Unlock()

	d.router.Route(context.Background(), event.TypingChanged{
		Session:       key.sessionID,
		ParticipantID: key.participantID,
		IsTyping:      false,
	}, key.sessionID, key.participantID)
}

// Stop cancels all pending timers, used on shutdown.
func (d *TypingDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, timer := range d.timers {
		timer.Stop()
		delete(d.timers, key)
	}
}

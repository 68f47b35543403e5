// Package event defines the typed events the engine fans out to connections
// and permanent sinks. Events are value types and safe to copy.
package event

import (
	"time"

	"github.com/google/uuid"

	"support-chat/domain"
)

type DomainEvent interface {
	SessionID() string
}

// MessageAccepted is emitted after a chat message was durably persisted.
// Delivery order to every connection equals acceptance order.
type MessageAccepted struct {
	ID          uuid.UUID
	Session     string
	SenderID    string
	Content     string
	SenderStaff bool
	At          time.Time
}

func (e MessageAccepted) SessionID() string { return e.Session }

// TypingChanged signals a participant started or stopped typing.
type TypingChanged struct {
	Session       string
	ParticipantID string
	IsTyping      bool
}

func (e TypingChanged) SessionID() string { return e.Session }

// SessionStarted is sent to the requester's connections for a fresh session.
type SessionStarted struct {
	Session domain.ChatSession
}

func (e SessionStarted) SessionID() string { return e.Session.ID }

// SessionResumed is sent instead of SessionStarted when an open session
// already existed for the requester.
type SessionResumed struct {
	Session domain.ChatSession
}

func (e SessionResumed) SessionID() string { return e.Session.ID }

// NewSessionAvailable notifies available staff that a session is waiting.
type NewSessionAvailable struct {
	Session domain.ChatSession
}

func (e NewSessionAvailable) SessionID() string { return e.Session.ID }

// AdminJoined announces the staff participant now attached to the session.
type AdminJoined struct {
	Session domain.ChatSession
	StaffID string
}

func (e AdminJoined) SessionID() string { return e.Session.ID }

// SessionUpdated carries the session after any lifecycle mutation.
type SessionUpdated struct {
	Session domain.ChatSession
}

func (e SessionUpdated) SessionID() string { return e.Session.ID }

// SessionEnded is the last event delivered for a session.
type SessionEnded struct {
	Session domain.ChatSession
	EndedBy string
}

func (e SessionEnded) SessionID() string { return e.Session.ID }

// StatusUpdated confirms a staff availability toggle to the actor.
type StatusUpdated struct {
	Presence domain.PresenceRecord
}

func (e StatusUpdated) SessionID() string { return "" }

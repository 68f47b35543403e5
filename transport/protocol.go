// Package transport exposes the engine over a WebSocket endpoint.
// Frames are flat JSON envelopes discriminated by the "type" field.
package transport

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"support-chat/domain"
	"support-chat/domain/event"
)

// Client to server frame types.
const (
	TypeAuth              = "auth"
	TypeStartSession      = "start_session"
	TypeSendMessage       = "send_message"
	TypeTyping            = "typing"
	TypeJoinSession       = "join_session"
	TypeEndSession        = "end_session"
	TypeAdminStatusUpdate = "admin_status_update"
	TypePing              = "ping"
)

// Server to client frame types.
const (
	TypeAuthSuccess    = "auth_success"
	TypeSessionStarted = "session_started"
	TypeSessionResumed = "session_resumed"
	TypeMessage        = "message"
	TypeNewSession     = "new_session"
	TypeSessionJoined  = "session_joined"
	TypeAdminJoined    = "admin_joined"
	TypeSessionUpdate  = "session_update"
	TypeSessionEnded   = "session_ended"
	TypeStatusUpdated  = "status_updated"
	TypeError          = "error"
	TypePong           = "pong"
)

// Error codes carried in error envelopes.
const (
	CodeInvalidPayload    = "invalid_payload"
	CodeNotAuthenticated  = "not_authenticated"
	CodeNoActiveSession   = "no_active_session"
	CodeSessionNotFound   = "session_not_found"
	CodeSessionTerminal   = "session_terminal"
	CodeStaffRoleRequired = "staff_role_required"
	CodeNotParticipant    = "not_session_participant"
	CodeInternal          = "internal"
)

// Envelope is the single frame shape for both directions. Fields not
// meaningful for a given type stay zero and are omitted on the wire.
type Envelope struct {
	Type      string    `json:"type" validate:"required"`
	SessionID string    `json:"sessionId,omitempty" validate:"required"`
	Timestamp time.Time `json:"timestamp,omitempty"`

	// Client to server.
	Token        string `json:"token,omitempty" validate:"required"`
	Subject      string `json:"subject,omitempty" validate:"max=200"`
	DepartmentID string `json:"departmentId,omitempty" validate:"max=64"`
	Content      string `json:"content,omitempty" validate:"required,max=4000"`
	IsTyping     *bool  `json:"isTyping,omitempty" validate:"required"`
	Online       *bool  `json:"online,omitempty" validate:"required"`
	Available    *bool  `json:"available,omitempty" validate:"required"`

	// Server to client.
	MessageID   string        `json:"messageId,omitempty"`
	SenderID    string        `json:"senderId,omitempty"`
	SenderStaff *bool         `json:"senderStaff,omitempty"`
	StaffID     string        `json:"staffId,omitempty"`
	EndedBy     string        `json:"endedBy,omitempty"`
	Outcome     string        `json:"outcome,omitempty"`
	UserID      string        `json:"userId,omitempty"`
	Name        string        `json:"name,omitempty"`
	Role        string        `json:"role,omitempty"`
	Session     *SessionView  `json:"session,omitempty"`
	Presence    *PresenceView `json:"presence,omitempty"`
	Code        string        `json:"code,omitempty"`
	Error       string        `json:"error,omitempty"`
}

type SessionView struct {
	ID              string     `json:"id"`
	RequesterID     string     `json:"requesterId"`
	AssignedStaffID string     `json:"assignedStaffId,omitempty"`
	DepartmentID    string     `json:"departmentId,omitempty"`
	Status          string     `json:"status"`
	Subject         string     `json:"subject"`
	CreatedAt       time.Time  `json:"createdAt"`
	LastActivityAt  time.Time  `json:"lastActivityAt"`
	EndedAt         *time.Time `json:"endedAt,omitempty"`
	TicketID        string     `json:"ticketId,omitempty"`
}

type PresenceView struct {
	StaffID   string    `json:"staffId"`
	Online    bool      `json:"online"`
	Available bool      `json:"available"`
	LastSeen  time.Time `json:"lastSeen"`
}

func NewSessionView(s domain.ChatSession) *SessionView {
	return &SessionView{
		ID:              s.ID,
		RequesterID:     s.RequesterID,
		AssignedStaffID: s.AssignedStaffID,
		DepartmentID:    s.DepartmentID,
		Status:          string(s.Status),
		Subject:         s.Subject,
		CreatedAt:       s.CreatedAt,
		LastActivityAt:  s.LastActivityAt,
		EndedAt:         s.EndedAt,
		TicketID:        s.TicketID,
	}
}

func NewPresenceView(p domain.PresenceRecord) *PresenceView {
	return &PresenceView{
		StaffID:   p.StaffID,
		Online:    p.Online,
		Available: p.Available,
		LastSeen:  p.LastSeen,
	}
}

// inboundFields maps each client frame type to the envelope fields that must
// pass their validate tags. Unknown types are rejected up front.
var inboundFields = map[string][]string{
	TypeAuth:              {"Token"},
	TypeStartSession:      {"Subject", "DepartmentID"},
	TypeSendMessage:       {"SessionID", "Content"},
	TypeTyping:            {"SessionID", "IsTyping"},
	TypeJoinSession:       {"SessionID"},
	TypeEndSession:        {"SessionID"},
	TypeAdminStatusUpdate: {"Online", "Available"},
	TypePing:              nil,
}

type frameValidator struct {
	validate *validator.Validate
}

func newFrameValidator() *frameValidator {
	return &frameValidator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

func (v *frameValidator) ValidateInbound(env Envelope) error {
	fields, ok := inboundFields[env.Type]
	if !ok {
		return fmt.Errorf("unknown frame type %q", env.Type)
	}
	if len(fields) == 0 {
		return nil
	}
	return v.validate.StructPartial(env, fields...)
}

// ToEnvelope converts an engine event into its wire frame. The second return
// is false for events with no wire representation.
func ToEnvelope(e event.DomainEvent) (Envelope, bool) {
	switch ev := e.(type) {
	case event.MessageAccepted:
		staff := ev.SenderStaff
		return Envelope{
			Type:        TypeMessage,
			SessionID:   ev.Session,
			MessageID:   ev.ID.String(),
			SenderID:    ev.SenderID,
			SenderStaff: &staff,
			Content:     ev.Content,
			Timestamp:   ev.At,
		}, true
	case event.TypingChanged:
		typing := ev.IsTyping
		return Envelope{
			Type:      TypeTyping,
			SessionID: ev.Session,
			SenderID:  ev.ParticipantID,
			IsTyping:  &typing,
		}, true
	case event.SessionStarted:
		return Envelope{Type: TypeSessionStarted, SessionID: ev.Session.ID, Session: NewSessionView(ev.Session)}, true
	case event.SessionResumed:
		return Envelope{Type: TypeSessionResumed, SessionID: ev.Session.ID, Session: NewSessionView(ev.Session)}, true
	case event.NewSessionAvailable:
		return Envelope{Type: TypeNewSession, SessionID: ev.Session.ID, Session: NewSessionView(ev.Session)}, true
	case event.AdminJoined:
		return Envelope{Type: TypeAdminJoined, SessionID: ev.Session.ID, StaffID: ev.StaffID, Session: NewSessionView(ev.Session)}, true
	case event.SessionUpdated:
		return Envelope{Type: TypeSessionUpdate, SessionID: ev.Session.ID, Session: NewSessionView(ev.Session)}, true
	case event.SessionEnded:
		return Envelope{Type: TypeSessionEnded, SessionID: ev.Session.ID, EndedBy: ev.EndedBy, Session: NewSessionView(ev.Session)}, true
	case event.StatusUpdated:
		return Envelope{Type: TypeStatusUpdated, Presence: NewPresenceView(ev.Presence)}, true
	default:
		return Envelope{}, false
	}
}

//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"context"

	"support-chat/domain"
	"support-chat/repositories"
	"support-chat/runtime"
)

// IChatService is the engine surface consumed by the WebSocket transport
// and by the portal's CRUD/admin layer (session listing, moderation).
type IChatService interface {
	StartSession(ctx context.Context, requesterID, subject, departmentID string) (domain.ChatSession, bool, error)
	JoinSession(ctx context.Context, sessionID, staffID string) (domain.ChatSession, runtime.JoinOutcome, error)
	EndSession(ctx context.Context, sessionID, endedBy string) (domain.ChatSession, error)
	ConvertToTicket(ctx context.Context, sessionID, ticketID, adminID string) (domain.ChatSession, error)
	SendMessage(ctx context.Context, sessionID string, sender domain.Participant, content string) (domain.ChatMessage, error)
	SetTyping(ctx context.Context, participantID, sessionID string, isTyping bool)
	SetStaffStatus(ctx context.Context, staffID string, online, available bool) domain.PresenceRecord

	GetSession(ctx context.Context, sessionID string) (domain.ChatSession, error)
	GetActiveSessions(ctx context.Context) ([]domain.ChatSession, error)
	GetSessionMessages(ctx context.Context, sessionID string) ([]domain.ChatMessage, error)
	AssignSessionToAdmin(ctx context.Context, sessionID, adminID string) (domain.ChatSession, runtime.JoinOutcome, error)
	SearchTranscripts(ctx context.Context, terms, sessionID string, limit int) ([]repositories.MessageHit, error)
}

type ChatService struct {
	lifecycle *runtime.Lifecycle
	typing    *runtime.TypingDebouncer
	presence  *runtime.PresenceTracker
	search    repositories.ISearchIndex
}

func NewChatService(lifecycle *runtime.Lifecycle, typing *runtime.TypingDebouncer,
	presence *runtime.PresenceTracker, search repositories.ISearchIndex) *ChatService {
	return &ChatService{lifecycle: lifecycle, typing: typing, presence: presence, search: search}
}

func (s *ChatService) StartSession(ctx context.Context, requesterID, subject, departmentID string) (domain.ChatSession, bool, error) {
	return s.lifecycle.Start(ctx, requesterID, subject, departmentID)
}

func (s *ChatService) JoinSession(ctx context.Context, sessionID, staffID string) (domain.ChatSession, runtime.JoinOutcome, error) {
	return s.lifecycle.Join(ctx, sessionID, staffID)
}

func (s *ChatService) EndSession(ctx context.Context, sessionID, endedBy string) (domain.ChatSession, error) {
	return s.lifecycle.End(ctx, sessionID, endedBy)
}

func (s *ChatService) ConvertToTicket(ctx context.Context, sessionID, ticketID, adminID string) (domain.ChatSession, error) {
	return s.lifecycle.ConvertToTicket(ctx, sessionID, ticketID, adminID)
}

func (s *ChatService) SendMessage(ctx context.Context, sessionID string, sender domain.Participant, content string) (domain.ChatMessage, error) {
	return s.lifecycle.SendMessage(ctx, sessionID, sender, content)
}

func (s *ChatService) SetTyping(ctx context.Context, participantID, sessionID string, isTyping bool) {
	s.typing.SetTyping(ctx, participantID, sessionID, isTyping)
}

func (s *ChatService) SetStaffStatus(ctx context.Context, staffID string, online, available bool) domain.PresenceRecord {
	return s.presence.SetStatus(ctx, staffID, online, available)
}

func (s *ChatService) GetSession(ctx context.Context, sessionID string) (domain.ChatSession, error) {
	return s.lifecycle.Session(ctx, sessionID)
}

func (s *ChatService) GetActiveSessions(ctx context.Context) ([]domain.ChatSession, error) {
	return s.lifecycle.ActiveSessions(ctx)
}

func (s *ChatService) GetSessionMessages(ctx context.Context, sessionID string) ([]domain.ChatMessage, error) {
	return s.lifecycle.SessionMessages(ctx, sessionID)
}

func (s *ChatService) AssignSessionToAdmin(ctx context.Context, sessionID, adminID string) (domain.ChatSession, runtime.JoinOutcome, error) {
	return s.lifecycle.AssignToAdmin(ctx, sessionID, adminID)
}

func (s *ChatService) SearchTranscripts(ctx context.Context, terms, sessionID string, limit int) ([]repositories.MessageHit, error) {
	return s.search.Search(ctx, terms, sessionID, limit)
}

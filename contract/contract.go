//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"support-chat/domain"
	"support-chat/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself.
// Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// Connection is one live transport link, owned by the registry for its
// lifetime. A connection fans events to exactly one browser tab.
type Connection interface {
	EventSink
	ID() string
	ParticipantID() string
	Role() domain.Role
}

type IRegistry interface {
	Register(conn Connection)
	Join(sessionID string, conn Connection)
	Unregister(conn Connection)
	ClearSession(sessionID string)
	ConnectionsForSession(sessionID string) []Connection
	ConnectionsForParticipant(participantID string) []Connection
}

// Storage is the persistence collaborator. The engine treats it as an
// opaque service and never reaches into its schema.
type Storage interface {
	CreateSession(ctx context.Context, session domain.ChatSession) error
	GetSession(ctx context.Context, id string) (domain.ChatSession, error)
	UpdateSession(ctx context.Context, session domain.ChatSession) error
	ActiveSessionForRequester(ctx context.Context, requesterID string) (domain.ChatSession, bool, error)
	ActiveSessions(ctx context.Context) ([]domain.ChatSession, error)
	CreateMessage(ctx context.Context, message domain.ChatMessage) error
	ListMessages(ctx context.Context, sessionID string) ([]domain.ChatMessage, error)
	GetUser(ctx context.Context, id string) (domain.Participant, error)
	UpsertPresence(ctx context.Context, record domain.PresenceRecord) error
	AvailablePresences(ctx context.Context) ([]domain.PresenceRecord, error)
}

// Notifier is the outbound notification collaborator (Discord/email live
// behind it in the portal). Failures are logged, never propagated.
type Notifier interface {
	NotifyNewSession(ctx context.Context, session domain.ChatSession) error
}

// Authenticator resolves a handshake token into a participant identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Participant, error)
}

type IRouter interface {
	Route(ctx context.Context, e event.DomainEvent, sessionID string, excludeParticipantID string)
	RouteToParticipant(ctx context.Context, e event.DomainEvent, participantID string)
}

type IPresence interface {
	SetStatus(ctx context.Context, staffID string, online, available bool) domain.PresenceRecord
	AvailableStaff(ctx context.Context) []domain.PresenceRecord
}

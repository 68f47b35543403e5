package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"support-chat/contract"
	"support-chat/domain"
	"support-chat/domain/event"
	"support-chat/errors"
)

// JoinOutcome makes the assignment decision observable to callers instead
// of silently ignoring a second staff join.
type JoinOutcome string

const (
	// JoinAssigned means the session had no staff and now belongs to the joiner.
	JoinAssigned JoinOutcome = "assigned"
	// JoinRejoined means the assigned staff re-attached (new tab, reconnect).
	JoinRejoined JoinOutcome = "rejoined"
	// JoinAlreadyAssigned means another staff already owns the session.
	// The joiner still gets visibility; assignment is first-writer-wins.
	JoinAlreadyAssigned JoinOutcome = "already_assigned"
)

// Lifecycle owns the session state machine: create, assign, activate,
// close, convert. It is the only component that mutates persisted session
// records, always through the storage collaborator.
type Lifecycle struct {
	log      *slog.Logger
	storage  contract.Storage
	registry contract.IRegistry
	router   contract.IRouter
	presence contract.IPresence
	notifier contract.Notifier

	// acceptMu serializes message acceptance so that delivery order equals
	// acceptance order even with one goroutine per connection.
	acceptMu sync.Mutex

	now func() time.Time
}

func NewLifecycle(log *slog.Logger, storage contract.Storage, registry contract.IRegistry,
	router contract.IRouter, presence contract.IPresence, notifier contract.Notifier) *Lifecycle {
	return &Lifecycle{
		log:      log,
		storage:  storage,
		registry: registry,
		router:   router,
		presence: presence,
		notifier: notifier,
		now:      time.Now,
	}
}

// Start resumes the requester's open session if one exists, otherwise
// creates a fresh one in "waiting" and notifies every available staff
// member. A requester holds at most one non-terminal session at a time.
func (l *Lifecycle) Start(ctx context.Context, requesterID, subject, departmentID string) (domain.ChatSession, bool, error) {
	existing, found, err := l.storage.ActiveSessionForRequester(ctx, requesterID)
	if err != nil {
		return domain.ChatSession{}, false, fmt.Errorf("lookup open session: %w", err)
	}
	if found {
		l.router.RouteToParticipant(ctx, event.SessionResumed{Session: existing}, requesterID)
		return existing, true, nil
	}

	now := l.now().UTC()
	session := domain.ChatSession{
		ID:             uuid.NewString(),
		RequesterID:    requesterID,
		DepartmentID:   departmentID,
		Status:         domain.StatusWaiting,
		Subject:        subject,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	if err := l.storage.CreateSession(ctx, session); err != nil {
		return domain.ChatSession{}, false, fmt.Errorf("create session: %w", err)
	}

	l.router.RouteToParticipant(ctx, event.SessionStarted{Session: session}, requesterID)
	l.notifyStaff(ctx, session)
	return session, false, nil
}

// notifyStaff fans the new-session event to every available staff member's
// connections and to the outbound notifier. Both are best-effort.
func (l *Lifecycle) notifyStaff(ctx context.Context, session domain.ChatSession) {
	for _, record := range l.presence.AvailableStaff(ctx) {
		l.router.RouteToParticipant(ctx, event.NewSessionAvailable{Session: session}, record.StaffID)
	}
	if l.notifier == nil {
		return
	}
	if err := l.notifier.NotifyNewSession(ctx, session); err != nil {
		l.log.Warn("New-session notification failed", "session_id", session.ID, "error", err)
	}
}

// Join attaches a staff participant to the session. Assignment is
// first-writer-wins; the transition waiting→active happens on any staff
// join. The session participants receive a session_update broadcast.
func (l *Lifecycle) Join(ctx context.Context, sessionID, staffID string) (domain.ChatSession, JoinOutcome, error) {
	session, err := l.storage.GetSession(ctx, sessionID)
	if err != nil {
		return domain.ChatSession{}, "", errors.ErrSessionNotFound
	}
	if session.Status.Terminal() {
		return domain.ChatSession{}, "", errors.ErrSessionTerminal
	}

	outcome := JoinRejoined
	switch {
	case session.AssignedStaffID == "":
		session.AssignedStaffID = staffID
		outcome = JoinAssigned
	case session.AssignedStaffID != staffID:
		outcome = JoinAlreadyAssigned
	}

	if session.Status == domain.StatusWaiting {
		if err := session.Transition(domain.StatusActive); err != nil {
			return domain.ChatSession{}, "", err
		}
	}
	session.LastActivityAt = l.now().UTC()

	if err := l.storage.UpdateSession(ctx, session); err != nil {
		return domain.ChatSession{}, "", fmt.Errorf("update session: %w", err)
	}

	l.router.Route(ctx, event.AdminJoined{Session: session, StaffID: staffID}, sessionID, staffID)
	l.router.Route(ctx, event.SessionUpdated{Session: session}, sessionID, "")
	return session, outcome, nil
}

// End closes the session, stamps endedAt, clears its delivery set and
// broadcasts session_ended as the final event.
func (l *Lifecycle) End(ctx context.Context, sessionID, endedBy string) (domain.ChatSession, error) {
	session, err := l.storage.GetSession(ctx, sessionID)
	if err != nil {
		return domain.ChatSession{}, errors.ErrSessionNotFound
	}
	if err := session.Transition(domain.StatusClosed); err != nil {
		return domain.ChatSession{}, err
	}
	endedAt := l.now().UTC()
	session.EndedAt = &endedAt

	if err := l.storage.UpdateSession(ctx, session); err != nil {
		return domain.ChatSession{}, fmt.Errorf("update session: %w", err)
	}

	l.router.Route(ctx, event.SessionEnded{Session: session, EndedBy: endedBy}, sessionID, "")
	l.registry.ClearSession(sessionID)
	return session, nil
}

// ConvertToTicket terminates the session into the ticketing system. The
// status is distinct from closed but equally terminal.
func (l *Lifecycle) ConvertToTicket(ctx context.Context, sessionID, ticketID, adminID string) (domain.ChatSession, error) {
	session, err := l.storage.GetSession(ctx, sessionID)
	if err != nil {
		return domain.ChatSession{}, errors.ErrSessionNotFound
	}
	if err := session.Transition(domain.StatusConverted); err != nil {
		return domain.ChatSession{}, err
	}
	convertedAt := l.now().UTC()
	session.ConvertedAt = &convertedAt
	session.TicketID = ticketID
	session.ConvertedBy = adminID

	if err := l.storage.UpdateSession(ctx, session); err != nil {
		return domain.ChatSession{}, fmt.Errorf("update session: %w", err)
	}

	l.router.Route(ctx, event.SessionUpdated{Session: session}, sessionID, "")
	return session, nil
}

// TouchActivity updates lastActivityAt, called on every accepted message.
func (l *Lifecycle) TouchActivity(ctx context.Context, sessionID string) {
	session, err := l.storage.GetSession(ctx, sessionID)
	if err != nil {
		return
	}
	session.LastActivityAt = l.now().UTC()
	if err := l.storage.UpdateSession(ctx, session); err != nil {
		l.log.Warn("Activity touch failed", "session_id", sessionID, "error", err)
	}
}

// SendMessage accepts a chat message for an open session: persist first
// (a storage failure aborts the whole operation, nothing is broadcast),
// then fan out, then touch activity. The accept mutex makes acceptance
// order total per process, which is the delivery order guarantee.
func (l *Lifecycle) SendMessage(ctx context.Context, sessionID string, sender domain.Participant, content string) (domain.ChatMessage, error) {
	l.acceptMu.Lock()
	defer l.acceptMu.Unlock()

	session, err := l.storage.GetSession(ctx, sessionID)
	if err != nil || session.Status.Terminal() {
		return domain.ChatMessage{}, errors.ErrNoActiveSession
	}
	if !session.HasParticipant(sender.ID) {
		return domain.ChatMessage{}, errors.ErrNotParticipant
	}

	message := domain.ChatMessage{
		ID:          uuid.New(),
		SessionID:   sessionID,
		SenderID:    sender.ID,
		Content:     content,
		SenderStaff: sender.Role == domain.RoleStaff,
		CreatedAt:   l.now().UTC(),
	}
	if err := l.storage.CreateMessage(ctx, message); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("persist message: %w", err)
	}

	// Message events are echoed to the sender as well so every tab renders
	// the same transcript.
	l.router.Route(ctx, event.MessageAccepted{
		ID:          message.ID,
		Session:     sessionID,
		SenderID:    message.SenderID,
		Content:     message.Content,
		SenderStaff: message.SenderStaff,
		At:          message.CreatedAt,
	}, sessionID, "")

	session.LastActivityAt = message.CreatedAt
	if err := l.storage.UpdateSession(ctx, session); err != nil {
		l.log.Warn("Activity touch failed", "session_id", sessionID, "error", err)
	}
	return message, nil
}

// Session returns one session by id.
func (l *Lifecycle) Session(ctx context.Context, sessionID string) (domain.ChatSession, error) {
	session, err := l.storage.GetSession(ctx, sessionID)
	if err != nil {
		return domain.ChatSession{}, errors.ErrSessionNotFound
	}
	return session, nil
}

// ActiveSessions lists every non-terminal session for the portal's admin
// screens.
func (l *Lifecycle) ActiveSessions(ctx context.Context) ([]domain.ChatSession, error) {
	return l.storage.ActiveSessions(ctx)
}

// SessionMessages returns the persisted transcript in acceptance order.
func (l *Lifecycle) SessionMessages(ctx context.Context, sessionID string) ([]domain.ChatMessage, error) {
	return l.storage.ListMessages(ctx, sessionID)
}

// AssignToAdmin is the moderation-screen entry point for Join.
func (l *Lifecycle) AssignToAdmin(ctx context.Context, sessionID, adminID string) (domain.ChatSession, JoinOutcome, error) {
	return l.Join(ctx, sessionID, adminID)
}

// EndSession is the moderation-screen entry point for End.
func (l *Lifecycle) EndSession(ctx context.Context, sessionID, adminID string) (domain.ChatSession, error) {
	return l.End(ctx, sessionID, adminID)
}

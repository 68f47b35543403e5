package runtime_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"support-chat/domain"
	"support-chat/domain/event"
	"support-chat/errors"
	"support-chat/mocks"
	"support-chat/runtime"
)

type lifecycleMocks struct {
	storage  *mocks.MockStorage
	registry *mocks.MockIRegistry
	router   *mocks.MockIRouter
	presence *mocks.MockIPresence
	notifier *mocks.MockNotifier
}

func newLifecycle(t *testing.T) (*runtime.Lifecycle, lifecycleMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := lifecycleMocks{
		storage:  mocks.NewMockStorage(ctrl),
		registry: mocks.NewMockIRegistry(ctrl),
		router:   mocks.NewMockIRouter(ctrl),
		presence: mocks.NewMockIPresence(ctrl),
		notifier: mocks.NewMockNotifier(ctrl),
	}
	lifecycle := runtime.NewLifecycle(slog.Default(), m.storage, m.registry, m.router, m.presence, m.notifier)
	return lifecycle, m
}

func TestLifecycle_StartFreshSession(t *testing.T) {
	req := require.New(t)
	lifecycle, m := newLifecycle(t)
	ctx := context.Background()

	// Given no open session for the requester and two available staff
	m.storage.EXPECT().ActiveSessionForRequester(ctx, "user-1").Return(domain.ChatSession{}, false, nil)
	m.storage.EXPECT().CreateSession(ctx, gomock.Any()).Return(nil)
	m.presence.EXPECT().AvailableStaff(ctx).Return([]domain.PresenceRecord{
		{StaffID: "staff-1", Online: true, Available: true},
		{StaffID: "staff-2", Online: true, Available: true},
	})

	var notified []string
	m.router.EXPECT().RouteToParticipant(ctx, gomock.AssignableToTypeOf(event.SessionStarted{}), "user-1")
	m.router.EXPECT().
		RouteToParticipant(ctx, gomock.AssignableToTypeOf(event.NewSessionAvailable{}), gomock.Any()).
		Do(func(_ context.Context, _ event.DomainEvent, staffID string) {
			notified = append(notified, staffID)
		}).Times(2)
	m.notifier.EXPECT().NotifyNewSession(ctx, gomock.Any()).Return(nil)

	// When starting a session
	session, resumed, err := lifecycle.Start(ctx, "user-1", "VPS is down", "infra")

	// Then a waiting session exists and every available staff was pinged
	req.NoError(err)
	req.False(resumed)
	req.NotEmpty(session.ID)
	req.Equal(domain.StatusWaiting, session.Status)
	req.Equal("user-1", session.RequesterID)
	req.ElementsMatch([]string{"staff-1", "staff-2"}, notified)
}

func TestLifecycle_StartResumesOpenSession(t *testing.T) {
	req := require.New(t)
	lifecycle, m := newLifecycle(t)
	ctx := context.Background()

	existing := domain.ChatSession{ID: "session-a", RequesterID: "user-1", Status: domain.StatusActive}
	m.storage.EXPECT().ActiveSessionForRequester(ctx, "user-1").Return(existing, true, nil)
	m.router.EXPECT().RouteToParticipant(ctx, event.SessionResumed{Session: existing}, "user-1")

	// When the requester starts again
	session, resumed, err := lifecycle.Start(ctx, "user-1", "ignored subject", "")

	// Then the very same session comes back, nothing new is created
	req.NoError(err)
	req.True(resumed)
	req.Equal("session-a", session.ID)
}

func TestLifecycle_JoinAssignsFirstStaff(t *testing.T) {
	req := require.New(t)
	lifecycle, m := newLifecycle(t)
	ctx := context.Background()

	waiting := domain.ChatSession{ID: "session-a", RequesterID: "user-1", Status: domain.StatusWaiting}
	m.storage.EXPECT().GetSession(ctx, "session-a").Return(waiting, nil)

	var updated domain.ChatSession
	m.storage.EXPECT().UpdateSession(ctx, gomock.Any()).
		Do(func(_ context.Context, s domain.ChatSession) { updated = s }).Return(nil)
	m.router.EXPECT().Route(ctx, gomock.AssignableToTypeOf(event.AdminJoined{}), "session-a", "staff-1")
	m.router.EXPECT().Route(ctx, gomock.AssignableToTypeOf(event.SessionUpdated{}), "session-a", "")

	session, outcome, err := lifecycle.Join(ctx, "session-a", "staff-1")

	req.NoError(err)
	req.Equal(runtime.JoinAssigned, outcome)
	req.Equal(domain.StatusActive, session.Status)
	req.Equal("staff-1", session.AssignedStaffID)
	req.Equal("staff-1", updated.AssignedStaffID)
}

func TestLifecycle_JoinSecondStaffKeepsFirstAssignment(t *testing.T) {
	req := require.New(t)
	lifecycle, m := newLifecycle(t)
	ctx := context.Background()

	active := domain.ChatSession{
		ID: "session-a", RequesterID: "user-1",
		AssignedStaffID: "staff-1", Status: domain.StatusActive,
	}
	m.storage.EXPECT().GetSession(ctx, "session-a").Return(active, nil)
	m.storage.EXPECT().UpdateSession(ctx, gomock.Any()).Return(nil)
	m.router.EXPECT().Route(ctx, gomock.Any(), "session-a", "staff-2")
	m.router.EXPECT().Route(ctx, gomock.Any(), "session-a", "")

	// When a second staff joins an already assigned session
	session, outcome, err := lifecycle.Join(ctx, "session-a", "staff-2")

	// Then the first assignment sticks and the outcome says so
	req.NoError(err)
	req.Equal(runtime.JoinAlreadyAssigned, outcome)
	req.Equal("staff-1", session.AssignedStaffID)
}

func TestLifecycle_JoinSameStaffAgainIsRejoin(t *testing.T) {
	req := require.New(t)
	lifecycle, m := newLifecycle(t)
	ctx := context.Background()

	active := domain.ChatSession{
		ID: "session-a", AssignedStaffID: "staff-1", Status: domain.StatusActive,
	}
	m.storage.EXPECT().GetSession(ctx, "session-a").Return(active, nil)
	m.storage.EXPECT().UpdateSession(ctx, gomock.Any()).Return(nil)
	m.router.EXPECT().Route(ctx, gomock.Any(), "session-a", "staff-1")
	m.router.EXPECT().Route(ctx, gomock.Any(), "session-a", "")

	_, outcome, err := lifecycle.Join(ctx, "session-a", "staff-1")

	req.NoError(err)
	req.Equal(runtime.JoinRejoined, outcome)
}

func TestLifecycle_JoinTerminalSessionRejected(t *testing.T) {
	req := require.New(t)
	lifecycle, m := newLifecycle(t)
	ctx := context.Background()

	closed := domain.ChatSession{ID: "session-a", Status: domain.StatusClosed}
	m.storage.EXPECT().GetSession(ctx, "session-a").Return(closed, nil)

	_, _, err := lifecycle.Join(ctx, "session-a", "staff-1")

	req.ErrorIs(err, errors.ErrSessionTerminal)
}

func TestLifecycle_SendMessagePersistsBeforeBroadcast(t *testing.T) {
	req := require.New(t)
	lifecycle, m := newLifecycle(t)
	ctx := context.Background()

	active := domain.ChatSession{ID: "session-a", RequesterID: "user-1", Status: domain.StatusActive}
	m.storage.EXPECT().GetSession(ctx, "session-a").Return(active, nil)

	persisted := false
	m.storage.EXPECT().CreateMessage(ctx, gomock.Any()).
		Do(func(context.Context, domain.ChatMessage) { persisted = true }).Return(nil)
	m.router.EXPECT().
		Route(ctx, gomock.AssignableToTypeOf(event.MessageAccepted{}), "session-a", "").
		Do(func(_ context.Context, e event.DomainEvent, _, _ string) {
			// Broadcast only happens once the write landed
			req.True(persisted)
			accepted := e.(event.MessageAccepted)
			req.Equal("hello", accepted.Content)
			req.False(accepted.SenderStaff)
		})
	m.storage.EXPECT().UpdateSession(ctx, gomock.Any()).Return(nil)

	sender := domain.Participant{ID: "user-1", Role: domain.RoleCustomer}
	message, err := lifecycle.SendMessage(ctx, "session-a", sender, "hello")

	req.NoError(err)
	req.Equal("session-a", message.SessionID)
	req.NotZero(message.ID)
}

func TestLifecycle_SendMessageStorageFailureAbortsBroadcast(t *testing.T) {
	req := require.New(t)
	lifecycle, m := newLifecycle(t)
	ctx := context.Background()

	active := domain.ChatSession{ID: "session-a", RequesterID: "user-1", Status: domain.StatusActive}
	m.storage.EXPECT().GetSession(ctx, "session-a").Return(active, nil)
	m.storage.EXPECT().CreateMessage(ctx, gomock.Any()).Return(errors.ErrWorkerPanic)
	// No Route expectation: nothing may be broadcast

	sender := domain.Participant{ID: "user-1", Role: domain.RoleCustomer}
	_, err := lifecycle.SendMessage(ctx, "session-a", sender, "hello")

	req.Error(err)
}

func TestLifecycle_SendMessageFromOutsiderRejected(t *testing.T) {
	req := require.New(t)
	lifecycle, m := newLifecycle(t)
	ctx := context.Background()

	active := domain.ChatSession{
		ID: "session-a", RequesterID: "user-1",
		AssignedStaffID: "staff-1", Status: domain.StatusActive,
	}
	m.storage.EXPECT().GetSession(ctx, "session-a").Return(active, nil)
	// No CreateMessage or Route expectation: the message must not land

	sender := domain.Participant{ID: "intruder", Role: domain.RoleCustomer}
	_, err := lifecycle.SendMessage(ctx, "session-a", sender, "injected")

	req.ErrorIs(err, errors.ErrNotParticipant)
}

func TestLifecycle_SendMessageToTerminalSessionRejected(t *testing.T) {
	req := require.New(t)
	lifecycle, m := newLifecycle(t)
	ctx := context.Background()

	converted := domain.ChatSession{ID: "session-a", Status: domain.StatusConverted}
	m.storage.EXPECT().GetSession(ctx, "session-a").Return(converted, nil)

	sender := domain.Participant{ID: "user-1", Role: domain.RoleCustomer}
	_, err := lifecycle.SendMessage(ctx, "session-a", sender, "too late")

	req.ErrorIs(err, errors.ErrNoActiveSession)
}

func TestLifecycle_EndClosesAndClearsDeliverySet(t *testing.T) {
	req := require.New(t)
	lifecycle, m := newLifecycle(t)
	ctx := context.Background()

	active := domain.ChatSession{ID: "session-a", Status: domain.StatusActive}
	m.storage.EXPECT().GetSession(ctx, "session-a").Return(active, nil)
	m.storage.EXPECT().UpdateSession(ctx, gomock.Any()).Return(nil)

	gomock.InOrder(
		m.router.EXPECT().Route(ctx, gomock.AssignableToTypeOf(event.SessionEnded{}), "session-a", ""),
		m.registry.EXPECT().ClearSession("session-a"),
	)

	session, err := lifecycle.End(ctx, "session-a", "staff-1")

	req.NoError(err)
	req.Equal(domain.StatusClosed, session.Status)
	req.NotNil(session.EndedAt)
}

func TestLifecycle_EndTwiceRejected(t *testing.T) {
	req := require.New(t)
	lifecycle, m := newLifecycle(t)
	ctx := context.Background()

	closed := domain.ChatSession{ID: "session-a", Status: domain.StatusClosed}
	m.storage.EXPECT().GetSession(ctx, "session-a").Return(closed, nil)

	_, err := lifecycle.End(ctx, "session-a", "staff-1")

	req.ErrorIs(err, errors.ErrInvalidTransition)
}

func TestLifecycle_ConvertToTicket(t *testing.T) {
	req := require.New(t)
	lifecycle, m := newLifecycle(t)
	ctx := context.Background()

	active := domain.ChatSession{ID: "session-a", Status: domain.StatusActive}
	m.storage.EXPECT().GetSession(ctx, "session-a").Return(active, nil)
	m.storage.EXPECT().UpdateSession(ctx, gomock.Any()).Return(nil)
	m.router.EXPECT().Route(ctx, gomock.AssignableToTypeOf(event.SessionUpdated{}), "session-a", "")

	session, err := lifecycle.ConvertToTicket(ctx, "session-a", "TCK-42", "staff-1")

	req.NoError(err)
	req.Equal(domain.StatusConverted, session.Status)
	req.Equal("TCK-42", session.TicketID)
	req.Equal("staff-1", session.ConvertedBy)
	req.NotNil(session.ConvertedAt)
}

package transport_test

import (
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"support-chat/auth"
	"support-chat/domain"
	"support-chat/notify"
	"support-chat/observability"
	"support-chat/projection"
	"support-chat/repositories"
	"support-chat/runtime"
	"support-chat/services"
	"support-chat/transport"
)

const testTypingQuiet = 100 * time.Millisecond

type testEngine struct {
	url           string
	authenticator *auth.TokenAuthenticator
	monitoring    *observability.MonitoringManager
	presence      *runtime.PresenceTracker
}

func startEngine(t *testing.T) *testEngine {
	t.Helper()
	log := slog.Default()

	db, err := badger.Open(badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store := repositories.NewStore(db, log)

	monitoring := observability.NewMonitoringManager()
	presence := runtime.NewPresenceTracker(log, store)
	registry := runtime.NewRegistry(nil)
	router := runtime.NewRouter(log, registry)
	router.AddSink(projection.NewTranscript())
	typing := runtime.NewTypingDebouncer(router, testTypingQuiet)
	t.Cleanup(typing.Stop)
	lifecycle := runtime.NewLifecycle(log, store, registry, router, presence, notify.NewLogNotifier(log))
	service := services.NewChatService(lifecycle, typing, presence, nil)

	authenticator := auth.NewTokenAuthenticator("test-secret")
	server := transport.NewServer(log, authenticator, registry, service, monitoring)

	httpServer := httptest.NewServer(server)
	t.Cleanup(httpServer.Close)

	return &testEngine{
		url:           "ws" + strings.TrimPrefix(httpServer.URL, "http"),
		authenticator: authenticator,
		monitoring:    monitoring,
		presence:      presence,
	}
}

func (e *testEngine) token(t *testing.T, userID string, role domain.Role) string {
	t.Helper()
	token, err := e.authenticator.GenerateToken(userID, userID, role, time.Hour)
	require.NoError(t, err)
	return token
}

// connect dials, authenticates and consumes the auth_success frame.
func (e *testEngine) connect(t *testing.T, userID string, role domain.Role) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(e.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })

	require.NoError(t, ws.WriteJSON(transport.Envelope{
		Type:  transport.TypeAuth,
		Token: e.token(t, userID, role),
	}))
	env := readFrame(t, ws)
	require.Equal(t, transport.TypeAuthSuccess, env.Type)
	require.Equal(t, userID, env.UserID)
	return ws
}

func readFrame(t *testing.T, ws *websocket.Conn) transport.Envelope {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env transport.Envelope
	require.NoError(t, ws.ReadJSON(&env))
	return env
}

// waitFor reads frames until one of the wanted type arrives, skipping
// interleaved events.
func waitFor(t *testing.T, ws *websocket.Conn, frameType string) transport.Envelope {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		env := readFrame(t, ws)
		if env.Type == frameType {
			return env
		}
	}
	t.Fatalf("no %s frame within deadline", frameType)
	return transport.Envelope{}
}

func TestServer_RejectsBadToken(t *testing.T) {
	req := require.New(t)
	engine := startEngine(t)

	ws, _, err := websocket.DefaultDialer.Dial(engine.url, nil)
	req.NoError(err)
	defer ws.Close()

	req.NoError(ws.WriteJSON(transport.Envelope{Type: transport.TypeAuth, Token: "garbage"}))

	env := readFrame(t, ws)
	req.Equal(transport.TypeError, env.Type)
	req.Equal(transport.CodeNotAuthenticated, env.Code)
}

func TestServer_StartSessionReachesEveryRequesterTab(t *testing.T) {
	req := require.New(t)
	engine := startEngine(t)

	tab1 := engine.connect(t, "user-1", domain.RoleCustomer)
	tab2 := engine.connect(t, "user-1", domain.RoleCustomer)

	req.NoError(tab1.WriteJSON(transport.Envelope{
		Type: transport.TypeStartSession, Subject: "VPS unreachable",
	}))

	started1 := waitFor(t, tab1, transport.TypeSessionStarted)
	started2 := waitFor(t, tab2, transport.TypeSessionStarted)
	req.Equal(started1.SessionID, started2.SessionID)
	req.Equal("waiting", started1.Session.Status)
	req.Equal("VPS unreachable", started1.Session.Subject)
}

func TestServer_StartSessionWithoutSubject(t *testing.T) {
	req := require.New(t)
	engine := startEngine(t)

	ws := engine.connect(t, "user-1", domain.RoleCustomer)
	req.NoError(ws.WriteJSON(transport.Envelope{Type: transport.TypeStartSession}))

	started := waitFor(t, ws, transport.TypeSessionStarted)
	req.NotEmpty(started.SessionID)
	req.Empty(started.Session.Subject)
	req.Equal("waiting", started.Session.Status)
}

func TestServer_SecondStartResumesSameSession(t *testing.T) {
	req := require.New(t)
	engine := startEngine(t)

	ws := engine.connect(t, "user-1", domain.RoleCustomer)
	req.NoError(ws.WriteJSON(transport.Envelope{Type: transport.TypeStartSession, Subject: "first"}))
	started := waitFor(t, ws, transport.TypeSessionStarted)

	req.NoError(ws.WriteJSON(transport.Envelope{Type: transport.TypeStartSession, Subject: "second"}))
	resumed := waitFor(t, ws, transport.TypeSessionResumed)

	req.Equal(started.SessionID, resumed.SessionID)
	req.Equal("first", resumed.Session.Subject)
}

func TestServer_MessageOrderAndEcho(t *testing.T) {
	req := require.New(t)
	engine := startEngine(t)

	customer := engine.connect(t, "user-1", domain.RoleCustomer)
	req.NoError(customer.WriteJSON(transport.Envelope{Type: transport.TypeStartSession, Subject: "help"}))
	started := waitFor(t, customer, transport.TypeSessionStarted)
	sessionID := started.SessionID

	staff := engine.connect(t, "staff-1", domain.RoleStaff)
	req.NoError(staff.WriteJSON(transport.Envelope{Type: transport.TypeJoinSession, SessionID: sessionID}))
	waitFor(t, staff, transport.TypeSessionJoined)

	contents := []string{"first", "second", "third"}
	for _, content := range contents {
		req.NoError(customer.WriteJSON(transport.Envelope{
			Type: transport.TypeSendMessage, SessionID: sessionID, Content: content,
		}))
	}

	// Staff sees all three in acceptance order
	for _, content := range contents {
		env := waitFor(t, staff, transport.TypeMessage)
		req.Equal(content, env.Content)
		req.Equal("user-1", env.SenderID)
		req.NotNil(env.SenderStaff)
		req.False(*env.SenderStaff)
	}

	// The sender gets the echo too, same order
	for _, content := range contents {
		env := waitFor(t, customer, transport.TypeMessage)
		req.Equal(content, env.Content)
	}
}

func TestServer_OutsiderCannotSendIntoSession(t *testing.T) {
	req := require.New(t)
	engine := startEngine(t)

	customer := engine.connect(t, "user-1", domain.RoleCustomer)
	req.NoError(customer.WriteJSON(transport.Envelope{Type: transport.TypeStartSession, Subject: "help"}))
	started := waitFor(t, customer, transport.TypeSessionStarted)

	// When an unrelated customer targets the session by id
	outsider := engine.connect(t, "user-2", domain.RoleCustomer)
	req.NoError(outsider.WriteJSON(transport.Envelope{
		Type: transport.TypeSendMessage, SessionID: started.SessionID, Content: "injected",
	}))

	errFrame := waitFor(t, outsider, transport.TypeError)
	req.Equal(transport.CodeNotParticipant, errFrame.Code)

	// Then the session transcript starts with the requester's own message,
	// nothing from the outsider got in
	req.NoError(customer.WriteJSON(transport.Envelope{
		Type: transport.TypeSendMessage, SessionID: started.SessionID, Content: "legit",
	}))
	first := waitFor(t, customer, transport.TypeMessage)
	req.Equal("legit", first.Content)
	req.Equal("user-1", first.SenderID)
}

func TestServer_RequesterFreshTabSendsWithoutRestart(t *testing.T) {
	req := require.New(t)
	engine := startEngine(t)

	tab1 := engine.connect(t, "user-1", domain.RoleCustomer)
	req.NoError(tab1.WriteJSON(transport.Envelope{Type: transport.TypeStartSession, Subject: "help"}))
	started := waitFor(t, tab1, transport.TypeSessionStarted)

	// A fresh tab of the same user sends straight into the session
	tab2 := engine.connect(t, "user-1", domain.RoleCustomer)
	req.NoError(tab2.WriteJSON(transport.Envelope{
		Type: transport.TypeSendMessage, SessionID: started.SessionID, Content: "still me",
	}))

	// Both tabs see the message, including the sending one
	echo := waitFor(t, tab2, transport.TypeMessage)
	req.Equal("still me", echo.Content)
	other := waitFor(t, tab1, transport.TypeMessage)
	req.Equal("still me", other.Content)
}

func TestServer_StaffJoinActivatesSession(t *testing.T) {
	req := require.New(t)
	engine := startEngine(t)

	customer := engine.connect(t, "user-1", domain.RoleCustomer)
	req.NoError(customer.WriteJSON(transport.Envelope{Type: transport.TypeStartSession, Subject: "help"}))
	started := waitFor(t, customer, transport.TypeSessionStarted)

	staff := engine.connect(t, "staff-1", domain.RoleStaff)
	req.NoError(staff.WriteJSON(transport.Envelope{
		Type: transport.TypeJoinSession, SessionID: started.SessionID,
	}))

	joined := waitFor(t, staff, transport.TypeSessionJoined)
	req.Equal("assigned", joined.Outcome)
	req.Equal("active", joined.Session.Status)
	req.Equal("staff-1", joined.Session.AssignedStaffID)

	adminJoined := waitFor(t, customer, transport.TypeAdminJoined)
	req.Equal("staff-1", adminJoined.StaffID)
}

func TestServer_CustomerCannotJoinAsStaff(t *testing.T) {
	req := require.New(t)
	engine := startEngine(t)

	ws := engine.connect(t, "user-1", domain.RoleCustomer)
	req.NoError(ws.WriteJSON(transport.Envelope{Type: transport.TypeJoinSession, SessionID: "any"}))

	env := waitFor(t, ws, transport.TypeError)
	req.Equal(transport.CodeStaffRoleRequired, env.Code)
}

func TestServer_TypingAutoExpires(t *testing.T) {
	req := require.New(t)
	engine := startEngine(t)

	customer := engine.connect(t, "user-1", domain.RoleCustomer)
	req.NoError(customer.WriteJSON(transport.Envelope{Type: transport.TypeStartSession, Subject: "help"}))
	started := waitFor(t, customer, transport.TypeSessionStarted)

	staff := engine.connect(t, "staff-1", domain.RoleStaff)
	req.NoError(staff.WriteJSON(transport.Envelope{
		Type: transport.TypeJoinSession, SessionID: started.SessionID,
	}))
	waitFor(t, staff, transport.TypeSessionJoined)

	typing := true
	req.NoError(customer.WriteJSON(transport.Envelope{
		Type: transport.TypeTyping, SessionID: started.SessionID, IsTyping: &typing,
	}))

	startFrame := waitFor(t, staff, transport.TypeTyping)
	req.True(*startFrame.IsTyping)

	// The stop arrives without the customer sending anything else
	stopFrame := waitFor(t, staff, transport.TypeTyping)
	req.False(*stopFrame.IsTyping)
}

func TestServer_EndSessionThenSendRejected(t *testing.T) {
	req := require.New(t)
	engine := startEngine(t)

	customer := engine.connect(t, "user-1", domain.RoleCustomer)
	req.NoError(customer.WriteJSON(transport.Envelope{Type: transport.TypeStartSession, Subject: "help"}))
	started := waitFor(t, customer, transport.TypeSessionStarted)

	req.NoError(customer.WriteJSON(transport.Envelope{
		Type: transport.TypeEndSession, SessionID: started.SessionID,
	}))
	ended := waitFor(t, customer, transport.TypeSessionEnded)
	req.Equal("user-1", ended.EndedBy)
	req.Equal("closed", ended.Session.Status)

	req.NoError(customer.WriteJSON(transport.Envelope{
		Type: transport.TypeSendMessage, SessionID: started.SessionID, Content: "too late",
	}))
	errFrame := waitFor(t, customer, transport.TypeError)
	req.Equal(transport.CodeNoActiveSession, errFrame.Code)
}

func TestServer_NewSessionNotifiesAvailableStaff(t *testing.T) {
	req := require.New(t)
	engine := startEngine(t)

	staff := engine.connect(t, "staff-1", domain.RoleStaff)
	online, available := true, true
	req.NoError(staff.WriteJSON(transport.Envelope{
		Type: transport.TypeAdminStatusUpdate, Online: &online, Available: &available,
	}))
	waitFor(t, staff, transport.TypeStatusUpdated)

	customer := engine.connect(t, "user-1", domain.RoleCustomer)
	req.NoError(customer.WriteJSON(transport.Envelope{Type: transport.TypeStartSession, Subject: "help"}))

	env := waitFor(t, staff, transport.TypeNewSession)
	req.Equal("waiting", env.Session.Status)
	req.Equal("user-1", env.Session.RequesterID)
}

func TestServer_StatusUpdateRequiresStaff(t *testing.T) {
	req := require.New(t)
	engine := startEngine(t)

	ws := engine.connect(t, "user-1", domain.RoleCustomer)
	online, available := true, true
	req.NoError(ws.WriteJSON(transport.Envelope{
		Type: transport.TypeAdminStatusUpdate, Online: &online, Available: &available,
	}))

	env := waitFor(t, ws, transport.TypeError)
	req.Equal(transport.CodeStaffRoleRequired, env.Code)
}

func TestServer_InvalidPayloadRejected(t *testing.T) {
	req := require.New(t)
	engine := startEngine(t)

	ws := engine.connect(t, "user-1", domain.RoleCustomer)

	// send_message without content
	req.NoError(ws.WriteJSON(transport.Envelope{
		Type: transport.TypeSendMessage, SessionID: "session-a",
	}))
	env := waitFor(t, ws, transport.TypeError)
	req.Equal(transport.CodeInvalidPayload, env.Code)
}

func TestServer_PingPong(t *testing.T) {
	req := require.New(t)
	engine := startEngine(t)

	ws := engine.connect(t, "user-1", domain.RoleCustomer)
	req.NoError(ws.WriteJSON(transport.Envelope{Type: transport.TypePing}))

	env := waitFor(t, ws, transport.TypePong)
	req.False(env.Timestamp.IsZero())
}

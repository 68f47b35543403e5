package transport

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"support-chat/contract"
	"support-chat/domain"
	"support-chat/errors"
	"support-chat/observability"
	"support-chat/services"
)

const authTimeout = 10 * time.Second

// Server upgrades HTTP requests to WebSocket connections and dispatches
// inbound frames to the engine. One goroutine reads per connection, one
// writes; the registry and engine never touch the socket directly.
type Server struct {
	log        *slog.Logger
	upgrader   websocket.Upgrader
	auth       contract.Authenticator
	registry   contract.IRegistry
	service    services.IChatService
	monitoring *observability.MonitoringManager
	frames     *frameValidator
}

func NewServer(log *slog.Logger, auth contract.Authenticator, registry contract.IRegistry,
	service services.IChatService, monitoring *observability.MonitoringManager) *Server {
	return &Server{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The portal serves the widget from its own origins; browser
			// origin enforcement happens at the reverse proxy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		auth:       auth,
		registry:   registry,
		service:    service,
		monitoring: monitoring,
		frames:     newFrameValidator(),
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	participant, err := s.handshake(r.Context(), ws)
	if err != nil {
		s.log.Info("handshake rejected", "error", err, "remote", r.RemoteAddr)
		_ = ws.WriteJSON(Envelope{Type: TypeError, Code: CodeNotAuthenticated, Error: "authentication required"})
		_ = ws.Close()
		return
	}

	conn := newConn(uuid.NewString(), ws, participant, s.log)
	conn.configureRead()
	s.registry.Register(conn)
	s.monitoring.ConnOpened()

	go conn.writePump()
	_ = conn.enqueue(Envelope{
		Type:   TypeAuthSuccess,
		UserID: participant.ID,
		Name:   participant.Name,
		Role:   string(participant.Role),
	})

	s.readLoop(r.Context(), conn)

	if sessionID := conn.Session(); sessionID != "" {
		s.service.SetTyping(context.Background(), participant.ID, sessionID, false)
	}
	s.registry.Unregister(conn)
	s.monitoring.ConnClosed()
	conn.close()
}

// handshake expects an auth frame as the very first message and exchanges
// the bearer token for a participant identity.
func (s *Server) handshake(ctx context.Context, ws *websocket.Conn) (domain.Participant, error) {
	_ = ws.SetReadDeadline(time.Now().Add(authTimeout))

	var env Envelope
	if err := ws.ReadJSON(&env); err != nil {
		return domain.Participant{}, err
	}
	if err := s.frames.ValidateInbound(env); err != nil || env.Type != TypeAuth {
		return domain.Participant{}, errors.ErrNotAuthenticated
	}
	return s.auth.Authenticate(ctx, env.Token)
}

func (s *Server) readLoop(ctx context.Context, conn *Conn) {
	for {
		env, err := conn.readFrame()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				conn.log.Debug("connection dropped", "error", err)
			}
			return
		}
		if err := s.frames.ValidateInbound(env); err != nil {
			s.sendError(conn, env.SessionID, CodeInvalidPayload, err.Error())
			continue
		}
		s.dispatch(ctx, conn, env)
	}
}

func (s *Server) dispatch(ctx context.Context, conn *Conn, env Envelope) {
	switch env.Type {
	case TypeStartSession:
		s.handleStartSession(ctx, conn, env)
	case TypeSendMessage:
		s.handleSendMessage(ctx, conn, env)
	case TypeTyping:
		s.handleTyping(ctx, conn, env)
	case TypeJoinSession:
		s.handleJoinSession(ctx, conn, env)
	case TypeEndSession:
		s.handleEndSession(ctx, conn, env)
	case TypeAdminStatusUpdate:
		s.handleStatusUpdate(ctx, conn, env)
	case TypePing:
		_ = conn.enqueue(Envelope{Type: TypePong, Timestamp: time.Now().UTC()})
	case TypeAuth:
		// Already authenticated; re-auth on a live connection is a no-op.
	}
}

func (s *Server) handleStartSession(ctx context.Context, conn *Conn, env Envelope) {
	session, resumed, err := s.service.StartSession(ctx, conn.ParticipantID(), env.Subject, env.DepartmentID)
	if err != nil {
		s.sendEngineError(conn, "", err)
		return
	}
	conn.setSession(session.ID)
	s.registry.Join(session.ID, conn)
	if !resumed {
		s.monitoring.IncrStarted()
	}
}

func (s *Server) handleSendMessage(ctx context.Context, conn *Conn, env Envelope) {
	if conn.Session() != env.SessionID {
		if err := s.attachToSession(ctx, conn, env.SessionID); err != nil {
			s.sendEngineError(conn, env.SessionID, err)
			return
		}
	}
	sender := domain.Participant{ID: conn.ParticipantID(), Role: conn.Role()}
	if _, err := s.service.SendMessage(ctx, env.SessionID, sender, env.Content); err != nil {
		s.sendEngineError(conn, env.SessionID, err)
		return
	}
	s.monitoring.IncrAccepted()
}

func (s *Server) handleTyping(ctx context.Context, conn *Conn, env Envelope) {
	if conn.Session() != env.SessionID {
		if err := s.attachToSession(ctx, conn, env.SessionID); err != nil {
			s.sendEngineError(conn, env.SessionID, err)
			return
		}
	}
	s.service.SetTyping(ctx, conn.ParticipantID(), env.SessionID, *env.IsTyping)
}

// attachToSession lets a fresh connection of a session participant (new tab,
// reconnect flushing its queue) act on the session without re-sending
// start_session. Anyone else is rejected before the engine sees the frame.
func (s *Server) attachToSession(ctx context.Context, conn *Conn, sessionID string) error {
	session, err := s.service.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if !session.HasParticipant(conn.ParticipantID()) {
		return errors.ErrNotParticipant
	}
	conn.setSession(sessionID)
	s.registry.Join(sessionID, conn)
	return nil
}

func (s *Server) handleJoinSession(ctx context.Context, conn *Conn, env Envelope) {
	if conn.Role() != domain.RoleStaff {
		s.sendError(conn, env.SessionID, CodeStaffRoleRequired, "staff role required")
		return
	}
	session, outcome, err := s.service.JoinSession(ctx, env.SessionID, conn.ParticipantID())
	if err != nil {
		s.sendEngineError(conn, env.SessionID, err)
		return
	}
	conn.setSession(session.ID)
	s.registry.Join(session.ID, conn)
	_ = conn.enqueue(Envelope{
		Type:      TypeSessionJoined,
		SessionID: session.ID,
		Outcome:   string(outcome),
		Session:   NewSessionView(session),
	})
}

func (s *Server) handleEndSession(ctx context.Context, conn *Conn, env Envelope) {
	if _, err := s.service.EndSession(ctx, env.SessionID, conn.ParticipantID()); err != nil {
		s.sendEngineError(conn, env.SessionID, err)
		return
	}
	s.monitoring.IncrEnded()
}

func (s *Server) handleStatusUpdate(ctx context.Context, conn *Conn, env Envelope) {
	if conn.Role() != domain.RoleStaff {
		s.sendError(conn, "", CodeStaffRoleRequired, "staff role required")
		return
	}
	record := s.service.SetStaffStatus(ctx, conn.ParticipantID(), *env.Online, *env.Available)
	_ = conn.enqueue(Envelope{Type: TypeStatusUpdated, Presence: NewPresenceView(record)})
}

// sendEngineError maps engine sentinels to wire error codes. Unknown errors
// are logged server-side and surfaced as an opaque internal code.
func (s *Server) sendEngineError(conn *Conn, sessionID string, err error) {
	code := CodeInternal
	switch {
	case stderrors.Is(err, errors.ErrSessionNotFound):
		code = CodeSessionNotFound
	case stderrors.Is(err, errors.ErrNoActiveSession):
		code = CodeNoActiveSession
	case stderrors.Is(err, errors.ErrSessionTerminal), stderrors.Is(err, errors.ErrInvalidTransition):
		code = CodeSessionTerminal
	case stderrors.Is(err, errors.ErrStaffRoleRequired):
		code = CodeStaffRoleRequired
	case stderrors.Is(err, errors.ErrNotParticipant):
		code = CodeNotParticipant
	case stderrors.Is(err, errors.ErrNotAuthenticated):
		code = CodeNotAuthenticated
	default:
		conn.log.Error("engine call failed", "error", err, "session_id", sessionID)
		s.sendError(conn, sessionID, code, "internal error")
		return
	}
	s.sendError(conn, sessionID, code, err.Error())
}

func (s *Server) sendError(conn *Conn, sessionID, code, message string) {
	if err := conn.enqueue(Envelope{Type: TypeError, SessionID: sessionID, Code: code, Error: message}); err != nil {
		s.monitoring.IncrDroppedEvent()
	}
}

// Package client implements the browser-side connection manager in Go, used
// by the demo client, the e2e suite, and any headless portal integration.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"support-chat/errors"
	"support-chat/transport"
)

type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateClosed     State = "closed"
	StateError      State = "error"
)

const (
	defaultBaseDelay   = time.Second
	defaultMaxAttempts = 5
)

type Config struct {
	URL         string
	Token       string
	BaseDelay   time.Duration
	MaxAttempts int
}

type (
	MessageListener  func(env transport.Envelope)
	TypingListener   func(env transport.Envelope)
	SessionListener  func(env transport.Envelope)
	PresenceListener func(env transport.Envelope)
	ErrorListener    func(err error)
	// ConnectListener fires every time the link reaches open, including
	// after an automatic reconnect.
	ConnectListener func()
)

// Manager owns one logical connection to the chat endpoint. Messages sent
// while the link is down queue in order and flush on reconnect. Reconnects
// back off exponentially and give up after MaxAttempts.
type Manager struct {
	log    *slog.Logger
	cfg    Config
	dialer *websocket.Dialer

	mu      sync.Mutex
	wmu     sync.Mutex // serializes socket writes
	state   State
	ws      *websocket.Conn
	queue   []transport.Envelope
	attempt int
	done    chan struct{}

	nextID    int
	messages  map[int]MessageListener
	typings   map[int]TypingListener
	sessions  map[int]SessionListener
	presences map[int]PresenceListener
	errs      map[int]ErrorListener
	connects  map[int]ConnectListener

	sent atomic.Int64
}

func NewManager(log *slog.Logger, cfg Config) *Manager {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	return &Manager{
		log:       log,
		cfg:       cfg,
		dialer:    websocket.DefaultDialer,
		state:     StateIdle,
		messages:  make(map[int]MessageListener),
		typings:   make(map[int]TypingListener),
		sessions:  make(map[int]SessionListener),
		presences: make(map[int]PresenceListener),
		errs:      make(map[int]ErrorListener),
		connects:  make(map[int]ConnectListener),
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SentCount reports how many frames reached the socket, across reconnects.
func (m *Manager) SentCount() int64 { return m.sent.Load() }

// Connect starts the connection loop. A second call while a connection is
// in flight or open is rejected.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateConnecting || m.state == StateOpen {
		m.mu.Unlock()
		return errors.ErrConnectInFlight
	}
	m.state = StateConnecting
	m.attempt = 0
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	go m.connectLoop(ctx, done)
	return nil
}

func (m *Manager) connectLoop(ctx context.Context, done chan struct{}) {
	for {
		m.mu.Lock()
		m.attempt++
		attempt := m.attempt
		m.mu.Unlock()

		ws, _, err := m.dialer.DialContext(ctx, m.cfg.URL, nil)
		if err == nil {
			if err = m.open(ws); err == nil {
				return
			}
			_ = ws.Close()
		}
		m.log.Warn("connect attempt failed", "attempt", attempt, "error", err)

		if attempt >= m.cfg.MaxAttempts {
			m.fail(fmt.Errorf("%w after %d attempts: %w", errors.ErrReconnectExhausted, attempt, err))
			return
		}

		delay := m.cfg.BaseDelay << (attempt - 1)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			m.fail(ctx.Err())
			return
		case <-done:
			return
		}
	}
}

// open authenticates, flushes the queue in order, and hands the socket to
// the read loop. The retry counter resets only once the link is open.
func (m *Manager) open(ws *websocket.Conn) error {
	if err := ws.WriteJSON(transport.Envelope{Type: transport.TypeAuth, Token: m.cfg.Token}); err != nil {
		return err
	}

	m.mu.Lock()
	m.ws = ws
	m.state = StateOpen
	m.attempt = 0
	pending := m.queue
	m.queue = nil
	listeners := make([]ConnectListener, 0, len(m.connects))
	for _, l := range m.connects {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()

	for _, l := range listeners {
		l()
	}
	for _, env := range pending {
		if err := m.writeFrame(env); err != nil {
			return err
		}
	}

	go m.readLoop(ws)
	return nil
}

func (m *Manager) readLoop(ws *websocket.Conn) {
	for {
		var env transport.Envelope
		if err := ws.ReadJSON(&env); err != nil {
			m.onSocketLost(ws, err)
			return
		}
		m.dispatch(env)
	}
}

func (m *Manager) onSocketLost(ws *websocket.Conn, err error) {
	m.mu.Lock()
	if m.ws != ws || m.state != StateOpen {
		m.mu.Unlock()
		return
	}
	m.ws = nil
	// A normal close from the server is a deliberate shutdown, not a drop.
	if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		m.state = StateClosed
		m.mu.Unlock()
		m.log.Info("server closed the connection")
		return
	}
	m.state = StateConnecting
	done := m.done
	m.mu.Unlock()

	select {
	case <-done:
		return
	default:
	}

	m.log.Info("connection lost, reconnecting", "error", err)
	go m.connectLoop(context.Background(), done)
}

// Send writes the frame immediately on an open link, otherwise queues it
// for the next flush. Queued frames keep their submission order.
func (m *Manager) Send(env transport.Envelope) error {
	m.mu.Lock()
	if m.state == StateClosed || m.state == StateError {
		m.mu.Unlock()
		return fmt.Errorf("manager is %s", m.state)
	}
	if m.state != StateOpen {
		m.queue = append(m.queue, env)
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()
	return m.writeFrame(env)
}

// SendMessage is a convenience wrapper for chat content.
func (m *Manager) SendMessage(sessionID, content string) error {
	return m.Send(transport.Envelope{Type: transport.TypeSendMessage, SessionID: sessionID, Content: content})
}

func (m *Manager) StartSession(subject, departmentID string) error {
	return m.Send(transport.Envelope{Type: transport.TypeStartSession, Subject: subject, DepartmentID: departmentID})
}

func (m *Manager) SetTyping(sessionID string, isTyping bool) error {
	return m.Send(transport.Envelope{Type: transport.TypeTyping, SessionID: sessionID, IsTyping: &isTyping})
}

func (m *Manager) writeFrame(env transport.Envelope) error {
	m.mu.Lock()
	ws := m.ws
	m.mu.Unlock()
	if ws == nil {
		return m.Send(env)
	}
	m.wmu.Lock()
	err := ws.WriteJSON(env)
	m.wmu.Unlock()
	if err != nil {
		return err
	}
	m.sent.Add(1)
	return nil
}

func (m *Manager) fail(err error) {
	m.mu.Lock()
	m.state = StateError
	listeners := make([]ErrorListener, 0, len(m.errs))
	for _, l := range m.errs {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()

	for _, l := range listeners {
		l(err)
	}
}

// Close tears the link down for good. No reconnect follows.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateClosed {
		return nil
	}
	m.state = StateClosed
	if m.done != nil {
		select {
		case <-m.done:
		default:
			close(m.done)
		}
	}
	if m.ws != nil {
		_ = m.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		err := m.ws.Close()
		m.ws = nil
		return err
	}
	return nil
}

func (m *Manager) dispatch(env transport.Envelope) {
	m.mu.Lock()
	var calls []func()
	switch env.Type {
	case transport.TypeMessage:
		for _, l := range m.messages {
			l := l
			calls = append(calls, func() { l(env) })
		}
	case transport.TypeTyping:
		for _, l := range m.typings {
			l := l
			calls = append(calls, func() { l(env) })
		}
	case transport.TypeSessionStarted, transport.TypeSessionResumed, transport.TypeNewSession,
		transport.TypeSessionJoined, transport.TypeAdminJoined, transport.TypeSessionUpdate,
		transport.TypeSessionEnded:
		for _, l := range m.sessions {
			l := l
			calls = append(calls, func() { l(env) })
		}
	case transport.TypeStatusUpdated:
		for _, l := range m.presences {
			l := l
			calls = append(calls, func() { l(env) })
		}
	case transport.TypeError:
		err := fmt.Errorf("server error %s: %s", env.Code, env.Error)
		for _, l := range m.errs {
			l := l
			calls = append(calls, func() { l(err) })
		}
	}
	m.mu.Unlock()

	for _, call := range calls {
		call()
	}
}

// Listener registration is symmetric: the returned id removes exactly the
// listener it registered.

func (m *Manager) AddMessageListener(l MessageListener) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.messages[m.nextID] = l
	return m.nextID
}

func (m *Manager) RemoveMessageListener(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.messages, id)
}

func (m *Manager) AddTypingListener(l TypingListener) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.typings[m.nextID] = l
	return m.nextID
}

func (m *Manager) RemoveTypingListener(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.typings, id)
}

func (m *Manager) AddSessionListener(l SessionListener) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.sessions[m.nextID] = l
	return m.nextID
}

func (m *Manager) RemoveSessionListener(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

func (m *Manager) AddPresenceListener(l PresenceListener) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.presences[m.nextID] = l
	return m.nextID
}

func (m *Manager) RemovePresenceListener(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.presences, id)
}

func (m *Manager) AddConnectListener(l ConnectListener) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.connects[m.nextID] = l
	return m.nextID
}

func (m *Manager) RemoveConnectListener(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.connects, id)
}

func (m *Manager) AddErrorListener(l ErrorListener) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.errs[m.nextID] = l
	return m.nextID
}

func (m *Manager) RemoveErrorListener(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.errs, id)
}

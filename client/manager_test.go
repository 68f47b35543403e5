package client

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"support-chat/errors"
	"support-chat/transport"
)

// wsHarness is a bare WebSocket endpoint that records inbound frames and
// hands each accepted connection to the test for scripted responses.
type wsHarness struct {
	upgrader websocket.Upgrader
	conns    chan *websocket.Conn

	mu     sync.Mutex
	frames []transport.Envelope
}

func newHarness(t *testing.T) (*wsHarness, string) {
	t.Helper()
	h := &wsHarness{conns: make(chan *websocket.Conn, 4)}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.conns <- ws
		for {
			var env transport.Envelope
			if err := ws.ReadJSON(&env); err != nil {
				return
			}
			h.mu.Lock()
			h.frames = append(h.frames, env)
			h.mu.Unlock()
		}
	}))
	t.Cleanup(server.Close)
	return h, "ws" + strings.TrimPrefix(server.URL, "http")
}

func (h *wsHarness) received() []transport.Envelope {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]transport.Envelope, len(h.frames))
	copy(out, h.frames)
	return out
}

func (h *wsHarness) accepted(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case ws := <-h.conns:
		return ws
	case <-time.After(2 * time.Second):
		t.Fatal("no connection accepted")
		return nil
	}
}

func newTestManager(url string) *Manager {
	return NewManager(slog.Default(), Config{
		URL:       url,
		Token:     "test-token",
		BaseDelay: 5 * time.Millisecond,
	})
}

func TestManager_ConnectRejectsSecondAttempt(t *testing.T) {
	req := require.New(t)
	_, url := newHarness(t)
	manager := newTestManager(url)
	defer manager.Close()

	req.NoError(manager.Connect(context.Background()))
	req.ErrorIs(manager.Connect(context.Background()), errors.ErrConnectInFlight)
}

func TestManager_AuthFrameIsFirst(t *testing.T) {
	req := require.New(t)
	harness, url := newHarness(t)
	manager := newTestManager(url)
	defer manager.Close()

	req.NoError(manager.Connect(context.Background()))
	harness.accepted(t)

	req.Eventually(func() bool {
		frames := harness.received()
		return len(frames) == 1 && frames[0].Type == transport.TypeAuth && frames[0].Token == "test-token"
	}, 2*time.Second, 5*time.Millisecond)
}

func TestManager_QueuedMessagesFlushInOrderOnConnect(t *testing.T) {
	req := require.New(t)
	harness, url := newHarness(t)
	manager := newTestManager(url)
	defer manager.Close()

	// Given messages sent before the link exists
	req.NoError(manager.SendMessage("session-a", "first"))
	req.NoError(manager.SendMessage("session-a", "second"))
	req.NoError(manager.SendMessage("session-a", "third"))

	req.NoError(manager.Connect(context.Background()))
	harness.accepted(t)

	// Then they arrive right after auth, in submission order
	req.Eventually(func() bool { return len(harness.received()) == 4 }, 2*time.Second, 5*time.Millisecond)
	frames := harness.received()
	req.Equal(transport.TypeAuth, frames[0].Type)
	req.Equal("first", frames[1].Content)
	req.Equal("second", frames[2].Content)
	req.Equal("third", frames[3].Content)
	req.Equal(int64(3), manager.SentCount())
}

func TestManager_ReconnectExhaustionSurfacesError(t *testing.T) {
	req := require.New(t)
	// Nothing listens here
	manager := NewManager(slog.Default(), Config{
		URL:         "ws://127.0.0.1:1/ws/chat",
		Token:       "test-token",
		BaseDelay:   2 * time.Millisecond,
		MaxAttempts: 3,
	})
	defer manager.Close()

	failures := make(chan error, 1)
	manager.AddErrorListener(func(err error) { failures <- err })

	req.NoError(manager.Connect(context.Background()))

	select {
	case err := <-failures:
		req.ErrorIs(err, errors.ErrReconnectExhausted)
		req.Equal(StateError, manager.State())
	case <-time.After(2 * time.Second):
		req.Fail("expected terminal reconnect error")
	}
}

func TestManager_ReconnectsAfterServerDrop(t *testing.T) {
	req := require.New(t)
	harness, url := newHarness(t)
	manager := newTestManager(url)
	defer manager.Close()

	req.NoError(manager.Connect(context.Background()))
	first := harness.accepted(t)

	req.Eventually(func() bool { return manager.State() == StateOpen }, 2*time.Second, 5*time.Millisecond)

	// When the server drops the connection
	_ = first.Close()

	// Then the manager dials again on its own
	harness.accepted(t)
	req.Eventually(func() bool { return manager.State() == StateOpen }, 2*time.Second, 5*time.Millisecond)

	// Both connections authenticated
	req.Eventually(func() bool {
		auths := 0
		for _, frame := range harness.received() {
			if frame.Type == transport.TypeAuth {
				auths++
			}
		}
		return auths == 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestManager_ConnectListenerFiresOnOpenAndReconnect(t *testing.T) {
	req := require.New(t)
	harness, url := newHarness(t)
	manager := newTestManager(url)
	defer manager.Close()

	opens := make(chan struct{}, 4)
	manager.AddConnectListener(func() { opens <- struct{}{} })
	var removedCalls sync.Map
	removed := manager.AddConnectListener(func() { removedCalls.Store("removed", true) })
	manager.RemoveConnectListener(removed)

	req.NoError(manager.Connect(context.Background()))
	first := harness.accepted(t)

	select {
	case <-opens:
	case <-time.After(2 * time.Second):
		req.Fail("connect listener not called on initial open")
	}

	// When the server drops the connection, the reconnect notifies again
	_ = first.Close()
	harness.accepted(t)

	select {
	case <-opens:
	case <-time.After(2 * time.Second):
		req.Fail("connect listener not called on reconnect")
	}
	_, removedCalled := removedCalls.Load("removed")
	req.False(removedCalled)
}

func TestManager_NormalClosureStopsReconnect(t *testing.T) {
	req := require.New(t)
	harness, url := newHarness(t)
	manager := newTestManager(url)
	defer manager.Close()

	req.NoError(manager.Connect(context.Background()))
	server := harness.accepted(t)
	req.Eventually(func() bool { return manager.State() == StateOpen }, 2*time.Second, 5*time.Millisecond)

	// When the server says goodbye with a normal close code
	req.NoError(server.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutting down"), time.Now().Add(time.Second)))

	// Then the manager settles in closed and never redials
	req.Eventually(func() bool { return manager.State() == StateClosed }, 2*time.Second, 5*time.Millisecond)
	select {
	case <-harness.conns:
		req.Fail("unexpected reconnect after normal closure")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestManager_ListenersDispatchByType(t *testing.T) {
	req := require.New(t)
	harness, url := newHarness(t)
	manager := newTestManager(url)
	defer manager.Close()

	messages := make(chan transport.Envelope, 1)
	sessionEvents := make(chan transport.Envelope, 1)
	manager.AddMessageListener(func(env transport.Envelope) { messages <- env })
	manager.AddSessionListener(func(env transport.Envelope) { sessionEvents <- env })

	req.NoError(manager.Connect(context.Background()))
	server := harness.accepted(t)

	req.NoError(server.WriteJSON(transport.Envelope{
		Type: transport.TypeMessage, SessionID: "session-a", Content: "hello",
	}))
	req.NoError(server.WriteJSON(transport.Envelope{
		Type: transport.TypeSessionEnded, SessionID: "session-a",
	}))

	select {
	case env := <-messages:
		req.Equal("hello", env.Content)
	case <-time.After(2 * time.Second):
		req.Fail("message listener not called")
	}
	select {
	case env := <-sessionEvents:
		req.Equal(transport.TypeSessionEnded, env.Type)
	case <-time.After(2 * time.Second):
		req.Fail("session listener not called")
	}
}

func TestManager_RemovedListenerIsNotCalled(t *testing.T) {
	req := require.New(t)
	harness, url := newHarness(t)
	manager := newTestManager(url)
	defer manager.Close()

	var calls sync.Map
	id := manager.AddMessageListener(func(transport.Envelope) { calls.Store("removed", true) })
	kept := make(chan struct{}, 1)
	manager.AddMessageListener(func(transport.Envelope) { kept <- struct{}{} })

	manager.RemoveMessageListener(id)

	req.NoError(manager.Connect(context.Background()))
	server := harness.accepted(t)
	req.NoError(server.WriteJSON(transport.Envelope{Type: transport.TypeMessage, Content: "hi"}))

	select {
	case <-kept:
	case <-time.After(2 * time.Second):
		req.Fail("kept listener not called")
	}
	_, removedCalled := calls.Load("removed")
	req.False(removedCalled)
}

func TestManager_SendAfterCloseRejected(t *testing.T) {
	req := require.New(t)
	_, url := newHarness(t)
	manager := newTestManager(url)

	req.NoError(manager.Connect(context.Background()))
	req.NoError(manager.Close())

	req.Error(manager.SendMessage("session-a", "late"))
	req.Equal(StateClosed, manager.State())
}

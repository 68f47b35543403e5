package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"support-chat/domain"
	"support-chat/domain/event"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 << 10
	sendBuffer     = 256
)

// Conn wraps one upgraded WebSocket and owns all writes to it. Anything that
// wants to reach the peer goes through the buffered send channel so the
// engine never blocks on a slow socket.
type Conn struct {
	id          string
	ws          *websocket.Conn
	log         *slog.Logger
	participant domain.Participant

	send      chan Envelope
	done      chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	session string
}

func newConn(id string, ws *websocket.Conn, participant domain.Participant, log *slog.Logger) *Conn {
	return &Conn{
		id:          id,
		ws:          ws,
		log:         log.With("conn_id", id, "participant_id", participant.ID),
		participant: participant,
		send:        make(chan Envelope, sendBuffer),
		done:        make(chan struct{}),
	}
}

func (c *Conn) ID() string            { return c.id }
func (c *Conn) ParticipantID() string { return c.participant.ID }
func (c *Conn) Role() domain.Role     { return c.participant.Role }

func (c *Conn) Session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Conn) setSession(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = id
}

// Consume turns an engine event into a frame and enqueues it. A full buffer
// means the peer is not draining; the router logs the error and moves on.
func (c *Conn) Consume(_ context.Context, e event.DomainEvent) error {
	env, ok := ToEnvelope(e)
	if !ok {
		return nil
	}
	return c.enqueue(env)
}

func (c *Conn) enqueue(env Envelope) error {
	select {
	case <-c.done:
		return fmt.Errorf("connection %s closed", c.id)
	default:
	}
	select {
	case c.send <- env:
		return nil
	default:
		return fmt.Errorf("send buffer full on connection %s", c.id)
	}
}

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// writePump drains the send channel onto the socket and keeps the peer alive
// with periodic pings. It is the only goroutine allowed to write.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case env := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(env); err != nil {
				c.log.Debug("write failed, dropping connection", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// readFrame blocks for the next inbound envelope, honoring the pong-based
// read deadline set up by the server.
func (c *Conn) readFrame() (Envelope, error) {
	var env Envelope
	if err := c.ws.ReadJSON(&env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

func (c *Conn) configureRead() {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
}

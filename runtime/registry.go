package runtime

import (
	"sync"

	"support-chat/contract"
	"support-chat/domain"
)

type connSet map[string]contract.Connection

// Registry owns every live connection, keyed both by participant identity
// and by session. A participant may hold several connections at once (one
// per browser tab); fan-out always targets the whole set.
//
// All mutation is funneled through the registry's mutex so that no other
// component ever interleaves writes to a session's connection set.
type Registry struct {
	mu           sync.RWMutex
	participants map[string]connSet // participant id -> connections
	sessions     map[string]connSet // session id -> connections
	connSession  map[string]string  // connection id -> joined session id

	// onStaffOffline fires when a staff participant's last connection goes
	// away, so presence can be marked offline without the registry knowing
	// anything about presence itself.
	onStaffOffline func(staffID string)
}

func NewRegistry(onStaffOffline func(staffID string)) *Registry {
	return &Registry{
		participants:   make(map[string]connSet),
		sessions:       make(map[string]connSet),
		connSession:    make(map[string]string),
		onStaffOffline: onStaffOffline,
	}
}

// Register adds the connection under its participant's connection set.
// No session side effects.
func (r *Registry) Register(conn contract.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	participantID := conn.ParticipantID()
	if _, ok := r.participants[participantID]; !ok {
		r.participants[participantID] = make(connSet)
	}
	r.participants[participantID][conn.ID()] = conn
}

// Join adds the connection to the session's delivery set. A connection
// belongs to at most one session: joining a new one implicitly leaves the
// prior one.
func (r *Registry) Join(sessionID string, conn contract.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if previous, ok := r.connSession[conn.ID()]; ok && previous != sessionID {
		r.leaveLocked(previous, conn.ID())
	}

	if _, ok := r.sessions[sessionID]; !ok {
		r.sessions[sessionID] = make(connSet)
	}
	r.sessions[sessionID][conn.ID()] = conn
	r.connSession[conn.ID()] = sessionID
}

// Unregister removes the connection from both its participant set and its
// session set. Unknown connections are a no-op: teardown races with
// delivery are expected and must not raise.
func (r *Registry) Unregister(conn contract.Connection) {
	r.mu.Lock()

	if sessionID, ok := r.connSession[conn.ID()]; ok {
		r.leaveLocked(sessionID, conn.ID())
	}

	participantID := conn.ParticipantID()
	lastConnection := false
	if set, ok := r.participants[participantID]; ok {
		delete(set, conn.ID())
		if len(set) == 0 {
			delete(r.participants, participantID)
			lastConnection = true
		}
	}
	staff := conn.Role() == domain.RoleStaff
	r.mu.Unlock()

	// Fired outside the lock: the presence tracker persists best-effort and
	// must not hold up registry mutation.
	if lastConnection && staff && r.onStaffOffline != nil {
		r.onStaffOffline(participantID)
	}
}

// ClearSession drops the whole delivery set of an ended session.
func (r *Registry) ClearSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for connID := range r.sessions[sessionID] {
		delete(r.connSession, connID)
	}
	delete(r.sessions, sessionID)
}

// ConnectionsForSession returns the session's delivery set, used by the
// router for fan-out. Unknown session ids yield nil.
func (r *Registry) ConnectionsForSession(sessionID string) []contract.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.sessions[sessionID]
	if !ok {
		return nil
	}
	conns := make([]contract.Connection, 0, len(set))
	for _, conn := range set {
		conns = append(conns, conn)
	}
	return conns
}

// ConnectionsForParticipant returns every live connection (tab) of one
// participant, used for new-session staff notifications.
func (r *Registry) ConnectionsForParticipant(participantID string) []contract.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.participants[participantID]
	if !ok {
		return nil
	}
	conns := make([]contract.Connection, 0, len(set))
	for _, conn := range set {
		conns = append(conns, conn)
	}
	return conns
}

// leaveLocked removes one connection from a session set and prunes empty
// sets to avoid leaking entries over time. Caller holds the write lock.
func (r *Registry) leaveLocked(sessionID, connID string) {
	if set, ok := r.sessions[sessionID]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.sessions, sessionID)
		}
	}
	delete(r.connSession, connID)
}

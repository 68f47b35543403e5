package errors

import "fmt"

var (
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrNotAuthenticated   = fmt.Errorf("connection is not authenticated")
	ErrNoActiveSession    = fmt.Errorf("no active session")
	ErrSessionNotFound    = fmt.Errorf("session not found")
	ErrSessionTerminal    = fmt.Errorf("session is already terminal")
	ErrInvalidTransition  = fmt.Errorf("invalid session status transition")
	ErrStaffRoleRequired  = fmt.Errorf("staff role required")
	ErrNotParticipant     = fmt.Errorf("not a participant of this session")
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrConnectInFlight    = fmt.Errorf("connection attempt already in flight")
	ErrReconnectExhausted = fmt.Errorf("reconnect attempts exhausted")
)

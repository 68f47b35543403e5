// Package domain contains core concepts of the support-chat engine.
// This file defines Message events and related rules.
// Messages are immutable once accepted by the router.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage represents an immutable chat event inside a session.
type ChatMessage struct {
	ID          uuid.UUID
	SessionID   string
	SenderID    string
	Content     string
	SenderStaff bool
	CreatedAt   time.Time
}

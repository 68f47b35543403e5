// Package domain contains core concepts of the support-chat engine.
// This file defines ChatSession and its status state machine.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"time"

	"support-chat/errors"
)

type SessionStatus string

const (
	StatusWaiting   SessionStatus = "waiting"
	StatusActive    SessionStatus = "active"
	StatusClosed    SessionStatus = "closed"
	StatusConverted SessionStatus = "converted_to_ticket"
)

// Terminal reports whether a session in this status can never change again.
func (s SessionStatus) Terminal() bool {
	return s == StatusClosed || s == StatusConverted
}

// CanTransition encodes the only legal status moves:
// waiting→active, waiting→closed, active→closed, active→converted_to_ticket,
// waiting→converted_to_ticket. Terminal states accept nothing.
func (s SessionStatus) CanTransition(next SessionStatus) bool {
	if s.Terminal() {
		return false
	}
	switch s {
	case StatusWaiting:
		return next == StatusActive || next == StatusClosed || next == StatusConverted
	case StatusActive:
		return next == StatusClosed || next == StatusConverted
	}
	return false
}

// ChatSession is one support conversation between a requester and staff.
// Sessions are never deleted, only status-terminated.
type ChatSession struct {
	ID              string
	RequesterID     string
	AssignedStaffID string
	DepartmentID    string
	Status          SessionStatus
	Subject         string
	CreatedAt       time.Time
	LastActivityAt  time.Time
	EndedAt         *time.Time
	ConvertedAt     *time.Time
	TicketID        string
	ConvertedBy     string
}

// HasParticipant reports whether the given id is the requester or the
// assigned staff of this session.
func (c ChatSession) HasParticipant(participantID string) bool {
	if participantID == "" {
		return false
	}
	return participantID == c.RequesterID || participantID == c.AssignedStaffID
}

// Transition mutates the status after validating the move.
func (c *ChatSession) Transition(next SessionStatus) error {
	if !c.Status.CanTransition(next) {
		return errors.ErrInvalidTransition
	}
	c.Status = next
	return nil
}

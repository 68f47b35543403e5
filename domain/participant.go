// Package domain contains core concepts of the support-chat engine.
// This file defines Participant entities and related invariants.
package domain

type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
)

// Participant is the resolved identity behind one or more connections.
type Participant struct {
	ID   string
	Name string
	Role Role
}

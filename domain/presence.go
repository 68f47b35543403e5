package domain

import "time"

// PresenceRecord tracks a staff participant's availability for new sessions.
// Presence is best-effort: a missing or stale record means "unavailable".
type PresenceRecord struct {
	StaffID   string
	Online    bool
	Available bool
	LastSeen  time.Time
}

package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"support-chat/contract"
	"support-chat/domain"
)

// PresenceTracker keeps the authoritative in-memory view of staff
// availability and mirrors it to storage best-effort. A stale or missing
// record is treated as "unavailable", never as an error.
type PresenceTracker struct {
	mu      sync.RWMutex
	log     *slog.Logger
	storage contract.Storage
	records map[string]domain.PresenceRecord
	now     func() time.Time
}

func NewPresenceTracker(log *slog.Logger, storage contract.Storage) *PresenceTracker {
	return &PresenceTracker{
		log:     log,
		storage: storage,
		records: make(map[string]domain.PresenceRecord),
		now:     time.Now,
	}
}

// SetStatus upserts the staff record. Called on explicit status toggles and
// implicitly by the registry when a staff participant's last tab closes.
func (p *PresenceTracker) SetStatus(ctx context.Context, staffID string, online, available bool) domain.PresenceRecord {
	record := domain.PresenceRecord{
		StaffID:   staffID,
		Online:    online,
		Available: available,
		LastSeen:  p.now().UTC(),
	}

	p.mu.Lock()
	p.records[staffID] = record
	p.mu.Unlock()

	if err := p.storage.UpsertPresence(ctx, record); err != nil {
		p.log.Warn("Presence upsert failed, keeping in-memory state",
			"staff_id", staffID, "error", err)
	}
	return record
}

// AvailableStaff returns every record with online && available, consumed by
// the lifecycle manager when routing new-session notifications.
func (p *PresenceTracker) AvailableStaff(_ context.Context) []domain.PresenceRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var available []domain.PresenceRecord
	for _, record := range p.records {
		if record.Online && record.Available {
			available = append(available, record)
		}
	}
	return available
}

// Package observability aggregates engine counters for the heartbeat log
// line and the client-side sent-message metric.
package observability

import (
	"sync/atomic"
	"time"
)

// EngineStats is a point-in-time snapshot of the engine gauges.
type EngineStats struct {
	ConnectionsOpen  int64     `json:"connections_open"`
	SessionsStarted  uint64    `json:"sessions_started"`
	SessionsEnded    uint64    `json:"sessions_ended"`
	MessagesAccepted uint64    `json:"messages_accepted"`
	EventsDropped    uint64    `json:"events_dropped"`
	CollectedAt      time.Time `json:"collected_at"`
}

// MonitoringManager collects counters from the hot path with atomics only;
// no locks are taken while routing events.
type MonitoringManager struct {
	connectionsOpen  atomic.Int64
	sessionsStarted  atomic.Uint64
	sessionsEnded    atomic.Uint64
	messagesAccepted atomic.Uint64
	eventsDropped    atomic.Uint64
}

func NewMonitoringManager() *MonitoringManager {
	return &MonitoringManager{}
}

func (mm *MonitoringManager) ConnOpened()      { mm.connectionsOpen.Add(1) }
func (mm *MonitoringManager) ConnClosed()      { mm.connectionsOpen.Add(-1) }
func (mm *MonitoringManager) IncrStarted()     { mm.sessionsStarted.Add(1) }
func (mm *MonitoringManager) IncrEnded()       { mm.sessionsEnded.Add(1) }
func (mm *MonitoringManager) IncrAccepted()    { mm.messagesAccepted.Add(1) }
func (mm *MonitoringManager) IncrDroppedEvent() { mm.eventsDropped.Add(1) }

// GetLatest snapshots all counters, consumed by the heartbeat worker.
func (mm *MonitoringManager) GetLatest() EngineStats {
	return EngineStats{
		ConnectionsOpen:  mm.connectionsOpen.Load(),
		SessionsStarted:  mm.sessionsStarted.Load(),
		SessionsEnded:    mm.sessionsEnded.Load(),
		MessagesAccepted: mm.messagesAccepted.Load(),
		EventsDropped:    mm.eventsDropped.Load(),
		CollectedAt:      time.Now().UTC(),
	}
}

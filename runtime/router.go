package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"support-chat/contract"
	"support-chat/domain/event"
)

// Router resolves a session's delivery set and fans an event out to every
// open connection, optionally excluding the sender's own connections.
//
// Routing is best-effort per connection: a sink that cannot keep up is
// logged and skipped, never blocks the caller. Acceptance order is the
// delivery order because every route call completes its fan-out before the
// next one for the same session is accepted.
type Router struct {
	log       *slog.Logger
	registry  contract.IRegistry
	permanent []contract.EventSink
}

func NewRouter(log *slog.Logger, registry contract.IRegistry) *Router {
	return &Router{log: log, registry: registry}
}

// AddSink attaches a permanent sink (search index, transcript projection)
// that observes every routed event regardless of session. Call before the
// engine starts accepting connections.
func (r *Router) AddSink(sinks ...contract.EventSink) {
	r.permanent = append(r.permanent, sinks...)
}

// Route delivers the event to each connection of the session except those
// of excludeParticipantID. Exclusion is used for typing echoes; message
// events pass an empty exclusion so the sender's other tabs stay in sync.
func (r *Router) Route(ctx context.Context, e event.DomainEvent, sessionID string, excludeParticipantID string) {
	for _, conn := range r.registry.ConnectionsForSession(sessionID) {
		if excludeParticipantID != "" && conn.ParticipantID() == excludeParticipantID {
			continue
		}
		if err := conn.Consume(ctx, e); err != nil {
			r.log.Warn("Dropping event for slow connection",
				"connection_id", conn.ID(),
				"session_id", sessionID,
				"error", err)
		}
	}
	r.fanToPermanent(ctx, e)
}

// RouteToParticipant delivers the event to every connection (tab) of one
// participant, independent of any session membership. Permanent sinks are
// not involved: participant-scoped events are notifications, not history.
func (r *Router) RouteToParticipant(ctx context.Context, e event.DomainEvent, participantID string) {
	for _, conn := range r.registry.ConnectionsForParticipant(participantID) {
		if err := conn.Consume(ctx, e); err != nil {
			r.log.Warn(fmt.Sprintf("Dropping event for participant %s", participantID),
				"connection_id", conn.ID(),
				"error", err)
		}
	}
}

func (r *Router) fanToPermanent(ctx context.Context, e event.DomainEvent) {
	for _, sink := range r.permanent {
		if err := sink.Consume(ctx, e); err != nil {
			r.log.Debug("Permanent sink rejected event", "error", err)
		}
	}
}

package workers

import (
	"context"
	"fmt"
	"log/slog"

	"support-chat/domain"
	"support-chat/domain/event"
	"support-chat/repositories"
)

// IndexWorker drains accepted-message events into the transcript search
// index. It doubles as an event sink: the router pushes into its buffered
// channel without blocking the accept path; a full buffer drops the event
// (search lags, chat does not).
type IndexWorker struct {
	log    *slog.Logger
	index  repositories.ISearchIndex
	events chan event.DomainEvent
}

func NewIndexWorker(log *slog.Logger, index repositories.ISearchIndex, bufferSize int) *IndexWorker {
	return &IndexWorker{
		log:    log,
		index:  index,
		events: make(chan event.DomainEvent, bufferSize),
	}
}

// Consume implements contract.EventSink.
func (w *IndexWorker) Consume(_ context.Context, e event.DomainEvent) error {
	if _, ok := e.(event.MessageAccepted); !ok {
		return nil
	}
	select {
	case w.events <- e:
		return nil
	default:
		return fmt.Errorf("index buffer full, event lost")
	}
}

func (w *IndexWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping index worker")
			return nil
		case e := <-w.events:
			accepted, ok := e.(event.MessageAccepted)
			if !ok {
				continue
			}
			if err := w.index.Index(toMessage(accepted)); err != nil {
				w.log.Warn("Transcript indexing failed",
					"message_id", accepted.ID, "error", err)
			}
		}
	}
}

func toMessage(e event.MessageAccepted) domain.ChatMessage {
	return domain.ChatMessage{
		ID:          e.ID,
		SessionID:   e.Session,
		SenderID:    e.SenderID,
		Content:     e.Content,
		SenderStaff: e.SenderStaff,
		CreatedAt:   e.At,
	}
}

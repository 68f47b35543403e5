// Package notify holds the outbound notification boundary. The portal
// plugs Discord/email senders behind contract.Notifier; the engine ships a
// log-backed default so a bare deployment still surfaces waiting sessions.
package notify

import (
	"context"
	"log/slog"

	"support-chat/domain"
)

type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NotifyNewSession(_ context.Context, session domain.ChatSession) error {
	n.log.Info("New support session waiting for staff",
		"session_id", session.ID,
		"requester_id", session.RequesterID,
		"department_id", session.DepartmentID,
		"subject", session.Subject,
	)
	return nil
}

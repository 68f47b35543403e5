package repositories

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"support-chat/domain"
	"support-chat/errors"
)

// Store is the BadgerDB implementation of the storage collaborator.
//
// Key layout:
//
//	session:{id}                         -> ChatSession JSON
//	open:{requester_id}                  -> id of the requester's non-terminal session
//	msg:{session_id}:{ts_padded}:{uuid}  -> ChatMessage JSON
//	presence:{staff_id}                  -> PresenceRecord JSON
//	user:{id}                            -> Participant JSON
//
// Message keys embed a 19-digit zero-padded UnixNano so lexicographical
// iteration is chronological; the UUID suffix disambiguates two messages
// accepted in the same nanosecond.
type Store struct {
	db  *badger.DB
	log *slog.Logger
}

func NewStore(db *badger.DB, log *slog.Logger) *Store {
	return &Store{db: db, log: log}
}

type sessionRecord struct {
	ID              string               `json:"id"`
	RequesterID     string               `json:"requester_id"`
	AssignedStaffID string               `json:"assigned_staff_id,omitempty"`
	DepartmentID    string               `json:"department_id,omitempty"`
	Status          domain.SessionStatus `json:"status"`
	Subject         string               `json:"subject,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	LastActivityAt  time.Time            `json:"last_activity_at"`
	EndedAt         *time.Time           `json:"ended_at,omitempty"`
	ConvertedAt     *time.Time           `json:"converted_at,omitempty"`
	TicketID        string               `json:"ticket_id,omitempty"`
	ConvertedBy     string               `json:"converted_by,omitempty"`
}

type messageRecord struct {
	ID          uuid.UUID `json:"id"`
	SessionID   string    `json:"session_id"`
	SenderID    string    `json:"sender_id"`
	Content     string    `json:"content"`
	SenderStaff bool      `json:"sender_staff"`
	CreatedAt   time.Time `json:"created_at"`
}

func sessionKey(id string) []byte          { return []byte("session:" + id) }
func openKey(requesterID string) []byte    { return []byte("open:" + requesterID) }
func presenceKey(staffID string) []byte    { return []byte("presence:" + staffID) }
func userKey(id string) []byte             { return []byte("user:" + id) }
func messagePrefix(sessionID string) string { return fmt.Sprintf("msg:%s:", sessionID) }

func messageKey(message domain.ChatMessage) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s",
		message.SessionID,
		message.CreatedAt.UnixNano(),
		message.ID,
	))
}

// CreateSession persists a fresh session and indexes it as the requester's
// open session.
func (s *Store) CreateSession(_ context.Context, session domain.ChatSession) error {
	payload, err := json.Marshal(fromSession(session))
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(sessionKey(session.ID), payload); err != nil {
			return err
		}
		return txn.Set(openKey(session.RequesterID), []byte(session.ID))
	})
}

func (s *Store) GetSession(_ context.Context, id string) (domain.ChatSession, error) {
	var record sessionRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &record)
		})
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return domain.ChatSession{}, errors.ErrSessionNotFound
	}
	if err != nil {
		return domain.ChatSession{}, err
	}
	return toSession(record), nil
}

// UpdateSession rewrites the session record and drops the open index once
// the session reaches a terminal status.
func (s *Store) UpdateSession(_ context.Context, session domain.ChatSession) error {
	payload, err := json.Marshal(fromSession(session))
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(sessionKey(session.ID), payload); err != nil {
			return err
		}
		if session.Status.Terminal() {
			err := txn.Delete(openKey(session.RequesterID))
			if goerrors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return nil
	})
}

// ActiveSessionForRequester resolves the open-session index. A dangling
// index entry is treated as no session.
func (s *Store) ActiveSessionForRequester(ctx context.Context, requesterID string) (domain.ChatSession, bool, error) {
	var sessionID string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(openKey(requesterID))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			sessionID = string(value)
			return nil
		})
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return domain.ChatSession{}, false, nil
	}
	if err != nil {
		return domain.ChatSession{}, false, err
	}

	session, err := s.GetSession(ctx, sessionID)
	if goerrors.Is(err, errors.ErrSessionNotFound) {
		return domain.ChatSession{}, false, nil
	}
	if err != nil {
		return domain.ChatSession{}, false, err
	}
	if session.Status.Terminal() {
		return domain.ChatSession{}, false, nil
	}
	return session, true, nil
}

// ActiveSessions scans the open-session index for the admin listing.
func (s *Store) ActiveSessions(ctx context.Context) ([]domain.ChatSession, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte("open:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				ids = append(ids, string(value))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sessions := make([]domain.ChatSession, 0, len(ids))
	for _, id := range ids {
		session, err := s.GetSession(ctx, id)
		if goerrors.Is(err, errors.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func (s *Store) CreateMessage(_ context.Context, message domain.ChatMessage) error {
	payload, err := json.Marshal(messageRecord(message))
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(message), payload)
	})
}

// ListMessages iterates the session's message prefix; the padded timestamp
// in the key makes the scan chronological without sorting.
func (s *Store) ListMessages(_ context.Context, sessionID string) ([]domain.ChatMessage, error) {
	var records []messageRecord
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(messagePrefix(sessionID))
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var record messageRecord
				if err := json.Unmarshal(value, &record); err != nil {
					return err
				}
				records = append(records, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(records, func(record messageRecord, _ int) domain.ChatMessage {
		return domain.ChatMessage(record)
	}), nil
}

func (s *Store) GetUser(_ context.Context, id string) (domain.Participant, error) {
	var participant domain.Participant
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &participant)
		})
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Participant{}, errors.ErrUserNotFound
	}
	if err != nil {
		return domain.Participant{}, err
	}
	return participant, nil
}

// PutUser exists for the portal's user sync job and for tests.
func (s *Store) PutUser(_ context.Context, participant domain.Participant) error {
	payload, err := json.Marshal(participant)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(userKey(participant.ID), payload)
	})
}

func (s *Store) UpsertPresence(_ context.Context, record domain.PresenceRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(presenceKey(record.StaffID), payload)
	})
}

func (s *Store) AvailablePresences(_ context.Context) ([]domain.PresenceRecord, error) {
	var records []domain.PresenceRecord
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte("presence:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var record domain.PresenceRecord
				if err := json.Unmarshal(value, &record); err != nil {
					return err
				}
				if record.Online && record.Available {
					records = append(records, record)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return records, err
}

func fromSession(session domain.ChatSession) sessionRecord {
	return sessionRecord(session)
}

func toSession(record sessionRecord) domain.ChatSession {
	return domain.ChatSession(record)
}

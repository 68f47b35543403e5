package repositories

import (
	"context"
	"log/slog"
	"time"

	"github.com/blugelabs/bluge"

	"support-chat/domain"
)

// MessageHit is one transcript search result for the admin screens.
type MessageHit struct {
	MessageID string
	SessionID string
	SenderID  string
	Content   string
	At        time.Time
}

type ISearchIndex interface {
	Index(message domain.ChatMessage) error
	Search(ctx context.Context, terms string, sessionID string, limit int) ([]MessageHit, error)
}

// SearchIndex maintains a Bluge full-text index over accepted messages so
// staff can search transcripts across sessions. Indexing is best-effort and
// decoupled from the accept path via the index worker.
type SearchIndex struct {
	writer *bluge.Writer
	config bluge.Config
	log    *slog.Logger
}

func NewSearchIndex(path string, log *slog.Logger) (*SearchIndex, error) {
	config := bluge.DefaultConfig(path)
	writer, err := bluge.OpenWriter(config)
	if err != nil {
		return nil, err
	}
	return &SearchIndex{writer: writer, config: config, log: log}, nil
}

func (s *SearchIndex) Close() error {
	return s.writer.Close()
}

// Index upserts one message document, keyed by message id so a crashed
// index worker can safely replay.
func (s *SearchIndex) Index(message domain.ChatMessage) error {
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewTextField("content", message.Content).StoreValue()).
		AddField(bluge.NewKeywordField("session_id", message.SessionID).StoreValue()).
		AddField(bluge.NewKeywordField("sender_id", message.SenderID).StoreValue()).
		AddField(bluge.NewDateTimeField("at", message.CreatedAt))

	return s.writer.Update(doc.ID(), doc)
}

// Search runs a match query over message bodies, optionally narrowed to a
// single session.
func (s *SearchIndex) Search(ctx context.Context, terms string, sessionID string, limit int) ([]MessageHit, error) {
	if limit <= 0 {
		limit = 20
	}

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(terms).SetField("content"))
	if sessionID != "" {
		query.AddMust(bluge.NewTermQuery(sessionID).SetField("session_id"))
	}

	reader, err := s.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = reader.Close()
	}()

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, err
	}

	var hits []MessageHit
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}

		var hit MessageHit
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.MessageID = string(value)
			case "content":
				hit.Content = string(value)
			case "session_id":
				hit.SessionID = string(value)
			case "sender_id":
				hit.SenderID = string(value)
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/dmitrymomot/chatrelay/core/chat"
)

const (
	insertMessage = `INSERT INTO messages (id, name, content, timestamp) VALUES (?, ?, ?, ?)`
	selectRecent  = `SELECT id, name, content, timestamp FROM messages ORDER BY seq DESC LIMIT ?`
)

// MessageStore persists chat messages in the messages table.
type MessageStore struct {
	db *sql.DB
}

var _ chat.Store = (*MessageStore)(nil)

// NewMessageStore returns a store backed by db. Migrate must have been applied.
func NewMessageStore(db *sql.DB) *MessageStore {
	return &MessageStore{db: db}
}

// Persist inserts msg. Timestamps are stored as unix nanoseconds.
func (s *MessageStore) Persist(ctx context.Context, msg chat.Message) error {
	id := msg.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, insertMessage,
		id.String(), msg.Author, msg.Body, msg.Timestamp.UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("%w: sqlite insert: %w", chat.ErrPersist, err)
	}
	return nil
}

// LoadHistory returns the last limit persisted messages in persist order.
// Row order follows seq, so a wall clock stepping back cannot reorder history.
func (s *MessageStore) LoadHistory(ctx context.Context, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, selectRecent, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite select: %w", chat.ErrPersist, err)
	}
	defer rows.Close()

	msgs := make([]chat.Message, 0, limit)
	for rows.Next() {
		var (
			rawID string
			nanos int64
			msg   chat.Message
		)
		if err := rows.Scan(&rawID, &msg.Author, &msg.Body, &nanos); err != nil {
			return nil, fmt.Errorf("%w: sqlite scan: %w", chat.ErrPersist, err)
		}
		id, err := uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("%w: sqlite message id %q: %w", chat.ErrPersist, rawID, err)
		}
		msg.ID = id
		msg.Timestamp = time.Unix(0, nanos).UTC()
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: sqlite rows: %w", chat.ErrPersist, err)
	}

	return lo.Reverse(msgs), nil
}

// Close closes the underlying database.
func (s *MessageStore) Close() error {
	if err := s.db.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return err
	}
	return nil
}

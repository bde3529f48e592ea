package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"

	"github.com/dmitrymomot/chatrelay/core/chat"
)

const (
	insertMessage = `INSERT INTO messages (id, name, content, timestamp) VALUES ($1, $2, $3, $4)`
	selectRecent  = `SELECT id::text, name, content, timestamp FROM messages ORDER BY seq DESC LIMIT $1`
)

// MessageStore persists chat messages in PostgreSQL. When the context carries a
// transaction (see WithTx) statements run inside it.
type MessageStore struct {
	pool *pgxpool.Pool
}

var _ chat.Store = (*MessageStore)(nil)

func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{pool: pool}
}

func (s *MessageStore) Persist(ctx context.Context, msg chat.Message) error {
	id := msg.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err := querierFrom(ctx, s.pool).Exec(ctx, insertMessage,
		id, msg.Author, msg.Body, msg.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("%w: pg insert: %w", chat.ErrPersist, err)
	}
	return nil
}

// LoadHistory returns the last limit persisted messages in persist order.
func (s *MessageStore) LoadHistory(ctx context.Context, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := querierFrom(ctx, s.pool).Query(ctx, selectRecent, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: pg select: %w", chat.ErrPersist, err)
	}
	msgs, err := pgx.CollectRows(rows, scanMessage)
	if err != nil {
		return nil, fmt.Errorf("%w: pg scan: %w", chat.ErrPersist, err)
	}
	return lo.Reverse(msgs), nil
}

// Close closes the pool.
func (s *MessageStore) Close() error {
	s.pool.Close()
	return nil
}

func scanMessage(row pgx.CollectableRow) (chat.Message, error) {
	var (
		rawID string
		at    time.Time
		msg   chat.Message
	)
	if err := row.Scan(&rawID, &msg.Author, &msg.Body, &at); err != nil {
		return chat.Message{}, err
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return chat.Message{}, fmt.Errorf("message id %q: %w", rawID, err)
	}
	msg.ID = id
	msg.Timestamp = at.UTC()
	return msg, nil
}

package pg_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/chatrelay/core/chat"
	"github.com/dmitrymomot/chatrelay/integration/database/pg"
)

// connect returns a migrated pool with an empty messages table, or skips when
// TEST_PG_URL is not set.
func connect(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("TEST_PG_URL")
	if url == "" {
		t.Skip("TEST_PG_URL is not set")
	}

	ctx := context.Background()
	cfg := pg.Config{ConnectionString: url, RetryAttempts: 1}
	pool, err := pg.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, pg.Migrate(ctx, pool, cfg, nil))
	_, err = pool.Exec(ctx, "TRUNCATE messages")
	require.NoError(t, err)
	return pool
}

func TestConnect_EmptyConnectionString(t *testing.T) {
	t.Parallel()

	_, err := pg.Connect(context.Background(), pg.Config{})
	assert.ErrorIs(t, err, pg.ErrEmptyConnectionString)
}

// Store tests share one table and therefore run sequentially.
func TestMessageStore(t *testing.T) {
	pool := connect(t)
	store := pg.NewMessageStore(pool)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, pg.Healthcheck(pool)(ctx))

	msgs := []chat.Message{
		{ID: uuid.New(), Author: "alice", Body: "A", Timestamp: base},
		{ID: uuid.New(), Author: "bob", Body: "B", Timestamp: base.Add(time.Second)},
		{ID: uuid.New(), Author: "carol", Body: "C", Timestamp: base.Add(2 * time.Second)},
	}
	for _, m := range msgs {
		require.NoError(t, store.Persist(ctx, m))
	}

	got, err := store.LoadHistory(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, msgs[1:], got)

	err = store.Persist(ctx, msgs[0])
	assert.ErrorIs(t, err, chat.ErrPersist)
	assert.True(t, pg.IsDuplicateKeyError(err))

	t.Run("rolled_back_tx_discards_message", func(t *testing.T) {
		tx, err := pool.Begin(ctx)
		require.NoError(t, err)

		txCtx := pg.WithTx(ctx, tx)
		extra := chat.Message{ID: uuid.New(), Author: "dave", Body: "D", Timestamp: base.Add(3 * time.Second)}
		require.NoError(t, store.Persist(txCtx, extra))

		inTx, err := store.LoadHistory(txCtx, 1)
		require.NoError(t, err)
		assert.Equal(t, []chat.Message{extra}, inTx)

		require.NoError(t, tx.Rollback(ctx))

		after, err := store.LoadHistory(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []chat.Message{msgs[2]}, after)
	})

	t.Run("clock_step_back_keeps_persist_order", func(t *testing.T) {
		stale := chat.Message{ID: uuid.New(), Author: "erin", Body: "E", Timestamp: base.Add(-time.Hour)}
		require.NoError(t, store.Persist(ctx, stale))

		got, err := store.LoadHistory(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, []chat.Message{msgs[2], stale}, got)
	})
}

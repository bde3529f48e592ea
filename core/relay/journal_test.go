package relay_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dmitrymomot/chatrelay/core/chat"
	"github.com/dmitrymomot/chatrelay/core/chat/mocks"
	"github.com/dmitrymomot/chatrelay/core/relay"
)

// recordingStore keeps persisted messages in call order.
type recordingStore struct {
	chat.NopStore
	mu   sync.Mutex
	msgs []chat.Message
}

func (s *recordingStore) Persist(_ context.Context, msg chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *recordingStore) bodies() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bodies(s.msgs)
}

func TestJournal_PersistsInAcceptanceOrder(t *testing.T) {
	t.Parallel()

	store := &recordingStore{}
	journal := relay.NewJournal(store)
	e := newEngine(t, 10, 10, relay.WithJournal(journal))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- journal.Run(ctx)() }()

	for _, body := range []string{"1", "2", "3", "4"} {
		_, err := e.Accept(context.Background(), chat.Draft{Name: "a", Body: body})
		require.NoError(t, err)
	}

	assert.Eventually(t, func() bool { return len(store.bodies()) == 4 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"1", "2", "3", "4"}, store.bodies())

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, uint64(4), e.Stats().Journal.Persisted)
}

func TestJournal_PersistFailureKeepsMessageLive(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	persisted := make(chan struct{})
	store.EXPECT().Persist(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, chat.Message) error {
		close(persisted)
		return errors.Join(chat.ErrPersist, errors.New("disk full"))
	})

	journal := relay.NewJournal(store)
	e := newEngine(t, 10, 10, relay.WithJournal(journal))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = journal.Start(ctx) }()

	_, sub, err := e.Join(context.Background())
	require.NoError(t, err)

	_, err = e.Accept(context.Background(), chat.Draft{Name: "a", Body: "kept"})
	require.NoError(t, err)

	select {
	case <-persisted:
	case <-time.After(time.Second):
		t.Fatal("persist not called")
	}

	assert.Equal(t, []string{"kept"}, bodies(e.History()))
	assert.Equal(t, []string{"kept"}, recv(t, sub, 1))
	assert.Eventually(t, func() bool { return journal.Stats().Failed == 1 }, time.Second, 5*time.Millisecond)
}

func TestJournal_FullQueueDrops(t *testing.T) {
	t.Parallel()

	journal := relay.NewJournal(chat.NopStore{}, relay.WithQueueSize(1))

	require.NoError(t, journal.Enqueue(chat.Message{Body: "1"}))
	assert.ErrorIs(t, journal.Enqueue(chat.Message{Body: "2"}), relay.ErrJournalFull)

	stats := journal.Stats()
	assert.Equal(t, uint64(1), stats.Dropped)
	assert.Equal(t, 1, stats.Pending)
}

func TestJournal_StopDrainsQueue(t *testing.T) {
	t.Parallel()

	store := &recordingStore{}
	journal := relay.NewJournal(store, relay.WithQueueSize(8))
	for _, body := range []string{"a", "b", "c"} {
		require.NoError(t, journal.Enqueue(chat.Message{Body: body}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := journal.Start(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []string{"a", "b", "c"}, store.bodies())
	assert.ErrorIs(t, journal.Enqueue(chat.Message{Body: "late"}), relay.ErrJournalClosed)
}

func TestJournal_Lifecycle(t *testing.T) {
	t.Parallel()

	journal := relay.NewJournal(chat.NopStore{})
	assert.ErrorIs(t, journal.Stop(), relay.ErrJournalNotStarted)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = journal.Start(ctx) }()

	assert.Eventually(t, func() bool { return journal.Stats().IsRunning }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, journal.Start(ctx), relay.ErrJournalAlreadyStarted)
	require.NoError(t, journal.Stop())
	assert.False(t, journal.Stats().IsRunning)
}

package session_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/chatrelay/core/auth"
	"github.com/dmitrymomot/chatrelay/core/chat"
	"github.com/dmitrymomot/chatrelay/core/relay"
	"github.com/dmitrymomot/chatrelay/core/session"
	"github.com/dmitrymomot/chatrelay/core/transport"
	"github.com/dmitrymomot/chatrelay/pkg/ratelimiter"
)

type wireMessage struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

type harness struct {
	engine  *relay.Engine
	manager *session.Manager
	server  *httptest.Server
}

func newHarness(t *testing.T, historyLimit int, opts ...session.Option) *harness {
	t.Helper()

	cfg := relay.DefaultConfig()
	cfg.HistoryLimit = historyLimit
	engine := relay.New(cfg)

	sessCfg := session.DefaultConfig()
	sessCfg.RateLimit = ratelimiter.Config{}
	manager := session.NewManager(engine, append([]session.Option{session.WithConfig(sessCfg)}, opts...)...)

	server := httptest.NewServer(transport.Handler(manager.Serve))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = manager.Shutdown(ctx)
		server.Close()
		_ = engine.Close()
	})
	return &harness{engine: engine, manager: manager, server: server}
}

func (h *harness) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// waitSubscribers blocks until n sessions have joined the hub.
func (h *harness) waitSubscribers(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.engine.Stats().Hub.Subscribers == n
	}, 2*time.Second, 5*time.Millisecond)
}

func send(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func readRaw(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	mt, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, mt)
	return data
}

func readMessage(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()
	var msg wireMessage
	require.NoError(t, json.Unmarshal(readRaw(t, conn), &msg))
	return msg
}

func TestSession_ReplaysHistoryOnConnect(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 2)
	for _, body := range []string{"A", "B", "C"} {
		_, err := h.engine.Accept(context.Background(), chat.Draft{Name: "seed", Body: body})
		require.NoError(t, err)
	}

	conn := h.dial(t)
	var replay []wireMessage
	require.NoError(t, json.Unmarshal(readRaw(t, conn), &replay))
	require.Len(t, replay, 2)
	assert.Equal(t, "B", replay[0].Message)
	assert.Equal(t, "C", replay[1].Message)
}

func TestSession_NoReplayFrameWhenHistoryEmpty(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 5)
	conn := h.dial(t)
	h.waitSubscribers(t, 1)

	send(t, conn, `{"name":"bob","message":"first"}`)
	raw := readRaw(t, conn)
	require.NotEmpty(t, raw)
	assert.Equal(t, byte('{'), raw[0], "first frame must be the live message, not a replay array")
}

func TestSession_BroadcastsTrimmedMessageToAll(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 10)
	s1 := h.dial(t)
	s2 := h.dial(t)
	h.waitSubscribers(t, 2)

	before := time.Now().UTC()
	send(t, s1, `{"name":" Alice ","message":" hi ","time":"1999-01-01T00:00:00Z"}`)

	for _, conn := range []*websocket.Conn{s1, s2} {
		msg := readMessage(t, conn)
		assert.Equal(t, "Alice", msg.Name)
		assert.Equal(t, "hi", msg.Message)
		assert.NotEmpty(t, msg.ID)
		assert.False(t, msg.Time.Before(before.Add(-time.Second)), "time must be server assigned")
	}
	assert.Equal(t, []string{"hi"}, bodies(h.engine.History()))
}

func TestSession_InvalidMessagesAreDropped(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 10)
	sender := h.dial(t)
	receiver := h.dial(t)
	h.waitSubscribers(t, 2)

	send(t, sender, `{"name":"","message":"hi"}`)
	send(t, sender, `not json`)
	send(t, sender, `{"name":"x","message":"`+strings.Repeat("y", chat.MaxBodyLength+1)+`"}`)
	send(t, sender, `{"name":"carol","message":"valid"}`)

	msg := readMessage(t, receiver)
	assert.Equal(t, "valid", msg.Message)
	assert.Equal(t, []string{"valid"}, bodies(h.engine.History()))

	// The sender stays connected.
	assert.Equal(t, "valid", readMessage(t, sender).Message)
}

func TestSession_BatchFrame(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 10)
	conn := h.dial(t)
	h.waitSubscribers(t, 1)

	send(t, conn, `[{"name":"a","message":"one"},{"name":"","message":"bad"},{"name":"b","content":"two"}]`)
	assert.Equal(t, "one", readMessage(t, conn).Message)
	assert.Equal(t, "two", readMessage(t, conn).Message)
}

func TestSession_DisconnectDoesNotAffectOthers(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 10)
	s1 := h.dial(t)
	s2 := h.dial(t)
	h.waitSubscribers(t, 2)

	send(t, s1, `{"name":"s1","message":"hello"}`)
	assert.Equal(t, "hello", readMessage(t, s1).Message)
	assert.Equal(t, "hello", readMessage(t, s2).Message)

	require.NoError(t, s1.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second)))
	require.Eventually(t, func() bool { return h.manager.Stats().Sessions == 1 }, 2*time.Second, 5*time.Millisecond)
	h.waitSubscribers(t, 1)

	_, err := h.engine.Accept(context.Background(), chat.Draft{Name: "sys", Body: "after"})
	require.NoError(t, err)
	assert.Equal(t, "after", readMessage(t, s2).Message)
}

func TestSession_PingGetsPong(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 10)
	conn := h.dial(t)
	h.waitSubscribers(t, 1)

	pong := make(chan string, 1)
	conn.SetPongHandler(func(data string) error {
		pong <- data
		return nil
	})
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	require.NoError(t, conn.WriteControl(websocket.PingMessage, []byte("are-you-there"), time.Now().Add(time.Second)))
	select {
	case data := <-pong:
		assert.Equal(t, "are-you-there", data)
	case <-time.After(2 * time.Second):
		t.Fatal("no pong received")
	}
}

func TestSession_ServerSendsKeepalivePings(t *testing.T) {
	t.Parallel()

	cfg := session.DefaultConfig()
	cfg.PingInterval = 20 * time.Millisecond
	cfg.PongWait = time.Second
	h := newHarness(t, 10, session.WithConfig(cfg))
	conn := h.dial(t)

	pinged := make(chan struct{}, 1)
	conn.SetPingHandler(func(data string) error {
		select {
		case pinged <- struct{}{}:
		default:
		}
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-pinged:
	case <-time.After(2 * time.Second):
		t.Fatal("no keep-alive ping received")
	}
}

func TestSession_RateLimit(t *testing.T) {
	t.Parallel()

	limiter, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), ratelimiter.Config{
		Capacity:       2,
		RefillRate:     1,
		RefillInterval: time.Hour,
	})
	require.NoError(t, err)

	h := newHarness(t, 10, session.WithRateLimiter(limiter))
	conn := h.dial(t)
	h.waitSubscribers(t, 1)

	for _, body := range []string{"1", "2", "3"} {
		send(t, conn, `{"name":"spam","message":"`+body+`"}`)
	}
	assert.Equal(t, "1", readMessage(t, conn).Message)
	assert.Equal(t, "2", readMessage(t, conn).Message)

	require.Eventually(t, func() bool { return len(h.engine.History()) == 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(50*time.Millisecond)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "third message must be dropped")
}

func TestSession_Shutdown(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 10)
	conn := h.dial(t)
	h.waitSubscribers(t, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.manager.Shutdown(ctx))
	assert.Zero(t, h.manager.Stats().Sessions)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestSession_ServeContextCancelClosesGoingAway(t *testing.T) {
	t.Parallel()

	engine := relay.New(relay.DefaultConfig())
	t.Cleanup(func() { _ = engine.Close() })
	cfg := session.DefaultConfig()
	cfg.RateLimit = ratelimiter.Config{}
	manager := session.NewManager(engine, session.WithConfig(cfg))

	root, cancel := context.WithCancel(context.Background())
	defer cancel()
	server := httptest.NewServer(transport.Handler(func(_ context.Context, conn *websocket.Conn) error {
		return manager.Serve(root, conn)
	}))
	t.Cleanup(server.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return engine.Stats().Hub.Subscribers == 1 }, 2*time.Second, 5*time.Millisecond)

	cancel()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	require.Eventually(t, func() bool { return manager.Stats().Sessions == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestSession_EngineCloseEndsSessions(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 10)
	conn := h.dial(t)
	h.waitSubscribers(t, 1)

	require.NoError(t, h.engine.Close())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestSession_Auth(t *testing.T) {
	t.Parallel()

	svc, err := auth.New([]byte("session-test-secret"))
	require.NoError(t, err)

	t.Run("verified_identity_overrides_author", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, 10, session.WithVerifier(svc))
		conn := h.dial(t)

		token, err := svc.Issue(auth.Identity{Subject: "7", Username: "dave", Role: "user"})
		require.NoError(t, err)
		send(t, conn, `{"token":"`+token+`"}`)
		h.waitSubscribers(t, 1)

		send(t, conn, `{"name":"impostor","message":"hello"}`)
		msg := readMessage(t, conn)
		assert.Equal(t, "dave", msg.Name)
		assert.Equal(t, "hello", msg.Message)
	})

	t.Run("invalid_token_closes_with_policy_violation", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, 10, session.WithVerifier(svc))
		conn := h.dial(t)

		send(t, conn, `{"token":"forged"}`)
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, _, err := conn.ReadMessage()
		assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
		assert.Equal(t, 0, h.engine.Stats().Hub.Subscribers)
		require.Eventually(t, func() bool { return h.manager.Stats().Sessions == 0 }, 2*time.Second, 5*time.Millisecond)
	})

	t.Run("shutdown_during_handshake", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, 10, session.WithVerifier(svc))

		for range 20 {
			conn := h.dial(t)
			require.Eventually(t, func() bool { return h.manager.Stats().Sessions == 1 }, 2*time.Second, time.Millisecond)

			token, err := svc.Issue(auth.Identity{Subject: "8", Username: "erin"})
			require.NoError(t, err)

			done := make(chan error, 1)
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				done <- h.manager.Shutdown(ctx)
			}()
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"token":"`+token+`"}`))

			require.NoError(t, <-done)
			assert.Zero(t, h.manager.Stats().Sessions)

			require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
			_, _, err = conn.ReadMessage()
			assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.ClosePolicyViolation), "got %v", err)
			_ = conn.Close()
		}
	})

	t.Run("chat_frame_instead_of_token", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, 10, session.WithVerifier(svc))
		conn := h.dial(t)

		send(t, conn, `{"name":"a","message":"b"}`)
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, _, err := conn.ReadMessage()
		assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
		assert.Empty(t, h.engine.History())
	})
}

func bodies(msgs []chat.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Body)
	}
	return out
}

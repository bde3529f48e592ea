// Package redis connects to Redis with go-redis and stores chat messages in a
// capped list.
//
// Connect validates the URL (redis:// or rediss://) and pings with retries
// before returning the client. Healthcheck returns a readiness probe.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	store := redis.NewMessageStore(client, cfg)
//
// Every Persist is an RPUSH followed by LTRIM in a single transaction, so the
// list never holds more than REDIS_MESSAGES_RETAIN entries. LoadHistory reads
// the tail with LRANGE.
//
// Configuration:
//
//	REDIS_URL=redis://localhost:6379/0
//	REDIS_RETRY_ATTEMPTS=3
//	REDIS_RETRY_INTERVAL=5s
//	REDIS_CONNECT_TIMEOUT=30s
//	REDIS_MESSAGES_KEY=chat:messages
//	REDIS_MESSAGES_RETAIN=1000
package redis

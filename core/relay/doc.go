// Package relay is the chat state engine: it admits validated messages into
// the history ring and the broadcast hub, hands them to the persistence
// journal, and lets new sessions join with a consistent history snapshot.
//
//	engine := relay.New(cfg, relay.WithJournal(relay.NewJournal(store)), relay.WithLogger(log))
//	if err := engine.Seed(ctx, store); err != nil {
//		log.Warn("starting with empty history", logger.Error(err))
//	}
//
//	snapshot, sub, err := engine.Join(ctx)
//	msg, err := engine.Accept(ctx, chat.Draft{Name: "alice", Body: "hi"})
//
// Persistence is asynchronous. A failed or dropped write is logged and
// counted but never undoes the in-memory accept.
package relay

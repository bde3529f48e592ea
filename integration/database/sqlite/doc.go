// Package sqlite stores chat messages in an embedded SQLite database using the
// pure Go modernc.org/sqlite driver.
//
// Open applies the WAL journal mode and a busy timeout, Migrate runs the
// embedded goose migrations and MessageStore implements chat.Store on top of
// the messages table.
//
//	db, err := sqlite.Open(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	if err := sqlite.Migrate(ctx, db, log); err != nil {
//		return err
//	}
//	store := sqlite.NewMessageStore(db)
//	defer store.Close()
//
// Configuration is read from the environment:
//
//	SQLITE_PATH=chat.db
//	SQLITE_BUSY_TIMEOUT=5s
//	SQLITE_MAX_OPEN_CONNS=1
package sqlite

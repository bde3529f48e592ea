// Package badger stores chat messages in an embedded BadgerDB.
//
// Keys are "msg:{seq}" with a badger Sequence zero padded to 20 digits, so
// lexicographic key order is persist order and LoadHistory is a single
// reverse prefix scan. Entries can expire through BADGER_RETENTION, and
// RunGC periodically reclaims value log space.
//
//	db, err := badger.Open(cfg, log)
//	if err != nil {
//		return err
//	}
//	store, err := badger.NewMessageStore(db, cfg)
//	if err != nil {
//		return err
//	}
//	g.Go(badger.RunGC(ctx, db, cfg.GCInterval, log))
//
// Configuration:
//
//	BADGER_DIR=data/badger
//	BADGER_IN_MEMORY=false
//	BADGER_RETENTION=0s
//	BADGER_GC_INTERVAL=10m
package badger

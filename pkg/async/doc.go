// Package async runs error-returning functions on their own goroutines and
// coordinates their completion.
//
//	reader := async.Exec(ctx, conn, readLoop)
//	writer := async.Exec(ctx, conn, writeLoop)
//
//	// First to finish wins; the caller cancels the other.
//	idx, err := async.ExecAny(reader, writer)
//	cancel()
//	_ = async.ExecAll(reader, writer)
//
// ExecAll waits for every future and reports the first error in argument
// order. AwaitWithTimeout returns ErrTimeout if the function has not finished
// in time; the function itself keeps running.
package async

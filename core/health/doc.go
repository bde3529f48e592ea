// Package health provides HTTP handlers for liveness and readiness probes.
//
//	mux.HandleFunc("GET /health/live", health.Liveness)
//	mux.Handle("GET /health/ready", health.Readiness(log,
//		sqlite.Healthcheck(db),
//	))
//
// Readiness checks follow the func(context.Context) error signature returned
// by the Healthcheck helpers of the storage packages.
package health

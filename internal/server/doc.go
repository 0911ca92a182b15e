// Package server exposes the HTTP control API and progress streams.
//
// Routes live under /api. Mutating task operations delegate to the
// orchestrator and map its sentinel errors onto HTTP statuses. Progress is
// streamed over server-sent events, one stream per task plus an all-tasks
// stream, fed by the progress hub rather than polling.
package server

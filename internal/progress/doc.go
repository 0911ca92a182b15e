// Package progress distributes task progress snapshots to API streams.
//
// The orchestrator publishes a snapshot whenever a task's counters or status
// move. Subscribers receive the latest snapshot per task without ever
// blocking publishers; a slow reader observes coalesced state rather than a
// backlog.
package progress

// Package store persists tasks, work items, and pooled accounts in SQLite.
//
// Schema migrations are embedded and applied transactionally at Open. All
// timestamps are stored as RFC 3339 strings in UTC. Work items cascade on
// task deletion.
package store

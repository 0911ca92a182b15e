// Package daemon composes the long-running overseer process: instance
// locking, startup recovery, the task supervisor, and the HTTP API.
package daemon

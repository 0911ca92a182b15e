// Package orchestrator schedules and supervises task runs.
//
// A run walks the task's pending items in fixed-width batches: every item in
// a batch executes concurrently, the batch joins before the next one starts,
// and consecutive batches are separated by a throttle delay. After the
// initial pass, failed items are swept back to pending for a bounded number
// of automatic retry rounds. Retry bookkeeping and cancellation marks live
// only in process memory; a restart wipes them and the startup recovery
// sweep settles whatever was in flight.
package orchestrator

// Package operations orchestrates analysis runs.
//
// A run walks the fixed pipeline load -> clean -> score -> reconcile ->
// aggregate -> export over the three supply-chain datasets. The Runner
// executes stages strictly in order, records per-stage state on the run,
// and broadcasts a snapshot over the WebSocket hub after every
// transition. One run executes at a time; a second request while a run
// is active is rejected with ErrRunInProgress.
//
// Core components:
//
// Runner: validates inputs, executes the pipeline, and owns the
// single-flight guard. Start launches a run in the background for the
// HTTP API; RunOnce executes synchronously for the batch CLI.
//
// RunStore: bounded in-memory store of recent runs and their results.
// Reads return copies so callers never observe a run mid-mutation.
//
// Each run allocates its own tables. Stages pass data forward through
// the run's private state and never mutate a table after handing it on,
// so no locking is needed inside the pipeline itself.
package operations

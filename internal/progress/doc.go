// Package progress holds the in-memory model of tasks and their steps.
//
// A Registry is mutated by applying event messages and is read through
// Snapshot, which returns a deep copy safe to hand to a renderer. The
// registry is not safe for concurrent use; it is owned by the orchestrator
// goroutine.
//
// Task status is whatever the last task status message said. It is never
// derived from the status of the task's steps.
package progress

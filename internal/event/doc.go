// Package event defines the messages a long-running operation emits to report
// its progress, and the channel-backed queue that carries them to the
// orchestrator.
//
// # Messages
//
// [Message] is a closed union; the concrete types are:
//
//   - [TaskCreated]: register a task or update its message
//   - [TaskStatusChanged]: set a task's status (independent of its steps)
//   - [StepCreated]: register a step under a task or update its message
//   - [StepStatusChanged]: move a step to another status
//   - [LogLine]: free-form output, buffered and flushed at shutdown
//   - [ErrorRaised]: a non-fatal error, logged and swallowed
//
// # Reporting
//
// Operations receive a [*Reporter], which wraps any [Emitter] (usually a
// [*Queue]) with helpers:
//
//	r.Task("deps", "reading package.json")
//	r.Step("deps", "bcrypto")
//	r.StepStatus("deps", "bcrypto", event.Running)
//	r.StepStatus("deps", "bcrypto", event.Done, "up to date")
//	r.Out("12 packages checked")
//
// A Reporter is safe for concurrent use when its Emitter is.
package event

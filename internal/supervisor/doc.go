// Package supervisor runs the delta indexing path: a watch source feeds a
// bounded work queue that a fixed pool of index workers drains.
//
// # States
//
//	Idle → Starting → Running → Draining → Stopped
//	                     ↓
//	                   Failing → Stopped
//
// Running ends on one of four triggers, each with its own exit code:
//
//   - context cancellation (SIGINT or SIGTERM): clean drain, [ExitClean]
//   - kernel notification overflow: [ExitKernelOverflow]
//   - work queue overflow: [ExitQueueOverflow]
//   - a fatal worker result or watch source failure: Failing, [ExitFatal]
//
// Draining stops the watch source and tells the workers to exit. An event a
// worker is already handling runs to completion; queued events are dropped.
// Both overflow exits mean notifications were lost, so the caller must run a
// full reconciliation before delta indexing is restarted.
//
// Workers report recoverable and fatal results on an error channel that the
// supervisor reads alongside the watch events.
package supervisor

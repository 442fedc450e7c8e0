// Package logging provides a small leveled logger for the SDC indexer.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information (unrecognized file names land here)
//   - INFO: General operational messages
//   - WARN: Warning conditions, including recoverable catalog write errors
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the process
//
// The level comes from DEBUG=1 or LOG_LEVEL, and can be overridden at runtime
// with SetLevel (the --log-level flag). Components that run concurrently use a
// Logger created with For so their lines carry a prefix such as "[worker 2]".
package logging

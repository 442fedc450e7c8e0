// Package middleware wraps the progress endpoint with request logging and
// Prometheus instrumentation.
//
// Requests are logged in W3C Extended Log Format through the logging
// package. Probe paths can be left out of the log so that a kubelet polling
// /livez every few seconds does not bury the indexing output. Server errors
// and requests slower than LoggingConfig.SlowRequest are logged at warn.
//
// Request metrics are labelled by the gorilla/mux route template rather than
// the raw path.
package middleware

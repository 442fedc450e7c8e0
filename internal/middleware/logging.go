package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"sdc-indexer/internal/logging"
)

// responseWriter records the status and body size for the log and the
// request metrics.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.statusCode = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// LoggingConfig holds configuration for the logging middleware
type LoggingConfig struct {
	// SkipPaths are path prefixes that are never logged.
	SkipPaths []string
	// LogProbes logs /healthz and /livez requests.
	LogProbes bool
	// Debug logs ordinary requests at debug level instead of info.
	Debug bool
	// SlowRequest logs requests taking at least this long at warn level.
	// Zero disables the check.
	SlowRequest time.Duration
}

// DefaultLoggingConfig leaves probes and scrapes out of the log. A /progress
// poll taking a second means the catalog is locked by a long reconcile.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipPaths:   []string{"/metrics"},
		Debug:       true,
		SlowRequest: time.Second,
	}
}

var probePaths = map[string]bool{
	"/healthz": true,
	"/livez":   true,
}

// Logger returns HTTP logging middleware writing W3C Extended Log Format
// lines through the "http" component logger. Server errors and slow
// requests are logged at warn.
func Logger(config LoggingConfig) func(http.Handler) http.Handler {
	log := logging.For("http")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if shouldSkip(r.URL.Path, config) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)
			elapsed := time.Since(start)

			line := formatAccess(r, wrapped, elapsed)
			switch {
			case wrapped.statusCode >= http.StatusInternalServerError:
				log.Warn("%s", line)
			case config.SlowRequest > 0 && elapsed >= config.SlowRequest:
				log.Warn("slow request: %s", line)
			case config.Debug:
				log.Debug("%s", line)
			default:
				log.Info("%s", line)
			}
		})
	}
}

// formatAccess renders one request as
// c-ip cs-method cs-uri-stem cs-uri-query sc-status sc-bytes time-taken cs(User-Agent)
// The log line prefix carries date and time.
func formatAccess(r *http.Request, rw *responseWriter, elapsed time.Duration) string {
	return fmt.Sprintf("%s %s %s %s %d %d %d %s",
		orDash(sanitizeLogField(clientAddr(r))),
		sanitizeLogField(r.Method),
		sanitizeLogField(r.URL.Path),
		orDash(sanitizeLogField(r.URL.RawQuery)),
		rw.statusCode,
		rw.bytesWritten,
		elapsed.Milliseconds(),
		orDash(escapeW3CField(sanitizeLogField(r.UserAgent()))),
	)
}

func shouldSkip(path string, config LoggingConfig) bool {
	return hasPrefix(path, config.SkipPaths) || !config.LogProbes && probePaths[path]
}

func hasPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// clientAddr returns the peer host. The endpoint is scraped directly, so
// forwarding headers are not trusted.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// sanitizeLogField turns line breaks into spaces and drops other control
// characters except tab, so a request cannot forge log lines.
func sanitizeLogField(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r':
			return ' '
		case r == '\t':
			return r
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, s)
}

// escapeW3CField quotes a field containing spaces or quotes.
func escapeW3CField(s string) string {
	if !strings.ContainsAny(s, " \t\"") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

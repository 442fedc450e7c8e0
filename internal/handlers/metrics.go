package handlers

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sdc-indexer/internal/logging"
)

// promLogger routes promhttp encoding errors to the metrics component log.
type promLogger struct{ log logging.Logger }

func (l promLogger) Println(v ...interface{}) {
	l.log.Warn("%s", fmt.Sprint(v...))
}

// MetricsHandler serves the default registry. A collector that fails to
// gather is logged and skipped so one bad collector does not hide the rest.
func (h *Handlers) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		ErrorLog:          promLogger{log: logging.For("metrics")},
		ErrorHandling:     promhttp.ContinueOnError,
		EnableOpenMetrics: true,
	})
}

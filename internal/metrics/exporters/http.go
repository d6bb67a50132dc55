// Package exporters exposes collected metrics over HTTP.
package exporters

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPHandler returns the Prometheus scrape handler for all promauto metrics.
func HTTPHandler() http.Handler {
	return promhttp.Handler()
}

package middleware

import (
	"net/http"
	"strconv"

	"event-checkout-platform/internal/metrics"
)

// MetricsMiddleware counts served requests by path and status
func MetricsMiddleware(m *metrics.CheckoutMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			m.ObserveRequest(r.URL.Path, strconv.Itoa(wrapped.statusCode))
		})
	}
}

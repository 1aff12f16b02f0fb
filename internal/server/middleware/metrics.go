package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/iudanet/gophprogress/internal/server/metrics"
)

// otherRoute метка для путей вне списка маршрутов
const otherRoute = "other"

// MetricsMiddleware считает запросы и их длительность по маршрутам.
// Пути вне routes попадают в метку "other", чтобы не раздувать кардинальность.
func MetricsMiddleware(routes ...string) func(http.Handler) http.Handler {
	known := make(map[string]struct{}, len(routes))
	for _, route := range routes {
		known[route] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := r.URL.Path
			if _, ok := known[route]; !ok {
				route = otherRoute
			}

			start := time.Now()
			wrapped := wrapResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

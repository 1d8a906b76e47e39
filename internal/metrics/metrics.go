package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "coworking"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status code.",
		},
		[]string{"endpoint", "code"},
	)

	quotes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_total",
			Help:      "Price quotes by space category and duration class.",
		},
		[]string{"category", "duration"},
	)

	reservations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_total",
			Help:      "Created reservations by space category and duration class.",
		},
		[]string{"category", "duration"},
	)

	revenue = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_revenue_total",
			Help:      "Sum of reservation prices by space category.",
		},
		[]string{"category"},
	)

	conflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_conflicts_total",
			Help:      "Reservations rejected because the hours were already taken.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, quotes, reservations, revenue, conflicts)
	})
}

func IncHTTP(endpoint string, code int) {
	httpRequests.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
}

func IncQuote(category, duration string) {
	quotes.WithLabelValues(category, duration).Inc()
}

// ObserveReservation counts a created reservation and its price.
func ObserveReservation(category, duration string, price float64) {
	reservations.WithLabelValues(category, duration).Inc()
	if price > 0 {
		revenue.WithLabelValues(category).Add(price)
	}
}

func IncConflict() {
	conflicts.Inc()
}

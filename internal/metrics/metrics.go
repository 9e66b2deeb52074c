package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CheckoutMetrics counts the checkout outcomes the operator cares
// about: sessions opened, handshake results, recipient lookups and
// timer expirations.
type CheckoutMetrics struct {
	SessionsStarted *prometheus.CounterVec
	Handshakes      *prometheus.CounterVec
	Lookups         *prometheus.CounterVec
	Expirations     prometheus.Counter
	Requests        *prometheus.CounterVec
}

// New registers and returns the checkout metric set
func New() *CheckoutMetrics {
	sessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkout",
		Name:      "sessions_started_total",
		Help:      "Checkout sessions opened, by event.",
	}, []string{"event"})
	handshakes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkout",
		Name:      "handshakes_total",
		Help:      "Transaction handshake outcomes.",
	}, []string{"outcome"})
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkout",
		Name:      "recipient_lookups_total",
		Help:      "Recipient lookup outcomes.",
	}, []string{"outcome"})
	expirations := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "checkout",
		Name:      "session_expirations_total",
		Help:      "Checkout sessions invalidated by the countdown timer.",
	})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkout",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})

	prometheus.MustRegister(sessions, handshakes, lookups, expirations, requests)
	return &CheckoutMetrics{
		SessionsStarted: sessions,
		Handshakes:      handshakes,
		Lookups:         lookups,
		Expirations:     expirations,
		Requests:        requests,
	}
}

// ObserveSessionStarted records a new checkout session for an event.
// Safe on a nil receiver so wiring metrics stays optional.
func (m *CheckoutMetrics) ObserveSessionStarted(event string) {
	if m == nil {
		return
	}
	m.SessionsStarted.WithLabelValues(event).Inc()
}

// ObserveHandshake records a transaction handshake outcome
func (m *CheckoutMetrics) ObserveHandshake(outcome string) {
	if m == nil {
		return
	}
	m.Handshakes.WithLabelValues(outcome).Inc()
}

// ObserveLookup records a recipient lookup outcome
func (m *CheckoutMetrics) ObserveLookup(outcome string) {
	if m == nil {
		return
	}
	m.Lookups.WithLabelValues(outcome).Inc()
}

// ObserveExpiration records a session invalidated by the timer
func (m *CheckoutMetrics) ObserveExpiration() {
	if m == nil {
		return
	}
	m.Expirations.Inc()
}

// ObserveRequest records one served HTTP request
func (m *CheckoutMetrics) ObserveRequest(handler, status string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(handler, status).Inc()
}

// Handler exposes the prometheus scrape endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}

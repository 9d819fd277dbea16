// Package metrics exposes Prometheus counters for membership changes.
package metrics

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/dalemusser/memberhub/internal/app/system/auth"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application's collectors, registered on their own
// registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	Transitions  *prometheus.CounterVec
	BatchErrors  *prometheus.CounterVec
	Anomalies    prometheus.Counter
	Applications *prometheus.CounterVec
}

// New registers the collectors plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "memberhub",
			Name:      "membership_transitions_total",
			Help:      "Membership rows moved through join, leave or rejoin.",
		}, []string{"transition"}),
		BatchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "memberhub",
			Name:      "membership_batch_errors_total",
			Help:      "Membership write batches that failed.",
		}, []string{"batch"}),
		Anomalies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "memberhub",
			Name:      "membership_duplicate_history_total",
			Help:      "Reactivations that found more than one historical row for an organization.",
		}),
		Applications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "memberhub",
			Name:      "membership_reconciliations_total",
			Help:      "Reconciliation plans applied, by mode (transaction or concurrent) and outcome.",
		}, []string{"mode", "outcome"}),
	}
	reg.MustRegister(
		m.Transitions, m.BatchErrors, m.Anomalies, m.Applications,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Guard admits requests carrying "Authorization: Bearer <token>" or a
// signed-in admin; everyone else gets 401. An empty token disables the
// bearer path. Session users must already be loaded on the request.
func Guard(token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, ok := auth.CurrentUser(r); ok && u.IsAdmin() {
			next.ServeHTTP(w, r)
			return
		}
		if token != "" {
			got, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if found && subtle.ConstantTimeCompare([]byte(got), []byte(token)) == 1 {
				next.ServeHTTP(w, r)
				return
			}
		}
		w.Header().Set("WWW-Authenticate", `Bearer realm="metrics"`)
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

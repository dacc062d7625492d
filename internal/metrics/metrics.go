// Package metrics holds the prometheus collectors for the store and the
// notification channel.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "coaching_dashboard"

// Result labels
const (
	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultStale    = "stale"
	ResultRejected = "rejected"
)

// Removal reasons
const (
	ReasonExpired   = "expired"
	ReasonDismissed = "dismissed"
)

// Metrics groups every collector the module exports
type Metrics struct {
	Refreshes            *prometheus.CounterVec
	Mutations            *prometheus.CounterVec
	Notifications        *prometheus.CounterVec
	NotificationRemovals *prometheus.CounterVec
	APIRequests          *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
// A nil reg leaves them unregistered, which is what most tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Full reloads of members, teams and feedback by result.",
		}, []string{"result"}),
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Store mutations by operation and result.",
		}, []string{"operation", "result"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications shown by kind.",
		}, []string{"kind"}),
		NotificationRemovals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_removals_total",
			Help:      "Notifications removed by reason.",
		}, []string{"reason"}),
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Requests sent to the coaching API by method and status class.",
		}, []string{"method", "status"}),
	}
	if reg != nil {
		reg.MustRegister(m.Refreshes, m.Mutations, m.Notifications, m.NotificationRemovals, m.APIRequests)
	}
	return m
}

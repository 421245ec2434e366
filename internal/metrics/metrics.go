// Package metrics exposes prometheus instrumentation for the connection hub.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Set bundles the hub's collectors. A nil *Set disables instrumentation, so
// callers never need to guard.
type Set struct {
	connectionsOpen prometheus.Gauge
	usersOnline     prometheus.Gauge
	messagesSent    prometheus.Counter
	messagesDeleted prometheus.Counter
}

// New registers the hub collectors on reg.
func New(reg prometheus.Registerer) *Set {
	factory := promauto.With(reg)
	return &Set{
		connectionsOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chathub_connections_open",
			Help: "Currently open WebSocket connections.",
		}),
		usersOnline: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chathub_users_online",
			Help: "Users currently marked online.",
		}),
		messagesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "chathub_messages_sent_total",
			Help: "Messages persisted and broadcast.",
		}),
		messagesDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "chathub_messages_deleted_total",
			Help: "Messages deleted and broadcast.",
		}),
	}
}

func (s *Set) ConnOpened() {
	if s != nil {
		s.connectionsOpen.Inc()
	}
}

func (s *Set) ConnClosed() {
	if s != nil {
		s.connectionsOpen.Dec()
	}
}

func (s *Set) SetUsersOnline(n int) {
	if s != nil {
		s.usersOnline.Set(float64(n))
	}
}

func (s *Set) MessageSent() {
	if s != nil {
		s.messagesSent.Inc()
	}
}

func (s *Set) MessageDeleted() {
	if s != nil {
		s.messagesDeleted.Inc()
	}
}

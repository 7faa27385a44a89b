package observability

import (
	"context"
	"strconv"

	"github.com/aretw0/concierge/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of the conversation engine.
type Metrics struct {
	messages    *prometheus.CounterVec
	transitions *prometheus.CounterVec
	dispatches  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		messages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "concierge_messages_total",
				Help: "Total number of messages appended to conversation logs",
			},
			[]string{"author"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "concierge_transitions_total",
				Help: "Total number of flow state transitions",
			},
			[]string{"domain", "to"},
		),
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "concierge_dispatches_total",
				Help: "Total number of finished remote queries",
			},
			[]string{"domain", "kind", "error", "stale"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "concierge_dispatch_duration_seconds",
				Help:    "Duration of remote queries",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"domain", "kind"},
		),
	}

	for _, c := range []prometheus.Collector{m.messages, m.transitions, m.dispatches, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnMessage: func(_ context.Context, e *domain.MessageEvent) {
			m.messages.WithLabelValues(string(e.Message.Author)).Inc()
		},
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			m.transitions.WithLabelValues(string(e.Domain), string(e.To)).Inc()
		},
		OnDispatchReturn: func(_ context.Context, e *domain.DispatchEvent) {
			m.dispatches.WithLabelValues(
				string(e.Domain),
				string(e.Kind),
				strconv.FormatBool(e.IsError),
				strconv.FormatBool(e.Stale),
			).Inc()
			m.duration.WithLabelValues(string(e.Domain), string(e.Kind)).Observe(e.Duration.Seconds())
		},
	}
}

package observability

import (
	"github.com/aretw0/otsync/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the otsync collectors.
type Metrics struct {
	sent        *prometheus.CounterVec
	acks        *prometheus.CounterVec
	remote      *prometheus.CounterVec
	rollbacks   *prometheus.CounterVec
	resets      *prometheus.CounterVec
	applyErrors *prometheus.CounterVec
	state       *prometheus.GaugeVec
	buffered    *prometheus.GaugeVec
}

var states = []domain.StateKind{
	domain.KindSynchronized,
	domain.KindAwaitingConfirm,
	domain.KindAwaitingWithBuffer,
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	counter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "otsync",
			Name:      name,
			Help:      help,
		}, []string{"client"})
	}

	m := &Metrics{
		sent:        counter("operations_sent_total", "Operations submitted to the server."),
		acks:        counter("acks_total", "Submissions acknowledged by the server."),
		remote:      counter("remote_operations_total", "Remote operations applied."),
		rollbacks:   counter("rollbacks_total", "Submissions rejected and undone."),
		resets:      counter("resets_total", "Hard resyncs to a server revision."),
		applyErrors: counter("apply_errors_total", "Operations the editor failed to apply."),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "otsync",
			Name:      "client_state",
			Help:      "1 for the state each client is currently in.",
		}, []string{"client", "state"}),
		buffered: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "otsync",
			Name:      "buffered_length",
			Help:      "Length of the locally buffered operation.",
		}, []string{"client"}),
	}

	for _, c := range []prometheus.Collector{m.sent, m.acks, m.remote, m.rollbacks, m.resets, m.applyErrors, m.state, m.buffered} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks recording into m under the client label.
func (m *Metrics) Hooks(client string) domain.LifecycleHooks {
	m.setState(client, domain.KindSynchronized)
	m.buffered.WithLabelValues(client).Set(0)

	count := func(c *prometheus.CounterVec) func(*domain.OperationEvent) {
		inc := c.WithLabelValues(client)
		return func(*domain.OperationEvent) { inc.Inc() }
	}
	applyErrors := m.applyErrors.WithLabelValues(client)

	return domain.LifecycleHooks{
		OnSend:            count(m.sent),
		OnAck:             count(m.acks),
		OnRemoteOperation: count(m.remote),
		OnRollback:        count(m.rollbacks),
		OnReset:           count(m.resets),
		OnApplyError:      func(*domain.ApplyOperationError) { applyErrors.Inc() },
		OnStateChange: func(e *domain.StateChangeEvent) {
			m.setState(client, e.To)
			m.buffered.WithLabelValues(client).Set(float64(e.BufferLength))
		},
	}
}

func (m *Metrics) setState(client string, current domain.StateKind) {
	for _, s := range states {
		v := 0.0
		if s == current {
			v = 1
		}
		m.state.WithLabelValues(client, string(s)).Set(v)
	}
}

// StateGauge returns the state gauge of client for state.
func (m *Metrics) StateGauge(client, state string) prometheus.Gauge {
	return m.state.WithLabelValues(client, state)
}

// BufferedGauge returns the buffered-length gauge of client.
func (m *Metrics) BufferedGauge(client string) prometheus.Gauge {
	return m.buffered.WithLabelValues(client)
}

package participant

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/cellsim/internal/engine"
)

// Metrics exports simulation activity to prometheus.
//
// Every notification increments cellsim_notifications_total{kind}. Cycles,
// exceptions and cargo get their own series so dashboards need no label
// arithmetic.
type Metrics struct {
	tap

	notifications *prometheus.CounterVec
	exceptions    *prometheus.CounterVec
	cycles        prometheus.Counter
	live          prometheus.Gauge
	cargo         prometheus.Gauge
	attached      prometheus.Gauge
	cycleSeconds  prometheus.Histogram

	now  func() time.Time
	last time.Time
}

var _ engine.Participant = (*Metrics)(nil)

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cellsim",
				Name:      "notifications_total",
				Help:      "Participant notifications delivered, by kind.",
			},
			[]string{"kind"},
		),
		exceptions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cellsim",
				Name:      "exceptions_total",
				Help:      "Exceptions delivered to participants, by error code.",
			},
			[]string{"code"},
		),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cellsim",
			Name:      "cycles_total",
			Help:      "Cycles committed and dispatched.",
		}),
		live: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cellsim",
			Name:      "live_cells",
			Help:      "Cells and cargo currently allocated.",
		}),
		cargo: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cellsim",
			Name:      "cargo",
			Help:      "Cargo items currently on the grid.",
		}),
		attached: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cellsim",
			Name:      "participants",
			Help:      "Participants attached to the simulation.",
		}),
		cycleSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cellsim",
			Name:      "cycle_duration_seconds",
			Help:      "Wall time between consecutive cycle notifications.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		now: time.Now,
	}
	m.emit = m.observe

	for _, c := range []prometheus.Collector{
		m.notifications, m.exceptions, m.cycles, m.live, m.cargo, m.attached, m.cycleSeconds,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(e Event) {
	m.notifications.WithLabelValues(string(e.Kind)).Inc()

	switch e.Kind {
	case KindException:
		code := e.Fields["code"]
		if code == "" {
			code = "UNKNOWN"
		}
		m.exceptions.WithLabelValues(code).Inc()
	case KindCycle:
		m.cycles.Inc()
		if m.sim != nil {
			m.live.Set(float64(m.sim.Grid().Live()))
			m.cargo.Set(float64(len(m.sim.Grid().Cargo())))
			m.attached.Set(float64(m.sim.Participants()))
		}
		now := m.now()
		if !m.last.IsZero() {
			m.cycleSeconds.Observe(now.Sub(m.last).Seconds())
		}
		m.last = now
	}
}

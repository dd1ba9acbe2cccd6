package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder exposes pipeline counters to Prometheus.
type Recorder struct {
	outcomes  *prometheus.CounterVec
	alerts    prometheus.Counter
	opened    prometheus.Counter
	closed    *prometheus.CounterVec
	resolved  *prometheus.CounterVec
	notified  *prometheus.CounterVec
	balance   prometheus.Gauge
	openCount prometheus.Gauge
	duration  *prometheus.HistogramVec
}

// New registers the collectors on reg. Passing nil uses the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &Recorder{
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalbot_symbol_outcomes_total",
				Help: "Per-symbol cycle outcomes",
			},
			[]string{"outcome"},
		),
		alerts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalbot_alerts_dispatched_total",
			Help: "Alerts dispatched after ranking and throttling",
		}),
		opened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalbot_positions_opened_total",
			Help: "Virtual positions opened",
		}),
		closed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalbot_positions_closed_total",
				Help: "Virtual positions closed by exit reason",
			},
			[]string{"closed_by"},
		),
		resolved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalbot_resolver_signals_total",
				Help: "Resolver sweep results",
			},
			[]string{"result"},
		),
		notified: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalbot_notifications_total",
				Help: "Notification delivery attempts by result",
			},
			[]string{"result"},
		),
		balance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalbot_ledger_balance",
			Help: "Current virtual balance",
		}),
		openCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalbot_positions_open",
			Help: "Number of open virtual positions",
		}),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signalbot_operation_duration_seconds",
				Help:    "Duration of scheduled operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
	reg.MustRegister(r.outcomes, r.alerts, r.opened, r.closed, r.resolved, r.notified, r.balance, r.openCount, r.duration)
	return r
}

func (r *Recorder) RecordOutcome(outcome string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.outcomes.WithLabelValues(outcome).Add(float64(n))
}

func (r *Recorder) RecordAlerts(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.alerts.Add(float64(n))
}

func (r *Recorder) RecordOpened() {
	if r == nil {
		return
	}
	r.opened.Inc()
}

func (r *Recorder) RecordClosed(closedBy string) {
	if r == nil {
		return
	}
	r.closed.WithLabelValues(closedBy).Inc()
}

func (r *Recorder) RecordResolved(result string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.resolved.WithLabelValues(result).Add(float64(n))
}

// RecordNotify counts one delivery attempt; err is nil on success.
func (r *Recorder) RecordNotify(err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "failed"
	}
	r.notified.WithLabelValues(result).Inc()
}

func (r *Recorder) SetBalance(v float64) {
	if r == nil {
		return
	}
	r.balance.Set(v)
}

func (r *Recorder) SetOpenPositions(n int) {
	if r == nil {
		return
	}
	r.openCount.Set(float64(n))
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	if r == nil {
		return
	}
	r.duration.WithLabelValues(op).Observe(seconds)
}

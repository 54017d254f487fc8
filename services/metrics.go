package services

import (
	"time"

	"github.com/Dosada05/tleague/models"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics - счётчики движка. Нулевой *Metrics допустим и ничего не пишет.
type Metrics struct {
	matchTransitions    *prometheus.CounterVec
	draws               *prometheus.CounterVec
	ratingRecalcs       prometheus.Counter
	notificationsFailed prometheus.Counter
	sweepDuration       prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		matchTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tleague",
			Name:      "match_transitions_total",
			Help:      "Match status transitions by target status.",
		}, []string{"status"}),
		draws: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tleague",
			Name:      "draws_total",
			Help:      "Completed tournament draws by format.",
		}, []string{"format"}),
		ratingRecalcs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tleague",
			Name:      "rating_recalculations_total",
			Help:      "Full rating recalculations.",
		}),
		notificationsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tleague",
			Name:      "notifications_failed_total",
			Help:      "Notifications that could not be delivered.",
		}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tleague",
			Name:      "deadline_sweep_duration_seconds",
			Help:      "Duration of overdue match sweeps.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.matchTransitions, m.draws, m.ratingRecalcs, m.notificationsFailed, m.sweepDuration)
	return m
}

func (m *Metrics) MatchTransition(status models.MatchStatus, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.matchTransitions.WithLabelValues(string(status)).Add(float64(n))
}

func (m *Metrics) DrawCompleted(format models.TournamentFormat) {
	if m == nil {
		return
	}
	m.draws.WithLabelValues(string(format)).Inc()
}

func (m *Metrics) RatingRecalculated() {
	if m == nil {
		return
	}
	m.ratingRecalcs.Inc()
}

func (m *Metrics) NotificationFailed() {
	if m == nil {
		return
	}
	m.notificationsFailed.Inc()
}

func (m *Metrics) ObserveSweep(d time.Duration) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(d.Seconds())
}

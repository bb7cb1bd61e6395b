// Package metrics holds the Prometheus instrumentation for the matching
// engine's public operations: one struct of named collectors, registered
// once at startup, updated by calling code rather than by a background
// poller.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every Prometheus collector the engine updates.
type Registry struct {
	SolveDuration     *prometheus.HistogramVec
	SolveTotal        *prometheus.CounterVec
	AssignedUsers     prometheus.Counter
	UnassignedUsers   prometheus.Counter
	PulseValue        *prometheus.GaugeVec
	FeedbackEvents    *prometheus.CounterVec
	RSVPAttempts      *prometheus.CounterVec
	FairnessGap       prometheus.Gauge
	SolverDegradation prometheus.Counter
}

// NewRegistry builds and registers every collector against reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	m := &Registry{
		SolveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "matchengine_solve_duration_seconds",
			Help:    "Duration of a full solve (score + assign + recommend).",
			Buckets: prometheus.DefBuckets,
		}, []string{"solver"}),
		SolveTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchengine_solve_total",
			Help: "Total number of solve operations by outcome.",
		}, []string{"outcome"}),
		AssignedUsers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchengine_assigned_users_total",
			Help: "Cumulative count of users assigned across all solves.",
		}),
		UnassignedUsers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchengine_unassigned_users_total",
			Help: "Cumulative count of users left unassigned across all solves.",
		}),
		PulseValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "matchengine_opp_pulse",
			Help: "Most recently computed pulse value per opportunity.",
		}, []string{"opp_id"}),
		FeedbackEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchengine_feedback_events_total",
			Help: "Feedback events recorded by event type.",
		}, []string{"event"}),
		RSVPAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchengine_rsvp_attempts_total",
			Help: "RSVP attempts by result status.",
		}, []string{"status"}),
		FairnessGap: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "matchengine_fairness_gap",
			Help: "max(cohort rate) - min(cohort rate) over the last assignment.",
		}),
		SolverDegradation: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchengine_solver_degraded_total",
			Help: "Count of solves that fell back from min-cost-flow to greedy.",
		}),
	}

	reg.MustRegister(
		m.SolveDuration, m.SolveTotal, m.AssignedUsers, m.UnassignedUsers,
		m.PulseValue, m.FeedbackEvents, m.RSVPAttempts, m.FairnessGap, m.SolverDegradation,
	)
	return m
}

// ObserveSolve records the duration and outcome of one solve call.
func (m *Registry) ObserveSolve(solver string, start time.Time, assigned, unassigned int) {
	m.SolveDuration.WithLabelValues(solver).Observe(time.Since(start).Seconds())
	m.SolveTotal.WithLabelValues("ok").Inc()
	m.AssignedUsers.Add(float64(assigned))
	m.UnassignedUsers.Add(float64(unassigned))
}

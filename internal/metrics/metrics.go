// Package metrics holds the Prometheus collectors of the screener.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	TurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screener_turns_total",
			Help: "Total number of handled user turns by classification",
		},
		[]string{"kind"},
	)
	CollaboratorRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screener_collaborator_requests_total",
			Help: "Total number of collaborator calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)
	CollaboratorRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "screener_collaborator_request_duration_seconds",
			Help:    "Collaborator call duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"operation"},
	)
	InvitationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screener_invitations_total",
			Help: "Total number of invitation deliveries by outcome",
		},
		[]string{"outcome"},
	)
	ScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "screener_candidate_score",
			Help:    "Distribution of candidate scores",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)
)

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		TurnsTotal,
		CollaboratorRequestsTotal,
		CollaboratorRequestDuration,
		InvitationsTotal,
		ScoreHistogram,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveTurn counts a handled turn.
func ObserveTurn(kind string) {
	TurnsTotal.WithLabelValues(kind).Inc()
}

// ObserveCollaborator records the outcome and latency of one collaborator call.
func ObserveCollaborator(operation string, started time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	CollaboratorRequestsTotal.WithLabelValues(operation, outcome).Inc()
	CollaboratorRequestDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// ObserveInvitation counts one delivery attempt.
func ObserveInvitation(ok bool) {
	if ok {
		InvitationsTotal.WithLabelValues("sent").Inc()
		return
	}
	InvitationsTotal.WithLabelValues("failed").Inc()
}

// ObserveScore records a candidate score.
func ObserveScore(score float64) {
	ScoreHistogram.Observe(score)
}

package obs

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	lockoutDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authn_lockout_decisions_total",
			Help: "Lockout policy decisions by outcome.",
		},
		[]string{"allowed"},
	)

	lockoutFailureStreak = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "authn_lockout_failure_streak",
			Help:    "Sequential failure count observed per lockout evaluation.",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
	)

	autologinRedemptions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authn_autologin_redemptions_total",
			Help: "Autologin code redemptions by outcome.",
		},
		[]string{"outcome"},
	)
)

// Init registers metrics in the default registry.
func Init() {
	prometheus.MustRegister(lockoutDecisions, lockoutFailureStreak, autologinRedemptions)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveLockoutDecision records the outcome of a lockout evaluation.
func ObserveLockoutDecision(allowed bool, failureCount int) {
	lockoutDecisions.WithLabelValues(strconv.FormatBool(allowed)).Inc()
	lockoutFailureStreak.Observe(float64(failureCount))
}

// ObserveAutologin records the outcome label of a code redemption attempt.
func ObserveAutologin(outcome string) {
	autologinRedemptions.WithLabelValues(outcome).Inc()
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Resolutions counts directory resolutions by scope (global|guild) and
	// result (hit|miss|error).
	Resolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "guildtrack", Name: "resolutions_total", Help: "Directory identity resolutions by scope and result."},
		[]string{"scope", "result"},
	)
	// Reconciliations counts store merges by outcome (created|updated|error).
	Reconciliations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "guildtrack", Name: "reconciliations_total", Help: "Member record reconciliations by outcome."},
		[]string{"outcome"},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "guildtrack", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "guildtrack", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(Resolutions)
	reg.MustRegister(Reconciliations)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}

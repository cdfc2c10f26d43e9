package monitor

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics
var (
	alertsRaised = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "spiceops", Name: "alerts_raised_total", Help: "Business events raised by type and tier."},
		[]string{"type", "tier"},
	)
	alertsSuppressed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "spiceops", Name: "alerts_suppressed_total", Help: "Alerts skipped because history already had them."},
		[]string{"type"},
	)
	runwayMonths = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Namespace: "spiceops", Name: "runway_months", Help: "Latest finite runway per user; -1 when sustainable."},
		[]string{"user_id"},
	)
)

func init() {
	_ = prometheus.Register(alertsRaised)
	_ = prometheus.Register(alertsSuppressed)
	_ = prometheus.Register(runwayMonths)
}

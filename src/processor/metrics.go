package processor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var panelDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "rental",
		Name:      "panel_duration_seconds",
		Help:      "Time spent computing one dashboard panel.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"panel", "outcome"},
)

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

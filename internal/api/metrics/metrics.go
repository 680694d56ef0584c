// Package metrics defines and registers the custom Prometheus metrics of the
// meal-card API. It is the single source of truth for metric names, labels,
// and help strings. Metrics register with the default registry on import.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "loyalty"

// ── Scan metrics ──────────────────────────────────────────────────────────────

// ScansTotal counts scan outcomes.
// Labels:
//   - status: "redeemed", "malformed", "expired", "user_not_found", "ignored",
//     "already_redeemed" or "failed"
//   - source: "http" or "stream"
var ScansTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scans_total",
		Help:      "Total number of voucher scans, by outcome and source.",
	},
	[]string{"status", "source"},
)

// ScanDuration measures a scan from payload receipt to result.
var ScanDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "scan_duration_seconds",
		Help:      "Duration of a voucher scan including the ledger write.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"status"},
)

// FreeMealsEarnedTotal counts completed cards.
var FreeMealsEarnedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "free_meals_earned_total",
		Help:      "Total number of scans that completed a card of six meals.",
	},
)

// ScanStreamsActive tracks open scanner websocket connections.
var ScanStreamsActive = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "scan_streams_active",
		Help:      "Number of connected scanner streams.",
	},
)

// ── Auth metrics ──────────────────────────────────────────────────────────────

// SignInsTotal counts sign-in attempts.
// Label:
//   - result: "admin", "customer" or "failed"
var SignInsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signins_total",
		Help:      "Total number of sign-in attempts, by resolved role or failure.",
	},
	[]string{"result"},
)

// ObserveScan records one scan outcome.
func ObserveScan(status, source string, took time.Duration, freeMeal bool) {
	ScansTotal.WithLabelValues(status, source).Inc()
	ScanDuration.WithLabelValues(status).Observe(took.Seconds())
	if freeMeal {
		FreeMealsEarnedTotal.Inc()
	}
}

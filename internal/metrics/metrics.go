package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Assignment outcomes.
const (
	OutcomeAssigned  = "assigned"
	OutcomeExhausted = "exhausted"
	OutcomeNotFound  = "not_found"
	OutcomeFailed    = "failed"
	ImportCreated    = "created"
	ImportRejected   = "rejected"
)

var (
	// AssignmentDuration tracks campaign-to-user assignment latency including retries.
	AssignmentDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "coupon_assignment_duration_seconds",
			Help: "Duration of campaign coupon assignment in seconds",
			Buckets: []float64{
				0.001, // 1ms
				0.005, // 5ms
				0.01,  // 10ms
				0.025, // 25ms
				0.05,  // 50ms
				0.1,   // 100ms
				0.25,  // 250ms
				0.5,   // 500ms
				1.0,   // 1s
				2.5,   // 2.5s
			},
		},
		[]string{"outcome"},
	)

	// AssignmentRetries counts assignment attempts lost to a concurrent writer.
	AssignmentRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coupon_assignment_retries_total",
		Help: "Assignment attempts retried after losing the compare-and-swap",
	})

	// ImportRecords counts bulk-import records by result.
	ImportRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coupon_import_records_total",
			Help: "Bulk import records processed",
		},
		[]string{"format", "result"},
	)

	// Redemptions counts coupons moved to redeemed.
	Redemptions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coupon_redemptions_total",
		Help: "Coupons redeemed",
	})
)

// RecordAssignment records the duration and outcome of one assignment call.
func RecordAssignment(outcome string, seconds float64) {
	AssignmentDuration.WithLabelValues(outcome).Observe(seconds)
}

// RecordImport adds n records with the given result.
func RecordImport(format, result string, n int) {
	if n <= 0 {
		return
	}
	ImportRecords.WithLabelValues(format, result).Add(float64(n))
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BookingsConfirmed counts successful create commits.
	BookingsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "venuebook",
		Name:      "bookings_confirmed_total",
		Help:      "The total number of confirmed bookings",
	})

	// BookingsUpdated counts successful edits.
	BookingsUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "venuebook",
		Name:      "bookings_updated_total",
		Help:      "The total number of updated bookings",
	})

	// BookingsArchived counts soft deletes.
	BookingsArchived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "venuebook",
		Name:      "bookings_archived_total",
		Help:      "The total number of archived bookings",
	})

	// BookingConflicts counts create/update attempts that lost the race for a
	// slot or asked for an occupied one.
	BookingConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "venuebook",
		Name:      "booking_conflicts_total",
		Help:      "The total number of rejected conflicting booking attempts",
	})

	// MessagesProcessed is the total number of processed messages.
	MessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messages",
			Name:      "processed_total",
			Help:      "The total number of processed messages",
		},
		[]string{"topic", "handler"},
	)

	// MessagesProcessingFailed is the total number of message processing failures.
	MessagesProcessingFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messages",
			Name:      "processing_failed_total",
			Help:      "The total number of message processing failures",
		},
		[]string{"topic", "handler"},
	)

	// MessagesProcessingDuration is the time spent processing messages.
	MessagesProcessingDuration = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace:  "messages",
			Name:       "processing_duration_seconds",
			Help:       "The total time spent processing messages",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"topic", "handler"},
	)
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "turnly"

var (
	BookingsCommitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_committed_total",
			Help:      "Appointments created by the booking transaction.",
		},
		[]string{"professional"}, // any | specific
	)

	BookingConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_conflicts_total",
			Help:      "Booking attempts rejected because the slot was taken.",
		},
	)

	AvailabilityDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "availability_compute_seconds",
			Help:      "Time spent computing the slots of one day.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	DraftTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "draft_transitions_total",
			Help:      "Booking draft steps entered, and redirects caused by missing prerequisites.",
		},
		[]string{"step", "outcome"}, // outcome: entered | redirected | rejected
	)

	StatusChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointment_status_changes_total",
			Help:      "Staff status updates by target status.",
		},
		[]string{"status"},
	)

	OutboxDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_dispatched_total",
			Help:      "Outbox events handed to a dispatcher.",
		},
		[]string{"dispatcher", "result"}, // result: ok | error
	)
)

package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics
var (
	TrackedThreats = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "nexus_tracked_threats",
		Help: "Threats currently tracked per source",
	}, []string{"source"})
	Announcements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexus_announcements_total",
		Help: "Announcement jobs queued per source",
	}, []string{"source"})
	Utterances = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexus_utterances_total",
		Help: "Audio steps played, by kind (earcon, speech, timeout)",
	}, []string{"kind"})
	FetchResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexus_fetch_results_total",
		Help: "Fetch attempts per source and outcome",
	}, []string{"source", "outcome"})
	AvailabilityTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexus_availability_transitions_total",
		Help: "Availability transitions per source",
	}, []string{"source", "to"})
	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nexus_fetch_duration_seconds",
		Help:    "Duration of fetch attempts",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"source"})
)

// SPDX-License-Identifier: MIT

// Package metrics exposes the studio's prometheus collectors behind small
// helper functions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session lifecycle metrics
	sessionsStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studio_sessions_started_total",
		Help: "Total number of recording sessions started",
	})

	sessionsFinishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studio_sessions_finished_total",
		Help: "Sessions reaching a terminal state by outcome",
	}, []string{"outcome"}) // outcome=completed|discarded|cancelled

	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "studio_sessions_active",
		Help: "Whether a recording session currently holds capture devices (0 or 1)",
	})

	chunksCapturedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studio_chunks_captured_total",
		Help: "Total number of media chunks cut across all sessions",
	})

	recordingDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "studio_recording_duration_seconds",
		Help:    "Final duration of completed recordings",
		Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1800},
	})

	// Capture setup metrics
	captureSetupTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studio_capture_setup_total",
		Help: "Stream composition attempts by outcome",
	}, []string{"outcome"}) // outcome=success|denied|unavailable|dismissed|error

	// Metadata enrichment metrics
	enrichmentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studio_enrichment_total",
		Help: "Metadata enrichment runs by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	enrichmentDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "studio_enrichment_duration_seconds",
		Help:    "Time spent generating metadata for one recording",
		Buckets: prometheus.DefBuckets,
	})

	// Storage metrics
	recordingsStoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studio_recordings_stored_total",
		Help: "Total number of recordings persisted",
	})

	storeFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studio_store_failures_total",
		Help: "Persistence failures by operation",
	}, []string{"op"}) // op=put|get|delete|view|blob

	viewsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studio_views_total",
		Help: "Total number of recording views registered",
	})

	// Cache metrics
	cacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studio_cache_requests_total",
		Help: "Read cache lookups by outcome",
	}, []string{"outcome"}) // outcome=hit|miss
)

func IncSessionStarted() {
	sessionsStartedTotal.Inc()
	sessionsActive.Set(1)
}

func RecordSessionFinished(outcome string) {
	sessionsFinishedTotal.WithLabelValues(outcome).Inc()
	sessionsActive.Set(0)
}

func AddChunksCaptured(n int) { chunksCapturedTotal.Add(float64(n)) }

func ObserveRecordingDuration(d time.Duration) {
	recordingDurationSeconds.Observe(d.Seconds())
}

func IncCaptureSetup(outcome string) { captureSetupTotal.WithLabelValues(outcome).Inc() }

func RecordEnrichment(d time.Duration, err error) {
	if err != nil {
		enrichmentTotal.WithLabelValues("failure").Inc()
		return
	}
	enrichmentTotal.WithLabelValues("success").Inc()
	enrichmentDurationSeconds.Observe(d.Seconds())
}

func IncRecordingStored()       { recordingsStoredTotal.Inc() }
func IncStoreFailure(op string) { storeFailuresTotal.WithLabelValues(op).Inc() }
func IncView()                  { viewsTotal.Inc() }

func IncCacheRequest(hit bool) {
	if hit {
		cacheRequestsTotal.WithLabelValues("hit").Inc()
		return
	}
	cacheRequestsTotal.WithLabelValues("miss").Inc()
}

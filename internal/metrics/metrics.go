// Package metrics exports broker-internal counters and gauges via
// prometheus/client_golang, mounted on the admin HTTP surface built in
// cmd/hornetq-broker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheSize is a gauge for the Pattern Repository's CacheSize().
	// No code in this module sets it; cmd/hornetq-broker does not
	// sample the repository into it. The cache hit-rate
	// testable property itself (spec.md §8) is exercised directly in
	// pkg/wildcard's own tests; this gauge is an operational view, not
	// the correctness check.
	CacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "hornetq",
		Subsystem: "pattern_repository",
		Name:      "cache_size",
		Help:      "Entries currently held in the Pattern Repository's Get cache.",
	})

	// FramesDecoded and DecodeErrors track the Frame Decoder.
	FramesDecoded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hornetq",
		Subsystem: "frame_decoder",
		Name:      "frames_decoded_total",
		Help:      "Frames successfully decoded across all connections.",
	})
	DecodeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hornetq",
		Subsystem: "frame_decoder",
		Name:      "decode_errors_total",
		Help:      "Decode failures by error kind.",
	}, []string{"kind"})

	// JournalFlushes and JournalFlushBytes track the Sequential File
	// Factory's Timed Buffer.
	JournalFlushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hornetq",
		Subsystem: "journal",
		Name:      "flushes_total",
		Help:      "Timed Buffer flushes by trigger (size, timeout or close).",
	}, []string{"trigger"})
	JournalFlushBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "hornetq",
		Subsystem: "journal",
		Name:      "flush_bytes",
		Help:      "Size in bytes of each Timed Buffer flush.",
		Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
	})
)

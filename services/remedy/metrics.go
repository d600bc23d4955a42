// Copyright (C) 2025 Floressence Labs (dev@floressence.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package remedy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	recommendationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "floressence",
		Subsystem: "engine",
		Name:      "recommendations_total",
		Help:      "Recommendation requests by outcome: success, validation_error, collaborator_error",
	}, []string{"outcome"})

	recommendLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "floressence",
		Subsystem: "engine",
		Name:      "recommend_latency_seconds",
		Help:      "End-to-end latency of recommendation requests",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
	})

	extractionFallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "floressence",
		Subsystem: "engine",
		Name:      "extraction_fallback_total",
		Help:      "Extraction provider failures degraded to raw query text",
	})

	graphRebuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "floressence",
		Subsystem: "engine",
		Name:      "graph_rebuilds_total",
		Help:      "Relationship graph rebuilds by outcome: success, error",
	}, []string{"outcome"})
)

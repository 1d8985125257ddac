package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the tile service.
type Metrics struct {
	TilesRendered      prometheus.Counter
	TileRenderDuration prometheus.Histogram

	// Render cache metrics.
	CacheLookups   *prometheus.CounterVec // labels: result={hit,miss}
	CacheEvictions prometheus.Counter
	CacheEntries   prometheus.Gauge

	// Granule store metrics.
	GranulesRead      prometheus.Counter
	GranuleReadErrors prometheus.Counter
	GranuleRefreshes  prometheus.Counter

	// Coverage audit metrics.
	AuditRuns        prometheus.Counter
	AuditSuspectGaps prometheus.Counter

	VectorProbeEnabled prometheus.Gauge
	WarmupTilesPrimed  prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		TilesRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_tiles",
			Name:      "tiles_rendered_total",
			Help:      "Total tiles rendered from elevation data (cache misses that did the work).",
		}),
		TileRenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flood_tiles",
			Name:      "tile_render_duration_seconds",
			Help:      "Duration of a full extract-map-encode render.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_tiles",
			Name:      "cache_lookups_total",
			Help:      "Render cache lookups by result.",
		}, []string{"result"}),
		CacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_tiles",
			Name:      "cache_evictions_total",
			Help:      "Entries evicted from the render cache to make room.",
		}),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flood_tiles",
			Name:      "cache_entries",
			Help:      "Current number of cached tiles.",
		}),
		GranulesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_tiles",
			Name:      "granule_reads_total",
			Help:      "Total elevation granule reads.",
		}),
		GranuleReadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_tiles",
			Name:      "granule_read_errors_total",
			Help:      "Granule reads that failed and degraded to missing data.",
		}),
		GranuleRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_tiles",
			Name:      "granule_refreshes_total",
			Help:      "Granule index refreshes triggered by update notifications.",
		}),
		AuditRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_tiles",
			Name:      "audit_runs_total",
			Help:      "Completed coverage audit runs.",
		}),
		AuditSuspectGaps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_tiles",
			Name:      "audit_suspect_gaps_total",
			Help:      "Tiles flagged by audits as suspect coverage gaps.",
		}),
		VectorProbeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flood_tiles",
			Name:      "vector_probe_enabled",
			Help:      "1 when the vector cross-reference probe is enabled, 0 otherwise.",
		}),
		WarmupTilesPrimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_tiles",
			Name:      "warmup_tiles_primed_total",
			Help:      "Tiles rendered into the cache by the startup warmup.",
		}),
	}

	prometheus.MustRegister(
		m.TilesRendered,
		m.TileRenderDuration,
		m.CacheLookups,
		m.CacheEvictions,
		m.CacheEntries,
		m.GranulesRead,
		m.GranuleReadErrors,
		m.GranuleRefreshes,
		m.AuditRuns,
		m.AuditSuspectGaps,
		m.VectorProbeEnabled,
		m.WarmupTilesPrimed,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		TilesRendered:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "flood_tiles", Name: "tiles_rendered_total"}),
		TileRenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "flood_tiles", Name: "tile_render_duration_seconds"}),
		CacheLookups:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "flood_tiles", Name: "cache_lookups_total"}, []string{"result"}),
		CacheEvictions:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "flood_tiles", Name: "cache_evictions_total"}),
		CacheEntries:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "flood_tiles", Name: "cache_entries"}),
		GranulesRead:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "flood_tiles", Name: "granule_reads_total"}),
		GranuleReadErrors:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "flood_tiles", Name: "granule_read_errors_total"}),
		GranuleRefreshes:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "flood_tiles", Name: "granule_refreshes_total"}),
		AuditRuns:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "flood_tiles", Name: "audit_runs_total"}),
		AuditSuspectGaps:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "flood_tiles", Name: "audit_suspect_gaps_total"}),
		VectorProbeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "flood_tiles", Name: "vector_probe_enabled"}),
		WarmupTilesPrimed:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "flood_tiles", Name: "warmup_tiles_primed_total"}),
	}
}

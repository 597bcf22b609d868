package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	correctionsTotal     prometheus.Counter
	strayEncountersTotal prometheus.Counter
	skippedRacesTotal    prometheus.Counter
	passthroughLines     prometheus.Counter
	linesMigratedTotal   prometheus.Counter
	migrateErrorsTotal   prometheus.Counter

	cycleDuration   prometheus.Histogram
	migrateDuration prometheus.Histogram

	strayFiles     prometheus.Gauge
	canonicalLines prometheus.Gauge

	journalWriteDuration prometheus.Histogram
	gatewayClients       prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			correctionsTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "consolidation_corrections_total",
					Help: "Total stray files migrated into the canonical file.",
				},
			),
			strayEncountersTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "consolidation_stray_encounters_total",
					Help: "Total stray-file migration attempts, including skipped races.",
				},
			),
			skippedRacesTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "consolidation_skipped_races_total",
					Help: "Migration attempts skipped because the stray vanished first.",
				},
			),
			passthroughLines: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "consolidation_passthrough_lines_total",
					Help: "Lines copied verbatim because they failed to decode.",
				},
			),
			linesMigratedTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "consolidation_lines_migrated_total",
					Help: "Total lines appended to the canonical file.",
				},
			),
			migrateErrorsTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "consolidation_migrate_errors_total",
					Help: "Migrations that failed and left the stray intact for retry.",
				},
			),
			cycleDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "consolidation_cycle_duration_seconds",
					Help:    "Detection cycle duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			migrateDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "consolidation_migrate_duration_seconds",
					Help:    "Single stray migration duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			strayFiles: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "consolidation_stray_files",
					Help: "Stray files observed in the most recent cycle.",
				},
			),
			canonicalLines: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "consolidation_canonical_lines",
					Help: "Line count of the canonical file at last verification.",
				},
			),
			journalWriteDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "journal_write_duration_seconds",
					Help:    "Journal write duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			gatewayClients: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "gateway_connected_clients",
					Help: "Currently connected gateway stream clients.",
				},
			),
		}

		prometheus.MustRegister(
			m.correctionsTotal,
			m.strayEncountersTotal,
			m.skippedRacesTotal,
			m.passthroughLines,
			m.linesMigratedTotal,
			m.migrateErrorsTotal,
			m.cycleDuration,
			m.migrateDuration,
			m.strayFiles,
			m.canonicalLines,
			m.journalWriteDuration,
			m.gatewayClients,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func RecordCorrection(duration time.Duration, linesMigrated, passthrough int) {
	m := getMetrics()
	m.correctionsTotal.Inc()
	m.migrateDuration.Observe(duration.Seconds())
	m.linesMigratedTotal.Add(float64(linesMigrated))
	m.passthroughLines.Add(float64(passthrough))
}

func RecordStrayEncounter() {
	getMetrics().strayEncountersTotal.Inc()
}

func RecordSkippedRace() {
	getMetrics().skippedRacesTotal.Inc()
}

func RecordMigrateError() {
	getMetrics().migrateErrorsTotal.Inc()
}

func RecordCycle(duration time.Duration, strayCount int) {
	m := getMetrics()
	m.cycleDuration.Observe(duration.Seconds())
	m.strayFiles.Set(float64(strayCount))
}

func SetCanonicalLines(count int) {
	getMetrics().canonicalLines.Set(float64(count))
}

func RecordJournalWrite(duration time.Duration) {
	getMetrics().journalWriteDuration.Observe(duration.Seconds())
}

func SetGatewayClients(count int) {
	getMetrics().gatewayClients.Set(float64(count))
}

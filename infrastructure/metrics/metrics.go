package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"packdash/infrastructure/ingest"
)

// Registry holds the ingestion metrics. It implements ingest.Recorder.
type Registry struct {
	reg *prometheus.Registry

	Uploads          *prometheus.CounterVec
	RecordsReceived  prometheus.Counter
	RecordsInserted  prometheus.Counter
	DuplicatesFound  prometheus.Counter
	RowErrors        prometheus.Counter
	IngestLatencySec prometheus.Histogram
	Exports          *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	uploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "packdash_uploads_total",
		Help: "Processed uploads by result (ok, insert_failed, rejected).",
	}, []string{"result"})
	received := prometheus.NewCounter(prometheus.CounterOpts{Name: "packdash_records_received_total"})
	inserted := prometheus.NewCounter(prometheus.CounterOpts{Name: "packdash_records_inserted_total"})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{Name: "packdash_duplicates_found_total"})
	rowErrors := prometheus.NewCounter(prometheus.CounterOpts{Name: "packdash_row_errors_total"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "packdash_ingest_latency_seconds",
		Buckets: prometheus.DefBuckets,
	})
	exports := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "packdash_exports_total"}, []string{"format"})

	r.MustRegister(uploads, received, inserted, duplicates, rowErrors, latency, exports)
	return &Registry{
		reg:              r,
		Uploads:          uploads,
		RecordsReceived:  received,
		RecordsInserted:  inserted,
		DuplicatesFound:  duplicates,
		RowErrors:        rowErrors,
		IngestLatencySec: latency,
		Exports:          exports,
	}
}

func (r *Registry) ObserveIngest(o ingest.Outcome, elapsed time.Duration) {
	switch {
	case o.Precondition:
		r.Uploads.WithLabelValues("rejected").Inc()
		return
	case !o.Success:
		r.Uploads.WithLabelValues("insert_failed").Inc()
	default:
		r.Uploads.WithLabelValues("ok").Inc()
		r.RecordsInserted.Add(float64(o.ValidRecords))
	}
	r.RecordsReceived.Add(float64(o.TotalReceived))
	r.DuplicatesFound.Add(float64(o.DuplicatesFound))
	r.RowErrors.Add(float64(o.RowErrors))
	r.IngestLatencySec.Observe(elapsed.Seconds())
}

func (r *Registry) ObserveExport(format string) {
	r.Exports.WithLabelValues(format).Inc()
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

// Package metrics holds the Prometheus collectors of the catalog.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var ImportRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "iptvcatalog_import_runs_total",
	Help: "The number of import runs by final status",
}, []string{"status"})

var ImportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "iptvcatalog_import_duration_seconds",
	Help:    "The duration of an import run from fetch to last chunk",
	Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
})

var RowsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "iptvcatalog_rows_written_total",
	Help: "The number of catalog rows upserted",
}, []string{"table"})

var StreamsSkipped = promauto.NewCounter(prometheus.CounterOpts{
	Name: "iptvcatalog_streams_skipped_total",
	Help: "The number of stream items dropped for lacking an identifier",
})

var ChunkSize = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "iptvcatalog_stream_chunk_size",
	Help:    "The number of streams written per chunk",
	Buckets: prometheus.ExponentialBuckets(1, 2, 11),
})

var QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "iptvcatalog_query_duration_seconds",
	Help:    "The duration of catalog read queries",
	Buckets: prometheus.DefBuckets,
}, []string{"query"})

var PlaylistFetches = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "iptvcatalog_playlist_fetches_total",
	Help: "The number of playlist download attempts",
}, []string{"result"})

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProcedureCallsTotal counts procedure calls by outcome
	ProcedureCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gds_procedure_calls_total",
			Help: "The total number of procedure calls sent to the query runner",
		},
		[]string{"procedure", "status"},
	)

	// ProcedureDurationSeconds measures the round trip of a procedure call
	ProcedureDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gds_procedure_duration_seconds",
			Help:    "Duration of procedure calls including result collection",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"procedure"},
	)

	// ProcedureRowsTotal tracks result rows returned per procedure
	ProcedureRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gds_procedure_rows_total",
			Help: "Total rows returned by procedure calls",
		},
		[]string{"procedure"},
	)

	// CompatibilityRejectionsTotal counts calls refused before dispatch
	CompatibilityRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gds_compatibility_rejections_total",
			Help: "Calls rejected because the server version is outside the supported range",
		},
		[]string{"method"},
	)

	// ConstructBatchesTotal counts record batches uploaded during graph construction
	ConstructBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gds_construct_batches_total",
			Help: "Record batches uploaded while constructing graphs",
		},
		[]string{"entity"},
	)

	// ConstructRowsTotal counts rows uploaded during graph construction
	ConstructRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gds_construct_rows_total",
			Help: "Rows uploaded while constructing graphs",
		},
		[]string{"entity"},
	)

	// ConstructAbortsTotal counts graph constructions rolled back after a failure
	ConstructAbortsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gds_construct_aborts_total",
			Help: "Graph constructions aborted after a mid-stream failure",
		},
	)

	// FlightOperationsTotal counts Arrow Flight calls (DoAction, DoPut)
	FlightOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gds_flight_operations_total",
			Help: "The total number of Arrow Flight operations issued by the client",
		},
		[]string{"method", "status"},
	)

	// FlightDurationSeconds measures the latency of Flight operations
	FlightDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gds_flight_duration_seconds",
			Help:    "Duration of Arrow Flight operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// LoaderRowsTotal counts rows read from input files
	LoaderRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gds_loader_rows_total",
			Help: "Rows read from Parquet and Arrow IPC input files",
		},
		[]string{"format", "entity"},
	)

	// LoaderReadDurationSeconds measures how long reading one input file takes
	LoaderReadDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gds_loader_read_duration_seconds",
			Help:    "Duration of reading one input file",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"format"},
	)
)

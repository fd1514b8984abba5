package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BridgeRunsTotal counts finished orchestrator runs by source chain and terminal status
	BridgeRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_runs_total",
			Help: "Total number of bridge runs that reached a terminal status",
		},
		[]string{"source_chain", "status"},
	)

	// RunDuration tracks wall time from run start to terminal status
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_run_duration_seconds",
			Help:    "Bridge run duration in seconds",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 900, 1800},
		},
		[]string{"source_chain", "status"},
	)

	// StepDuration tracks the time spent in each orchestrator step
	StepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_step_duration_seconds",
			Help:    "Orchestrator step duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step"},
	)

	// TransitionsTotal counts persisted status transitions
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_transitions_total",
			Help: "Total number of persisted bridge status transitions",
		},
		[]string{"status"},
	)

	// InFlightRuns tracks the number of runs currently executing
	InFlightRuns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bridge_inflight_runs",
			Help: "Number of bridge runs currently executing",
		},
	)

	// InitiateRequestsTotal counts intake requests by outcome
	InitiateRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_initiate_requests_total",
			Help: "Total number of bridge initiate requests",
		},
		[]string{"outcome"},
	)

	// AttestationPollsTotal counts attestation oracle requests by result
	AttestationPollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_attestation_polls_total",
			Help: "Total number of attestation oracle requests",
		},
		[]string{"result"},
	)

	// TransactionsSent counts transactions sent to each chain
	TransactionsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_transactions_sent_total",
			Help: "Total number of transactions sent",
		},
		[]string{"chain", "method", "status"},
	)

	// GasUsed tracks gas used for chain transactions
	GasUsed = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_gas_used",
			Help:    "Gas used for chain transactions",
			Buckets: []float64{21000, 50000, 100000, 200000, 300000, 500000},
		},
		[]string{"chain", "method"},
	)

	// ErrorsTotal counts errors by component and type
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)
